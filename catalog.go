package geoplot

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// Catalog indexes shapefile features in Postgres so large collections can
// be queried by bounding box without re-reading the source files.
type Catalog struct {
	conn *sql.DB
}

// FeatureRecord is one indexed feature: its source file, its name
// attribute and its bounding box in lon/lat.
type FeatureRecord struct {
	Source string
	Name   string
	MinX   float64
	MinY   float64
	MaxX   float64
	MaxY   float64
}

// NewCatalog opens the catalog database connection.
func NewCatalog(cfg DatabaseConfig) (*Catalog, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	slog.Info("catalog database connected")

	return &Catalog{conn: db}, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.conn.Close()
}

// EnsureSchema creates the feature table when it does not exist yet.
func (c *Catalog) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS shape_features (
			id         uuid PRIMARY KEY,
			source     text NOT NULL,
			name       text NOT NULL,
			min_x      double precision NOT NULL,
			min_y      double precision NOT NULL,
			max_x      double precision NOT NULL,
			max_y      double precision NOT NULL,
			created_at timestamptz NOT NULL DEFAULT NOW(),
			updated_at timestamptz NOT NULL DEFAULT NOW(),
			UNIQUE (source, name)
		)
	`

	if _, err := c.conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// UpsertFeature inserts or refreshes a single feature record.
func (c *Catalog) UpsertFeature(ctx context.Context, rec *FeatureRecord) error {
	query := `
		INSERT INTO shape_features (id, source, name, min_x, min_y, max_x, max_y, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (source, name)
		DO UPDATE SET
			min_x = EXCLUDED.min_x,
			min_y = EXCLUDED.min_y,
			max_x = EXCLUDED.max_x,
			max_y = EXCLUDED.max_y,
			updated_at = NOW()
	`

	_, err := c.conn.ExecContext(ctx, query,
		uuid.NewString(), rec.Source, rec.Name,
		rec.MinX, rec.MinY, rec.MaxX, rec.MaxY,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert feature: %w", err)
	}
	return nil
}

// dedupeFeatureRecords drops earlier records sharing a (source, name) key,
// keeping the last one. A multi-row ON CONFLICT DO UPDATE statement aborts
// when it would touch the same row twice.
func dedupeFeatureRecords(recs []FeatureRecord) []FeatureRecord {
	seen := make(map[[2]string]int, len(recs))
	out := make([]FeatureRecord, 0, len(recs))
	for _, rec := range recs {
		key := [2]string{rec.Source, rec.Name}
		if at, ok := seen[key]; ok {
			out[at] = rec
			continue
		}
		seen[key] = len(out)
		out = append(out, rec)
	}
	return out
}

// BatchUpsertFeatures inserts or refreshes many feature records using
// chunked multi-row inserts inside periodic transactions, so large indexing
// runs are fast and keep their progress on failure. Records repeating a
// (source, name) key collapse to the last occurrence.
func (c *Catalog) BatchUpsertFeatures(ctx context.Context, recs []FeatureRecord, batchSize int) (int, error) {
	deduped := dedupeFeatureRecords(recs)
	if len(deduped) != len(recs) {
		slog.Info("dropped duplicate feature records", "duplicates", len(recs)-len(deduped))
		recs = deduped
	}

	logger := slog.With("total_features", len(recs), "batch_size", batchSize)
	logger.Info("starting batch upsert of features")

	// PostgreSQL caps a query at 65535 parameters; each record takes 7.
	const maxBatchSize = 9000
	if batchSize < 1 {
		batchSize = 1000
	}
	if batchSize > maxBatchSize {
		batchSize = maxBatchSize
	}

	const rowsPerTransaction = 500000

	inserted := 0
	var tx *sql.Tx
	var err error
	rowsInCurrentTx := 0

	for i := 0; i < len(recs); i += batchSize {
		if tx == nil {
			tx, err = c.conn.BeginTx(ctx, nil)
			if err != nil {
				return inserted, fmt.Errorf("failed to begin transaction: %w", err)
			}
			rowsInCurrentTx = 0
		}

		end := i + batchSize
		if end > len(recs) {
			end = len(recs)
		}
		batch := recs[i:end]

		valuesStrings := make([]string, 0, len(batch))
		valueArgs := make([]interface{}, 0, len(batch)*7)

		for idx, rec := range batch {
			basePos := idx * 7
			valuesStrings = append(valuesStrings,
				fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, NOW(), NOW())",
					basePos+1, basePos+2, basePos+3, basePos+4, basePos+5, basePos+6, basePos+7))

			valueArgs = append(valueArgs,
				uuid.NewString(), rec.Source, rec.Name,
				rec.MinX, rec.MinY, rec.MaxX, rec.MaxY,
			)
		}

		query := fmt.Sprintf(`
			INSERT INTO shape_features (id, source, name, min_x, min_y, max_x, max_y, created_at, updated_at)
			VALUES %s
			ON CONFLICT (source, name)
			DO UPDATE SET
				min_x = EXCLUDED.min_x,
				min_y = EXCLUDED.min_y,
				max_x = EXCLUDED.max_x,
				max_y = EXCLUDED.max_y,
				updated_at = NOW()
		`, strings.Join(valuesStrings, ", "))

		if _, err = tx.ExecContext(ctx, query, valueArgs...); err != nil {
			tx.Rollback()
			return inserted, fmt.Errorf("failed to insert batch at row %d: %w", i, err)
		}

		inserted += len(batch)
		rowsInCurrentTx += len(batch)

		if rowsInCurrentTx >= rowsPerTransaction || inserted == len(recs) {
			if err := tx.Commit(); err != nil {
				return inserted - rowsInCurrentTx, fmt.Errorf("failed to commit transaction: %w", err)
			}
			logger.Info("transaction committed", "inserted", inserted, "total", len(recs))
			tx = nil
		}
	}

	if tx != nil {
		if err := tx.Commit(); err != nil {
			return inserted - rowsInCurrentTx, fmt.Errorf("failed to commit final transaction: %w", err)
		}
	}

	logger.Info("batch upsert complete", "total_inserted", inserted)
	return inserted, nil
}

// DeleteBySource drops every record indexed from a source file.
func (c *Catalog) DeleteBySource(ctx context.Context, source string) (int64, error) {
	result, err := c.conn.ExecContext(ctx, `DELETE FROM shape_features WHERE source = $1`, source)
	if err != nil {
		return 0, fmt.Errorf("failed to delete features: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows, nil
}

// CountBySource returns the number of records indexed from a source file.
func (c *Catalog) CountBySource(ctx context.Context, source string) (int, error) {
	var count int
	err := c.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM shape_features WHERE source = $1`, source).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count features: %w", err)
	}
	return count, nil
}

// FeaturesInBounds returns the records whose bounding box intersects the
// given lon/lat box.
func (c *Catalog) FeaturesInBounds(ctx context.Context, minX, minY, maxX, maxY float64) ([]*FeatureRecord, error) {
	query := `
		SELECT source, name, min_x, min_y, max_x, max_y
		FROM shape_features
		WHERE min_x <= $3 AND max_x >= $1 AND min_y <= $4 AND max_y >= $2
		ORDER BY source, name
	`

	rows, err := c.conn.QueryContext(ctx, query, minX, minY, maxX, maxY)
	if err != nil {
		return nil, fmt.Errorf("failed to query features: %w", err)
	}
	defer rows.Close()

	var recs []*FeatureRecord
	for rows.Next() {
		rec := &FeatureRecord{}
		if err := rows.Scan(&rec.Source, &rec.Name, &rec.MinX, &rec.MinY, &rec.MaxX, &rec.MaxY); err != nil {
			slog.Error("failed to scan feature row", "error", err)
			continue
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating features: %w", err)
	}
	return recs, nil
}

// collectionRecords turns a collection's features into catalog records.
// The feature's "name" property labels the record; unnamed features get a
// positional label, and repeated names get a numeric suffix so every
// feature keeps its own row.
func collectionRecords(sc *ShapeCollection) []FeatureRecord {
	counts := make(map[string]int, len(sc.Features))
	recs := make([]FeatureRecord, len(sc.Features))
	for k, f := range sc.Features {
		name := fmt.Sprintf("feature-%d", k)
		if v, ok := f.Properties["name"]; ok {
			if s, ok := v.(string); ok && s != "" {
				name = s
			}
		}
		counts[name]++
		if n := counts[name]; n > 1 {
			name = fmt.Sprintf("%s-%d", name, n)
		}
		recs[k] = FeatureRecord{
			Source: sc.Source,
			Name:   name,
			MinX:   sc.MinX[k],
			MinY:   sc.MinY[k],
			MaxX:   sc.MaxX[k],
			MaxY:   sc.MaxY[k],
		}
	}
	return recs
}

// IndexCollection writes every feature of a collection into the catalog.
// The collection must be in lon/lat so bounding boxes are comparable
// across sources.
func (c *Catalog) IndexCollection(ctx context.Context, sc *ShapeCollection) (int, error) {
	if !sameCRS(sc.CRS, WGS84) {
		return 0, fmt.Errorf("catalog: collection is in %s, reproject to lon/lat first", sc.CRS.Describe())
	}
	return c.BatchUpsertFeatures(ctx, collectionRecords(sc), 1000)
}
