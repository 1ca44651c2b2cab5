package geoplot

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
)

// Reprojected shapefiles are cached as GeoJSON feature collections.
const shapeCacheExt = ".geojson"

const cacheDirEnv = "GEOPLOT_CACHE_DIR"

// cacheDir resolves the shapefile cache directory, creating it if needed.
// GEOPLOT_CACHE_DIR overrides the per-user default.
func cacheDir() (string, error) {
	dir := os.Getenv(cacheDirEnv)
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return "", fmt.Errorf("cache: resolve user cache dir: %w", err)
		}
		dir = filepath.Join(base, "geoplot")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("cache: create %s: %w", dir, err)
	}
	return dir, nil
}

// CachedShapefilePath returns the cache file path for a shapefile. The
// name embeds the source's modification time, so editing the shapefile
// yields a fresh path; stale cache entries for the same source are removed
// on the way. Passing a path that is already a cache file returns it
// unchanged.
func CachedShapefilePath(path string) (string, error) {
	ext := filepath.Ext(path)
	if ext == shapeCacheExt {
		return path, nil
	}
	if ext != ".shp" {
		return "", fmt.Errorf("cache: %s is not a shapefile", path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cache: resolve %s: %w", path, err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("cache: stat %s: %w", path, err)
	}
	dir, err := cacheDir()
	if err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(abs), ext)
	h := fnv.New32a()
	h.Write([]byte(abs))
	stem := fmt.Sprintf("%s.%08x", base, h.Sum32())
	cp := filepath.Join(dir, fmt.Sprintf("%s.%d%s", stem, fi.ModTime().UnixMilli(), shapeCacheExt))

	// Entries from older modification times of the same source are dead
	// weight, drop them now.
	stale, err := filepath.Glob(filepath.Join(dir, stem+".*"+shapeCacheExt))
	if err != nil {
		return "", fmt.Errorf("cache: scan %s: %w", dir, err)
	}
	for _, p := range stale {
		if p == cp {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("cache: remove stale %s: %w", p, err)
		}
	}
	return cp, nil
}

// EmptyCache removes every cached shapefile.
func EmptyCache() error {
	dir, err := cacheDir()
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("cache: read %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), shapeCacheExt) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if err := os.Remove(p); err != nil {
			return fmt.Errorf("cache: remove %s: %w", p, err)
		}
	}
	return nil
}

// writeCachedCollection writes a feature collection atomically: a unique
// temp file in the same directory, then a rename.
func writeCachedCollection(path string, fc *geojson.FeatureCollection) error {
	raw, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("cache: marshal %s: %w", path, err)
	}
	tmp := fmt.Sprintf("%s.%s.tmp", path, uuid.NewString())
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("cache: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("cache: rename %s: %w", path, err)
	}
	return nil
}

func loadCachedCollection(path string) (*geojson.FeatureCollection, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("cache: decode %s: %w", path, err)
	}
	return fc, nil
}
