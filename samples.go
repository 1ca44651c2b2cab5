package geoplot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
)

// SampleStore fetches sample datasets (shapefiles and friends) from an
// S3-compatible bucket into a local directory, re-downloading only when
// the remote object size changed.
type SampleStore struct {
	client     *s3.Client
	downloader *manager.Downloader
	bucket     string
	prefix     string
	dir        string
}

// NewSampleStore creates a sample store against an S3-compatible endpoint.
func NewSampleStore(cfg SamplesConfig) (*SampleStore, error) {
	logger := slog.With("endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
	logger.Info("initializing sample store")

	// Custom resolver so non-AWS endpoints (R2, MinIO) work
	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if service == s3.ServiceID && cfg.Endpoint != "" {
			return aws.Endpoint{
				URL:           cfg.Endpoint,
				SigningRegion: cfg.Region,
			}, nil
		}
		return aws.Endpoint{}, &smithy.GenericAPIError{Code: "UnknownEndpoint"}
	})

	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 20,
			IdleConnTimeout:     90 * time.Second,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
		Timeout: 5 * time.Minute,
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithHTTPClient(httpClient),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		config.WithRegion(cfg.Region),
		config.WithEndpointResolverWithOptions(customResolver),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	if cfg.Dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve sample dir: %w", err)
		}
		cfg.Dir = filepath.Join(base, "geoplot", "samples")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sample dir %s: %w", cfg.Dir, err)
	}

	logger.Info("sample store initialized", "dir", cfg.Dir)

	return &SampleStore{
		client:     s3Client,
		downloader: manager.NewDownloader(s3Client),
		bucket:     cfg.Bucket,
		prefix:     strings.Trim(cfg.Prefix, "/"),
		dir:        cfg.Dir,
	}, nil
}

// Dir returns the local sample directory.
func (s *SampleStore) Dir() string { return s.dir }

func (s *SampleStore) key(name string) string {
	name = strings.TrimPrefix(name, "/")
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

// Fetch ensures a sample file is present locally and returns its path.
// The download is skipped when the local copy already matches the remote
// object's size.
func (s *SampleStore) Fetch(ctx context.Context, name string) (string, error) {
	logger := slog.With("sample", name)

	size, exists, err := s.headObject(ctx, s.key(name))
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("sample %s not found in bucket %s", name, s.bucket)
	}

	local := filepath.Join(s.dir, filepath.FromSlash(name))
	if fi, err := os.Stat(local); err == nil && fi.Size() == size {
		logger.Debug("sample already up to date", "path", local)
		return local, nil
	}

	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return "", fmt.Errorf("failed to create sample dir: %w", err)
	}

	// Download to a unique temp file, then rename into place
	tmp := fmt.Sprintf("%s.%s.tmp", local, uuid.NewString())
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	logger.Info("downloading sample", "bytes", size)
	_, err = s.downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to download sample %s: %w", name, err)
	}
	if err := os.Rename(tmp, local); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to move sample into place: %w", err)
	}

	logger.Info("sample downloaded", "path", local)
	return local, nil
}

// FetchShapefile fetches a .shp sample along with its .dbf and .shx
// sidecars and returns the local .shp path.
func (s *SampleStore) FetchShapefile(ctx context.Context, name string) (string, error) {
	if filepath.Ext(name) != ".shp" {
		return "", fmt.Errorf("sample %s is not a shapefile", name)
	}
	stem := strings.TrimSuffix(name, ".shp")
	local, err := s.Fetch(ctx, name)
	if err != nil {
		return "", err
	}
	for _, ext := range []string{".dbf", ".shx"} {
		if _, err := s.Fetch(ctx, stem+ext); err != nil {
			return "", err
		}
	}
	return local, nil
}

// List returns the sample names available in the bucket.
func (s *SampleStore) List(ctx context.Context) ([]string, error) {
	var names []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list samples: %w", err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(strings.TrimPrefix(*obj.Key, s.prefix), "/")
			if name != "" {
				names = append(names, name)
			}
		}
	}

	slog.Debug("samples listed", "count", len(names))
	return names, nil
}

// ClearLocal removes all locally downloaded samples.
func (s *SampleStore) ClearLocal() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("failed to clear sample dir %s: %w", s.dir, err)
	}
	return os.MkdirAll(s.dir, 0o755)
}

// headObject checks if an object exists and returns its size.
func (s *SampleStore) headObject(ctx context.Context, key string) (int64, bool, error) {
	result, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return 0, false, nil
		}
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to head object %s: %w", key, err)
	}

	var size int64
	if result.ContentLength != nil {
		size = *result.ContentLength
	}
	return size, true, nil
}
