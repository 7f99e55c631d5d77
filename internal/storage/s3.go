// Package storage downloads remote document files.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	ErrInvalidLocator = errors.New("invalid object locator")
	ErrDownload       = errors.New("download failed")
)

// S3API is the subset of the S3 client used by the fetcher.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Fetcher downloads a remote object to a local path.
type Fetcher interface {
	Fetch(ctx context.Context, locator, dst string) error
}

// Location identifies an S3 object.
type Location struct {
	Bucket string
	Key    string
	Region string
}

// S3Fetcher downloads objects from S3.
type S3Fetcher struct {
	client S3API
	logger *slog.Logger
}

// NewS3Fetcher loads the default AWS credential chain for region.
func NewS3Fetcher(ctx context.Context, region string, logger *slog.Logger) (*S3Fetcher, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return NewS3FetcherWithClient(s3.NewFromConfig(cfg), logger), nil
}

// NewS3FetcherWithClient creates a fetcher over an existing client.
func NewS3FetcherWithClient(client S3API, logger *slog.Logger) *S3Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Fetcher{
		client: client,
		logger: logger.With("component", "storage.s3"),
	}
}

// Fetch downloads locator to dst. The file appears at dst only once the
// download has completed.
func (f *S3Fetcher) Fetch(ctx context.Context, locator, dst string) error {
	loc, err := ParseLocator(locator)
	if err != nil {
		return err
	}

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	}, func(o *s3.Options) {
		if loc.Region != "" {
			o.Region = loc.Region
		}
	})
	if err != nil {
		return fmt.Errorf("%w: get s3://%s/%s: %v", ErrDownload, loc.Bucket, loc.Key, err)
	}
	defer func() {
		_ = out.Body.Close()
	}()

	if err := writeAtomic(dst, out.Body); err != nil {
		return fmt.Errorf("%w: %v", ErrDownload, err)
	}

	f.logger.DebugContext(ctx, "object downloaded", "bucket", loc.Bucket, "key", loc.Key, "path", dst)
	return nil
}

// ParseLocator accepts s3://bucket/key and virtual-hosted
// https://bucket.s3[.region].amazonaws.com/key URLs.
func ParseLocator(locator string) (Location, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return Location{}, fmt.Errorf("%w: %v", ErrInvalidLocator, err)
	}

	var loc Location
	switch strings.ToLower(u.Scheme) {
	case "s3":
		loc.Bucket = u.Host
	case "https", "http":
		bucket, region, ok := parseVirtualHost(u.Host)
		if !ok {
			return Location{}, fmt.Errorf("%w: %s is not an s3 host", ErrInvalidLocator, u.Host)
		}
		loc.Bucket = bucket
		loc.Region = region
	default:
		return Location{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLocator, u.Scheme)
	}

	key, err := url.PathUnescape(strings.TrimPrefix(u.EscapedPath(), "/"))
	if err != nil {
		return Location{}, fmt.Errorf("%w: %v", ErrInvalidLocator, err)
	}
	loc.Key = key

	if loc.Bucket == "" || loc.Key == "" {
		return Location{}, fmt.Errorf("%w: missing bucket or key in %q", ErrInvalidLocator, locator)
	}
	return loc, nil
}

// parseVirtualHost splits bucket.s3.amazonaws.com, bucket.s3.<region>.amazonaws.com
// and bucket.s3-<region>.amazonaws.com.
func parseVirtualHost(host string) (bucket, region string, ok bool) {
	host = strings.ToLower(host)
	if !strings.HasSuffix(host, ".amazonaws.com") {
		return "", "", false
	}

	idx := strings.Index(host, ".s3")
	if idx <= 0 {
		return "", "", false
	}
	bucket = host[:idx]

	rest := strings.TrimSuffix(host[idx+1:], ".amazonaws.com")
	switch {
	case rest == "s3":
	case strings.HasPrefix(rest, "s3."):
		region = strings.TrimPrefix(rest, "s3.")
	case strings.HasPrefix(rest, "s3-"):
		region = strings.TrimPrefix(rest, "s3-")
	default:
		return "", "", false
	}
	return bucket, region, true
}

// IsRemote reports whether path names an object the fetcher can download.
func IsRemote(path string) bool {
	_, err := ParseLocator(path)
	return err == nil
}

func writeAtomic(dst string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.part")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", dst, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", dst, err)
	}
	return nil
}
