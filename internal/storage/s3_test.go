package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockS3API struct {
	getObjectFunc func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	calls         []*s3.GetObjectInput
}

func (m *mockS3API) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.calls = append(m.calls, params)
	return m.getObjectFunc(ctx, params, optFns...)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func newFetcher(api S3API) *S3Fetcher {
	return NewS3FetcherWithClient(api, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestParseLocator(t *testing.T) {
	tests := []struct {
		name    string
		locator string
		want    Location
		wantErr bool
	}{
		{
			name:    "s3 scheme",
			locator: "s3://docs-bucket/applicants/42/pan.jpg",
			want:    Location{Bucket: "docs-bucket", Key: "applicants/42/pan.jpg"},
		},
		{
			name:    "global virtual host",
			locator: "https://docs-bucket.s3.amazonaws.com/a/b.pdf",
			want:    Location{Bucket: "docs-bucket", Key: "a/b.pdf"},
		},
		{
			name:    "regional virtual host",
			locator: "https://docs-bucket.s3.ap-south-1.amazonaws.com/a/b.pdf",
			want:    Location{Bucket: "docs-bucket", Key: "a/b.pdf", Region: "ap-south-1"},
		},
		{
			name:    "legacy dash region",
			locator: "https://docs-bucket.s3-eu-west-1.amazonaws.com/x.png",
			want:    Location{Bucket: "docs-bucket", Key: "x.png", Region: "eu-west-1"},
		},
		{
			name:    "escaped key",
			locator: "https://docs-bucket.s3.amazonaws.com/my%20file.jpg",
			want:    Location{Bucket: "docs-bucket", Key: "my file.jpg"},
		},
		{name: "local path", locator: "/data/a.jpg", wantErr: true},
		{name: "other host", locator: "https://example.com/a.jpg", wantErr: true},
		{name: "missing key", locator: "s3://docs-bucket/", wantErr: true},
		{name: "missing bucket", locator: "s3:///key.jpg", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLocator(tt.locator)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidLocator)
				assert.False(t, IsRemote(tt.locator))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, IsRemote(tt.locator))
		})
	}
}

func TestS3Fetcher_Fetch(t *testing.T) {
	api := &mockS3API{
		getObjectFunc: func(_ context.Context, _ *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
			return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("image-bytes"))}, nil
		},
	}
	f := newFetcher(api)

	dst := filepath.Join(t.TempDir(), "applicant", "primary", "pan.jpg")
	err := f.Fetch(context.Background(), "s3://docs-bucket/k/pan.jpg", dst)
	require.NoError(t, err)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))

	require.Len(t, api.calls, 1)
	assert.Equal(t, "docs-bucket", aws.ToString(api.calls[0].Bucket))
	assert.Equal(t, "k/pan.jpg", aws.ToString(api.calls[0].Key))

	entries, err := os.ReadDir(filepath.Dir(dst))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestS3Fetcher_FetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		locator string
		get     func(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)
		wantErr error
	}{
		{
			name:    "invalid locator",
			locator: "ftp://host/file",
			wantErr: ErrInvalidLocator,
		},
		{
			name:    "get object fails",
			locator: "s3://b/k.jpg",
			get: func(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
				return nil, errors.New("NoSuchKey")
			},
			wantErr: ErrDownload,
		},
		{
			name:    "body read fails",
			locator: "s3://b/k.jpg",
			get: func(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
				return &s3.GetObjectOutput{Body: io.NopCloser(failingReader{})}, nil
			},
			wantErr: ErrDownload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockS3API{getObjectFunc: tt.get}
			f := newFetcher(api)

			dir := t.TempDir()
			dst := filepath.Join(dir, "k.jpg")
			err := f.Fetch(context.Background(), tt.locator, dst)
			assert.ErrorIs(t, err, tt.wantErr)

			_, statErr := os.Stat(dst)
			assert.True(t, os.IsNotExist(statErr))

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries, "partial download must not be left behind")
		})
	}
}
