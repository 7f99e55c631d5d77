// Package cache keeps face provider answers so that documents submitted again
// are not sent to the provider a second time.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/saturnino-fabrica-de-software/idmatch/internal/provider"
)

// Store is the key/value backend of a Detector.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Detector wraps a provider and caches successful answers by image content.
// Provider errors are never cached.
type Detector struct {
	next   provider.FaceDetector
	store  Store
	ttl    time.Duration
	name   string
	logger *slog.Logger
}

// NewDetector caches the answers of next in store for ttl.
func NewDetector(next provider.FaceDetector, store Store, ttl time.Duration, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		next:   next,
		store:  store,
		ttl:    ttl,
		name:   provider.Name(next),
		logger: logger.With("component", "detection_cache"),
	}
}

func (d *Detector) Name() string {
	return "cached(" + d.name + ")"
}

// Detect serves from the store when possible. Store failures fall through
// to the provider.
func (d *Detector) Detect(ctx context.Context, image []byte, opts provider.DetectOptions) ([]provider.Detection, error) {
	key := d.key(image, opts)

	data, err := d.store.Get(ctx, key)
	switch {
	case err == nil:
		var detections []provider.Detection
		if err := json.Unmarshal(data, &detections); err == nil {
			return detections, nil
		}
		d.logger.WarnContext(ctx, "discarding undecodable cache entry", "key", key)
	case errors.Is(err, ErrCacheMiss), errors.Is(err, ErrCacheExpired):
	default:
		d.logger.WarnContext(ctx, "cache read failed", "error", err)
	}

	detections, err := d.next.Detect(ctx, image, opts)
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(detections)
	if err != nil {
		return detections, nil
	}
	if err := d.store.Set(ctx, key, data, d.ttl); err != nil {
		d.logger.WarnContext(ctx, "cache write failed", "error", err)
	}
	return detections, nil
}

// Warmup delegates to the wrapped provider.
func (d *Detector) Warmup(ctx context.Context) error {
	if w, ok := d.next.(provider.Warmer); ok {
		return w.Warmup(ctx)
	}
	return nil
}

// key identifies the provider, the query options and the image bytes.
func (d *Detector) key(image []byte, opts provider.DetectOptions) string {
	sum := sha256.Sum256(image)
	return d.name +
		":a" + strconv.FormatBool(opts.Align) +
		":e" + strconv.FormatBool(opts.Embeddings) +
		":" + hex.EncodeToString(sum[:])
}

var (
	_ provider.FaceDetector = (*Detector)(nil)
	_ provider.Warmer       = (*Detector)(nil)
)
