package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Registry tracks every temporary directory created during a run so that a
// single Close removes whatever is still on disk.
type Registry struct {
	mu     sync.Mutex
	base   string
	dirs   map[string]struct{}
	logger *slog.Logger
}

// NewRegistry creates a registry rooted at base. An empty base uses os.TempDir.
func NewRegistry(base string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		base:   base,
		dirs:   make(map[string]struct{}),
		logger: logger.With("component", "imaging.registry"),
	}
}

// TempDir creates and tracks a new temporary directory.
func (r *Registry) TempDir(prefix string) (string, error) {
	dir, err := os.MkdirTemp(r.base, prefix)
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}

	r.mu.Lock()
	r.dirs[dir] = struct{}{}
	r.mu.Unlock()

	return dir, nil
}

// Remove deletes a tracked directory and stops tracking it.
func (r *Registry) Remove(dir string) error {
	r.mu.Lock()
	_, ok := r.dirs[dir]
	delete(r.dirs, dir)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove temp dir: %w", err)
	}
	return nil
}

// Outstanding returns how many tracked directories have not been removed.
func (r *Registry) Outstanding() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.dirs)
}

// Close removes every tracked directory. The registry can be reused afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	dirs := make([]string, 0, len(r.dirs))
	for dir := range r.dirs {
		dirs = append(dirs, dir)
	}
	r.dirs = make(map[string]struct{})
	r.mu.Unlock()

	var errs []error
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		r.logger.Warn("temporary cleanup incomplete", "failed", len(errs))
	} else if len(dirs) > 0 {
		r.logger.Debug("temporary directories removed", "count", len(dirs))
	}
	return errors.Join(errs...)
}

// NewArena opens a private directory for one rotation scan.
func (r *Registry) NewArena() (*Arena, error) {
	dir, err := r.TempDir("rotation_")
	if err != nil {
		return nil, err
	}
	return &Arena{
		registry: r,
		dir:      dir,
		files:    make(map[int]string),
	}, nil
}

// Arena holds the rotated variants of one image, indexed by angle.
type Arena struct {
	registry *Registry
	dir      string
	files    map[int]string
}

// Dir returns the arena directory.
func (a *Arena) Dir() string {
	return a.dir
}

// Write encodes img as a JPEG artifact for angle and returns its path along
// with the encoded bytes.
func (a *Arena) Write(angle int, img image.Image) (string, []byte, error) {
	var buf bytes.Buffer
	if err := EncodeJPEG(&buf, img); err != nil {
		return "", nil, err
	}

	path := filepath.Join(a.dir, fmt.Sprintf("rotated_%d.jpg", angle))
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return "", nil, fmt.Errorf("write rotated image: %w", err)
	}

	a.files[angle] = path
	return path, buf.Bytes(), nil
}

// Discard removes the artifact for angle, if any.
func (a *Arena) Discard(angle int) {
	path, ok := a.files[angle]
	if !ok {
		return
	}
	delete(a.files, angle)
	_ = os.Remove(path)
}

// ReleaseExcept removes every artifact but the one for keep.
func (a *Arena) ReleaseExcept(keep int) {
	for angle := range a.files {
		if angle != keep {
			a.Discard(angle)
		}
	}
}

// Len returns the number of artifacts on disk.
func (a *Arena) Len() int {
	return len(a.files)
}

// Close removes the arena directory and everything in it.
func (a *Arena) Close() {
	a.files = map[int]string{}
	if err := a.registry.Remove(a.dir); err != nil {
		a.registry.logger.Warn("failed to remove rotation arena", "dir", a.dir, "error", err)
	}
}
