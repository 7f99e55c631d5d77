package ingest

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/saturnino-fabrica-de-software/idmatch/internal/storage"
)

// ErrLocalDocument is returned for submitted manifests that reference files
// on the server instead of object storage.
var ErrLocalDocument = errors.New("local document paths are not accepted")

// LocalDocuments returns the non-empty file paths that are not remote locators.
func (m *Manifest) LocalDocuments() []string {
	var paths []string
	for _, a := range m.Applicants {
		for _, d := range a.Documents {
			if d.FilePath != "" && !storage.IsRemote(d.FilePath) {
				paths = append(paths, d.FilePath)
			}
		}
	}
	return paths
}

// RemoteSources builds sources for manifests submitted by clients. Only
// remote documents are accepted, and each source downloads into its own
// directory under base.
type RemoteSources struct {
	base    string
	fetcher storage.Fetcher
	logger  *slog.Logger
}

// NewRemoteSources creates the factory. An empty base uses os.TempDir.
func NewRemoteSources(base string, fetcher storage.Fetcher, logger *slog.Logger) *RemoteSources {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteSources{
		base:    base,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Source validates m and returns a source over it together with the function
// that removes its download directory. release must be called once the run
// is over.
func (r *RemoteSources) Source(m *Manifest) (Source, func(), error) {
	if local := m.LocalDocuments(); len(local) > 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrLocalDocument, local[0])
	}

	dir, err := os.MkdirTemp(r.base, "dataset_")
	if err != nil {
		return nil, nil, fmt.Errorf("create dataset dir: %w", err)
	}

	src := NewManifestSource(m, dir, dir, r.fetcher, r.logger)
	src.remoteOnly = true

	release := func() {
		if err := os.RemoveAll(dir); err != nil {
			r.logger.Warn("failed to remove dataset dir", "dir", dir, "error", err)
		}
	}
	return src, release, nil
}
