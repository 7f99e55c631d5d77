package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/saturnino-fabrica-de-software/idmatch/internal/domain"
)

// FolderSource reads applicants from a directory tree:
//
//	root/<role>/primary/<file>
//	root/<role>/compare_with/<file>
//
// Every top-level directory is one applicant, named after the directory.
type FolderSource struct {
	root   string
	logger *slog.Logger
}

// NewFolderSource creates a folder source rooted at root.
func NewFolderSource(root string, logger *slog.Logger) *FolderSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FolderSource{
		root:   root,
		logger: logger.With("component", "ingest.folder"),
	}
}

// Applicants lists the role directories in name order.
func (s *FolderSource) Applicants(ctx context.Context) ([]domain.Applicant, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrInputNotFound, s.root)
		}
		return nil, fmt.Errorf("read input directory: %w", err)
	}

	var applicants []domain.Applicant
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		role := entry.Name()
		rolePath := filepath.Join(s.root, role)

		primary, err := s.listDocuments(rolePath, domain.DocClassPrimary)
		if err != nil {
			return nil, err
		}
		comparison, err := s.listDocuments(rolePath, domain.DocClassCompareWith)
		if err != nil {
			return nil, err
		}

		applicant := domain.Applicant{
			Role:           role,
			PrimaryDocs:    primary,
			ComparisonDocs: comparison,
		}
		s.logger.DebugContext(ctx, "applicant loaded", "applicant", applicant.String())
		applicants = append(applicants, applicant)
	}

	return applicants, nil
}

func (s *FolderSource) listDocuments(rolePath, class string) ([]domain.Document, error) {
	dir := filepath.Join(rolePath, class)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	docs := make([]domain.Document, 0, len(names))
	for _, name := range names {
		docs = append(docs, domain.Document{
			FilePath:         filepath.Join(dir, name),
			DocClass:         class,
			OriginalFilename: name,
		})
	}
	return docs, nil
}
