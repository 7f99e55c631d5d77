package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/saturnino-fabrica-de-software/idmatch/internal/domain"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/storage"
)

const (
	categoryPrimary     = "primary"
	categoryCompareWith = "compare_with"
)

// Manifest is the JSON input describing applicants and which document
// classes to compare.
type Manifest struct {
	ComparisonMatrix []ComparisonRule    `json:"comparison_matrix"`
	Applicants       []ManifestApplicant `json:"applicants"`
}

// ComparisonRule names the primary document class of a role and the classes
// compared against it.
type ComparisonRule struct {
	Role        string   `json:"role"`
	Primary     string   `json:"primary"`
	CompareWith []string `json:"compare_with"`
}

type ManifestApplicant struct {
	Key       string             `json:"key"`
	Documents []ManifestDocument `json:"documents"`
}

type ManifestDocument struct {
	DocumentClass    string `json:"document_class"`
	FilePath         string `json:"file_path"`
	OriginalFilename string `json:"original_filename"`
}

// DecodeManifest parses a manifest document.
func DecodeManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidManifest, err)
	}
	return &m, nil
}

// RoleForKey maps a manifest applicant key to a role name: "applicant" is
// "Applicant" and "co_applicant_<n>[_suffix]" is "CoApplicant<n>". Other keys
// return false.
func RoleForKey(key string) (string, bool) {
	key = strings.ToLower(key)
	if key == "applicant" {
		return "Applicant", true
	}
	if !strings.HasPrefix(key, "co_applicant_") {
		return "", false
	}

	parts := strings.Split(key, "_")
	if len(parts) < 3 {
		return "", false
	}
	if _, err := strconv.ParseUint(parts[2], 10, 64); err != nil {
		return "", false
	}
	return "CoApplicant" + parts[2], true
}

// MappedApplicants counts the applicants whose key maps to a role with a
// comparison rule.
func (m *Manifest) MappedApplicants() int {
	roles := make(map[string]bool, len(m.ComparisonMatrix))
	for _, r := range m.ComparisonMatrix {
		roles[r.Role] = true
	}

	n := 0
	for _, a := range m.Applicants {
		if role, ok := RoleForKey(a.Key); ok && roles[role] {
			n++
		}
	}
	return n
}

// ManifestSource yields applicants declared in a manifest, downloading remote
// documents into the dataset directory.
type ManifestSource struct {
	manifest   *Manifest
	baseDir    string
	datasetDir string
	fetcher    storage.Fetcher
	remoteOnly bool
	logger     *slog.Logger
}

// NewManifestSource creates a source from a parsed manifest. Relative local
// paths resolve against baseDir. A nil fetcher skips remote documents.
func NewManifestSource(m *Manifest, baseDir, datasetDir string, fetcher storage.Fetcher, logger *slog.Logger) *ManifestSource {
	if logger == nil {
		logger = slog.Default()
	}
	if datasetDir == "" {
		datasetDir = filepath.Join(baseDir, "dataset")
	}
	return &ManifestSource{
		manifest:   m,
		baseDir:    baseDir,
		datasetDir: datasetDir,
		fetcher:    fetcher,
		logger:     logger.With("component", "ingest.manifest"),
	}
}

// OpenManifest reads the manifest file at path. An empty datasetDir places
// downloads in a "dataset" directory next to the manifest.
func OpenManifest(path, datasetDir string, fetcher storage.Fetcher, logger *slog.Logger) (*ManifestSource, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrInputNotFound, path)
		}
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	m, err := DecodeManifest(f)
	if err != nil {
		return nil, err
	}
	return NewManifestSource(m, filepath.Dir(path), datasetDir, fetcher, logger), nil
}

type roleRule struct {
	primary     string
	compareWith map[string]bool
}

// Applicants resolves every mappable manifest applicant. Keys without a
// matching comparison rule are skipped.
func (s *ManifestSource) Applicants(ctx context.Context) ([]domain.Applicant, error) {
	rules := make(map[string]roleRule, len(s.manifest.ComparisonMatrix))
	for _, r := range s.manifest.ComparisonMatrix {
		compare := make(map[string]bool, len(r.CompareWith))
		for _, c := range r.CompareWith {
			compare[c] = true
		}
		rules[r.Role] = roleRule{primary: r.Primary, compareWith: compare}
	}

	var applicants []domain.Applicant
	for _, person := range s.manifest.Applicants {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		role, ok := RoleForKey(person.Key)
		rule, configured := rules[role]
		if !ok || !configured {
			s.logger.WarnContext(ctx, "applicant key has no comparison rule, skipping", "key", person.Key)
			continue
		}

		applicant := domain.Applicant{Role: role}
		for _, d := range person.Documents {
			var category string
			switch {
			case d.DocumentClass == rule.primary:
				category = categoryPrimary
			case rule.compareWith[d.DocumentClass]:
				category = categoryCompareWith
			default:
				continue
			}

			localPath, ok := s.resolve(ctx, d.FilePath, role, category)
			if !ok {
				continue
			}

			doc := domain.Document{
				FilePath:         localPath,
				DocClass:         d.DocumentClass,
				OriginalFilename: d.OriginalFilename,
			}
			if localPath != d.FilePath {
				doc.RemoteURL = d.FilePath
			}

			if category == categoryPrimary {
				applicant.PrimaryDocs = append(applicant.PrimaryDocs, doc)
			} else {
				applicant.ComparisonDocs = append(applicant.ComparisonDocs, doc)
			}
		}

		applicants = append(applicants, applicant)
	}

	return applicants, nil
}

// resolve returns a local path for a document, downloading it when remote.
func (s *ManifestSource) resolve(ctx context.Context, filePath, role, category string) (string, bool) {
	if !storage.IsRemote(filePath) {
		if filePath == "" {
			return "", false
		}
		if s.remoteOnly {
			s.logger.WarnContext(ctx, "local document path not accepted, skipping", "path", filePath)
			return "", false
		}
		if filepath.IsAbs(filePath) {
			return filePath, true
		}
		return filepath.Join(s.baseDir, filePath), true
	}

	roleDir := strings.ReplaceAll(strings.ToLower(role), " ", "-")
	local := filepath.Join(s.datasetDir, roleDir, category, downloadName(filePath))

	if _, err := os.Stat(local); err == nil {
		return local, true
	}

	if s.fetcher == nil {
		s.logger.WarnContext(ctx, "remote document without object storage, skipping", "url", filePath)
		return "", false
	}

	s.logger.InfoContext(ctx, "downloading document", "url", filePath, "path", local)
	if err := s.fetcher.Fetch(ctx, filePath, local); err != nil {
		s.logger.ErrorContext(ctx, "download failed, skipping document", "url", filePath, "error", err)
		return "", false
	}
	return local, true
}

// downloadName names the local copy of a remote document after the whole
// locator, so objects sharing a base name never resolve to the same file.
// The base name is kept for its extension.
func downloadName(locator string) string {
	base := "document"
	if loc, err := storage.ParseLocator(locator); err == nil && path.Base(loc.Key) != "." && path.Base(loc.Key) != "/" {
		base = path.Base(loc.Key)
	}
	sum := sha256.Sum256([]byte(locator))
	return hex.EncodeToString(sum[:8]) + "_" + base
}
