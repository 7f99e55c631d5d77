// Package document expands submitted documents into the image files that
// the face pipeline can read.
package document

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/saturnino-fabrica-de-software/idmatch/internal/domain"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/imaging"
)

// Config holds the settings for document expansion.
type Config struct {
	PDFToPPMPath string
	PDFDPI       int
}

// DefaultConfig renders PDFs at 300 DPI with pdftoppm from PATH.
func DefaultConfig() Config {
	return Config{
		PDFToPPMPath: "pdftoppm",
		PDFDPI:       300,
	}
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
}

// Extractor expands documents. Files it creates live in registry-owned
// directories and are removed when the registry is closed.
type Extractor struct {
	registry *imaging.Registry
	config   Config
	logger   *slog.Logger
}

// NewExtractor creates a document extractor.
func NewExtractor(registry *imaging.Registry, cfg Config, logger *slog.Logger) *Extractor {
	if cfg.PDFToPPMPath == "" {
		cfg.PDFToPPMPath = DefaultConfig().PDFToPPMPath
	}
	if cfg.PDFDPI <= 0 {
		cfg.PDFDPI = DefaultConfig().PDFDPI
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		registry: registry,
		config:   cfg,
		logger:   logger.With("component", "document"),
	}
}

// Expand yields the image paths contained in doc, lazily. Missing and
// unsupported files yield nothing; extraction failures yield a single error
// wrapping domain.ErrExtraction.
func (e *Extractor) Expand(ctx context.Context, doc domain.Document) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		path := doc.FilePath
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				e.logger.WarnContext(ctx, "file not found", "path", path)
				return
			}
			yield("", extractionError(err))
			return
		}

		ext := strings.ToLower(filepath.Ext(path))
		switch {
		case imageExtensions[ext]:
			yield(path, nil)
		case ext == ".pdf":
			e.expandPDF(ctx, path, yield)
		case ext == ".xlsx" || ext == ".xlsm":
			e.expandWorkbook(ctx, path, yield)
		case ext == ".xls":
			e.logger.WarnContext(ctx, "legacy .xls workbooks are not supported, skipping", "path", path)
		default:
			e.logger.WarnContext(ctx, "unsupported file type", "path", path, "extension", ext)
		}
	}
}

func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
