package document

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const workbookMediaDir = "xl/media/"

var workbookImageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// expandWorkbook extracts embedded pictures from an OOXML workbook. Vector
// formats (emf, wmf) are skipped.
func (e *Extractor) expandWorkbook(ctx context.Context, workbookPath string, yield func(string, error) bool) {
	zr, err := zip.OpenReader(workbookPath)
	if err != nil {
		yield("", extractionError(fmt.Errorf("open workbook: %w", err)))
		return
	}
	defer func() {
		_ = zr.Close()
	}()

	var dir string
	base := baseName(workbookPath)

	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, workbookMediaDir) {
			continue
		}
		if !workbookImageExtensions[strings.ToLower(path.Ext(f.Name))] {
			continue
		}

		if dir == "" {
			dir, err = e.registry.TempDir("xlsx_")
			if err != nil {
				yield("", extractionError(err))
				return
			}
		}

		out := filepath.Join(dir, base+"_"+path.Base(f.Name))
		if err := extractFile(f, out); err != nil {
			yield("", extractionError(err))
			return
		}

		e.logger.DebugContext(ctx, "workbook image extracted", "workbook", workbookPath, "media", f.Name)
		if !yield(out, nil) {
			return
		}
	}
}

func extractFile(f *zip.File, dst string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer func() {
		_ = rc.Close()
	}()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return out.Close()
}
