package document

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// expandPDF renders every page to JPEG with pdftoppm and yields the pages in
// order.
func (e *Extractor) expandPDF(ctx context.Context, path string, yield func(string, error) bool) {
	dir, err := e.registry.TempDir("pdf_")
	if err != nil {
		yield("", extractionError(err))
		return
	}

	prefix := filepath.Join(dir, baseName(path)+"_page")
	cmd := exec.CommandContext(ctx, e.config.PDFToPPMPath,
		"-r", strconv.Itoa(e.config.PDFDPI),
		"-jpeg",
		path,
		prefix,
	)

	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderrBuf.String())
		if msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		yield("", extractionError(fmt.Errorf("pdftoppm: %w", err)))
		return
	}

	pages, err := filepath.Glob(prefix + "-*.jpg")
	if err != nil {
		yield("", extractionError(err))
		return
	}
	sortPages(pages)

	e.logger.DebugContext(ctx, "pdf rendered", "path", path, "pages", len(pages))

	for _, page := range pages {
		if !yield(page, nil) {
			return
		}
	}
}

// sortPages orders pdftoppm outputs by page number. pdftoppm pads the number
// to the digit count of the last page, but a numeric sort does not rely on it.
func sortPages(pages []string) {
	sort.SliceStable(pages, func(i, j int) bool {
		return pageNumber(pages[i]) < pageNumber(pages[j])
	})
}

func pageNumber(path string) int {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	idx := strings.LastIndex(name, "-")
	if idx < 0 {
		return 0
	}
	n, err := strconv.Atoi(name[idx+1:])
	if err != nil {
		return 0
	}
	return n
}
