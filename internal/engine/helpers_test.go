package engine

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/idmatch/internal/audit"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/domain"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/provider"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writePNG writes a w×h image filled with shade and returns its path.
func writePNG(t *testing.T, dir, name string, w, h int, shade uint8) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = shade
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

type detectCall struct {
	image []byte
	opts  provider.DetectOptions
}

// scriptedDetector answers detection-only calls from scan in call order and
// embedding calls from embed.
type scriptedDetector struct {
	mu    sync.Mutex
	scan  []scanAnswer
	embed func(image []byte) ([]provider.Detection, error)
	calls []detectCall
}

type scanAnswer struct {
	faces      int
	confidence float64
	err        error
}

func (d *scriptedDetector) Detect(ctx context.Context, image []byte, opts provider.DetectOptions) ([]provider.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = append(d.calls, detectCall{image: image, opts: opts})

	if opts.Embeddings {
		if d.embed == nil {
			return nil, provider.ErrNoFaceDetected
		}
		return d.embed(image)
	}

	idx := 0
	for _, c := range d.calls[:len(d.calls)-1] {
		if !c.opts.Embeddings {
			idx++
		}
	}
	if idx >= len(d.scan) {
		return nil, nil
	}
	a := d.scan[idx]
	if a.err != nil {
		return nil, a.err
	}
	detections := make([]provider.Detection, a.faces)
	for i := range detections {
		detections[i] = provider.Detection{
			Box:        domain.BoundingBox{Width: 50, Height: 50},
			Confidence: a.confidence,
		}
	}
	// Only some faces carry the max confidence; the trial must report the max.
	if a.faces > 1 {
		detections[0].Confidence = a.confidence / 2
	}
	return detections, nil
}

func (d *scriptedDetector) embeddingCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		if c.opts.Embeddings {
			n++
		}
	}
	return n
}

// scanAt returns a 12-angle script with answer a at angle and nothing elsewhere.
func scanAt(answers map[int]scanAnswer) []scanAnswer {
	out := make([]scanAnswer, len(DefaultAngles))
	for i, angle := range DefaultAngles {
		out[i] = answers[angle]
	}
	return out
}

func face(confidence float64, embedding ...float64) provider.Detection {
	return provider.Detection{
		Box:        domain.BoundingBox{X: 10, Y: 10, Width: 60, Height: 60},
		Confidence: confidence,
		Embedding:  embedding,
	}
}

// staticExpander yields the configured entries for a document path.
type staticExpander map[string][]expandEntry

type expandEntry struct {
	path string
	err  error
}

func (e staticExpander) Expand(ctx context.Context, doc domain.Document) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, entry := range e[doc.FilePath] {
			if !yield(entry.path, entry.err) {
				return
			}
		}
	}
}

type recordingAudit struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingAudit) Log(ctx context.Context, event audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, string(event.EventType))
	return nil
}
