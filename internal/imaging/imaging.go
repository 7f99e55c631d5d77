// Package imaging decodes document images, rotates them and owns the
// temporary files produced while scanning orientations.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"math"
	"os"

	// Registered decoders for the formats accepted as document images.
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// JPEGQuality is used for every rotated artifact written to disk.
const JPEGQuality = 95

var ErrDecode = errors.New("image could not be decoded")

// Decode decodes an encoded image in any registered format.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, format, nil
}

// DecodeFile reads and decodes the image at path.
func DecodeFile(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Dimensions returns width and height without decoding pixel data.
func Dimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return cfg.Width, cfg.Height, nil
}

// FileDimensions is Dimensions for a file on disk.
func FileDimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open image: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return cfg.Width, cfg.Height, nil
}

// RotatedSize returns the canvas size that holds src rotated by angle degrees
// without cropping.
func RotatedSize(width, height, angle int) (int, int) {
	rad := float64(angle) * math.Pi / 180
	cos, sin := math.Abs(math.Cos(rad)), math.Abs(math.Sin(rad))
	newW := int(float64(height)*sin + float64(width)*cos)
	newH := int(float64(height)*cos + float64(width)*sin)
	return newW, newH
}

// Rotate turns src counter-clockwise by angle degrees about its center onto
// an expanded white canvas. A zero angle returns src itself.
func Rotate(src image.Image, angle int) image.Image {
	if angle%360 == 0 {
		return src
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	newW, newH := RotatedSize(w, h, angle)

	rad := float64(angle) * math.Pi / 180
	alpha, beta := math.Cos(rad), math.Sin(rad)
	cx := float64(b.Min.X + w/2)
	cy := float64(b.Min.Y + h/2)

	s2d := f64.Aff3{
		alpha, beta, -alpha*cx - beta*cy + float64(newW)/2,
		-beta, alpha, beta*cx - alpha*cy + float64(newH)/2,
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.BiLinear.Transform(dst, s2d, src, b, draw.Over, nil)
	return dst
}

// EncodeJPEG writes img as a JPEG.
func EncodeJPEG(w io.Writer, img image.Image) error {
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}
	return nil
}
