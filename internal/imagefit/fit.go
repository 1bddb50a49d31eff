// Package imagefit scales raster images to fit inside the printable
// area of a paper size at a target resolution.
package imagefit

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rs/zerolog/log"
	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/oukek/printagent/internal/paper"
)

// DefaultDPI is the resolution used to translate paper millimeters
// into pixels when a caller does not override it.
const DefaultDPI = 300

// DefaultMarginMM is the uniform margin subtracted from each paper
// edge before fitting.
const DefaultMarginMM = 10.0

// PrintablePixels converts a paper size to a printable area in pixels:
// the paper minus a uniform margin on every edge, at the given DPI.
func PrintablePixels(sz paper.Size, dpi int, marginMM float64) (int, int) {
	w := sz.WidthMM - 2*marginMM
	h := sz.HeightMM - 2*marginMM
	return mmToPixels(w, dpi), mmToPixels(h, dpi)
}

func mmToPixels(mm float64, dpi int) int {
	return int(math.Round(mm * float64(dpi) / 25.4))
}

// FitToPrintable shrinks img to fit the printable area of sz at dpi
// with a uniform marginMM. Images already inside the area come back
// untouched; scaling only ever goes down, never up, and preserves
// aspect ratio. Resampling uses Catmull-Rom.
func FitToPrintable(img image.Image, sz paper.Size, dpi int, marginMM float64) image.Image {
	maxW, maxH := PrintablePixels(sz, dpi, marginMM)
	if maxW <= 0 || maxH <= 0 {
		log.Warn().
			Float64("width_mm", sz.WidthMM).
			Float64("height_mm", sz.HeightMM).
			Float64("margin_mm", marginMM).
			Msg("margins consume the entire paper; leaving image unscaled")
		return img
	}

	b := img.Bounds()
	srcW, srcH := b.Dx(), b.Dy()
	if srcW <= 0 || srcH <= 0 {
		return img
	}

	scale := float64(maxW) / float64(srcW)
	if sy := float64(maxH) / float64(srcH); sy < scale {
		scale = sy
	}
	if scale >= 1.0 {
		return img
	}

	dstW := int(float64(srcW) * scale)
	dstH := int(float64(srcH) * scale)
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	log.Debug().
		Int("src_w", srcW).Int("src_h", srcH).
		Int("dst_w", dstW).Int("dst_h", dstH).
		Float64("scale", scale).
		Msg("downscaling image to printable area")

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}

// LoadImage decodes a PNG, JPEG, GIF, BMP or TIFF file.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	log.Debug().Str("format", format).Str("path", path).Msg("decoded image")
	return img, nil
}

// SavePNG writes img to path as PNG.
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode PNG: %w", err)
	}
	return f.Close()
}
