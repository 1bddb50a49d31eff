package imagefit

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oukek/printagent/internal/paper"
)

func a4() paper.Size {
	sz, ok := paper.LookupStandardSize("a4")
	if !ok {
		panic("a4 missing from catalog")
	}
	return sz
}

func TestPrintablePixelsA4(t *testing.T) {
	// 210x297mm minus 10mm margins at 300 DPI.
	w, h := PrintablePixels(a4(), 300, 10)
	assert.Equal(t, 2244, w)
	assert.Equal(t, 3272, h)
}

func TestFitSmallImageUntouched(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 800, 600))
	got := FitToPrintable(src, a4(), 300, 10)
	// Fits already, so the exact same value comes back unscaled.
	assert.Same(t, image.Image(src), got)
}

func TestFitLargeImageScalesDown(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4488, 3000))
	got := FitToPrintable(src, a4(), 300, 10)

	b := got.Bounds()
	assert.Equal(t, 2244, b.Dx())
	assert.Equal(t, 1500, b.Dy())
}

func TestFitHeightBound(t *testing.T) {
	// Tall image: height is the binding constraint.
	src := image.NewRGBA(image.Rect(0, 0, 1000, 10000))
	got := FitToPrintable(src, a4(), 300, 10)

	b := got.Bounds()
	assert.InDelta(t, 3272, b.Dy(), 1)
	assert.InDelta(t, 327, b.Dx(), 1)
	assert.LessOrEqual(t, b.Dy(), 3272)
}

func TestFitPreservesAspectRatio(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 6000, 4000))
	got := FitToPrintable(src, a4(), 300, 10)

	b := got.Bounds()
	srcRatio := 6000.0 / 4000.0
	dstRatio := float64(b.Dx()) / float64(b.Dy())
	assert.InDelta(t, srcRatio, dstRatio, 0.01)
}

func TestFitDegenerateMargin(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 100))
	got := FitToPrintable(src, paper.Size{WidthMM: 20, HeightMM: 20}, 300, 15)
	assert.Same(t, image.Image(src), got)
}

func TestLoadAndSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "img.png")

	src := image.NewRGBA(image.Rect(0, 0, 12, 8))
	require.NoError(t, SavePNG(path, src))

	got, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, 12, got.Bounds().Dx())
	assert.Equal(t, 8, got.Bounds().Dy())

	// Sanity: the file really is a PNG.
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = png.DecodeConfig(f)
	require.NoError(t, err)
}

func TestLoadImageMissingFile(t *testing.T) {
	_, err := LoadImage(filepath.Join(t.TempDir(), "nope.png"))
	require.Error(t, err)
}
