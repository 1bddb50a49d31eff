package jobs

import (
	"context"
	"encoding/base64"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oukek/printagent/internal/filetype"
	"github.com/oukek/printagent/internal/imagefit"
	"github.com/oukek/printagent/internal/printing"
	"github.com/oukek/printagent/internal/raster"
)

// fakeBackend records submissions and fails the pages listed in
// failOn (1-based call numbers).
type fakeBackend struct {
	printers []printing.Printer
	calls    []string
	papers   []string
	failOn   map[int]bool
}

func (f *fakeBackend) ListPrinters(context.Context) ([]printing.Printer, error) {
	return f.printers, nil
}

func (f *fakeBackend) DefaultPrinter(context.Context) (string, error) { return "Office", nil }

func (f *fakeBackend) Submit(_ context.Context, imagePath, _, paperSize string) error {
	f.calls = append(f.calls, imagePath)
	f.papers = append(f.papers, paperSize)
	if f.failOn[len(f.calls)] {
		return errors.New("device jammed")
	}
	return nil
}

// fakeRenderer serves pre-rendered page files from a directory.
type fakeRenderer struct {
	pages []string
	dir   string
	err   error
}

func (f *fakeRenderer) Available() bool { return true }

func (f *fakeRenderer) RenderPDF(context.Context, string) (*raster.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &raster.Result{Dir: f.dir, Pages: f.pages}, nil
}

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, imagefit.SavePNG(path, image.NewRGBA(image.Rect(0, 0, w, h))))
}

func newOrchestrator(backend *fakeBackend, renderer raster.Renderer) *Orchestrator {
	return New(Dependencies{Backend: backend, Renderer: renderer})
}

func TestPrintFileUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	o := newOrchestrator(&fakeBackend{}, &fakeRenderer{})
	_, err := o.PrintFile(context.Background(), path, "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestPrintFileMissingSource(t *testing.T) {
	o := newOrchestrator(&fakeBackend{}, &fakeRenderer{})
	_, err := o.PrintFile(context.Background(), filepath.Join(t.TempDir(), "ghost.pdf"), "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestPrintFileImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.png")
	writeTestPNG(t, path, 100, 80)

	backend := &fakeBackend{}
	res, err := newOrchestrator(backend, &fakeRenderer{}).PrintFile(context.Background(), path, "Office", "a4")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, filetype.KindImage, res.Kind)
	assert.NotEmpty(t, res.JobID)

	// Small image fits already, so the original file goes straight
	// through without a fitted copy.
	require.Len(t, backend.calls, 1)
	assert.Equal(t, path, backend.calls[0])
	assert.Equal(t, "a4", backend.papers[0])
}

func TestPrintFileOversizedImageIsFitted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poster.png")
	writeTestPNG(t, path, 5000, 5000)

	backend := &fakeBackend{}
	res, err := newOrchestrator(backend, &fakeRenderer{}).PrintFile(context.Background(), path, "", "a4")
	require.NoError(t, err)
	assert.True(t, res.Success)

	require.Len(t, backend.calls, 1)
	submitted := backend.calls[0]
	assert.NotEqual(t, path, submitted)
	assert.Contains(t, filepath.Base(submitted), "printfit-")
	// The fitted copy is gone once the job returns.
	_, statErr := os.Stat(submitted)
	assert.True(t, os.IsNotExist(statErr))
}

func TestPrintFileNoPaperSizePrintsNativeSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poster.png")
	writeTestPNG(t, path, 5000, 5000)

	backend := &fakeBackend{}
	res, err := newOrchestrator(backend, &fakeRenderer{}).PrintFile(context.Background(), path, "", "")
	require.NoError(t, err)
	assert.True(t, res.Success)

	// No paper requested: the original file goes through untouched.
	require.Len(t, backend.calls, 1)
	assert.Equal(t, path, backend.calls[0])
}

func TestPrintFileUnknownPaperSizePrintsNativeSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poster.png")
	writeTestPNG(t, path, 5000, 5000)

	backend := &fakeBackend{}
	res, err := newOrchestrator(backend, &fakeRenderer{}).
		PrintFile(context.Background(), path, "Office", "mystery-roll")
	require.NoError(t, err)
	assert.True(t, res.Success)

	require.Len(t, backend.calls, 1)
	assert.Equal(t, path, backend.calls[0])
	assert.Equal(t, "mystery-roll", backend.papers[0])
}

func TestPaperDimsPrefersPrinterAdvertisedSizes(t *testing.T) {
	backend := &fakeBackend{printers: []printing.Printer{{
		Name:       "Office",
		PaperSizes: []printing.PaperSize{{ID: 256, Name: "Custom", Width: 1000, Height: 2000}},
	}}}
	o := newOrchestrator(backend, &fakeRenderer{})

	// Device-reported dimensions are tenths of a millimeter.
	sz, ok := o.paperDims(context.Background(), "Office", "custom")
	require.True(t, ok)
	assert.InDelta(t, 100.0, sz.WidthMM, 0.01)
	assert.InDelta(t, 200.0, sz.HeightMM, 0.01)

	// A printer without the size falls through to the catalog.
	sz, ok = o.paperDims(context.Background(), "Office", "a4")
	require.True(t, ok)
	assert.InDelta(t, 210.0, sz.WidthMM, 0.01)

	// Neither advertised nor cataloged: print at native size.
	_, ok = o.paperDims(context.Background(), "Office", "mystery-roll")
	assert.False(t, ok)

	_, ok = o.paperDims(context.Background(), "Office", "")
	assert.False(t, ok)
}

func TestPrintFilePDFAggregatesPageFailures(t *testing.T) {
	pagesDir, err := os.MkdirTemp("", "printagent-pages-")
	require.NoError(t, err)

	var pages []string
	for i := 1; i <= 3; i++ {
		p := filepath.Join(pagesDir, "page_00"+string(rune('0'+i))+".png")
		writeTestPNG(t, p, 50, 50)
		pages = append(pages, p)
	}

	pdf := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4"), 0o644))

	backend := &fakeBackend{failOn: map[int]bool{2: true}}
	res, err := newOrchestrator(backend, &fakeRenderer{dir: pagesDir, pages: pages}).
		PrintFile(context.Background(), pdf, "Office", "")
	require.NoError(t, err)

	// Page 2 failed but pages 1 and 3 were still attempted.
	assert.False(t, res.Success)
	assert.Equal(t, 3, res.Pages)
	assert.Len(t, backend.calls, 3)

	// Rendered pages are cleaned up with the job.
	_, statErr := os.Stat(pagesDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestPrintFilePDFRenderFailure(t *testing.T) {
	pdf := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4"), 0o644))

	o := newOrchestrator(&fakeBackend{}, &fakeRenderer{err: raster.ErrRender})
	_, err := o.PrintFile(context.Background(), pdf, "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, raster.ErrRender)
}

func TestPrintDataBadBase64(t *testing.T) {
	o := newOrchestrator(&fakeBackend{}, &fakeRenderer{})
	_, err := o.PrintData(context.Background(), "x.png", "!!! not base64 !!!", "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestPrintDataPayloadTempIsDeleted(t *testing.T) {
	imgPath := filepath.Join(t.TempDir(), "src.png")
	writeTestPNG(t, imgPath, 20, 20)
	raw, err := os.ReadFile(imgPath)
	require.NoError(t, err)

	backend := &fakeBackend{}
	res, err := newOrchestrator(backend, &fakeRenderer{}).
		PrintData(context.Background(), "upload.png", base64.StdEncoding.EncodeToString(raw), "", "")
	require.NoError(t, err)
	assert.True(t, res.Success)

	require.Len(t, backend.calls, 1)
	submitted := backend.calls[0]
	assert.Contains(t, filepath.Base(submitted), "printjob-")
	assert.True(t, strings.HasSuffix(submitted, ".png"))
	_, statErr := os.Stat(submitted)
	assert.True(t, os.IsNotExist(statErr))
}

func TestPrintDataExistingPathPassthrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.png")
	writeTestPNG(t, path, 30, 30)

	backend := &fakeBackend{}
	res, err := newOrchestrator(backend, &fakeRenderer{}).
		PrintData(context.Background(), "ignored.png", path, "", "")
	require.NoError(t, err)
	assert.True(t, res.Success)

	// The caller's file is printed in place and survives the job.
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestPrintDataSniffsMissingExtension(t *testing.T) {
	imgPath := filepath.Join(t.TempDir(), "src.png")
	writeTestPNG(t, imgPath, 20, 20)
	raw, err := os.ReadFile(imgPath)
	require.NoError(t, err)

	backend := &fakeBackend{}
	res, err := newOrchestrator(backend, &fakeRenderer{}).
		PrintData(context.Background(), "upload", base64.StdEncoding.EncodeToString(raw), "", "")
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.Len(t, backend.calls, 1)
	assert.True(t, strings.HasSuffix(backend.calls[0], ".png"))
}

func TestDeclaredExtension(t *testing.T) {
	cases := map[string]string{
		"pdf":         ".pdf",
		".PNG":        ".png",
		"invoice.pdf": ".pdf",
		" jpg ":       ".jpg",
		"":            "",
	}
	for in, want := range cases {
		assert.Equal(t, want, declaredExtension(in), "input %q", in)
	}
}
