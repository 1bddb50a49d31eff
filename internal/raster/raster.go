// Package raster converts PDF documents into per-page PNG images
// ready for submission to a printing backend.
package raster

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/oukek/printagent/internal/imagefit"
)

// RenderDPI is the rasterization resolution. PDF points are 72 per
// inch, so 144 renders each page at twice its nominal pixel size.
const RenderDPI = 144.0

var (
	// ErrUnavailable means no PDF rendering engine is usable.
	ErrUnavailable = errors.New("pdf rendering unavailable")

	// ErrNotFound means the source PDF does not exist.
	ErrNotFound = errors.New("pdf file not found")

	// ErrRender means the document was found but could not be rendered.
	ErrRender = errors.New("pdf rendering failed")
)

// Result is one rasterized document: a temp directory holding one PNG
// per page. Callers own the directory and release it with Cleanup.
type Result struct {
	Dir   string
	Pages []string
}

// Cleanup removes the page directory and everything in it.
func (r *Result) Cleanup() {
	if r == nil || r.Dir == "" {
		return
	}
	if err := os.RemoveAll(r.Dir); err != nil {
		log.Warn().Err(err).Str("dir", r.Dir).Msg("failed to remove page directory")
	}
}

// Renderer turns a PDF file into per-page PNGs.
type Renderer interface {
	RenderPDF(ctx context.Context, pdfPath string) (*Result, error)

	// Available reports whether the engine can actually render.
	Available() bool
}

// FitzRenderer renders through the embedded MuPDF engine. No external
// tools are involved, so it is always available.
type FitzRenderer struct {
	DPI float64
}

// NewFitzRenderer returns a renderer at the standard resolution.
func NewFitzRenderer() *FitzRenderer {
	return &FitzRenderer{DPI: RenderDPI}
}

func (f *FitzRenderer) Available() bool { return true }

func (f *FitzRenderer) RenderPDF(ctx context.Context, pdfPath string) (*Result, error) {
	if _, err := os.Stat(pdfPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, pdfPath)
	}

	// A cheap structural check before handing the file to the engine;
	// it rejects truncated or non-PDF payloads with a clear error.
	pageCount, err := api.PageCountFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	log.Debug().Str("pdf", pdfPath).Int("pages", pageCount).Msg("rasterizing document")

	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", ErrRender, err)
	}
	defer doc.Close()

	dir, err := os.MkdirTemp("", "printagent-pages-")
	if err != nil {
		return nil, fmt.Errorf("create page directory: %w", err)
	}

	res := &Result{Dir: dir}
	for i := 0; i < doc.NumPage(); i++ {
		if ctx.Err() != nil {
			res.Cleanup()
			return nil, ctx.Err()
		}
		img, err := doc.ImageDPI(i, f.DPI)
		if err != nil {
			res.Cleanup()
			return nil, fmt.Errorf("%w: page %d: %v", ErrRender, i+1, err)
		}
		path := filepath.Join(dir, fmt.Sprintf("page_%03d.png", i+1))
		if err := imagefit.SavePNG(path, img); err != nil {
			res.Cleanup()
			return nil, fmt.Errorf("%w: page %d: %v", ErrRender, i+1, err)
		}
		res.Pages = append(res.Pages, path)
	}

	if len(res.Pages) == 0 {
		res.Cleanup()
		return nil, fmt.Errorf("%w: document has no pages", ErrRender)
	}
	return res, nil
}
