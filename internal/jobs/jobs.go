// Package jobs orchestrates print jobs: it classifies the source,
// rasterizes PDFs, fits images to the target paper and hands pages to
// the platform backend.
package jobs

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/oukek/printagent/internal/filetype"
	"github.com/oukek/printagent/internal/imagefit"
	"github.com/oukek/printagent/internal/metrics"
	"github.com/oukek/printagent/internal/paper"
	"github.com/oukek/printagent/internal/printing"
	"github.com/oukek/printagent/internal/raster"
)

var (
	// ErrUnsupportedType means the source is neither a PDF nor a
	// supported image format.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrDecode means a data payload was not valid base64.
	ErrDecode = errors.New("invalid base64 payload")

	// ErrSourceNotFound means the requested source path does not exist
	// on disk.
	ErrSourceNotFound = errors.New("source file not found")
)

// Dependencies are the collaborators a job needs. Everything is an
// interface so tests can substitute fakes.
type Dependencies struct {
	Backend  printing.Backend
	Renderer raster.Renderer
	Fetcher  *SourceFetcher

	// DPI and MarginMM drive image fitting; zero values fall back to
	// the standard 300 DPI and 10mm margins.
	DPI      int
	MarginMM float64
}

// Orchestrator runs print jobs against its configured dependencies.
type Orchestrator struct {
	deps Dependencies
}

func New(deps Dependencies) *Orchestrator {
	if deps.DPI <= 0 {
		deps.DPI = imagefit.DefaultDPI
	}
	if deps.MarginMM <= 0 {
		deps.MarginMM = imagefit.DefaultMarginMM
	}
	if deps.Fetcher == nil {
		deps.Fetcher = NewSourceFetcher()
	}
	return &Orchestrator{deps: deps}
}

// Result summarizes one finished job. Success means every page reached
// the backend; page failures are aggregated, not short-circuited.
type Result struct {
	JobID   string        `json:"job_id"`
	Kind    filetype.Kind `json:"kind"`
	Pages   int           `json:"pages"`
	Success bool          `json:"success"`
}

// PrintFile prints the file at the given path or remote reference
// (s3://, http://, https:// sources are fetched to a temp file first).
func (o *Orchestrator) PrintFile(ctx context.Context, source, printerName, paperSize string) (*Result, error) {
	jobID := uuid.NewString()
	log.Info().Str("job_id", jobID).Str("source", source).Str("printer", printerName).
		Str("paper", paperSize).Msg("file print job started")

	localPath, cleanup, err := o.deps.Fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return o.printLocal(ctx, jobID, localPath, printerName, paperSize)
}

// PrintData prints a base64 payload. fileType declares the kind and
// may be an extension ("pdf", ".png") or a full filename; it only
// drives dispatch, and when it is absent or disagrees with the payload
// bytes the sniffed type wins. If the payload string is itself a path
// to an existing file the file is printed directly and left in place.
func (o *Orchestrator) PrintData(ctx context.Context, fileType, data, printerName, paperSize string) (*Result, error) {
	jobID := uuid.NewString()
	log.Info().Str("job_id", jobID).Str("file_type", fileType).Str("printer", printerName).
		Msg("data print job started")

	if _, err := os.Stat(data); err == nil {
		return o.printLocal(ctx, jobID, data, printerName, paperSize)
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	ext := declaredExtension(fileType)
	if filetype.FromExtension(ext) == filetype.KindUnsupported {
		if _, sniffed := filetype.Sniff(raw); sniffed != "" {
			log.Debug().Str("declared", ext).Str("sniffed", sniffed).Msg("using sniffed extension")
			ext = sniffed
		}
	}

	tmp, err := os.CreateTemp("", "printjob-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	// The decoded payload never outlives the job.
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	return o.printLocal(ctx, jobID, tmpPath, printerName, paperSize)
}

// declaredExtension turns a file-type tag into a dot extension:
// "pdf", ".pdf" and "invoice.pdf" all yield ".pdf".
func declaredExtension(fileType string) string {
	t := strings.ToLower(strings.TrimSpace(fileType))
	if t == "" {
		return ""
	}
	if e := filepath.Ext(t); e != "" {
		return e
	}
	return "." + t
}

func (o *Orchestrator) printLocal(ctx context.Context, jobID, path, printerName, paperSize string) (*Result, error) {
	kind := filetype.FromPath(path)
	switch kind {
	case filetype.KindPDF:
		return o.printPDF(ctx, jobID, path, printerName, paperSize)
	case filetype.KindImage:
		return o.printImage(ctx, jobID, path, printerName, paperSize)
	default:
		metrics.JobsTotal.WithLabelValues("unsupported", "rejected").Inc()
		return nil, fmt.Errorf("%w: %s (supported: %s)", ErrUnsupportedType,
			filepath.Ext(path), strings.Join(filetype.SupportedExtensions(), " "))
	}
}

// printPDF rasterizes every page and submits them in order. A failed
// page fails the job but later pages are still attempted.
func (o *Orchestrator) printPDF(ctx context.Context, jobID, path, printerName, paperSize string) (*Result, error) {
	if o.deps.Renderer == nil || !o.deps.Renderer.Available() {
		metrics.JobsTotal.WithLabelValues("pdf", "failed").Inc()
		return nil, raster.ErrUnavailable
	}
	rendered, err := o.deps.Renderer.RenderPDF(ctx, path)
	if err != nil {
		metrics.JobsTotal.WithLabelValues("pdf", "failed").Inc()
		return nil, err
	}
	defer rendered.Cleanup()

	dims, fit := o.paperDims(ctx, printerName, paperSize)
	success := true
	for i, page := range rendered.Pages {
		if err := o.submitFitted(ctx, page, printerName, paperSize, dims, fit); err != nil {
			log.Error().Err(err).Str("job_id", jobID).Int("page", i+1).Msg("page submission failed")
			success = false
			continue
		}
		metrics.PagesPrinted.Inc()
	}

	outcome := "ok"
	if !success {
		outcome = "failed"
	}
	metrics.JobsTotal.WithLabelValues("pdf", outcome).Inc()

	log.Info().Str("job_id", jobID).Int("pages", len(rendered.Pages)).Bool("success", success).
		Msg("pdf job finished")
	return &Result{JobID: jobID, Kind: filetype.KindPDF, Pages: len(rendered.Pages), Success: success}, nil
}

func (o *Orchestrator) printImage(ctx context.Context, jobID, path, printerName, paperSize string) (*Result, error) {
	dims, fit := o.paperDims(ctx, printerName, paperSize)
	err := o.submitFitted(ctx, path, printerName, paperSize, dims, fit)
	outcome := "ok"
	if err != nil {
		outcome = "failed"
		log.Error().Err(err).Str("job_id", jobID).Msg("image submission failed")
	} else {
		metrics.PagesPrinted.Inc()
	}
	metrics.JobsTotal.WithLabelValues("image", outcome).Inc()

	return &Result{JobID: jobID, Kind: filetype.KindImage, Pages: 1, Success: err == nil}, nil
}

// submitFitted scales the image to the paper's printable area and
// submits the result. Without a resolved paper the original file goes
// to the backend at native size; likewise when scaling changes
// nothing. A fitted copy lives in a temp file for exactly the duration
// of the submission.
func (o *Orchestrator) submitFitted(ctx context.Context, imagePath, printerName, paperSize string, dims paper.Size, fit bool) error {
	if !fit {
		return o.deps.Backend.Submit(ctx, imagePath, printerName, paperSize)
	}

	img, err := imagefit.LoadImage(imagePath)
	if err != nil {
		return fmt.Errorf("%w: %v", printing.ErrSubmission, err)
	}

	fitted := imagefit.FitToPrintable(img, dims, o.deps.DPI, o.deps.MarginMM)
	if fitted == img {
		return o.deps.Backend.Submit(ctx, imagePath, printerName, paperSize)
	}

	tmp, err := os.CreateTemp("", "printfit-*.png")
	if err != nil {
		return fmt.Errorf("create fitted temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := imagefit.SavePNG(tmpPath, fitted); err != nil {
		return err
	}
	return o.deps.Backend.Submit(ctx, tmpPath, printerName, paperSize)
}

// paperDims resolves the requested paper to millimeters. The named
// printer's advertised list wins (Windows entries carry native
// tenth-of-mm dimensions), then the static catalog. The second return
// is false when no paper was requested or the name resolves nowhere;
// the image then prints at native size.
func (o *Orchestrator) paperDims(ctx context.Context, printerName, paperSize string) (paper.Size, bool) {
	if paperSize == "" {
		return paper.Size{}, false
	}

	if printerName != "" {
		if printers, err := o.deps.Backend.ListPrinters(ctx); err == nil {
			for _, p := range printers {
				if !strings.EqualFold(p.Name, printerName) {
					continue
				}
				if ps, found := p.FindPaper(paperSize); found {
					if sz, ok := ps.Dimensions(); ok {
						return sz, true
					}
				}
				break
			}
		}
	}

	if sz, ok := paper.LookupStandardSize(paperSize); ok {
		return sz, true
	}
	log.Debug().Str("paper", paperSize).Msg("paper size unresolved; printing at native size")
	return paper.Size{}, false
}
