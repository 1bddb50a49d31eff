// Package web exposes the printer service's HTTP API.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/oukek/printagent/internal/imagefit"
	"github.com/oukek/printagent/internal/jobs"
	"github.com/oukek/printagent/internal/metrics"
	"github.com/oukek/printagent/internal/platform"
	"github.com/oukek/printagent/internal/printing"
	"github.com/oukek/printagent/internal/raster"
	"github.com/oukek/printagent/internal/statuscheck"
)

// Version is stamped at build time.
var Version = "dev"

// JobRunner is the job orchestration surface the handlers need.
type JobRunner interface {
	PrintFile(ctx context.Context, source, printerName, paperSize string) (*jobs.Result, error)
	PrintData(ctx context.Context, fileType, data, printerName, paperSize string) (*jobs.Result, error)
}

// Server wires the HTTP routes to the print stack.
type Server struct {
	backend  printing.Backend
	runner   JobRunner
	checker  *statuscheck.Checker
	platform platform.Platform

	// shutdown asks the process to stop; injected so the handler does
	// not own server lifecycle.
	shutdown func()
}

// Options configures a Server.
type Options struct {
	Backend  printing.Backend
	Runner   JobRunner
	Checker  *statuscheck.Checker
	Platform platform.Platform
	Shutdown func()
}

func New(opts Options) *Server {
	return &Server{
		backend:  opts.Backend,
		runner:   opts.Runner,
		checker:  opts.Checker,
		platform: opts.Platform,
		shutdown: opts.Shutdown,
	}
}

// RegisterRoutes attaches every endpoint to mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", s.wrap("/", s.handleRoot))
	mux.HandleFunc("/printer/list", s.wrap("/printer/list", s.handlePrinterList))
	mux.HandleFunc("/printer/default", s.wrap("/printer/default", s.handlePrinterDefault))
	mux.HandleFunc("/printer/status/", s.wrap("/printer/status", s.handlePrinterStatus))
	mux.HandleFunc("/printer/print/file", s.wrap("/printer/print/file", s.handlePrintFile))
	mux.HandleFunc("/printer/print/data", s.wrap("/printer/print/data", s.handlePrintData))
	mux.HandleFunc("/printer/test", s.wrap("/printer/test", s.handlePrintTest))
	mux.HandleFunc("/app/info", s.wrap("/app/info", s.handleAppInfo))
	mux.HandleFunc("/app/health", s.wrap("/app/health", s.handleAppHealth))
	mux.HandleFunc("/app/status", s.wrap("/app/status", s.handleAppStatus))
	mux.HandleFunc("/app/shutdown", s.wrap("/app/shutdown", s.handleAppShutdown))
	mux.Handle("/metrics", metrics.Handler())
}

// wrap applies CORS headers, answers preflight and counts the request.
func (s *Server) wrap(route string, next func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next(rec, r)
		metrics.IncHTTP(route, strconv.Itoa(rec.code))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// Response envelopes. Every success carries the result plus a success
// flag; errors carry the error text and success=false.

func writeResult(w http.ResponseWriter, result any) {
	writeJSON(w, http.StatusOK, map[string]any{"result": result, "success": true})
}

func writeResultMessage(w http.ResponseWriter, result any, message string) {
	writeJSON(w, http.StatusOK, map[string]any{"result": result, "success": true, "message": message})
}

func writeBadRequest(w http.ResponseWriter, err string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{"error": err, "success": false})
}

func writeServerError(w http.ResponseWriter, err string, message string) {
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err, "message": message, "success": false})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found", "success": false})
		return
	}
	writeResult(w, map[string]any{
		"name":    "printagent",
		"version": Version,
		"endpoints": []string{
			"/printer/list",
			"/printer/default",
			"/printer/status/{name}",
			"/printer/print/file",
			"/printer/print/data",
			"/printer/test",
			"/app/info",
			"/app/health",
			"/app/status",
			"/app/shutdown",
			"/metrics",
		},
	})
}

func (s *Server) handlePrinterList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeBadRequest(w, "method not allowed")
		return
	}
	start := time.Now()
	printers, err := s.backend.ListPrinters(r.Context())
	metrics.ObserveListing(time.Since(start))
	if err != nil {
		writeServerError(w, "printer listing failed", err.Error())
		return
	}
	if printers == nil {
		printers = []printing.Printer{}
	}
	writeResult(w, printers)
}

func (s *Server) handlePrinterDefault(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeBadRequest(w, "method not allowed")
		return
	}
	name, err := s.backend.DefaultPrinter(r.Context())
	if err != nil {
		writeServerError(w, "no default printer", err.Error())
		return
	}
	writeResult(w, name)
}

func (s *Server) handlePrinterStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeBadRequest(w, "method not allowed")
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/printer/status/")
	if name == "" {
		writeBadRequest(w, "missing printer name")
		return
	}
	printers, err := s.backend.ListPrinters(r.Context())
	if err != nil {
		writeServerError(w, "printer listing failed", err.Error())
		return
	}
	for _, p := range printers {
		if strings.EqualFold(p.Name, name) {
			writeResult(w, p)
			return
		}
	}
	writeBadRequest(w, fmt.Sprintf("printer not found: %s", name))
}

type printFileRequest struct {
	PrinterName string `json:"printer_name"`
	FilePath    string `json:"file_path"`
	URL         string `json:"url"`
	PaperSize   string `json:"paper_size"`
}

func (s *Server) handlePrintFile(w http.ResponseWriter, r *http.Request) {
	var req printFileRequest
	if !decodePost(w, r, &req) {
		return
	}
	source := req.FilePath
	if source == "" {
		source = req.URL
	}
	if source == "" {
		writeBadRequest(w, "missing file_path")
		return
	}
	s.runJob(w, func() (*jobs.Result, error) {
		return s.runner.PrintFile(r.Context(), source, req.PrinterName, req.PaperSize)
	})
}

type printDataRequest struct {
	PrinterName string `json:"printer_name"`
	FileType    string `json:"file_type"`
	Data        string `json:"data"`
	PaperSize   string `json:"paper_size"`
}

func (s *Server) handlePrintData(w http.ResponseWriter, r *http.Request) {
	var req printDataRequest
	if !decodePost(w, r, &req) {
		return
	}
	if req.Data == "" {
		writeBadRequest(w, "missing data")
		return
	}
	s.runJob(w, func() (*jobs.Result, error) {
		return s.runner.PrintData(r.Context(), req.FileType, req.Data, req.PrinterName, req.PaperSize)
	})
}

// runJob executes a job and maps its error taxonomy onto the HTTP
// envelopes: caller mistakes are 400s, infrastructure trouble is 500.
func (s *Server) runJob(w http.ResponseWriter, run func() (*jobs.Result, error)) {
	res, err := run()
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrUnsupportedType),
			errors.Is(err, jobs.ErrDecode),
			errors.Is(err, jobs.ErrSourceNotFound),
			errors.Is(err, raster.ErrNotFound):
			writeBadRequest(w, err.Error())
		case errors.Is(err, printing.ErrNotSupported):
			writeServerError(w, "printing not supported", err.Error())
		default:
			writeServerError(w, "print job failed", err.Error())
		}
		return
	}
	// success mirrors the job result so callers can key off either.
	if !res.Success {
		writeJSON(w, http.StatusOK, map[string]any{
			"result":  false,
			"success": false,
			"message": "one or more pages failed to print",
		})
		return
	}
	writeResult(w, true)
}

type printTestRequest struct {
	PrinterName string `json:"printer_name"`
	PaperSize   string `json:"paper_size"`
}

// handlePrintTest prints a generated test page so users can verify a
// printer without hunting for a document.
func (s *Server) handlePrintTest(w http.ResponseWriter, r *http.Request) {
	var req printTestRequest
	if !decodePost(w, r, &req) {
		return
	}

	path, err := writeTestPage()
	if err != nil {
		writeServerError(w, "test page generation failed", err.Error())
		return
	}
	defer os.Remove(path)

	s.runJob(w, func() (*jobs.Result, error) {
		return s.runner.PrintFile(r.Context(), path, req.PrinterName, req.PaperSize)
	})
}

// writeTestPage renders a bordered page with a centered crosshair.
func writeTestPage() (string, error) {
	const w, h = 600, 850
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	black := color.RGBA{A: 255}
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			edge := x < 4 || y < 4 || x >= w-4 || y >= h-4
			cross := (x == w/2 && y > h/2-40 && y < h/2+40) ||
				(y == h/2 && x > w/2-40 && x < w/2+40)
			if edge || cross {
				img.Set(x, y, black)
			} else {
				img.Set(x, y, color.White)
			}
		}
	}

	tmp, err := os.CreateTemp("", "printjob-testpage-*.png")
	if err != nil {
		return "", err
	}
	tmp.Close()
	if err := imagefit.SavePNG(tmp.Name(), img); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

func (s *Server) handleAppInfo(w http.ResponseWriter, r *http.Request) {
	writeResult(w, map[string]any{
		"name":     "printagent",
		"version":  Version,
		"platform": string(s.platform),
	})
}

func (s *Server) handleAppHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"success":   true,
	})
}

func (s *Server) handleAppStatus(w http.ResponseWriter, r *http.Request) {
	if s.checker == nil {
		writeServerError(w, "status unavailable", "no checker configured")
		return
	}
	writeResult(w, s.checker.Summary(r.Context()))
}

// handleAppShutdown accepts GET for launcher compatibility as well as
// POST.
func (s *Server) handleAppShutdown(w http.ResponseWriter, r *http.Request) {
	writeResultMessage(w, true, "shutting down")
	if s.shutdown != nil {
		// Let the response flush before the listener closes.
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdown()
		}()
	}
}

func decodePost(w http.ResponseWriter, r *http.Request, into any) bool {
	if r.Method != http.MethodPost {
		writeBadRequest(w, "method not allowed")
		return false
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		writeBadRequest(w, "invalid json")
		return false
	}
	return true
}
