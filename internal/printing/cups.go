package printing

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// CommandRunner abstracts subprocess execution so the CUPS backend can
// be exercised against canned lpstat/lpoptions output in tests.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	err := cmd.Run()
	return out.String(), errb.String(), err
}

// CUPSBackend drives the CUPS command-line tools (lpstat, lpoptions,
// lp). macOS and Linux share it unchanged.
type CUPSBackend struct {
	run CommandRunner
}

// NewCUPSBackend returns a backend that shells out to the system tools.
func NewCUPSBackend() *CUPSBackend {
	return &CUPSBackend{run: execRunner{}}
}

// NewCUPSBackendWithRunner is the test seam.
func NewCUPSBackendWithRunner(r CommandRunner) *CUPSBackend {
	return &CUPSBackend{run: r}
}

// defaultPaperSizes is advertised when lpoptions yields no PageSize
// choices, so callers always have a usable paper list to offer. The
// device may not truly support all three; a deliberate UX-over-precision
// tradeoff carried over for client compatibility.
func defaultPaperSizes() []PaperSize {
	return []PaperSize{
		{Name: "A4", DisplayName: "A4"},
		{Name: "Letter", DisplayName: "Letter"},
		{Name: "Legal", DisplayName: "Legal"},
	}
}

func (b *CUPSBackend) ListPrinters(ctx context.Context) ([]Printer, error) {
	out, _, err := b.run.Run(ctx, "lpstat", "-p")
	if err != nil {
		// lpstat exits non-zero when CUPS is down or no destinations
		// exist; either way the listing is simply empty.
		log.Warn().Err(err).Msg("lpstat -p failed; reporting no printers")
		return []Printer{}, nil
	}

	printers := []Printer{}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if !strings.HasPrefix(line, "printer ") {
			continue
		}
		parts := strings.SplitN(line, " ", 3)
		if len(parts) < 2 {
			continue
		}
		name := parts[1]

		uri, status := b.printerDetails(ctx, name)
		sizes := b.paperSizes(ctx, name)

		printers = append(printers, Printer{
			Name:       name,
			URI:        uri,
			Status:     status,
			PaperSizes: sizes,
		})
	}
	return printers, nil
}

// printerDetails parses `lpstat -l -p <name>` for the interface URI and
// the enabled/disabled state. Anything else leaves status empty.
func (b *CUPSBackend) printerDetails(ctx context.Context, name string) (uri, status string) {
	out, _, err := b.run.Run(ctx, "lpstat", "-l", "-p", name)
	if err != nil {
		log.Warn().Err(err).Str("printer", name).Msg("lpstat detail query failed")
		return "", ""
	}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		switch {
		case strings.Contains(line, "Interface:"):
			uri = strings.TrimSpace(strings.SplitN(line, "Interface:", 2)[1])
		case strings.Contains(line, "enabled"):
			status = "enabled"
		case strings.Contains(line, "disabled"):
			status = "disabled"
		}
	}
	return uri, status
}

// paperSizes extracts PageSize choices from `lpoptions -p <name> -l`.
// Choice tokens marked with * are the current default and are skipped;
// underscores become spaces in the display name.
func (b *CUPSBackend) paperSizes(ctx context.Context, name string) []PaperSize {
	out, _, err := b.run.Run(ctx, "lpoptions", "-p", name, "-l")
	if err != nil {
		log.Warn().Err(err).Str("printer", name).Msg("lpoptions query failed; using default paper list")
		return defaultPaperSizes()
	}

	var sizes []PaperSize
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if !strings.HasPrefix(line, "PageSize/") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		for _, opt := range strings.Fields(parts[1]) {
			if opt == "" || strings.HasPrefix(opt, "*") {
				continue
			}
			sizes = append(sizes, PaperSize{
				Name:        opt,
				DisplayName: strings.ReplaceAll(opt, "_", " "),
			})
		}
	}
	if len(sizes) == 0 {
		log.Warn().Str("printer", name).Msg("no PageSize options discovered; using default paper list")
		return defaultPaperSizes()
	}
	return sizes
}

// DefaultPrinter parses `lpstat -d` for the system default
// destination. No default configured is an error, not an empty name.
func (b *CUPSBackend) DefaultPrinter(ctx context.Context) (string, error) {
	out, _, err := b.run.Run(ctx, "lpstat", "-d")
	if err != nil {
		return "", fmt.Errorf("lpstat -d: %w", err)
	}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if idx := strings.Index(line, "system default destination:"); idx >= 0 {
			name := strings.TrimSpace(line[idx+len("system default destination:"):])
			if name != "" {
				return name, nil
			}
		}
	}
	return "", fmt.Errorf("no default printer configured")
}

// Submit builds and runs the lp command from its three optional parts:
// destination flag, media option, file path.
func (b *CUPSBackend) Submit(ctx context.Context, imagePath, printerName, paperSize string) error {
	args := buildPrintArgs(printerName, paperSize, imagePath)
	log.Debug().Strs("args", args).Msg("running lp")
	_, stderr, err := b.run.Run(ctx, "lp", args...)
	if err != nil {
		msg := strings.TrimSpace(stderr)
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("%w: lp: %s", ErrSubmission, msg)
	}
	return nil
}

func buildPrintArgs(printerName, paperSize, filePath string) []string {
	var args []string
	if printerName != "" {
		args = append(args, "-d", printerName)
	}
	if paperSize != "" {
		args = append(args, "-o", "media="+paperSize)
	}
	if filePath != "" {
		args = append(args, filePath)
	}
	return args
}
