package printing

import (
	"context"

	"github.com/oukek/printagent/internal/platform"
)

// Backend is one platform's printer stack: enumerate installed
// printers and submit a raster image to one of them.
type Backend interface {
	// ListPrinters returns a fresh snapshot of installed printers.
	// An environment with no printers yields an empty slice, not an
	// error; per-printer failures degrade that entry only.
	ListPrinters(ctx context.Context) ([]Printer, error)

	// Submit sends the image at imagePath to the named printer (the
	// platform default when printerName is empty), selecting paperSize
	// on the device when it is non-empty and matches an advertised
	// size. Failures are reported, never panicked.
	Submit(ctx context.Context, imagePath, printerName, paperSize string) error

	// DefaultPrinter names the platform's default destination. Having
	// none configured is an error.
	DefaultPrinter(ctx context.Context) (string, error)
}

// ForPlatform selects the backend for the given platform. Unsupported
// platforms report ErrNotSupported rather than guessing.
func ForPlatform(p platform.Platform) (Backend, error) {
	switch {
	case p == platform.Windows:
		return newWindowsBackend(), nil
	case p.UsesCUPS():
		return NewCUPSBackend(), nil
	default:
		return nil, ErrNotSupported
	}
}

// Unsupported is the backend for platforms without a printer stack.
// Every call reports ErrNotSupported so the HTTP surface can keep
// serving status and error envelopes instead of refusing to boot.
func Unsupported() Backend { return unsupportedBackend{} }

type unsupportedBackend struct{}

func (unsupportedBackend) ListPrinters(context.Context) ([]Printer, error) {
	return nil, ErrNotSupported
}

func (unsupportedBackend) Submit(context.Context, string, string, string) error {
	return ErrNotSupported
}

func (unsupportedBackend) DefaultPrinter(context.Context) (string, error) {
	return "", ErrNotSupported
}
