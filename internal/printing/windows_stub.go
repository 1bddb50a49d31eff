//go:build !windows

package printing

import "context"

// windowsBackend is only functional on Windows builds; everywhere else
// it reports the platform as unsupported so callers can fall through.
type windowsBackend struct{}

func newWindowsBackend() *windowsBackend { return &windowsBackend{} }

func (*windowsBackend) ListPrinters(context.Context) ([]Printer, error) {
	return nil, ErrNotSupported
}

func (*windowsBackend) Submit(context.Context, string, string, string) error {
	return ErrNotSupported
}

func (*windowsBackend) DefaultPrinter(context.Context) (string, error) {
	return "", ErrNotSupported
}
