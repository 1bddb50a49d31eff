// Package statuscheck probes the host for the print stack's external
// capabilities so the status endpoint can report what actually works.
package statuscheck

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/oukek/printagent/internal/paper"
	"github.com/oukek/printagent/internal/platform"
	"github.com/oukek/printagent/internal/printing"
	"github.com/oukek/printagent/internal/raster"
)

// Status represents the readiness of one capability.
type Status struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Summary bundles all capability statuses.
type Summary struct {
	Platform  Status `json:"platform"`
	Spooler   Status `json:"spooler"`
	Rendering Status `json:"rendering"`
	Catalog   Status `json:"catalog"`
}

// Checker aggregates the capability probes.
type Checker struct {
	platform platform.Platform
	backend  printing.Backend
	renderer raster.Renderer
}

// Options configures the Checker.
type Options struct {
	Platform platform.Platform
	Backend  printing.Backend
	Renderer raster.Renderer
}

// New creates a Checker with the provided options.
func New(opts Options) *Checker {
	return &Checker{
		platform: opts.Platform,
		backend:  opts.Backend,
		renderer: opts.Renderer,
	}
}

// Summary returns the current capability snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
	return Summary{
		Platform:  c.checkPlatform(),
		Spooler:   c.checkSpooler(ctx),
		Rendering: c.checkRendering(),
		Catalog:   checkCatalog(),
	}
}

func (c *Checker) checkPlatform() Status {
	if !c.platform.Supported() {
		return Status{OK: false, Message: "unsupported platform: " + string(c.platform)}
	}
	return Status{OK: true, Message: string(c.platform)}
}

// checkSpooler verifies the print path end to end: on CUPS platforms
// the command-line tools must resolve, and everywhere the backend must
// be able to enumerate without erroring.
func (c *Checker) checkSpooler(ctx context.Context) Status {
	if c.platform.UsesCUPS() {
		for _, tool := range []string{"lpstat", "lp", "lpoptions"} {
			if _, err := exec.LookPath(tool); err != nil {
				return Status{OK: false, Message: tool + " not found in PATH"}
			}
		}
	}
	if c.backend == nil {
		return Status{OK: false, Message: "no printing backend"}
	}
	if _, err := c.backend.ListPrinters(ctx); err != nil {
		return Status{OK: false, Message: err.Error()}
	}
	return Status{OK: true, Message: "ready"}
}

func (c *Checker) checkRendering() Status {
	if c.renderer == nil || !c.renderer.Available() {
		return Status{OK: false, Message: "pdf renderer unavailable"}
	}
	return Status{OK: true, Message: "embedded engine"}
}

func checkCatalog() Status {
	n := paper.Count()
	return Status{OK: n > 0, Message: fmt.Sprintf("%d standard paper sizes", n)}
}
