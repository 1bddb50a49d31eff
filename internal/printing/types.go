// Package printing models installed printers and drives the
// platform-specific enumeration and submission backends.
package printing

import (
	"strings"

	"github.com/oukek/printagent/internal/paper"
)

// PaperSize is one paper option advertised by a printer.
//
// Windows entries carry the native paper id plus dimensions in tenths
// of a millimeter straight from the device-capability query. CUPS
// entries carry only the symbolic name (plus a display name with
// underscores rendered as spaces); their dimensions resolve through
// the static catalog.
type PaperSize struct {
	ID          int    `json:"id,omitempty"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
}

// Dimensions resolves the entry to millimeters. The second return is
// false when the entry has no native dimensions and the name is not in
// the catalog.
func (ps PaperSize) Dimensions() (paper.Size, bool) {
	if ps.Width > 0 && ps.Height > 0 {
		return paper.Size{WidthMM: float64(ps.Width) / 10, HeightMM: float64(ps.Height) / 10}, true
	}
	return paper.LookupStandardSize(ps.Name)
}

// Printer is a read-only snapshot of one installed printer. Snapshots
// are fetched fresh on every directory query and never cached.
type Printer struct {
	Name       string      `json:"name"`
	Driver     string      `json:"driver"`
	Port       string      `json:"port,omitempty"`
	URI        string      `json:"uri,omitempty"`
	Status     string      `json:"status"`
	RawStatus  uint32      `json:"raw_status,omitempty"`
	PaperSizes []PaperSize `json:"paper_sizes"`
}

// FindPaper matches a caller-supplied paper name against the printer's
// advertised sizes, case-insensitively.
func (p Printer) FindPaper(name string) (PaperSize, bool) {
	for _, ps := range p.PaperSizes {
		if strings.EqualFold(ps.Name, name) {
			return ps, true
		}
	}
	return PaperSize{}, false
}
