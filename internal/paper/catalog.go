// Package paper holds the static catalog of standard paper sizes.
//
// CUPS platforms report only symbolic paper names (e.g. "A4") with no
// dimensions attached, so resolving a name to millimeters goes through
// this table. Windows reports dimensions directly from the device and
// only falls back here when that query fails.
package paper

import "strings"

// Size is a physical paper size in millimeters.
type Size struct {
	WidthMM  float64 `json:"width_mm"`
	HeightMM float64 `json:"height_mm"`
}

// standardSizes maps normalized names to dimensions. Receipt rolls have
// a fixed width and continuous length; the height recorded here is the
// A4 length used as a default cut point.
var standardSizes = map[string]Size{
	// ISO A series
	"a3": {297, 420},
	"a4": {210, 297},
	"a5": {148, 210},

	// North American
	"letter":  {216, 279},
	"legal":   {216, 356},
	"tabloid": {279, 432},

	// Other office sizes
	"b4":        {250, 353},
	"b5":        {176, 250},
	"executive": {184, 267},
	"folio":     {210, 330},

	// Receipt paper
	"58mm": {58, 297},
	"80mm": {80, 297},

	// General labels
	"40x30":   {40, 30},
	"50x30":   {50, 30},
	"60x40":   {60, 40},
	"70x50":   {70, 50},
	"100x50":  {100, 50},
	"100x70":  {100, 70},
	"100x100": {100, 100},

	// Shipping labels
	"100x150": {100, 150},
	"100x180": {100, 180},

	// Jewelry tags
	"30x20": {30, 20},
	"40x20": {40, 20},

	// Garment tags
	"40x60": {40, 60},
	"50x80": {50, 80},

	// Barcode labels
	"25x15": {25, 15},
	"32x19": {32, 19},
	"40x25": {40, 25},

	// Price labels
	"22x12": {22, 12},
	"26x16": {26, 16},

	// Medical labels
	"25x25": {25, 25},
	"38x25": {38, 25},

	// Logistics labels
	"76x25": {76, 25},
	"76x38": {76, 38},

	// Thermal rolls
	"thermal57":  {57, 297},
	"thermal80":  {80, 297},
	"thermal110": {110, 297},
}

// Normalize folds case and strips whitespace and underscores so that
// "A4", " a4 " and "A_4" all hit the same catalog key.
func Normalize(name string) string {
	n := strings.ToLower(name)
	n = strings.ReplaceAll(n, "_", "")
	n = strings.ReplaceAll(n, " ", "")
	return n
}

// LookupStandardSize resolves a paper name to physical dimensions.
// The second return is false when the name is not in the catalog.
func LookupStandardSize(name string) (Size, bool) {
	s, ok := standardSizes[Normalize(name)]
	return s, ok
}

// Count returns the number of catalog entries.
func Count() int { return len(standardSizes) }
