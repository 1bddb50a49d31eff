package printing

import "strings"

// paperDim is one DC_PAPERSIZE entry: width and height in tenths of a
// millimeter.
type paperDim struct {
	X int32
	Y int32
}

// buildPaperList zips the three parallel sequences returned by the
// Windows DeviceCapabilities triad (DC_PAPERS ids, DC_PAPERNAMES
// names, DC_PAPERSIZE dimensions) by index. If any sequence is missing
// or the lengths disagree the whole list is dropped; an empty result
// beats a silently misaligned one.
func buildPaperList(ids []uint16, names []string, dims []paperDim) []PaperSize {
	if len(ids) == 0 || len(names) == 0 || len(dims) == 0 {
		return nil
	}
	if len(ids) != len(names) || len(ids) != len(dims) {
		return nil
	}

	papers := make([]PaperSize, 0, len(ids))
	for i, id := range ids {
		name := strings.TrimRight(names[i], "\x00")
		if name == "" {
			continue
		}
		if dims[i].X <= 0 || dims[i].Y <= 0 {
			continue
		}
		papers = append(papers, PaperSize{
			ID:     int(id),
			Name:   name,
			Width:  int(dims[i].X),
			Height: int(dims[i].Y),
		})
	}
	return papers
}
