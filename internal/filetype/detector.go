// Package filetype classifies print sources into the two supported
// kinds, PDF documents and raster images.
package filetype

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// Kind is the processing pipeline a file belongs to.
type Kind string

const (
	KindPDF         Kind = "pdf"
	KindImage       Kind = "image"
	KindUnsupported Kind = "unsupported"
)

// imageExts are the raster formats accepted for direct printing.
var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".gif":  true,
	".tiff": true,
}

// FromExtension classifies by file extension alone. The extension may
// arrive with or without the leading dot and in any case.
func FromExtension(ext string) Kind {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	switch {
	case ext == ".pdf":
		return KindPDF
	case imageExts[ext]:
		return KindImage
	default:
		return KindUnsupported
	}
}

// FromPath classifies by the path's extension.
func FromPath(path string) Kind {
	return FromExtension(filepath.Ext(path))
}

// Sniff classifies raw bytes by magic numbers and returns the kind
// plus a canonical extension. Used for uploaded payloads whose
// declared name is missing or has no usable extension.
func Sniff(data []byte) (Kind, string) {
	mtype := mimetype.Detect(data)
	mime := mtype.String()
	ext := mtype.Extension()

	log.Debug().Str("mime", mime).Str("ext", ext).Msg("sniffed payload type")

	switch {
	case mime == "application/pdf":
		return KindPDF, ".pdf"
	case strings.HasPrefix(mime, "image/") && imageExts[ext]:
		return KindImage, ext
	default:
		return KindUnsupported, ext
	}
}

// SupportedExtensions lists every accepted extension, PDF first.
func SupportedExtensions() []string {
	return []string{".pdf", ".jpg", ".jpeg", ".png", ".bmp", ".gif", ".tiff"}
}
