// Package raster converts card layouts into PNG images and names the exported files.
package raster

import (
	"context"
	"mime"
	"regexp"
	"strings"

	"idcard/internal/render"
)

// Options control output density. Quality is carried for encoders that use
// it; PNG output is lossless and ignores it.
type Options struct {
	Scale   float64
	Quality float64
}

// ExportOptions is what downloads use: 2x pixel density, 0.95 quality.
var ExportOptions = Options{Scale: 2, Quality: 0.95}

func (o Options) scale() float64 {
	if o.Scale <= 0 {
		return 1
	}
	return o.Scale
}

// Rasterizer renders a layout to encoded PNG bytes.
type Rasterizer interface {
	Rasterize(ctx context.Context, l render.Layout, opts Options) ([]byte, error)
	Name() string
}

var whitespace = regexp.MustCompile(`\s+`)

// Filename is the download name for a card: whitespace runs in the display
// name become single underscores.
func Filename(displayName string) string {
	return whitespace.ReplaceAllString(displayName, "_") + "_ID_Card.png"
}

// AttachmentHeader formats an attachment Content-Disposition for filename.
// Non-ASCII names are sent as an RFC 2231 filename*.
func AttachmentHeader(filename string) string {
	name := strings.NewReplacer("\r", "", "\n", "").Replace(filename)
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}
