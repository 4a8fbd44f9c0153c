package raster

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"
	"strings"
	"sync"

	_ "github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/tiff"

	"idcard/internal/render"
)

// Native draws layouts in-process with the Go fonts.
type Native struct {
	regular *opentype.Font
	bold    *opentype.Font

	mu    sync.Mutex
	faces map[faceKey]font.Face
}

type faceKey struct {
	size float64
	bold bool
}

// NewNative parses the embedded fonts.
func NewNative() (*Native, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	return &Native{regular: regular, bold: bold, faces: make(map[faceKey]font.Face)}, nil
}

func (n *Native) Name() string { return "native" }

// Rasterize draws every node in order onto a canvas scaled by opts.Scale.
func (n *Native) Rasterize(ctx context.Context, l render.Layout, opts Options) ([]byte, error) {
	s := opts.scale()
	w, h := int(math.Round(l.Width*s)), int(math.Round(l.Height*s))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("empty layout %dx%d", w, h)
	}
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	fillShape(canvas, shape{rect: render.Rect{W: l.Width, H: l.Height}, radius: l.Radius, scale: s}, l.Background)

	for _, node := range l.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch v := node.(type) {
		case render.Box:
			drawBox(canvas, v, s)
		case render.Label:
			n.drawLabel(canvas, v, s)
		case render.Photo:
			if err := drawPhoto(canvas, v, s); err != nil {
				return nil, err
			}
		case render.Code:
			drawCode(canvas, v, s)
		}
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// shape is an alpha mask for a rectangle, rounded rectangle or ellipse in
// logical coordinates.
type shape struct {
	rect   render.Rect
	radius float64
	circle bool
	scale  float64
}

func (sh shape) ColorModel() color.Model { return color.AlphaModel }

func (sh shape) Bounds() image.Rectangle {
	r := sh.rect
	return image.Rect(
		int(math.Floor(r.X*sh.scale)), int(math.Floor(r.Y*sh.scale)),
		int(math.Ceil((r.X+r.W)*sh.scale)), int(math.Ceil((r.Y+r.H)*sh.scale)),
	)
}

func (sh shape) At(x, y int) color.Color {
	if sh.contains((float64(x)+0.5)/sh.scale, (float64(y)+0.5)/sh.scale) {
		return color.Opaque
	}
	return color.Transparent
}

func (sh shape) contains(px, py float64) bool {
	r := sh.rect
	if px < r.X || py < r.Y || px > r.X+r.W || py > r.Y+r.H {
		return false
	}
	if sh.circle {
		rx, ry := r.W/2, r.H/2
		dx, dy := (px-r.X-rx)/rx, (py-r.Y-ry)/ry
		return dx*dx+dy*dy <= 1
	}
	rad := math.Min(sh.radius, math.Min(r.W, r.H)/2)
	if rad <= 0 {
		return true
	}
	cx := math.Max(r.X+rad, math.Min(px, r.X+r.W-rad))
	cy := math.Max(r.Y+rad, math.Min(py, r.Y+r.H-rad))
	dx, dy := px-cx, py-cy
	return dx*dx+dy*dy <= rad*rad
}

func (sh shape) inset(d float64) shape {
	out := sh
	out.rect = render.Rect{X: sh.rect.X + d, Y: sh.rect.Y + d, W: sh.rect.W - 2*d, H: sh.rect.H - 2*d}
	out.radius = math.Max(0, sh.radius-d)
	return out
}

func fillShape(dst draw.Image, sh shape, c color.RGBA) {
	if c.A == 0 || sh.rect.W <= 0 || sh.rect.H <= 0 {
		return
	}
	draw.DrawMask(dst, sh.Bounds(), image.NewUniform(c), image.Point{}, sh, sh.Bounds().Min, draw.Over)
}

func drawBox(dst draw.Image, b render.Box, s float64) {
	sh := shape{rect: b.Rect, radius: b.Radius, circle: b.Circle, scale: s}
	if b.StrokeWidth > 0 {
		fillShape(dst, sh, b.Stroke)
		sh = sh.inset(b.StrokeWidth)
	}
	fillShape(dst, sh, b.Fill)
}

func drawPhoto(dst draw.Image, p render.Photo, s float64) error {
	img, err := DecodeDataURL(p.DataURL)
	if err != nil {
		return err
	}
	sh := shape{rect: p.Rect, radius: p.Radius, circle: p.Circle, scale: s}
	if p.StrokeWidth > 0 {
		fillShape(dst, sh, p.Stroke)
		sh = sh.inset(p.StrokeWidth)
	}
	bounds := sh.Bounds()
	if bounds.Empty() {
		return nil
	}
	filled := imaging.Fill(img, bounds.Dx(), bounds.Dy(), imaging.Center, imaging.Lanczos)
	draw.DrawMask(dst, bounds, filled, image.Point{}, sh, bounds.Min, draw.Over)
	return nil
}

// DecodeDataURL decodes a base64 image data URL (JPEG, PNG, GIF, WebP, BMP or TIFF).
func DecodeDataURL(s string) (image.Image, error) {
	head, payload, ok := strings.Cut(s, ",")
	if !ok || !strings.HasPrefix(head, "data:image/") || !strings.HasSuffix(head, ";base64") {
		return nil, errors.New("photo is not an inline image")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode photo payload: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode photo image: %w", err)
	}
	return img, nil
}

func drawCode(dst draw.Image, c render.Code, s float64) {
	modules := len(c.Modules)
	if modules == 0 {
		return
	}
	if c.Background.A > 0 {
		fillShape(dst, shape{rect: c.Rect, scale: s}, c.Background)
	}
	fg := image.NewUniform(c.Foreground)
	x0, y0 := c.X*s, c.Y*s
	step := c.W * s / float64(modules)
	edge := func(origin float64, i int) int { return int(math.Round(origin + float64(i)*step)) }
	for y, row := range c.Modules {
		for x, on := range row {
			if !on {
				continue
			}
			r := image.Rect(edge(x0, x), edge(y0, y), edge(x0, x+1), edge(y0, y+1))
			draw.Draw(dst, r, fg, image.Point{}, draw.Over)
		}
	}
}

func (n *Native) face(size float64, bold bool) (font.Face, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	key := faceKey{size: size, bold: bold}
	if f, ok := n.faces[key]; ok {
		return f, nil
	}
	src := n.regular
	if bold {
		src = n.bold
	}
	f, err := opentype.NewFace(src, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, err
	}
	n.faces[key] = f
	return f, nil
}

func (n *Native) drawLabel(dst draw.Image, l render.Label, s float64) {
	face, err := n.face(l.Size*s, l.Bold)
	if err != nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	width := fixed.I(int(l.W * s))
	lines := wrap(face, l.Text, width, max(l.MaxLines, 1))
	m := face.Metrics()
	lineH := l.Size * 1.25 * s
	glyphH := float64(m.Ascent+m.Descent) / 64
	d := font.Drawer{Dst: dst, Src: image.NewUniform(l.Color), Face: face}
	for i, line := range lines {
		x := fixed.I(int(l.X * s))
		if l.Align == render.AlignCenter {
			x += (width - d.MeasureString(line)) / 2
		}
		top := l.Y*s + float64(i)*lineH + (lineH-glyphH)/2
		d.Dot = fixed.Point26_6{X: x, Y: fixed.Int26_6(top*64) + m.Ascent}
		d.DrawString(line)
	}
}

// wrap breaks text into at most maxLines lines no wider than width, cutting
// the last line with an ellipsis when text remains.
func wrap(face font.Face, text string, width fixed.Int26_6, maxLines int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	cur := ""
	for i, w := range words {
		candidate := w
		if cur != "" {
			candidate = cur + " " + w
		}
		if cur == "" || font.MeasureString(face, candidate) <= width {
			cur = candidate
			continue
		}
		if len(lines) == maxLines-1 {
			lines = append(lines, ellipsize(face, strings.Join(append([]string{cur}, words[i:]...), " "), width))
			return lines
		}
		lines = append(lines, cur)
		cur = w
	}
	return append(lines, ellipsize(face, cur, width))
}

func ellipsize(face font.Face, s string, width fixed.Int26_6) string {
	if font.MeasureString(face, s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		out := strings.TrimRight(string(runes), " ") + "…"
		if font.MeasureString(face, out) <= width {
			return out
		}
	}
	return "…"
}
