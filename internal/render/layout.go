// Package render turns a student record into a card layout: a fixed-size
// canvas of positioned boxes, labels, a photo slot and a scannable code.
// The same layout feeds the HTML preview and both rasterizers.
package render

import "image/color"

// Card dimensions in logical pixels; exports scale these.
const (
	CardWidth  = 320
	CardHeight = 508
)

// Rect is a position and size in logical pixels.
type Rect struct {
	X, Y, W, H float64
}

// Align is horizontal text alignment inside a label's width.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
)

// Node is one drawable element. Implementations: Box, Label, Photo, Code.
type Node interface {
	Bounds() Rect
}

// Box is a filled, optionally rounded or circular, optionally stroked rectangle.
type Box struct {
	Rect
	Fill        color.RGBA
	Radius      float64
	Circle      bool
	Stroke      color.RGBA
	StrokeWidth float64
}

// Label is a run of text whose top-left is at X,Y and which may use W pixels.
// Text longer than MaxLines lines is cut with an ellipsis.
type Label struct {
	Rect
	Text     string
	Size     float64
	Bold     bool
	Color    color.RGBA
	Align    Align
	MaxLines int
}

// Photo draws an inline image payload cropped to fill its box.
type Photo struct {
	Rect
	DataURL     string
	Alt         string
	Circle      bool
	Radius      float64
	Stroke      color.RGBA
	StrokeWidth float64
}

// Code is a square scannable code matrix.
type Code struct {
	Rect
	Content string
	Modules [][]bool
	// Background with zero alpha is transparent.
	Foreground color.RGBA
	Background color.RGBA
}

func (b Box) Bounds() Rect   { return b.Rect }
func (l Label) Bounds() Rect { return l.Rect }
func (p Photo) Bounds() Rect { return p.Rect }
func (c Code) Bounds() Rect  { return c.Rect }

// Layout is a complete card ready for output.
type Layout struct {
	Variant    Variant
	Width      float64
	Height     float64
	Background color.RGBA
	Radius     float64
	Nodes      []Node
}

// Codes returns every code node in draw order.
func (l Layout) Codes() []Code {
	var out []Code
	for _, n := range l.Nodes {
		if c, ok := n.(Code); ok {
			out = append(out, c)
		}
	}
	return out
}

// Texts returns the text of every label in draw order.
func (l Layout) Texts() []string {
	var out []string
	for _, n := range l.Nodes {
		if lb, ok := n.(Label); ok {
			out = append(out, lb.Text)
		}
	}
	return out
}

func rgb(hex uint32) color.RGBA {
	return color.RGBA{R: uint8(hex >> 16), G: uint8(hex >> 8), B: uint8(hex), A: 0xff}
}

func withAlpha(c color.RGBA, a uint8) color.RGBA {
	// premultiplied, as image/color expects
	return color.RGBA{
		R: uint8(uint16(c.R) * uint16(a) / 0xff),
		G: uint8(uint16(c.G) * uint16(a) / 0xff),
		B: uint8(uint16(c.B) * uint16(a) / 0xff),
		A: a,
	}
}

var (
	colorPrimary   = rgb(0x1e3a8a)
	colorSecondary = rgb(0x3b82f6)
	colorTertiary  = rgb(0x2563eb)
	colorLight     = rgb(0xdbeafe)
	colorDark      = rgb(0x0f172a)
	colorDarker    = rgb(0x020617)
	colorAccent    = rgb(0xf59e0b)
	colorWhite     = rgb(0xffffff)
	colorGray200   = rgb(0xe5e7eb)
	colorGray400   = rgb(0x9ca3af)
	colorGray500   = rgb(0x6b7280)
	colorBlack     = rgb(0x000000)
	transparent    = color.RGBA{}
)
