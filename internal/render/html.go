package render

import (
	"bytes"
	"fmt"
	"html/template"
	"image/color"
	"strings"
)

var cardTmpl = template.Must(template.New("card").Parse(`<div id="card" class="id-card {{.Class}}" style="{{.Style}}">
{{- range .Nodes}}
{{- if .Photo}}<img src="{{.Src}}" alt="{{.Alt}}" style="{{.Style}}">
{{- else if .SVG}}<div style="{{.Style}}">{{.SVG}}</div>
{{- else}}<div style="{{.Style}}">{{.Text}}</div>
{{- end}}
{{- end}}
</div>`))

type htmlNode struct {
	Style template.CSS
	Text  string
	Photo bool
	Src   template.URL
	Alt   string
	SVG   template.HTML
}

type htmlCard struct {
	Class string
	Style template.CSS
	Nodes []htmlNode
}

// HTML renders the layout as a self-contained fragment rooted at div#card.
// Photos are only emitted when they are inline image data URLs.
func HTML(l Layout) (template.HTML, error) {
	card := htmlCard{
		Class: string(l.Variant),
		Style: template.CSS(fmt.Sprintf(
			"position:relative;overflow:hidden;width:%gpx;height:%gpx;border-radius:%gpx;background:%s;font-family:'Go','Helvetica Neue',Arial,sans-serif",
			l.Width, l.Height, l.Radius, cssColor(l.Background))),
	}
	for _, n := range l.Nodes {
		switch v := n.(type) {
		case Box:
			card.Nodes = append(card.Nodes, htmlNode{Style: template.CSS(boxCSS(v.Rect, v.Fill, v.Radius, v.Circle, v.Stroke, v.StrokeWidth))})
		case Label:
			card.Nodes = append(card.Nodes, htmlNode{Style: template.CSS(labelCSS(v)), Text: v.Text})
		case Photo:
			if !IsImageDataURL(v.DataURL) {
				continue
			}
			card.Nodes = append(card.Nodes, htmlNode{
				Photo: true,
				Src:   template.URL(v.DataURL),
				Alt:   v.Alt,
				Style: template.CSS(boxCSS(v.Rect, transparent, v.Radius, v.Circle, v.Stroke, v.StrokeWidth) + ";object-fit:cover"),
			})
		case Code:
			card.Nodes = append(card.Nodes, htmlNode{
				Style: template.CSS(boxCSS(v.Rect, transparent, 0, false, transparent, 0)),
				SVG:   template.HTML(codeSVG(v)),
			})
		}
	}

	var buf bytes.Buffer
	if err := cardTmpl.Execute(&buf, card); err != nil {
		return "", fmt.Errorf("render card html: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// IsImageDataURL reports whether s is a base64 data URL of an image type.
func IsImageDataURL(s string) bool {
	head, _, ok := strings.Cut(s, ",")
	return ok && strings.HasPrefix(head, "data:image/") && strings.HasSuffix(head, ";base64") &&
		!strings.ContainsAny(head, "\"'<> ")
}

func boxCSS(r Rect, fill color.RGBA, radius float64, circle bool, stroke color.RGBA, strokeW float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "position:absolute;box-sizing:border-box;left:%gpx;top:%gpx;width:%gpx;height:%gpx", r.X, r.Y, r.W, r.H)
	if fill.A > 0 {
		fmt.Fprintf(&b, ";background:%s", cssColor(fill))
	}
	switch {
	case circle:
		b.WriteString(";border-radius:50%")
	case radius > 0:
		fmt.Fprintf(&b, ";border-radius:%gpx", radius)
	}
	if strokeW > 0 {
		fmt.Fprintf(&b, ";border:%gpx solid %s", strokeW, cssColor(stroke))
	}
	return b.String()
}

func labelCSS(l Label) string {
	lines := l.MaxLines
	if lines < 1 {
		lines = 1
	}
	var b strings.Builder
	fmt.Fprintf(&b, "position:absolute;left:%gpx;top:%gpx;width:%gpx;font-size:%gpx;line-height:%gpx;color:%s;overflow:hidden",
		l.X, l.Y, l.W, l.Size, lineHeight(l.Size), cssColor(l.Color))
	fmt.Fprintf(&b, ";max-height:%gpx", lineHeight(l.Size)*float64(lines))
	if lines == 1 {
		b.WriteString(";white-space:nowrap;text-overflow:ellipsis")
	}
	if l.Bold {
		b.WriteString(";font-weight:700")
	}
	if l.Align == AlignCenter {
		b.WriteString(";text-align:center")
	}
	return b.String()
}

func lineHeight(size float64) float64 { return size * 1.25 }

// cssColor un-premultiplies c into an rgba() value.
func cssColor(c color.RGBA) string {
	if c.A == 0 {
		return "transparent"
	}
	un := func(v uint8) int { return int(v) * 0xff / int(c.A) }
	return fmt.Sprintf("rgba(%d,%d,%d,%.3f)", un(c.R), un(c.G), un(c.B), float64(c.A)/0xff)
}

func codeSVG(c Code) string {
	n := len(c.Modules)
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%g" height="%g" viewBox="0 0 %d %d" shape-rendering="crispEdges">`, c.W, c.H, n, n)
	if c.Background.A > 0 {
		fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="%s"/>`, n, n, cssColor(c.Background))
	}
	fmt.Fprintf(&b, `<path fill="%s" d="`, cssColor(c.Foreground))
	for y, row := range c.Modules {
		for x, on := range row {
			if on {
				fmt.Fprintf(&b, "M%d %dh1v1h-1z", x, y)
			}
		}
	}
	b.WriteString(`"/></svg>`)
	return b.String()
}
