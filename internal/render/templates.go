package render

import (
	"strings"

	"idcard/internal/student"
)

// Variant names one of the two card designs.
type Variant string

const (
	// TemplateClassic is the light theme.
	TemplateClassic Variant = "template-1"
	// TemplateModern is the dark theme.
	TemplateModern Variant = "template-2"
)

// Variants lists the selectable designs with their display labels.
var Variants = []struct {
	Variant Variant
	Label   string
}{
	{TemplateClassic, "Light Theme (Classic)"},
	{TemplateModern, "Dark Theme (Modern)"},
}

// ParseVariant maps s to a variant. Anything unrecognized is the classic template.
func ParseVariant(s string) Variant {
	switch Variant(s) {
	case TemplateModern:
		return TemplateModern
	default:
		return TemplateClassic
	}
}

// Branding is the fixed text printed on every card.
type Branding struct {
	SchoolName   string
	Subtitle     string
	AcademicYear string
	Motto        string
}

// DefaultBranding matches the cards issued so far.
var DefaultBranding = Branding{
	SchoolName:   "UNITY SCHOOL",
	Subtitle:     "Student Identification Card",
	AcademicYear: "2025-2026",
	Motto:        "Unity School - Empowering Minds, Building Futures",
}

// Renderer builds layouts with a given branding.
type Renderer struct {
	Branding Branding
}

// NewRenderer fills unset branding fields from DefaultBranding.
func NewRenderer(b Branding) *Renderer {
	if b.SchoolName == "" {
		b.SchoolName = DefaultBranding.SchoolName
	}
	if b.Subtitle == "" {
		b.Subtitle = DefaultBranding.Subtitle
	}
	if b.AcademicYear == "" {
		b.AcademicYear = DefaultBranding.AcademicYear
	}
	if b.Motto == "" {
		b.Motto = DefaultBranding.Motto
	}
	return &Renderer{Branding: b}
}

// Render lays out rec with the chosen variant.
func (r *Renderer) Render(v Variant, rec student.Record) (Layout, error) {
	switch ParseVariant(string(v)) {
	case TemplateModern:
		return r.modern(rec)
	default:
		return r.classic(rec)
	}
}

// AllergyText is the allergy line shown on both cards.
func AllergyText(allergies []string) string {
	if len(allergies) == 0 {
		return "None"
	}
	return strings.Join(allergies, ", ")
}

func (r *Renderer) classic(rec student.Record) (Layout, error) {
	code, err := NewCode(rec, Rect{X: 112, Y: 344, W: 96, H: 96}, colorBlack, colorWhite)
	if err != nil {
		return Layout{}, err
	}

	nodes := []Node{
		Box{Rect: Rect{W: CardWidth, H: 64}, Fill: colorPrimary},
		Label{Rect: Rect{X: 16, Y: 12, W: 288}, Text: r.Branding.SchoolName, Size: 20, Bold: true, Color: colorWhite, Align: AlignCenter},
		Label{Rect: Rect{X: 16, Y: 40, W: 288}, Text: r.Branding.Subtitle, Size: 12, Color: colorWhite, Align: AlignCenter},
	}

	photoBox := Rect{X: 104, Y: 80, W: 112, H: 112}
	if rec.HasPhoto() {
		nodes = append(nodes, Photo{Rect: photoBox, DataURL: *rec.Photo, Alt: rec.Name, Circle: true, Stroke: colorLight, StrokeWidth: 4})
	} else {
		nodes = append(nodes,
			Box{Rect: photoBox, Fill: colorGray200, Circle: true, Stroke: colorLight, StrokeWidth: 4},
			Label{Rect: Rect{X: photoBox.X, Y: photoBox.Y + 48, W: photoBox.W}, Text: "No Photo", Size: 12, Color: colorGray400, Align: AlignCenter},
		)
	}

	nodes = append(nodes,
		Label{Rect: Rect{X: 16, Y: 200, W: 288}, Text: rec.Name, Size: 20, Bold: true, Color: colorDark, Align: AlignCenter},
		Label{Rect: Rect{X: 16, Y: 228, W: 288}, Text: "Roll No: " + rec.RollNumber, Size: 13, Color: colorSecondary, Align: AlignCenter},
	)

	grid := []struct{ key, value string }{
		{"Class & Division", rec.ClassDiv},
		{"Rack Number", rec.RackNumber},
		{"Bus Route", rec.BusRouteNumber},
		{"Allergies", AllergyText(rec.Allergies)},
	}
	for i, cell := range grid {
		x := 16.0 + float64(i%2)*152
		y := 252.0 + float64(i/2)*44
		nodes = append(nodes,
			Label{Rect: Rect{X: x, Y: y, W: 136}, Text: cell.key, Size: 12, Bold: true, Color: colorTertiary},
			Label{Rect: Rect{X: x, Y: y + 15, W: 136}, Text: cell.value, Size: 12, Color: colorDark, MaxLines: 2},
		)
	}

	nodes = append(nodes,
		code,
		Label{Rect: Rect{X: 16, Y: 444, W: 288}, Text: "Scan for full details", Size: 10, Color: colorGray500, Align: AlignCenter},
		Box{Rect: Rect{Y: 476, W: CardWidth, H: 32}, Fill: colorPrimary},
		Label{Rect: Rect{X: 16, Y: 485, W: 288}, Text: "Valid for Academic Year " + r.Branding.AcademicYear, Size: 11, Color: colorWhite, Align: AlignCenter},
	)

	return Layout{
		Variant:    TemplateClassic,
		Width:      CardWidth,
		Height:     CardHeight,
		Background: colorWhite,
		Radius:     12,
		Nodes:      nodes,
	}, nil
}

func (r *Renderer) modern(rec student.Record) (Layout, error) {
	code, err := NewCode(rec, Rect{X: 256, Y: 12, W: 48, H: 48}, colorWhite, transparent)
	if err != nil {
		return Layout{}, err
	}
	muted := withAlpha(colorWhite, 0xcc)

	nodes := []Node{
		Label{Rect: Rect{X: 16, Y: 24, W: 232}, Text: r.Branding.SchoolName, Size: 20, Bold: true, Color: colorWhite},
		code,
		Box{Rect: Rect{Y: 72, W: CardWidth, H: 1}, Fill: colorAccent},
	}

	photoBox := Rect{X: 16, Y: 89, W: 96, H: 128}
	if rec.HasPhoto() {
		nodes = append(nodes, Photo{Rect: photoBox, DataURL: *rec.Photo, Alt: rec.Name, Radius: 4, Stroke: colorAccent, StrokeWidth: 2})
	} else {
		nodes = append(nodes,
			Box{Rect: photoBox, Fill: colorDarker, Radius: 4, Stroke: colorAccent, StrokeWidth: 2},
			Label{Rect: Rect{X: photoBox.X, Y: photoBox.Y + 56, W: photoBox.W}, Text: "No Photo", Size: 12, Color: colorGray400, Align: AlignCenter},
		)
	}

	nodes = append(nodes,
		Label{Rect: Rect{X: 128, Y: 89, W: 176}, Text: rec.Name, Size: 20, Bold: true, Color: colorWhite, MaxLines: 2},
		Label{Rect: Rect{X: 128, Y: 140, W: 176}, Text: "ID: " + rec.RollNumber, Size: 13, Color: muted},
		Label{Rect: Rect{X: 128, Y: 164, W: 176}, Text: "Class: " + rec.ClassDiv, Size: 13, Color: colorWhite},
		Label{Rect: Rect{X: 128, Y: 184, W: 176}, Text: "Rack: " + rec.RackNumber, Size: 13, Color: colorWhite},
		Label{Rect: Rect{X: 128, Y: 204, W: 176}, Text: "Bus Route: " + rec.BusRouteNumber, Size: 13, Color: colorWhite, MaxLines: 2},

		Label{Rect: Rect{X: 16, Y: 240, W: 288}, Text: "ALLERGIES", Size: 13, Bold: true, Color: colorWhite},
		Box{Rect: Rect{X: 16, Y: 258, W: 72, H: 1}, Fill: colorAccent},
		Label{Rect: Rect{X: 16, Y: 266, W: 288}, Text: AllergyText(rec.Allergies), Size: 13, Color: colorWhite, MaxLines: 3},

		Box{Rect: Rect{Y: 460, W: CardWidth, H: 48}, Fill: colorAccent},
		Label{Rect: Rect{X: 8, Y: 477, W: 304}, Text: r.Branding.Motto, Size: 11, Bold: true, Color: colorWhite, Align: AlignCenter},
	)

	return Layout{
		Variant:    TemplateModern,
		Width:      CardWidth,
		Height:     CardHeight,
		Background: colorDark,
		Radius:     12,
		Nodes:      nodes,
	}, nil
}
