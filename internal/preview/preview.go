// Package preview is the card preview: template choice and PNG download of
// the currently shown card.
package preview

import (
	"context"
	"errors"
	"html/template"
	"sync"

	"idcard/internal/raster"
	"idcard/internal/render"
	"idcard/internal/student"
)

// ErrBusy is returned while an export from this preview is still running.
var ErrBusy = errors.New("export already in progress")

// State is the preview of one record.
type State struct {
	exporter *raster.Exporter

	mu       sync.Mutex
	template render.Variant
	busy     bool
}

// New starts on the classic template.
func New(exporter *raster.Exporter) *State {
	return &State{exporter: exporter, template: render.TemplateClassic}
}

// Template returns the selected variant.
func (s *State) Template() render.Variant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.template
}

// SelectTemplate swaps the shown template; unknown names select the classic one.
func (s *State) SelectTemplate(name string) render.Variant {
	v := render.ParseVariant(name)
	s.mu.Lock()
	s.template = v
	s.mu.Unlock()
	return v
}

// Busy reports whether an export is running.
func (s *State) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Card renders rec with the selected template as HTML.
func (s *State) Card(rec student.Record) (template.HTML, error) {
	l, err := s.exporter.Renderer.Render(s.Template(), rec)
	if err != nil {
		return "", err
	}
	return render.HTML(l)
}

// Export rasterizes rec with the selected template at export density. The
// busy flag is cleared on every return path.
func (s *State) Export(ctx context.Context, rec student.Record) (raster.Artifact, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return raster.Artifact{}, ErrBusy
	}
	s.busy = true
	v := s.template
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()
	return s.exporter.Export(ctx, "preview", v, rec, raster.ExportOptions)
}
