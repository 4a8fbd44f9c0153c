// Package gallery lists saved cards and offers view, download and delete per card.
package gallery

import (
	"context"
	"time"

	"go.uber.org/zap"

	"idcard/internal/exportcache"
	"idcard/internal/metrics"
	"idcard/internal/raster"
	"idcard/internal/render"
	"idcard/internal/student"
)

// Deleter removes a record from persistent storage.
type Deleter interface {
	Delete(ctx context.Context, id string) error
}

// Entry is one row of the saved-cards grid.
type Entry struct {
	Record  student.Record
	Created string
}

// Gallery exports and deletes saved cards. Downloads always use the classic
// template regardless of what the preview last showed.
type Gallery struct {
	store    Deleter
	exporter *raster.Exporter
	cache    *exportcache.Cache
	log      *zap.Logger
}

// New builds a gallery. cache may be nil.
func New(store Deleter, exporter *raster.Exporter, cache *exportcache.Cache, log *zap.Logger) *Gallery {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gallery{store: store, exporter: exporter, cache: cache, log: log}
}

// Entries maps records to grid rows. An empty collection yields nil so the
// page renders nothing for the gallery.
func Entries(records []student.Record) []Entry {
	if len(records) == 0 {
		return nil
	}
	out := make([]Entry, 0, len(records))
	for _, r := range records {
		out = append(out, Entry{Record: r, Created: FormatCreated(r.CreatedAt)})
	}
	return out
}

// FormatCreated renders an ISO timestamp as "Jan 2, 2006"; unparsable or empty input yields "".
func FormatCreated(ts string) string {
	if ts == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

// View returns the displayed record with id itself, not a copy with a new identity.
func View(records []student.Record, id string) (student.Record, bool) {
	for _, r := range records {
		if r.ID == id {
			return r, true
		}
	}
	return student.Record{}, false
}

// Export returns the classic-template download for rec, served from the
// pre-render cache when the worker has produced it.
func (g *Gallery) Export(ctx context.Context, rec student.Record) (raster.Artifact, error) {
	if g.cache != nil && rec.ID != "" {
		png, ok, err := g.cache.Get(ctx, rec.ID)
		if err != nil {
			g.log.Warn("export cache read failed", zap.String("card_id", rec.ID), zap.Error(err))
		}
		if ok && len(png) > 0 {
			metrics.Exports.WithLabelValues("gallery_cache", "ok").Inc()
			return raster.Artifact{Filename: raster.Filename(rec.Name), PNG: png}, nil
		}
	}
	return g.exporter.Export(ctx, "gallery", render.TemplateClassic, rec, raster.ExportOptions)
}

// Delete removes id from storage and returns the displayed list without it.
// There is no confirmation step and no undo.
func (g *Gallery) Delete(ctx context.Context, displayed []student.Record, id string) ([]student.Record, error) {
	if err := g.store.Delete(ctx, id); err != nil {
		return displayed, err
	}
	kept := make([]student.Record, 0, len(displayed))
	for _, r := range displayed {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	return kept, nil
}
