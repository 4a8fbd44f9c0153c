// Package prerender consumes card events and keeps the gallery export cache warm.
package prerender

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"idcard/internal/cards"
	"idcard/internal/exportcache"
	"idcard/internal/queue"
	"idcard/internal/raster"
	"idcard/internal/render"
	"idcard/internal/student"
)

// Loader fetches a saved card by id.
type Loader interface {
	Get(ctx context.Context, id string) (student.Record, error)
}

// Worker renders the classic template for every saved card and drops the
// cached image when the card is deleted.
type Worker struct {
	cards    Loader
	exporter *raster.Exporter
	cache    *exportcache.Cache
	log      *zap.Logger
}

// New builds a worker; log may be nil.
func New(loader Loader, exporter *raster.Exporter, cache *exportcache.Cache, log *zap.Logger) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{cards: loader, exporter: exporter, cache: cache, log: log}
}

// Run processes messages until ctx is done or the queue closes.
func (w *Worker) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	w.log.Info("worker started, waiting for messages")
	for msg := range messages {
		if err := w.Handle(ctx, msg); err != nil {
			w.log.Warn("message failed", zap.String("type", msg.Type), zap.String("card_id", msg.CardID), zap.Error(err))
		}
	}
	w.log.Info("worker stopped")
	return nil
}

// Handle applies a single message. Unknown types are ignored.
func (w *Worker) Handle(ctx context.Context, msg queue.Message) error {
	switch msg.Type {
	case queue.CardSaved:
		rec, err := w.cards.Get(ctx, msg.CardID)
		if errors.Is(err, cards.ErrNotFound) {
			// deleted before we got to it
			return w.cache.Evict(ctx, msg.CardID)
		}
		if err != nil {
			return err
		}
		art, err := w.exporter.Export(ctx, "prerender", render.TemplateClassic, rec, raster.ExportOptions)
		if err != nil {
			return err
		}
		w.log.Debug("export cached", zap.String("card_id", rec.ID), zap.Int("bytes", len(art.PNG)))
		return w.cache.Put(ctx, rec.ID, art.PNG)
	case queue.CardDeleted:
		return w.cache.Evict(ctx, msg.CardID)
	default:
		return nil
	}
}
