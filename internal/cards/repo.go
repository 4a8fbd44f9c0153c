// Package cards persists student ID card records as one newest-first JSON list
// under a single key. Every write reads and rewrites the whole list, which is
// only acceptable for classroom-sized collections.
package cards

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"idcard/internal/metrics"
	"idcard/internal/store"
	"idcard/internal/student"
)

// DefaultKey is the storage key holding the card list.
const DefaultKey = "unity-student-cards"

var (
	ErrNotFound = errors.New("card not found")
	// ErrCorruptDocument is returned when a stored list is present but does not parse.
	ErrCorruptDocument = errors.New("stored card list is malformed")
)

// Repository is the record store. It has no locking: concurrent writers
// (two processes, two tabs) can overwrite each other's changes.
type Repository struct {
	kv  store.KV
	key string
	log *zap.Logger
	now func() time.Time
	ids func(time.Time) string
}

// NewRepository creates a repository over kv. An empty key uses DefaultKey.
func NewRepository(kv store.KV, key string, log *zap.Logger) *Repository {
	if key == "" {
		key = DefaultKey
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Repository{kv: kv, key: key, log: log, now: time.Now, ids: NewID}
}

// Key returns the storage key the list lives under.
func (r *Repository) Key() string { return r.key }

// Save assigns id and createdAt, prepends the record and rewrites the list.
func (r *Repository) Save(ctx context.Context, draft student.Record) (student.Record, error) {
	list, err := r.List(ctx)
	if err != nil {
		return student.Record{}, err
	}

	now := r.now().UTC()
	rec := draft.Clone()
	rec.ID = r.ids(now)
	rec.CreatedAt = now.Format("2006-01-02T15:04:05.000Z07:00")
	rec.Normalize()

	list = append([]student.Record{rec}, list...)
	if err := r.write(ctx, list); err != nil {
		return student.Record{}, err
	}
	metrics.CardsSaved.Inc()
	r.log.Debug("card saved", zap.String("id", rec.ID), zap.Int("total", len(list)))
	return rec, nil
}

// List returns every persisted record, newest first. An absent key or an
// unreadable backend yields an empty list; a present but malformed document
// is an error.
func (r *Repository) List(ctx context.Context) ([]student.Record, error) {
	raw, ok, err := r.kv.Get(ctx, r.key)
	if err != nil {
		r.log.Warn("card list unreadable, treating as empty", zap.String("key", r.key), zap.Error(err))
		return []student.Record{}, nil
	}
	if !ok || len(raw) == 0 {
		return []student.Record{}, nil
	}
	var list []student.Record
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	if list == nil {
		list = []student.Record{}
	}
	return list, nil
}

// Get returns the stored record with id.
func (r *Repository) Get(ctx context.Context, id string) (student.Record, error) {
	list, err := r.List(ctx)
	if err != nil {
		return student.Record{}, err
	}
	for _, rec := range list {
		if rec.ID == id {
			return rec, nil
		}
	}
	return student.Record{}, ErrNotFound
}

// Delete filters id out of the list and rewrites it. An absent id is a no-op.
func (r *Repository) Delete(ctx context.Context, id string) error {
	list, err := r.List(ctx)
	if err != nil {
		return err
	}
	kept := make([]student.Record, 0, len(list))
	for _, rec := range list {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	if err := r.write(ctx, kept); err != nil {
		return err
	}
	metrics.CardsDeleted.Inc()
	return nil
}

func (r *Repository) write(ctx context.Context, list []student.Record) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode card list: %w", err)
	}
	if err := r.kv.Set(ctx, r.key, raw); err != nil {
		return fmt.Errorf("write card list: %w", err)
	}
	return nil
}

// NewID builds "card-<unix millis>-<7 base36 chars>". The suffix comes from a
// random UUID and only guards against same-millisecond collisions.
func NewID(now time.Time) string {
	u := uuid.New()
	var n uint64
	for _, b := range u[:8] {
		n = n<<8 | uint64(b)
	}
	suffix := strconv.FormatUint(n, 36)
	if len(suffix) < 7 {
		suffix = strings.Repeat("0", 7-len(suffix)) + suffix
	}
	return fmt.Sprintf("card-%d-%s", now.UnixMilli(), suffix[:7])
}
