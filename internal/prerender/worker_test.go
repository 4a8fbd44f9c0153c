package prerender

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"idcard/internal/cards"
	"idcard/internal/exportcache"
	"idcard/internal/queue"
	"idcard/internal/raster"
	"idcard/internal/render"
	"idcard/internal/store"
	"idcard/internal/student"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeRasterizer struct{}

func (fakeRasterizer) Rasterize(_ context.Context, l render.Layout, _ raster.Options) ([]byte, error) {
	return []byte("png:" + string(l.Variant)), nil
}

func (fakeRasterizer) Name() string { return "fake" }

func setup(t *testing.T) (*Worker, *cards.Repository, *exportcache.Cache) {
	t.Helper()
	kv := store.NewMemory()
	repo := cards.NewRepository(kv, "", nil)
	cache := exportcache.New(kv, repo.Key())
	exp := raster.NewExporter(render.NewRenderer(render.DefaultBranding), fakeRasterizer{}, nil)
	return New(repo, exp, cache, nil), repo, cache
}

func draft() student.Record {
	return student.Record{Name: "Ada Lovelace", RollNumber: "U1", ClassDiv: "Grade 1-A", RackNumber: "R1", BusRouteNumber: "Route 1: North Campus"}
}

func TestHandleSavedAndDeleted(t *testing.T) {
	ctx := context.Background()
	w, repo, cache := setup(t)
	rec, err := repo.Save(ctx, draft())
	require.NoError(t, err)

	require.NoError(t, w.Handle(ctx, queue.Message{Type: queue.CardSaved, CardID: rec.ID}))
	png, ok, err := cache.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "png:template-1", string(png))

	require.NoError(t, w.Handle(ctx, queue.Message{Type: queue.CardDeleted, CardID: rec.ID}))
	_, ok, err = cache.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHandleSavedButGone(t *testing.T) {
	ctx := context.Background()
	w, _, cache := setup(t)
	require.NoError(t, cache.Put(ctx, "card-9", []byte("stale")))
	require.NoError(t, w.Handle(ctx, queue.Message{Type: queue.CardSaved, CardID: "card-9"}))
	_, ok, _ := cache.Get(ctx, "card-9")
	assert.False(t, ok)
}

func TestHandleIgnoresUnknown(t *testing.T) {
	w, _, _ := setup(t)
	assert.NoError(t, w.Handle(context.Background(), queue.Message{Type: "checkin"}))
}

func TestRunStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w, repo, cache := setup(t)
	rec, err := repo.Save(ctx, draft())
	require.NoError(t, err)

	q := queue.NewInMemory(4)
	require.NoError(t, q.Publish(ctx, queue.Message{Type: queue.CardSaved, CardID: rec.ID}))

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, q) }()

	require.Eventually(t, func() bool {
		_, ok, _ := cache.Get(ctx, rec.ID)
		return ok
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("worker did not stop")
	}
}
