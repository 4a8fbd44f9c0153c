package cards

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idcard/internal/store"
	"idcard/internal/student"
)

func ada() student.Record {
	return student.Record{
		Name:           "Ada Lovelace",
		RollNumber:     "U2025001",
		ClassDiv:       "Grade 3-A",
		Allergies:      []string{"Nuts"},
		RackNumber:     "R12",
		BusRouteNumber: "Route 1: North Campus",
	}
}

func TestSaveAssignsIdentityAndPrepends(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(store.NewMemory(), "", nil)

	first, err := repo.Save(ctx, ada())
	require.NoError(t, err)
	assert.True(t, first.Persisted())
	assert.Regexp(t, regexp.MustCompile(`^card-\d+-[0-9a-z]{7}$`), first.ID)
	_, err = time.Parse(time.RFC3339, first.CreatedAt)
	require.NoError(t, err)

	second := ada()
	second.Name = "Grace Hopper"
	saved, err := repo.Save(ctx, second)
	require.NoError(t, err)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, saved.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestSaveIgnoresCallerIdentity(t *testing.T) {
	repo := NewRepository(store.NewMemory(), "", nil)
	draft := ada()
	draft.ID = "mine"
	draft.CreatedAt = "1999-01-01T00:00:00Z"

	rec, err := repo.Save(context.Background(), draft)
	require.NoError(t, err)
	assert.NotEqual(t, "mine", rec.ID)
	assert.NotEqual(t, "1999-01-01T00:00:00Z", rec.CreatedAt)
}

func TestSaveKeepsData(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(store.NewMemory(), "", nil)
	rec, err := repo.Save(ctx, ada())
	require.NoError(t, err)

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)

	want := ada()
	want.ID, want.CreatedAt = rec.ID, rec.CreatedAt
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("stored record mismatch (-want +got):\n%s", diff)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(store.NewMemory(), "", nil)
	a, err := repo.Save(ctx, ada())
	require.NoError(t, err)
	b, err := repo.Save(ctx, ada())
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, a.ID))
	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)

	require.NoError(t, repo.Delete(ctx, "card-0-missing"))
	after, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, list, after)

	_, err = repo.Get(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListEmpty(t *testing.T) {
	list, err := NewRepository(store.NewMemory(), "", nil).List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestListCorruptDocument(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	require.NoError(t, kv.Set(ctx, DefaultKey, []byte("{not json")))
	repo := NewRepository(kv, "", nil)

	_, err := repo.List(ctx)
	assert.ErrorIs(t, err, ErrCorruptDocument)

	_, err = repo.Save(ctx, ada())
	assert.ErrorIs(t, err, ErrCorruptDocument)
}

type brokenKV struct{ store.Memory }

func (*brokenKV) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("disk gone")
}

func TestListUnreadableBackendIsEmpty(t *testing.T) {
	list, err := NewRepository(&brokenKV{}, "", nil).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStoredDocumentShape(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	repo := NewRepository(kv, "", nil)
	draft := ada()
	draft.Allergies = nil
	_, err := repo.Save(ctx, draft)
	require.NoError(t, err)

	raw, ok, err := kv.Get(ctx, DefaultKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(raw), `"allergies":[]`)
	assert.Contains(t, string(raw), `"photo":null`)
	assert.Contains(t, string(raw), `"busRouteNumber":"Route 1: North Campus"`)
}

func TestNewIDUnique(t *testing.T) {
	now := time.UnixMilli(1735689600000)
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		id := NewID(now)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
