package catalog

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/debemdeboas/roteiro/internal/draft"
	"github.com/debemdeboas/roteiro/internal/errors"
	"github.com/debemdeboas/roteiro/internal/model"
	"github.com/debemdeboas/roteiro/internal/repository"
	"github.com/debemdeboas/roteiro/internal/repository/scratch"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	SetLogger(zerolog.New(os.Stdout).Level(zerolog.Disabled))
	os.Exit(m.Run())
}

func newStore() *draft.Store {
	return draft.NewStore(scratch.NewMemory(), draft.Options{})
}

func ids(n int) []model.TipID {
	out := make([]model.TipID, n)
	for i := range out {
		out[i] = model.TipID(fmt.Sprintf("t%d", i+1))
	}
	return out
}

func TestToggle(t *testing.T) {
	store := newStore()
	c := Open(context.Background(), store, nil)

	out, err := c.Toggle("t1")
	require.NoError(t, err)
	assert.Equal(t, Added, out)
	assert.Equal(t, []model.TipID{"t1"}, c.Selection())

	out, err = c.Toggle("t1")
	require.NoError(t, err)
	assert.Equal(t, Removed, out)
	assert.Empty(t, c.Selection())
	assert.Empty(t, store.LoadSelection())

	_, err = c.Toggle("")
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestToggleSelfInverse(t *testing.T) {
	c := Open(context.Background(), newStore(), nil)
	for _, id := range ids(3) {
		_, err := c.Toggle(id)
		require.NoError(t, err)
	}
	before := c.Selection()

	for _, id := range []model.TipID{"t2", "t9"} {
		_, err := c.Toggle(id)
		require.NoError(t, err)
		_, err = c.Toggle(id)
		require.NoError(t, err)

		got := c.Selection()
		assert.ElementsMatch(t, before, got)
	}
}

func TestToggleCap(t *testing.T) {
	store := newStore()
	c := Open(context.Background(), store, nil)
	require.Equal(t, 20, c.Max())

	for _, id := range ids(20) {
		out, err := c.Toggle(id)
		require.NoError(t, err)
		require.Equal(t, Added, out)
	}
	assert.Empty(t, c.Notice())

	out, err := c.Toggle("t21")
	require.NoError(t, err)
	assert.Equal(t, Full, out)
	assert.Len(t, c.Selection(), 20)
	assert.Len(t, store.LoadSelection(), 20)
	assert.Equal(t, "Maximum of 20 tips per guide", c.Notice())
	assert.Empty(t, c.Notice(), "notice is transient")

	// Removing still works at capacity.
	out, err = c.Toggle("t20")
	require.NoError(t, err)
	assert.Equal(t, Removed, out)
}

func TestReorder(t *testing.T) {
	store := newStore()
	require.NoError(t, store.SaveSelection(ids(3)))
	c := Open(context.Background(), store, nil)

	moved, err := c.Reorder(2, Up)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, []model.TipID{"t1", "t3", "t2"}, c.Selection())
	assert.Equal(t, []model.TipID{"t1", "t3", "t2"}, store.LoadSelection())

	tests := []struct {
		name  string
		index int
		dir   Direction
	}{
		{"first up", 0, Up},
		{"last down", 2, Down},
		{"negative", -1, Down},
		{"past end", 3, Up},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			moved, err := c.Reorder(tt.index, tt.dir)
			require.NoError(t, err)
			assert.False(t, moved)
			assert.Equal(t, []model.TipID{"t1", "t3", "t2"}, c.Selection())
		})
	}
}

func TestReorderIsPermutation(t *testing.T) {
	c := Open(context.Background(), newStore(), nil)
	for _, id := range ids(5) {
		_, err := c.Toggle(id)
		require.NoError(t, err)
	}
	moves := []struct {
		index int
		dir   Direction
	}{{0, Down}, {4, Up}, {2, Down}, {3, Up}, {1, Up}}
	for _, m := range moves {
		_, err := c.Reorder(m.index, m.dir)
		require.NoError(t, err)
	}
	assert.ElementsMatch(t, ids(5), c.Selection())
}

func TestCandidatesHandoff(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	fresh := repository.NewTip("u-1", model.StatusPublished)
	fresh.Title = "Nova dica"
	require.NoError(t, repo.CreateTip(ctx, fresh))

	store := newStore()
	require.NoError(t, store.SaveHandoff(fresh.ID))
	c := Open(ctx, store, repo)

	base := []model.Tip{{ID: "t1"}, {ID: fresh.ID}, {ID: "t2"}}
	_, err := c.Toggle("t2")
	require.NoError(t, err)

	got := c.Candidates(base)
	require.Len(t, got, 3)
	assert.Equal(t, fresh.ID, got[0].ID)
	assert.True(t, got[0].Fresh)
	assert.Equal(t, "Nova dica", got[0].Title)
	assert.Equal(t, model.TipID("t1"), got[1].ID)
	assert.Equal(t, model.TipID("t2"), got[2].ID)
	assert.True(t, got[2].Selected)
	assert.Equal(t, 1, got[2].Position)
	assert.False(t, got[1].Selected)

	// A second page of candidates that does not contain it still shows it once.
	got = c.Candidates([]model.Tip{{ID: "t3"}})
	require.Len(t, got, 2)
	assert.Equal(t, fresh.ID, got[0].ID)

	require.NoError(t, c.Continue())
	_, ok := store.LoadHandoff()
	assert.False(t, ok)
	got = c.Candidates(base)
	assert.Len(t, got, 3)
	assert.Equal(t, model.TipID("t1"), got[0].ID)
	assert.False(t, got[1].Fresh)
}

func TestHandoffMissingTip(t *testing.T) {
	store := newStore()
	require.NoError(t, store.SaveHandoff("gone"))
	c := Open(context.Background(), store, repository.NewMemoryRepository())
	assert.Empty(t, c.Candidates(nil))
}

func TestContinueRequiresSelection(t *testing.T) {
	c := Open(context.Background(), newStore(), nil)
	err := c.Continue()
	assert.True(t, errors.Is(err, errors.ErrPrecondition))
}

func TestResumeAndAbandon(t *testing.T) {
	store := newStore()
	c := Open(context.Background(), store, nil)
	for _, id := range ids(2) {
		_, err := c.Toggle(id)
		require.NoError(t, err)
	}
	require.NoError(t, store.Save(draft.KindGuide, draft.NewGuide()))

	reopened := Open(context.Background(), store, nil)
	assert.Equal(t, ids(2), reopened.Selection())

	require.NoError(t, reopened.Abandon())
	assert.Empty(t, reopened.Selection())
	assert.Empty(t, store.LoadSelection())
	_, ok := store.Load(draft.KindGuide)
	assert.False(t, ok)
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("up")
	require.NoError(t, err)
	assert.Equal(t, Up, d)
	d, err = ParseDirection("down")
	require.NoError(t, err)
	assert.Equal(t, Down, d)
	_, err = ParseDirection("left")
	assert.Error(t, err)
}
