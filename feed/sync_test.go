package feed

import (
	"context"
	"testing"

	"github.com/go-playground/assert/v2"
	"go.mongodb.org/mongo-driver/bson"

	"inkwell/models"
	"inkwell/store"
)

func publishPost(t *testing.T, st *store.Memory, author, title string, publishedAt, views int64) string {
	t.Helper()
	id, err := st.Create(context.Background(), models.CollPosts, bson.M{
		"title":       title,
		"authorId":    author,
		"status":      models.StatusPublished,
		"publishedAt": publishedAt,
		"viewCount":   views,
		"likes":       []string{},
		"categories":  []string{},
	})
	assert.Equal(t, err, nil)
	return id
}

func TestSynchronizerGlobalTracksStore(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()

	publishPost(t, st, "u1", "first", 100, 0)

	s := NewSynchronizer(st, nil)
	defer s.Close()
	assert.Equal(t, s.State().Loading, true)

	assert.Equal(t, s.SetMode(ctx, ModeGlobal, nil), nil)
	state := s.State()
	assert.Equal(t, state.Loading, false)
	assert.Equal(t, len(state.Posts), 1)
	assert.Equal(t, state.Posts[0].Title, "first")

	// A new published post shows up without resubscribing.
	publishPost(t, st, "u2", "second", 200, 0)
	state = s.State()
	assert.Equal(t, len(state.Posts), 2)
	assert.Equal(t, state.Posts[0].Title, "second")
}

func TestSynchronizerDraftsExcluded(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()

	_, err := st.Create(ctx, models.CollPosts, bson.M{
		"title": "wip", "authorId": "u1", "status": models.StatusDraft, "publishedAt": int64(0),
	})
	assert.Equal(t, err, nil)

	s := NewSynchronizer(st, nil)
	defer s.Close()
	assert.Equal(t, s.SetMode(ctx, ModeGlobal, nil), nil)
	assert.Equal(t, len(s.State().Posts), 0)
}

func TestSynchronizerSingleSubscription(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()

	viewer := newUser(t, st, bson.M{"username": "ada", "following": []string{"u1"}})

	s := NewSynchronizer(st, nil)
	assert.Equal(t, s.SetMode(ctx, ModeGlobal, nil), nil)
	assert.Equal(t, st.ActiveSubscriptions(), 1)

	assert.Equal(t, s.SetMode(ctx, ModeFollowing, viewer), nil)
	assert.Equal(t, st.ActiveSubscriptions(), 1)

	assert.Equal(t, s.SetMode(ctx, ModeGlobal, nil), nil)
	assert.Equal(t, st.ActiveSubscriptions(), 1)

	s.Close()
	assert.Equal(t, st.ActiveSubscriptions(), 0)
}

func TestSynchronizerEmptyFollowingSettles(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()

	publishPost(t, st, "u1", "unrelated", 100, 0)
	viewer := newUser(t, st, bson.M{"username": "ada", "following": []string{}})

	s := NewSynchronizer(st, nil)
	defer s.Close()
	assert.Equal(t, s.SetMode(ctx, ModeFollowing, viewer), nil)

	// No subscription, empty non-loading state.
	assert.Equal(t, st.ActiveSubscriptions(), 0)
	state := s.State()
	assert.Equal(t, state.Loading, false)
	assert.Equal(t, len(state.Posts), 0)
	assert.Equal(t, state.Trending, (*models.Post)(nil))
}

func TestSynchronizerFollowingFiltersAuthors(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()

	publishPost(t, st, "u1", "followed", 100, 0)
	publishPost(t, st, "u2", "stranger", 200, 0)
	viewer := newUser(t, st, bson.M{"username": "ada", "following": []string{"u1"}})

	s := NewSynchronizer(st, nil)
	defer s.Close()
	assert.Equal(t, s.SetMode(ctx, ModeFollowing, viewer), nil)

	state := s.State()
	assert.Equal(t, len(state.Posts), 1)
	assert.Equal(t, state.Posts[0].Title, "followed")
	assert.Equal(t, state.Trending, (*models.Post)(nil))
}

func TestSynchronizerViewerRequired(t *testing.T) {
	st := store.NewMemory()

	s := NewSynchronizer(st, nil)
	defer s.Close()
	err := s.SetMode(context.Background(), ModeFollowing, nil)
	assert.Equal(t, err, ErrViewerRequired)
	assert.Equal(t, s.State().Loading, false)
}

func TestSynchronizerStaleSnapshotDiscarded(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()

	publishPost(t, st, "u1", "global", 100, 0)
	viewer := newUser(t, st, bson.M{"username": "ada", "following": []string{"u2"}})

	var states []State
	s := NewSynchronizer(st, func(st State) { states = append(states, st) })
	defer s.Close()

	assert.Equal(t, s.SetMode(ctx, ModeGlobal, nil), nil)
	assert.Equal(t, s.SetMode(ctx, ModeFollowing, viewer), nil)

	// Everything published after the switch belongs to the following view.
	for _, st := range states[len(states)-1:] {
		assert.Equal(t, st.Mode, ModeFollowing)
	}
	assert.Equal(t, s.State().Mode, ModeFollowing)
	assert.Equal(t, len(s.State().Posts), 0)
}

func TestTrendingPost(t *testing.T) {
	posts := []models.Post{
		{ID: "a", ViewCount: 3},
		{ID: "b", ViewCount: 9},
		{ID: "c", ViewCount: 9}, // first maximum wins
	}
	top := TrendingPost(posts)
	assert.Equal(t, top.ID, "b")

	assert.Equal(t, TrendingPost(nil), (*models.Post)(nil))
}

func TestTrendingOnlyInGlobalMode(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()

	publishPost(t, st, "u1", "quiet", 100, 1)
	publishPost(t, st, "u1", "loud", 200, 50)

	s := NewSynchronizer(st, nil)
	defer s.Close()
	assert.Equal(t, s.SetMode(ctx, ModeGlobal, nil), nil)

	state := s.State()
	assert.NotEqual(t, state.Trending, nil)
	assert.Equal(t, state.Trending.Title, "loud")
}
