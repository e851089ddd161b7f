package feed

import (
	"context"
	"testing"

	"github.com/go-playground/assert/v2"
	"go.mongodb.org/mongo-driver/bson"

	"inkwell/models"
	"inkwell/store"
)

func newUser(t *testing.T, st *store.Memory, fields bson.M) *models.Session {
	t.Helper()
	uid, err := st.Create(context.Background(), models.CollUsers, fields)
	assert.Equal(t, err, nil)
	return &models.Session{UID: uid}
}

func TestSelectQueryGlobal(t *testing.T) {
	st := store.NewMemory()

	q, empty, err := SelectQuery(context.Background(), st, ModeGlobal, nil)
	assert.Equal(t, err, nil)
	assert.Equal(t, empty, false)
	assert.Equal(t, q.Collection, models.CollPosts)
	assert.Equal(t, len(q.Filters), 1)
	assert.Equal(t, q.Filters[0].Field, "status")
	assert.Equal(t, q.Filters[0].Value, models.StatusPublished)
	assert.Equal(t, q.Sort.Field, "publishedAt")
	assert.Equal(t, q.Sort.Desc, true)
}

func TestSelectQueryFollowing(t *testing.T) {
	st := store.NewMemory()
	viewer := newUser(t, st, bson.M{"username": "ada", "following": []string{"u1", "u2"}})

	q, empty, err := SelectQuery(context.Background(), st, ModeFollowing, viewer)
	assert.Equal(t, err, nil)
	assert.Equal(t, empty, false)
	assert.Equal(t, len(q.Filters), 2)
	assert.Equal(t, q.Filters[1].Field, "authorId")
	assert.Equal(t, q.Filters[1].Op, store.OpIn)
	assert.Equal(t, q.Filters[1].Value, []string{"u1", "u2"})
}

func TestSelectQueryFollowingEmpty(t *testing.T) {
	st := store.NewMemory()
	viewer := newUser(t, st, bson.M{"username": "ada", "following": []string{}})

	_, empty, err := SelectQuery(context.Background(), st, ModeFollowing, viewer)
	assert.Equal(t, err, nil)
	assert.Equal(t, empty, true)
}

func TestSelectQueryFollowingRequiresViewer(t *testing.T) {
	st := store.NewMemory()

	_, _, err := SelectQuery(context.Background(), st, ModeFollowing, nil)
	assert.Equal(t, err, ErrViewerRequired)
}

func TestSelectQueryFollowingUnknownViewer(t *testing.T) {
	st := store.NewMemory()

	_, _, err := SelectQuery(context.Background(), st, ModeFollowing, &models.Session{UID: "missing"})
	assert.Equal(t, err, store.ErrNotFound)
}
