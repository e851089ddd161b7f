package notify

import (
	"context"
	"testing"

	"github.com/go-playground/assert/v2"

	"inkwell/models"
	"inkwell/store"
)

func TestFanOutCreatesNotification(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()

	created, err := FanOut(ctx, st, Event{
		Type:         models.NotificationLike,
		Actor:        &models.Session{UID: "actor", Username: "ada"},
		RecipientUID: "author",
		PostID:       "p1",
		PostTitle:    "Hello",
	})
	assert.Equal(t, err, nil)
	assert.Equal(t, created, true)

	docs, err := st.Read(ctx, PanelQuery("author"))
	assert.Equal(t, err, nil)
	assert.Equal(t, len(docs), 1)

	note, err := models.NotificationFromDoc(docs[0])
	assert.Equal(t, err, nil)
	assert.Equal(t, note.Type, models.NotificationLike)
	assert.Equal(t, note.FromUser, "ada")
	assert.Equal(t, note.PostID, "p1")
	assert.Equal(t, note.Read, false)
}

func TestFanOutSkipsSelfEngagement(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()

	created, err := FanOut(ctx, st, Event{
		Type:         models.NotificationComment,
		Actor:        &models.Session{UID: "author", Username: "ada"},
		RecipientUID: "author",
		PostID:       "p1",
	})
	assert.Equal(t, err, nil)
	assert.Equal(t, created, false)

	docs, _ := st.Read(ctx, PanelQuery("author"))
	assert.Equal(t, len(docs), 0)
}

func TestFanOutNilActor(t *testing.T) {
	st := store.NewMemory()

	created, err := FanOut(context.Background(), st, Event{RecipientUID: "author"})
	assert.Equal(t, err, nil)
	assert.Equal(t, created, false)
}
