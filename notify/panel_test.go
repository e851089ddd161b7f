package notify

import (
	"context"
	"testing"

	"github.com/go-playground/assert/v2"
	"go.mongodb.org/mongo-driver/bson"

	"inkwell/engage"
	"inkwell/models"
	"inkwell/store"
)

func addNotification(t *testing.T, st *store.Memory, uid string, read bool, createdAt int64) string {
	t.Helper()
	id, err := st.Create(context.Background(), models.NotificationsPath(uid), bson.M{
		"type":      models.NotificationLike,
		"fromUser":  "ada",
		"postId":    "p1",
		"postTitle": "Hello",
		"read":      read,
		"createdAt": createdAt,
	})
	assert.Equal(t, err, nil)
	return id
}

func TestPanelTracksStoreNewestFirst(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()

	addNotification(t, st, "u1", false, 100)

	p := NewPanel(st, "u1")
	defer p.Close()
	assert.Equal(t, p.Watch(ctx, nil), nil)
	assert.Equal(t, len(p.Notifications()), 1)

	addNotification(t, st, "u1", false, 200)
	notes := p.Notifications()
	assert.Equal(t, len(notes), 2)
	assert.Equal(t, notes[0].CreatedAt, int64(200))
	assert.Equal(t, p.UnreadCount(), 2)

	// Another user's notifications never leak in.
	addNotification(t, st, "u2", false, 300)
	assert.Equal(t, len(p.Notifications()), 2)
}

func TestPanelMarkAllRead(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()

	addNotification(t, st, "u1", false, 100)
	addNotification(t, st, "u1", false, 200)
	readID := addNotification(t, st, "u1", true, 300)

	p := NewPanel(st, "u1")
	defer p.Close()
	assert.Equal(t, p.Watch(ctx, nil), nil)
	assert.Equal(t, p.UnreadCount(), 2)

	n, err := p.MarkAllRead(ctx)
	assert.Equal(t, err, nil)
	assert.Equal(t, n, 2)

	// The batch write triggers a fresh snapshot; everything is read now.
	assert.Equal(t, p.UnreadCount(), 0)
	for _, note := range p.Notifications() {
		assert.Equal(t, note.Read, true)
	}

	doc, _ := st.PointRead(ctx, store.DocPath(models.NotificationsPath("u1"), readID))
	assert.Equal(t, doc.Fields["read"], true)

	// Nothing unread: no-op.
	n, err = p.MarkAllRead(ctx)
	assert.Equal(t, err, nil)
	assert.Equal(t, n, 0)
}

func TestLikeProducesExactlyOneNotification(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()

	postID, err := st.Create(ctx, models.CollPosts, bson.M{
		"title":    "Hello",
		"authorId": "author",
		"likes":    []string{},
	})
	assert.Equal(t, err, nil)
	actor := &models.Session{UID: "actor", Username: "ada"}

	// Like turning on notifies; only the on-transition fans out.
	liked, err := engage.ToggleMembership(ctx, st, models.PostPath(postID), "likes", actor.UID)
	assert.Equal(t, err, nil)
	assert.Equal(t, liked, true)

	created, err := FanOut(ctx, st, Event{
		Type: models.NotificationLike, Actor: actor, RecipientUID: "author", PostID: postID, PostTitle: "Hello",
	})
	assert.Equal(t, err, nil)
	assert.Equal(t, created, true)

	postDoc, _ := st.PointRead(ctx, models.PostPath(postID))
	var post models.Post
	assert.Equal(t, postDoc.Decode(&post), nil)
	assert.Equal(t, post.Likes, []string{"actor"})

	docs, _ := st.Read(ctx, PanelQuery("author"))
	assert.Equal(t, len(docs), 1)
}

func TestPanelCloseStopsUpdates(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()

	calls := 0
	p := NewPanel(st, "u1")
	assert.Equal(t, p.Watch(ctx, func([]models.Notification) { calls++ }), nil)
	assert.Equal(t, calls, 1)

	p.Close()
	addNotification(t, st, "u1", false, 100)
	assert.Equal(t, calls, 1)
	assert.Equal(t, st.ActiveSubscriptions(), 0)
}
