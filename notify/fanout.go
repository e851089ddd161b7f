// Package notify writes notification records into recipients' notification
// subcollections and keeps the notification panel in sync.
package notify

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"inkwell/models"
	"inkwell/store"
)

// Event is a triggering engagement: a comment created on a post, or a like
// toggle turning on.
type Event struct {
	Type         models.NotificationType
	Actor        *models.Session
	RecipientUID string
	PostID       string
	PostTitle    string
}

// FanOut writes one unread notification into the recipient's subcollection.
// Self-engagement never notifies: a notification is created if and only if
// the actor differs from the recipient.
func FanOut(ctx context.Context, st store.Store, ev Event) (created bool, err error) {
	if ev.Actor == nil || ev.Actor.UID == ev.RecipientUID {
		return false, nil
	}
	_, err = st.Create(ctx, models.NotificationsPath(ev.RecipientUID), bson.M{
		"type":      ev.Type,
		"fromUser":  ev.Actor.Username,
		"postId":    ev.PostID,
		"postTitle": ev.PostTitle,
		"read":      false,
		"createdAt": time.Now().Unix(),
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
