package models

import "inkwell/store"

type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
)

// Notification lives in the users/<uid>/notifications subcollection.
// Only the read flag is ever mutated.
type Notification struct {
	ID        string           `bson:"-" json:"id"`
	Type      NotificationType `bson:"type" json:"type"`
	FromUser  string           `bson:"fromUser" json:"fromUser"`
	PostID    string           `bson:"postId" json:"postId"`
	PostTitle string           `bson:"postTitle" json:"postTitle"`
	Read      bool             `bson:"read" json:"read"`
	CreatedAt int64            `bson:"createdAt" json:"createdAt"`
}

func NotificationFromDoc(d store.Document) (Notification, error) {
	var n Notification
	if err := d.Decode(&n); err != nil {
		return Notification{}, err
	}
	n.ID = d.ID
	return n, nil
}

func NotificationsFromDocs(docs []store.Document) ([]Notification, error) {
	notes := make([]Notification, 0, len(docs))
	for _, d := range docs {
		n, err := NotificationFromDoc(d)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, nil
}
