package models

import "inkwell/store"

// Comment lives in the posts/<id>/comments subcollection. Comments are
// never edited or deleted.
type Comment struct {
	ID               string `bson:"-" json:"id"`
	Text             string `bson:"text" json:"text"`
	AuthorID         string `bson:"authorId" json:"authorId"`
	AuthorUsername   string `bson:"authorUsername" json:"authorUsername"`
	AuthorProfilePic string `bson:"authorProfilePic" json:"authorProfilePic"`
	CreatedAt        int64  `bson:"createdAt" json:"createdAt"`
}

func CommentFromDoc(d store.Document) (Comment, error) {
	var cm Comment
	if err := d.Decode(&cm); err != nil {
		return Comment{}, err
	}
	cm.ID = d.ID
	return cm, nil
}
