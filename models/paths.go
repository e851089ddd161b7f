package models

import "inkwell/store"

// Collection and document paths as laid out in the document store.
const (
	CollPosts    = "posts"
	CollUsers    = "users"
	CollPushSubs = "push_subscriptions"
)

func PostPath(postID string) string { return store.DocPath(CollPosts, postID) }
func UserPath(uid string) string    { return store.DocPath(CollUsers, uid) }

// CommentsPath is the comments subcollection of one post.
func CommentsPath(postID string) string { return PostPath(postID) + "/comments" }

// NotificationsPath is the notifications subcollection of one user.
func NotificationsPath(uid string) string { return UserPath(uid) + "/notifications" }
