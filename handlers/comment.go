package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"

	"inkwell/logx"
	"inkwell/models"
	"inkwell/notify"
	"inkwell/store"
)

type CreateCommentRequest struct {
	Text string `json:"text" binding:"required"`
}

// CreateComment adds a comment to a post and fans out a notification to
// the post author when the commenter is someone else.
func CreateComment(c *gin.Context) {
	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, ok := currentSession(c)
	if !ok {
		return
	}
	postID := c.Param("id")

	ctx, cancel := requestCtx()
	defer cancel()

	postDoc, err := docStore.PointRead(ctx, models.PostPath(postID))
	if err == store.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch post"})
		return
	}
	post, err := models.PostFromDoc(postDoc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode post"})
		return
	}

	commentID, err := docStore.Create(ctx, models.CommentsPath(postID), bson.M{
		"text":             req.Text,
		"authorId":         session.UID,
		"authorUsername":   session.Username,
		"authorProfilePic": session.ProfilePic,
		"createdAt":        time.Now().Unix(),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create comment"})
		return
	}

	created, err := notify.FanOut(ctx, docStore, notify.Event{
		Type:         models.NotificationComment,
		Actor:        session,
		RecipientUID: post.AuthorID,
		PostID:       postID,
		PostTitle:    post.Title,
	})
	if err != nil {
		// The comment is already saved; the notification leg just failed.
		logx.Warn.Printf("CreateComment: notification fan-out failed: %v", err)
	}
	if created {
		sendEngagementPush(post.AuthorID, models.NotificationComment, session.Username, post.Title)
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Comment added",
		"commentId": commentID,
	})
}

// ListComments returns a post's comments oldest first.
func ListComments(c *gin.Context) {
	postID := c.Param("id")

	ctx, cancel := requestCtx()
	defer cancel()

	docs, err := docStore.Read(ctx, store.Query{
		Collection: models.CommentsPath(postID),
		Sort:       &store.Order{Field: "createdAt", Desc: false},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments"})
		return
	}

	comments := make([]models.Comment, 0, len(docs))
	for _, d := range docs {
		cm, err := models.CommentFromDoc(d)
		if err != nil {
			continue
		}
		comments = append(comments, cm)
	}
	c.JSON(http.StatusOK, comments)
}
