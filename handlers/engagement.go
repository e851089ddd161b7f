package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inkwell/engage"
	"inkwell/logx"
	"inkwell/models"
	"inkwell/notify"
	"inkwell/store"
)

// LikePost toggles the viewer's membership in the post's likes set. A
// toggle that turns the like on fans out a notification to the author.
func LikePost(c *gin.Context) {
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

	liked, err := engage.ToggleMembership(ctx, docStore, models.PostPath(postID), "likes", session.UID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update like"})
		return
	}

	if liked {
		created, err := notify.FanOut(ctx, docStore, notify.Event{
			Type:         models.NotificationLike,
			Actor:        session,
			RecipientUID: post.AuthorID,
			PostID:       postID,
			PostTitle:    post.Title,
		})
		if err != nil {
			logx.Warn.Printf("LikePost: notification fan-out failed: %v", err)
		}
		if created {
			sendEngagementPush(post.AuthorID, models.NotificationLike, session.Username, post.Title)
		}
	}

	c.JSON(http.StatusOK, gin.H{"liked": liked})
}

// BookmarkPost toggles the post in the viewer's reading list.
func BookmarkPost(c *gin.Context) {
	uid := c.GetString("userId")
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	postID := c.Param("id")

	ctx, cancel := requestCtx()
	defer cancel()

	bookmarked, err := engage.ToggleMembership(ctx, docStore, models.UserPath(uid), "readingList", postID)
	if err == store.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update reading list"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmarked": bookmarked})
}
