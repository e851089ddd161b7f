package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inkwell/models"
	"inkwell/notify"
)

// GetNotifications returns the viewer's notifications newest first, with
// the unread count derived from the same result set.
func GetNotifications(c *gin.Context) {
	uid := c.GetString("userId")
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	ctx, cancel := requestCtx()
	defer cancel()

	docs, err := docStore.Read(ctx, notify.PanelQuery(uid))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}
	notes, err := models.NotificationsFromDocs(docs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode notifications"})
		return
	}

	unread := 0
	for _, n := range notes {
		if !n.Read {
			unread++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"notifications": notes,
		"unread":        unread,
	})
}

// MarkNotificationsRead marks every currently-unread notification as read
// in one batch. Called when the panel is opened.
func MarkNotificationsRead(c *gin.Context) {
	uid := c.GetString("userId")
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	ctx, cancel := requestCtx()
	defer cancel()

	docs, err := docStore.Read(ctx, notify.PanelQuery(uid))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}
	notes, err := models.NotificationsFromDocs(docs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode notifications"})
		return
	}

	marked, err := notify.MarkAllRead(ctx, docStore, uid, notes)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notifications read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": marked})
}
