package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"inkwell/models"
	"inkwell/store"
)

// Common constants and variables shared across all handler files
const fallbackAvatar = "https://upload.wikimedia.org/wikipedia/commons/8/89/Portrait_Placeholder.png"

var docStore store.Store

// vapidPrivateKey is assigned once in push.go's init.
var vapidPrivateKey string

// SetStore wires the document store used by every handler.
func SetStore(st store.Store) {
	docStore = st
}

func requestCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// currentUser resolves the authenticated user's document. Writes the error
// response and returns ok=false if the user cannot be resolved.
func currentUser(c *gin.Context) (models.User, bool) {
	uid := c.GetString("userId")
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return models.User{}, false
	}

	ctx, cancel := requestCtx()
	defer cancel()

	doc, err := docStore.PointRead(ctx, models.UserPath(uid))
	if err == store.ErrNotFound {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Account no longer exists"})
		return models.User{}, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user"})
		return models.User{}, false
	}
	user, err := models.UserFromDoc(doc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode user"})
		return models.User{}, false
	}
	return user, true
}

// currentSession is currentUser reduced to the viewer identity.
func currentSession(c *gin.Context) (*models.Session, bool) {
	user, ok := currentUser(c)
	if !ok {
		return nil, false
	}
	return user.Session(), true
}
