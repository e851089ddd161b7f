package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"

	"inkwell/logx"
	"inkwell/models"
	"inkwell/store"
)

func init() {
	// Initialize VAPID keys if not set in environment
	if os.Getenv("VAPID_PUBLIC_KEY") == "" || os.Getenv("VAPID_PRIVATE_KEY") == "" {
		publicKey, privateKey, err := webpush.GenerateVAPIDKeys()
		if err != nil {
			logx.Error.Printf("Failed to generate VAPID keys: %v", err)
			return
		}

		// In production these should be set as environment variables so
		// subscriptions survive restarts.
		os.Setenv("VAPID_PUBLIC_KEY", publicKey)
		os.Setenv("VAPID_PRIVATE_KEY", privateKey)

		logx.Warn.Println("Generated new VAPID keys - for production, set these as environment variables:")
		logx.Warn.Printf("   VAPID_PUBLIC_KEY: %s", publicKey)
		logx.Warn.Printf("   VAPID_PRIVATE_KEY: %s", privateKey)
	}

	vapidPrivateKey = os.Getenv("VAPID_PRIVATE_KEY")
}

func GetVapidPublicKey(c *gin.Context) {
	publicKey := os.Getenv("VAPID_PUBLIC_KEY")
	if publicKey == "" {
		c.JSON(http.StatusOK, gin.H{
			"error":   "VAPID public key not configured",
			"message": "Contact administrator",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"publicKey": publicKey})
}

type pushSubscription struct {
	UserID   string       `bson:"userId"`
	Endpoint string       `bson:"endpoint"`
	Keys     webpush.Keys `bson:"keys"`
}

func SubscribePush(c *gin.Context) {
	var req struct {
		Endpoint string `json:"endpoint" binding:"required"`
		Keys     struct {
			P256dh string `json:"p256dh" binding:"required"`
			Auth   string `json:"auth" binding:"required"`
		} `json:"keys" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	uid := c.GetString("userId")
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	ctx, cancel := requestCtx()
	defer cancel()

	fields := bson.M{
		"userId":   uid,
		"endpoint": req.Endpoint,
		"keys": bson.M{
			"p256dh": req.Keys.P256dh,
			"auth":   req.Keys.Auth,
		},
	}

	// One subscription per user: replace if present, insert if not.
	existing, err := docStore.Read(ctx, store.Query{
		Collection: models.CollPushSubs,
		Filters:    []store.Filter{{Field: "userId", Op: store.OpEqual, Value: uid}},
		Limit:      1,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save subscription"})
		return
	}
	if len(existing) > 0 {
		err = docStore.Mutate(ctx, store.DocPath(models.CollPushSubs, existing[0].ID), []store.FieldUpdate{
			store.Set("endpoint", req.Endpoint),
			store.Set("keys", fields["keys"]),
		})
	} else {
		_, err = docStore.Create(ctx, models.CollPushSubs, fields)
	}
	if err != nil {
		logx.Error.Printf("Failed to save push subscription: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save subscription"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Push subscription saved successfully",
		"userId":  uid,
	})
}

// sendEngagementPush delivers the push leg of a notification fan-out,
// honoring the recipient's notification preferences.
func sendEngagementPush(recipientUID string, kind models.NotificationType, fromUser, postTitle string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logx.Error.Printf("Panic in push notification: %v", r)
			}
		}()

		ctx, cancel := requestCtx()
		defer cancel()

		userDoc, err := docStore.PointRead(ctx, models.UserPath(recipientUID))
		if err != nil {
			return
		}
		user, err := models.UserFromDoc(userDoc)
		if err != nil {
			return
		}
		if kind == models.NotificationLike && !user.NotifyOnLike {
			return
		}
		if kind == models.NotificationComment && !user.NotifyOnComment {
			return
		}

		title := fromUser + " liked your post"
		if kind == models.NotificationComment {
			title = fromUser + " commented on your post"
		}
		body := truncateRunes(postTitle, 100)

		sendPushNotification(ctx, recipientUID, title, body)
	}()
}

// truncateRunes shortens s to at most max runes, never splitting a
// multi-byte character.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func sendPushNotification(ctx context.Context, recipientUID, title, body string) {
	docs, err := docStore.Read(ctx, store.Query{
		Collection: models.CollPushSubs,
		Filters:    []store.Filter{{Field: "userId", Op: store.OpEqual, Value: recipientUID}},
		Limit:      1,
	})
	if err != nil || len(docs) == 0 {
		return
	}

	var sub pushSubscription
	if err := docs[0].Decode(&sub); err != nil {
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"title": title,
		"body":  body,
		"data": map[string]interface{}{
			"timestamp": time.Now().Unix(),
		},
	})
	if err != nil {
		return
	}

	resp, err := webpush.SendNotification(payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     sub.Keys,
	}, &webpush.Options{
		Subscriber:      "mailto:admin@inkwell.app",
		VAPIDPrivateKey: vapidPrivateKey,
		TTL:             30,
	})
	if err != nil {
		logx.Warn.Printf("Failed to send push notification to user %s: %v", recipientUID, err)
		// If the subscription is gone (410), delete it.
		if resp != nil && resp.StatusCode == http.StatusGone {
			if delErr := docStore.Delete(ctx, store.DocPath(models.CollPushSubs, docs[0].ID)); delErr != nil {
				logx.Warn.Printf("Failed to delete expired subscription: %v", delErr)
			}
		}
		return
	}
	resp.Body.Close()
}
