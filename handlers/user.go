package handlers

import (
	"net/http"
	"os"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gin-gonic/gin"

	"inkwell/engage"
	"inkwell/logx"
	"inkwell/models"
	"inkwell/store"
)

type ProfileUpdate struct {
	Username        string `json:"username"`
	Bio             string `json:"bio"`
	NotifyOnLike    *bool  `json:"notifyOnLike"`
	NotifyOnComment *bool  `json:"notifyOnComment"`
}

// publicProfile strips private fields from a user document.
func publicProfile(user models.User) gin.H {
	pic := user.ProfilePictureURL
	if pic == "" {
		pic = fallbackAvatar
	}
	return gin.H{
		"uid":               user.UID,
		"username":          user.Username,
		"bio":               user.Bio,
		"profilePictureURL": pic,
		"coverPhotoURL":     user.CoverPhotoURL,
		"followers":         user.Followers,
		"following":         user.Following,
	}
}

func GetMyProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}

func GetUser(c *gin.Context) {
	uid := c.Param("id")

	ctx, cancel := requestCtx()
	defer cancel()

	doc, err := docStore.PointRead(ctx, models.UserPath(uid))
	if err == store.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user"})
		return
	}
	user, err := models.UserFromDoc(doc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode user"})
		return
	}
	c.JSON(http.StatusOK, publicProfile(user))
}

func UpdateMyProfile(c *gin.Context) {
	uid := c.GetString("userId")
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var req ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var updates []store.FieldUpdate
	if req.Username != "" {
		updates = append(updates, store.Set("username", req.Username))
	}
	if req.Bio != "" {
		updates = append(updates, store.Set("bio", req.Bio))
	}
	if req.NotifyOnLike != nil {
		updates = append(updates, store.Set("notifyOnLike", *req.NotifyOnLike))
	}
	if req.NotifyOnComment != nil {
		updates = append(updates, store.Set("notifyOnComment", *req.NotifyOnComment))
	}
	if len(updates) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "No changes to update"})
		return
	}

	ctx, cancel := requestCtx()
	defer cancel()

	err := docStore.Mutate(ctx, models.UserPath(uid), updates)
	if err == store.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully"})
}

// FollowUser toggles the follow relation between the viewer and the target
// profile. The two-document update is not transactional; a partial failure
// is reported, not repaired.
func FollowUser(c *gin.Context) {
	uid := c.GetString("userId")
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	targetUID := c.Param("id")

	ctx, cancel := requestCtx()
	defer cancel()

	following, err := engage.ToggleFollow(ctx, docStore, uid, targetUID)
	if err == engage.ErrSelfFollow {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot follow yourself"})
		return
	}
	if err == store.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		logx.Error.Printf("FollowUser: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update follow state"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"following": following})
}

// UploadPhoto uploads a profile or cover photo to Cloudinary and stores
// the resulting URL on the user document. Field "kind" selects which.
func UploadPhoto(c *gin.Context) {
	uid := c.GetString("userId")
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	kind := c.DefaultPostForm("kind", "profile")
	field := "profilePictureURL"
	folder := "inkwell/avatars"
	if kind == "cover" {
		field = "coverPhotoURL"
		folder = "inkwell/covers"
	}

	file, _, err := c.Request.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
		return
	}
	defer file.Close()

	ctx, cancel := requestCtx()
	defer cancel()

	cld, err := cloudinary.NewFromURL(os.Getenv("CLOUDINARY_URL"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cloudinary configuration error"})
		return
	}

	uploadResult, err := cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:         folder,
		PublicID:       uid,
		Transformation: "c_limit,w_400,h_400,q_auto",
	})
	if err != nil {
		logx.Error.Printf("UploadPhoto: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload photo"})
		return
	}

	if err := docStore.Mutate(ctx, models.UserPath(uid), []store.FieldUpdate{
		store.Set(field, uploadResult.SecureURL),
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save photo URL"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": uploadResult.SecureURL})
}
