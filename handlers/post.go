package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"

	"inkwell/feed"
	"inkwell/logx"
	"inkwell/models"
	"inkwell/store"
)

type SavePostRequest struct {
	Title      string   `json:"title" binding:"required"`
	Content    string   `json:"content"`
	Categories []string `json:"categories"`
	Status     string   `json:"status" binding:"required,oneof=draft published"`
}

func CreatePost(c *gin.Context) {
	var req SavePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, ok := currentSession(c)
	if !ok {
		return
	}

	ctx, cancel := requestCtx()
	defer cancel()

	now := time.Now().Unix()
	publishedAt := int64(0)
	if req.Status == models.StatusPublished {
		publishedAt = now
	}
	if req.Categories == nil {
		req.Categories = []string{}
	}

	postID, err := docStore.Create(ctx, models.CollPosts, bson.M{
		"title":            req.Title,
		"content":          req.Content,
		"categories":       req.Categories,
		"status":           req.Status,
		"authorId":         session.UID,
		"authorUsername":   session.Username,
		"authorProfilePic": session.ProfilePic,
		"likes":            []string{},
		"viewCount":        int64(0),
		"createdAt":        now,
		"publishedAt":      publishedAt,
		"lastUpdatedAt":    now,
	})
	if err != nil {
		logx.Error.Printf("CreatePost: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Post created successfully",
		"postId":  postID,
	})
}

// buildPostUpdate computes the field updates for an edit or publish of an
// existing post. publishedAt is assigned only on the first transition to
// published; later publishes never overwrite it.
func buildPostUpdate(existing models.Post, req SavePostRequest, now int64) []store.FieldUpdate {
	categories := req.Categories
	if categories == nil {
		categories = []string{}
	}
	updates := []store.FieldUpdate{
		store.Set("title", req.Title),
		store.Set("content", req.Content),
		store.Set("categories", categories),
		store.Set("status", req.Status),
		store.Set("lastUpdatedAt", now),
	}
	if req.Status == models.StatusPublished && existing.PublishedAt == 0 {
		updates = append(updates, store.Set("publishedAt", now))
	}
	return updates
}

func UpdatePost(c *gin.Context) {
	var req SavePostRequest
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

	doc, err := docStore.PointRead(ctx, models.PostPath(postID))
	if err == store.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch post"})
		return
	}
	post, err := models.PostFromDoc(doc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode post"})
		return
	}
	if post.AuthorID != session.UID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not the author of this post"})
		return
	}

	updates := buildPostUpdate(post, req, time.Now().Unix())
	if err := docStore.Mutate(ctx, models.PostPath(postID), updates); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update post"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post updated successfully"})
}

// PublishPost flips a draft to published from the dashboard. Re-publishing
// an already-published post does not move publishedAt.
func PublishPost(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	postID := c.Param("id")

	ctx, cancel := requestCtx()
	defer cancel()

	doc, err := docStore.PointRead(ctx, models.PostPath(postID))
	if err == store.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch post"})
		return
	}
	post, err := models.PostFromDoc(doc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode post"})
		return
	}
	if post.AuthorID != session.UID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not the author of this post"})
		return
	}

	updates := []store.FieldUpdate{store.Set("status", models.StatusPublished)}
	if post.PublishedAt == 0 {
		updates = append(updates, store.ServerTimestamp("publishedAt"))
	}
	if err := docStore.Mutate(ctx, models.PostPath(postID), updates); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to publish post"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post published"})
}

func DeletePost(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	postID := c.Param("id")

	ctx, cancel := requestCtx()
	defer cancel()

	doc, err := docStore.PointRead(ctx, models.PostPath(postID))
	if err == store.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch post"})
		return
	}
	post, err := models.PostFromDoc(doc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode post"})
		return
	}
	if post.AuthorID != session.UID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not the author of this post"})
		return
	}

	if err := docStore.Delete(ctx, models.PostPath(postID)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete post"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

// GetPost returns one post and counts the read.
func GetPost(c *gin.Context) {
	postID := c.Param("id")

	ctx, cancel := requestCtx()
	defer cancel()

	doc, err := docStore.PointRead(ctx, models.PostPath(postID))
	if err == store.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch post"})
		return
	}
	post, err := models.PostFromDoc(doc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode post"})
		return
	}

	if err := docStore.Mutate(ctx, models.PostPath(postID), []store.FieldUpdate{
		store.Increment("viewCount", 1),
	}); err != nil {
		// The read still succeeds; the view just goes uncounted.
		logx.Warn.Printf("GetPost: view count increment failed for %s: %v", postID, err)
	} else {
		post.ViewCount++
	}

	c.JSON(http.StatusOK, post)
}

// GetFeed is the one-shot REST variant of the feed: same query selection
// as the live synchronizer, resolved once.
func GetFeed(c *gin.Context) {
	serveFeed(c, feed.Mode(c.DefaultQuery("mode", string(feed.ModeGlobal))))
}

// GetFollowingFeed is the authenticated following feed.
func GetFollowingFeed(c *gin.Context) {
	serveFeed(c, feed.ModeFollowing)
}

func serveFeed(c *gin.Context, mode feed.Mode) {
	var viewer *models.Session
	if uid := c.GetString("userId"); uid != "" {
		session, ok := currentSession(c)
		if !ok {
			return
		}
		viewer = session
	}

	ctx, cancel := requestCtx()
	defer cancel()

	q, empty, err := feed.SelectQuery(ctx, docStore, mode, viewer)
	if err == feed.ErrViewerRequired {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Following feed requires login"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build feed"})
		return
	}
	if empty {
		c.JSON(http.StatusOK, gin.H{"posts": []models.Post{}, "trending": nil})
		return
	}

	docs, err := docStore.Read(ctx, q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}
	posts, err := models.PostsFromDocs(docs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode posts"})
		return
	}

	resp := gin.H{"posts": posts}
	if mode == feed.ModeGlobal {
		resp["trending"] = feed.TrendingPost(posts)
	} else {
		resp["trending"] = nil
	}
	c.JSON(http.StatusOK, resp)
}

// GetMyPosts backs the dashboard: every post by the viewer, drafts
// included, newest first, plus per-status totals and comment counts.
func GetMyPosts(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	ctx, cancel := requestCtx()
	defer cancel()

	docs, err := docStore.Read(ctx, store.Query{
		Collection: models.CollPosts,
		Filters:    []store.Filter{{Field: "authorId", Op: store.OpEqual, Value: session.UID}},
		Sort:       &store.Order{Field: "createdAt", Desc: true},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}
	posts, err := models.PostsFromDocs(docs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode posts"})
		return
	}

	drafts := 0
	published := 0
	commentCounts := make(map[string]int, len(posts))
	for _, p := range posts {
		switch p.Status {
		case models.StatusDraft:
			drafts++
		case models.StatusPublished:
			published++
			comments, err := docStore.Read(ctx, store.Query{Collection: models.CommentsPath(p.ID)})
			if err != nil {
				continue
			}
			commentCounts[p.ID] = len(comments)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":         posts,
		"total":         len(posts),
		"published":     published,
		"drafts":        drafts,
		"commentCounts": commentCounts,
	})
}

// GetCategoryPosts lists published posts whose categories contain the
// given name.
func GetCategoryPosts(c *gin.Context) {
	category := c.Param("name")

	ctx, cancel := requestCtx()
	defer cancel()

	docs, err := docStore.Read(ctx, store.Query{
		Collection: models.CollPosts,
		Filters: []store.Filter{
			{Field: "status", Op: store.OpEqual, Value: models.StatusPublished},
			{Field: "categories", Op: store.OpArrayContains, Value: category},
		},
		Sort: &store.Order{Field: "publishedAt", Desc: true},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}
	posts, err := models.PostsFromDocs(docs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode posts"})
		return
	}
	c.JSON(http.StatusOK, posts)
}

// GetReadingList resolves the viewer's saved post ids into posts.
func GetReadingList(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if len(user.ReadingList) == 0 {
		c.JSON(http.StatusOK, []models.Post{})
		return
	}

	ctx, cancel := requestCtx()
	defer cancel()

	docs, err := docStore.Read(ctx, store.Query{
		Collection: models.CollPosts,
		Filters:    []store.Filter{{Field: store.FieldDocID, Op: store.OpIn, Value: user.ReadingList}},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}
	posts, err := models.PostsFromDocs(docs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode posts"})
		return
	}
	c.JSON(http.StatusOK, posts)
}
