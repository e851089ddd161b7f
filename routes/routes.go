package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"inkwell/handlers"
	"inkwell/middleware"
)

func SetupRouter() *gin.Engine {
	router := gin.Default()

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:8080", "http://127.0.0.1:8080", "http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Public routes (no auth required)
	auth := router.Group("/api")
	auth.Use(middleware.RateLimitMiddleware(20, time.Minute))
	auth.POST("/signup", handlers.Signup)
	auth.POST("/login", handlers.Login)

	router.GET("/api/vapid-public-key", handlers.GetVapidPublicKey)

	// Public reads. The feed takes an optional token so mode=following can
	// resolve the viewer; anonymous callers still get the global feed.
	router.GET("/api/feed", middleware.OptionalJWTAuth(), handlers.GetFeed)
	router.GET("/api/posts/:id", handlers.GetPost)
	router.GET("/api/posts/:id/comments", handlers.ListComments)
	router.GET("/api/category/:name", handlers.GetCategoryPosts)
	router.GET("/api/user/:id", handlers.GetUser)

	// Protected routes group
	protected := router.Group("/api")
	protected.Use(middleware.JWTAuthMiddleware())

	// Profile
	protected.GET("/me", handlers.GetMyProfile)
	protected.PUT("/me", handlers.UpdateMyProfile)
	protected.POST("/user/:id/follow", handlers.FollowUser)

	// Posts
	protected.POST("/posts", handlers.CreatePost)
	protected.PUT("/posts/:id", handlers.UpdatePost)
	protected.POST("/posts/:id/publish", handlers.PublishPost)
	protected.DELETE("/posts/:id", handlers.DeletePost)
	protected.GET("/my/posts", handlers.GetMyPosts)
	protected.GET("/feed/following", handlers.GetFollowingFeed)

	// Engagement
	protected.POST("/posts/:id/like", handlers.LikePost)
	protected.POST("/posts/:id/bookmark", handlers.BookmarkPost)
	protected.GET("/reading-list", handlers.GetReadingList)

	// Comments
	protected.POST("/posts/:id/comments", handlers.CreateComment)

	// Notifications
	protected.GET("/notifications", handlers.GetNotifications)
	protected.POST("/notifications/read", handlers.MarkNotificationsRead)

	// Photo upload
	protected.POST("/upload-photo", handlers.UploadPhoto)

	// Push subscriptions
	protected.POST("/subscribe", handlers.SubscribePush)

	// Catch-all for undefined API routes
	router.NoRoute(func(c *gin.Context) {
		if len(c.Request.URL.Path) >= 4 && c.Request.URL.Path[:4] == "/api" {
			c.JSON(404, gin.H{
				"error": "Endpoint not found",
				"path":  c.Request.URL.Path,
			})
			return
		}
		c.Next()
	})

	return router
}
