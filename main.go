package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"inkwell/database"
	"inkwell/handlers"
	"inkwell/logx"
	"inkwell/routes"
	"inkwell/store"
	"inkwell/websocket"
)

func main() {
	logx.Info.Println("Starting Inkwell backend...")

	if err := godotenv.Load(); err != nil {
		logx.Warn.Println("No .env file found, relying on environment")
	}

	if os.Getenv("JWT_SECRET") == "" {
		logx.Error.Fatal("JWT_SECRET must be set")
	}

	// ===== CONNECT TO MONGODB WITH RETRY =====
	var dbErr error
	for i := 1; i <= 3; i++ {
		if err := database.ConnectMongo(); err != nil {
			dbErr = err
			logx.Warn.Printf("MongoDB connection attempt %d failed: %v", i, err)
			time.Sleep(2 * time.Second)
			continue
		}
		dbErr = nil
		break
	}
	if dbErr != nil {
		logx.Error.Fatal("Failed to connect to MongoDB: ", dbErr)
	}

	docStore := store.NewMongo(database.DB)
	handlers.SetStore(docStore)

	// ===== GIN MODE =====
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// ===== ROUTER =====
	router := routes.SetupRouter()

	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "Inkwell backend running",
			"service": "healthy",
		})
	})

	// ===== WEBSOCKET =====
	wsManager := websocket.NewManager(docStore)
	go wsManager.Start()

	router.GET("/ws", func(c *gin.Context) {
		websocket.Handler(wsManager)(c.Writer, c.Request)
	})

	logx.Info.Println("WebSocket endpoint: /ws")

	// ===== SERVER CONFIG =====
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logx.Info.Printf("Server running on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Error.Fatal("Server error: ", err)
		}
	}()

	// ===== GRACEFUL SHUTDOWN =====
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logx.Info.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Warn.Println("Forced shutdown: ", err)
	}

	if err := database.DisconnectMongo(); err != nil {
		logx.Warn.Println("MongoDB disconnect: ", err)
	}

	logx.Info.Println("Server stopped gracefully")
}
