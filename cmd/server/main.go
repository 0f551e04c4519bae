package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/remote-session-control/backend/api/handlers"
	"github.com/remote-session-control/backend/internal/buffer"
	"github.com/remote-session-control/backend/internal/control"
	"github.com/remote-session-control/backend/internal/db"
	"github.com/remote-session-control/backend/internal/eventlog"
	"github.com/remote-session-control/backend/internal/repository"
	"github.com/remote-session-control/backend/internal/session"
	"github.com/remote-session-control/backend/internal/ws"
)

func main() {
	// Get configuration from environment
	port := getEnv("PORT", "8080")
	dbPath := getEnv("DB_PATH", "data/sessions.db")
	eventLogPath := getEnv("EVENT_LOG_PATH", "data/broadcasts.jsonl")
	historyCapacity := getEnvInt("HISTORY_CAPACITY", 256)

	// Ensure data directories exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(eventLogPath), 0755); err != nil {
		log.Fatalf("Failed to create event log directory: %v", err)
	}

	// Initialize database
	database, err := db.InitDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.CloseDB()

	// Initialize repository
	sessionRepo := repository.NewSessionRepository(database)

	// Initialize the broadcast audit log and recent-event history
	eventLog, err := eventlog.New(eventLogPath)
	if err != nil {
		log.Fatalf("Failed to open event log: %v", err)
	}
	defer eventLog.Close()
	if err := eventLog.WriteHeader(); err != nil {
		log.Fatalf("Failed to write event log header: %v", err)
	}

	history := buffer.NewSessionHistory(historyCapacity)

	// Initialize the broadcast service
	broadcaster := control.NewBroadcaster()
	broadcaster.SetRecordFunc(func(sessionID string, event control.EventType, data []byte) {
		history.Record(sessionID, data)
		if err := eventLog.Record(string(event), data); err != nil {
			log.Printf("Failed to record %s event: %v", event, err)
		}
	})

	// Initialize the session manager and wire it into the router
	sessionManager := session.NewManager(sessionRepo, broadcaster, nil)

	router := control.NewRouter()
	router.SetCallbacks(sessionManager.Callbacks())

	// Initialize the WebSocket transport; the registry feeds the
	// broadcaster through read-only snapshots
	registry := ws.NewRegistry()
	wsHandler := ws.NewHandler(registry, router)
	broadcaster.SetClientsProvider(registry.Snapshot)

	// Initialize handlers
	sessionHandler := handlers.NewSessionHandler(sessionManager, history)
	webSocketHandler := handlers.NewWebSocketHandler(wsHandler)

	// Initialize Gin router
	r := gin.Default()

	// Enable CORS for development
	r.Use(corsMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"clients": registry.Count(),
		})
	})

	// API routes
	api := r.Group("/api")
	{
		sessionHandler.RegisterRoutes(api)
		webSocketHandler.RegisterRoutes(api)
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down server...")
		eventLog.Close()
		db.CloseDB()
		os.Exit(0)
	}()

	// Start server
	log.Printf("Starting server on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// corsMiddleware returns a CORS middleware for development.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
