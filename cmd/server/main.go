package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/webgames/backend/internal/api"
	"github.com/webgames/backend/internal/api/handlers"
	"github.com/webgames/backend/internal/config"
	"github.com/webgames/backend/internal/database"
	"github.com/webgames/backend/internal/identity"
	"github.com/webgames/backend/internal/launcher"
	"github.com/webgames/backend/internal/matchmaker"
	"github.com/webgames/backend/internal/migrations"
	"github.com/webgames/backend/internal/msg"
	"github.com/webgames/backend/internal/redis"
	"github.com/webgames/backend/internal/session"
	"github.com/webgames/backend/internal/stream"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations on start if requested
	if os.Getenv("MIGRATE_ON_START") == "true" {
		log.Println("↗ Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Initialize Redis
	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	base, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Stores and messaging
	identityStore := identity.NewPostgres(db)
	sessionStore := session.NewRedis(rdb)
	bus := msg.NewRedisBus(rdb)
	hub := stream.NewHub(bus)

	// Matchmaker and container launcher call into each other: the
	// matchmaker hands started parties to the launcher, the launcher ends
	// them when their container exits
	match := matchmaker.New(sessionStore, identityStore, bus, cfg)
	launch, err := launcher.New(base, bus, match.EndGame)
	if err != nil {
		log.Fatalf("Failed to initialize container launcher: %v", err)
	}
	match.SetLaunchFunc(launch.Launch)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	if err := router.SetTrustedProxies(cfg.ReverseProxyIPs); err != nil {
		log.Fatalf("Failed to set trusted proxies: %v", err)
	}

	deps := &handlers.Deps{
		Identity: identityStore,
		Session:  sessionStore,
		Match:    match,
		Bus:      bus,
		Hub:      hub,
		Cfg:      cfg,
	}
	api.SetupRoutes(router, deps)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "22548"
	}

	server := &http.Server{Addr: ":" + port, Handler: router}
	go func() {
		log.Printf("Starting webgames server on port %s", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-base.Done()
	log.Println("Shutting down...")

	// Streaming connections never finish on their own; close them so
	// Shutdown can drain
	hub.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
}
