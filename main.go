package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"dealer-desk-go/internal/handlers"
	"dealer-desk-go/internal/push"
	"dealer-desk-go/internal/store"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	// Redis Configuration
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDBStr := os.Getenv("REDIS_DB")
	redisDB := 0
	if redisDBStr != "" {
		if db, err := strconv.Atoi(redisDBStr); err == nil {
			redisDB = db
		}
	}

	// Initialize Redis store (pending notification queues, analytics)
	redisStore := store.NewRedisStore(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})

	// PostgreSQL Configuration
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	// Initialize PostgreSQL store (subscription rows)
	pgStore, err := store.NewPostgresStore(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}

	// Run database migrations
	ctx := context.Background()
	if err := pgStore.RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// VAPID keys: from env, or generated with a reminder to persist them.
	vapidPrivate, vapidPublic, err := push.LoadVAPIDKeys()
	if err != nil {
		log.Fatalf("Failed to load VAPID keys: %v", err)
	}
	os.Setenv("VAPID_PRIVATE_KEY", vapidPrivate)
	os.Setenv("VAPID_PUBLIC_KEY", vapidPublic)

	subscriber := os.Getenv("VAPID_SUBSCRIBER")
	if subscriber == "" {
		subscriber = "mailto:admin@example.com"
	}

	dispatcher := push.NewDispatcher(pgStore, redisStore, vapidPublic, vapidPrivate, subscriber)

	// Initialize handlers with both stores
	h := handlers.NewHandler(pgStore, redisStore, dispatcher)

	// Hourly subscription cleanup
	cleanupInterval := time.Hour
	if v := os.Getenv("CLEANUP_INTERVAL_MINUTES"); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m > 0 {
			cleanupInterval = time.Duration(m) * time.Minute
		}
	}
	cleanup := push.NewCleanupJob(pgStore, cleanupInterval)
	go cleanup.Run(ctx)

	// Push API routes
	http.HandleFunc("/api/subscriptions", h.SubscriptionsHandler)
	http.HandleFunc("/api/notifications/sync", h.SyncHandler)
	http.HandleFunc("/api/notifications/analytics", h.AnalyticsHandler)
	http.HandleFunc("/api/notifications/send", handlers.AuthMiddleware(h.SendHandler))
	http.HandleFunc("/api/push/vapid-key", h.VAPIDKeyHandler)

	// Service worker at a fixed root path, scope /
	http.HandleFunc("/sw.js", h.ServiceWorkerHandler)

	// Metrics
	http.Handle("/metrics", promhttp.Handler())

	// Serve static files (PWA assets)
	fs := http.FileServer(http.Dir("web/static"))
	http.Handle("/static/", http.StripPrefix("/static/", fs))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Println("Listening on :" + port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal(err)
	}
}
