package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"

	"github.com/gripehq/gripe/db"
	"github.com/gripehq/gripe/internal/config"
	"github.com/gripehq/gripe/router"
	"github.com/gripehq/gripe/services"
)

func main() {
	log.Println("Starting gripe API server...")

	// Load Config
	configPath := os.Getenv("GRIPE_CONFIG_PATH")
	if err := config.LoadConfig(configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if config.App.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable (or config) is required")
	}
	if config.App.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable (or config) is required")
	}

	// Database connection
	pg, err := sql.Open("postgres", config.App.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pg.Close()

	if err := pg.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("  Connected to database successfully")

	if config.App.AutoMigrate {
		if err := db.RunMigrations(config.App.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		log.Println("  Database schema is up to date")
	}

	// Redis is optional; without it logout degrades to client-side
	// token discard.
	var rdb *redis.Client
	if config.App.RedisURL != "" {
		opts, err := redis.ParseURL(config.App.RedisURL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		rdb = redis.NewClient(opts)
		log.Println("  Session revocation enabled (Redis)")
	} else {
		log.Println("  Redis not configured, token revocation disabled")
	}

	// Identity provider: Supabase when configured, local fallback for
	// development.
	var provider services.IdentityProvider
	if config.App.SupabaseURL != "" {
		provider = services.NewSupabaseProvider(config.App.SupabaseURL, config.App.SupabaseAnonKey)
		log.Println("  Using Supabase identity provider")
	} else {
		provider = services.NewLocalProvider(pg)
		log.Println("  SUPABASE_URL not set, using local identity provider")
	}

	r := router.NewGinRouter(pg, rdb, provider)

	addr := ":" + config.App.Port
	log.Printf("Listening on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
