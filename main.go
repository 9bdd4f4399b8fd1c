package main

import (
	"Soundcheck/config"
	_ "Soundcheck/config/swagger"
	"Soundcheck/middleware"
	"Soundcheck/routes"
	"Soundcheck/services/broadcast"
	"Soundcheck/services/gateways"
	"Soundcheck/services/redis"
	"Soundcheck/services/roster"
	"Soundcheck/services/scoring"
	"Soundcheck/services/socket_io"
	"Soundcheck/services/state"
	"Soundcheck/services/store"
	syncpkg "Soundcheck/sync"
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// @title Soundcheck API
// @version 1.0
// @description Gin-Gonic server for the Soundcheck live music-trivia backend
// @BasePath /
// @paths
func main() {
	godotenv.Load()
	log.Println("Setting up server...")

	if os.Getenv("PROD") == "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	gormDB, err := config.ConnectGORM()
	if err != nil {
		log.Fatalf("Error connecting to PostgreSQL: %v", err)
	}
	log.Println("GORM Connected")

	// Only migrate in development or during deployment
	if os.Getenv("MIGRATE_POSTGRES") == "true" {
		log.Println("Migrating PostgreSQL database...")
		if err := config.MigrateDatabase(gormDB); err != nil {
			log.Printf("Warning: Database migration failed: %v", err)
			// Continue execution even if migration fails
		} else {
			log.Println("Database migrated successfully")
		}
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatalf("Error reading GORM PostgreSQL instance: %v", err)
	}
	defer sqlDB.Close()

	redisClient, err := config.ConnectRedis()
	if err != nil {
		log.Fatalf("Error connecting to Redis: %v", err)
	}
	log.Println("Connection to Redis successful")
	defer redis.CloseRedis(redisClient)

	sessionStore := store.NewGormStore(gormDB)
	locks := syncpkg.NewSessionLocks()
	broadcaster := broadcast.New(sessionStore, redisClient)

	var artist gateways.ArtistGateway
	if clientID := os.Getenv("SPOTIFY_CLIENT_ID"); clientID != "" {
		artist = gateways.NewSpotifyGateway(clientID, os.Getenv("SPOTIFY_CLIENT_SECRET"))
	} else {
		log.Println("SPOTIFY_CLIENT_ID not set, artist image lookups disabled")
	}
	var dj gateways.DJGateway
	if vdjURL := os.Getenv("VDJ_URL"); vdjURL != "" {
		dj = gateways.NewVDJGateway(vdjURL)
	} else {
		log.Println("VDJ_URL not set, DJ controller bridge disabled")
	}

	stateMachine := state.NewMachine(sessionStore, locks, broadcaster, artist)
	rosterManager := roster.NewManager(sessionStore, locks, broadcaster,
		os.Getenv("ALLOW_LATE_JOIN") == "true")
	scoringEngine := scoring.NewEngine(sessionStore, locks, broadcaster)

	// Rebuild derived Redis state from Postgres before accepting traffic
	syncManager := syncpkg.NewSyncManager(redisClient, sessionStore)
	if err := syncManager.WarmCaches(context.Background()); err != nil {
		log.Printf("Warning: cache warm-up failed: %v", err)
	}

	r := gin.Default()

	middleware.SetUpMiddleware(r)

	routes.SetupRoutes(r, routes.Deps{
		Store:       sessionStore,
		RedisClient: redisClient,
		Broadcaster: broadcaster,
		State:       stateMachine,
		Roster:      rosterManager,
		Scoring:     scoringEngine,
		Artist:      artist,
		DJ:          dj,
	})

	sio := &socket_io.MySocketServer{}
	sio.Start(r, broadcaster, rosterManager, scoringEngine, redisClient)

	// Configure port
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Error starting server: %v", err)
	}
}
