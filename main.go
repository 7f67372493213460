package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GabrielGBraga/mise/auth"
	"github.com/GabrielGBraga/mise/config"
	"github.com/GabrielGBraga/mise/db"
	"github.com/GabrielGBraga/mise/elements"
	"github.com/GabrielGBraga/mise/globals"
	"github.com/GabrielGBraga/mise/middleware"
	"github.com/GabrielGBraga/mise/mq"
	"github.com/GabrielGBraga/mise/ratelim"
	"github.com/GabrielGBraga/mise/rdx"
	"github.com/GabrielGBraga/mise/recipes"
	"github.com/GabrielGBraga/mise/routes"
	"github.com/GabrielGBraga/mise/storage"
	"github.com/rs/cors"
	"golang.org/x/time/rate"
)

const elementCacheTTL = 10 * time.Minute

// Set up all routes and middleware layers
func setupRouter(cfg config.Config, d routes.Deps) http.Handler {
	router := routes.New(d)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: cfg.CORSCredentials(),
	})

	return middleware.WithRequestID(
		middleware.LoggingMiddleware(
			middleware.RecoverMiddleware(
				middleware.SecurityHeaders(c.Handler(router)))))
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	database, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if err := database.CreateIndexes(ctx); err != nil {
		log.Printf("⚠️ indexes: %v", err)
	}
	cancel()
	defer func() {
		if err := database.Disconnect(context.Background()); err != nil {
			log.Printf("❌ mongo disconnect: %v", err)
		}
	}()

	var elementStore elements.Store = elements.NewMongoStore(database.ElementsCollection)
	var revoker auth.Revoker = auth.NewMemoryRevocations()
	if cfg.RedisAddr != "" {
		conn, err := rdx.Connect(context.Background(), cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		defer conn.Close()
		revoker = &rdx.Revocations{Conn: conn}
		elementStore = elements.NewCachedStore(elementStore, &rdx.Cache{Conn: conn, Prefix: "elements:"}, elementCacheTTL)
		log.Println("✅ Connected to Redis")
	} else {
		log.Println("⚠️ REDIS_ADDR not set, using in-memory revocations and no element cache")
	}

	if cfg.SeedElements {
		seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if _, err := elements.Seed(seedCtx, elementStore); err != nil {
			log.Printf("⚠️ %v", err)
		}
		seedCancel()
	}

	bus := mq.NewBus()
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.SessionTTL, revoker)
	authService := auth.NewService(auth.NewMongoUsers(database.UserCollection), tokens, bus)

	rateLimiter := ratelim.NewRateLimiter(rate.Every(time.Second), 5)
	stopLimiter := make(chan struct{})
	go rateLimiter.Run(time.Minute, stopLimiter)

	handler := setupRouter(cfg, routes.Deps{
		Auth:        middleware.NewAuth(tokens),
		RateLimiter: rateLimiter,
		AuthHandler: auth.NewHandler(authService),
		Feed:        bus,
		Elements:    elements.NewHandler(elementStore),
		Recipes:     recipes.NewHandler(recipes.NewMongoStore(database)),
		Storage:     storage.NewStore(cfg.StorageDir, cfg.PublicBaseURL, globals.RecipeImagesBucket),
	})

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	server.RegisterOnShutdown(func() {
		log.Println("🛑 Cleaning up resources before shutdown...")
		close(stopLimiter)
	})

	go func() {
		log.Printf("Server started on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", cfg.ListenAddr, err)
		}
	}()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)
	<-shutdownChan

	log.Println("🛑 Shutdown signal received. Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Server shutdown failed: %v", err)
		return
	}

	log.Println("✅ Server stopped cleanly")
}
