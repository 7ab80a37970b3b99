package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/user/packhub-back/internal/auth"
	"github.com/user/packhub-back/internal/cache"
	"github.com/user/packhub-back/internal/config"
	"github.com/user/packhub-back/internal/database"
	"github.com/user/packhub-back/internal/engagement"
	"github.com/user/packhub-back/internal/favorites"
	"github.com/user/packhub-back/internal/feed"
	"github.com/user/packhub-back/internal/handlers"
	"github.com/user/packhub-back/internal/middleware"
	"github.com/user/packhub-back/internal/packs"
	"github.com/user/packhub-back/internal/profile"
	"github.com/user/packhub-back/internal/realtime"
	"github.com/user/packhub-back/internal/storage"
	"github.com/user/packhub-back/internal/views"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(context.Background()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// Services
	tokenService := auth.NewTokenService(
		cfg.JWTSecret,
		cfg.RefreshSecret,
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
	)

	// Repositories
	authRepo := auth.NewRepository(db.Pool)
	packsRepo := packs.NewRepository(db.Pool, packs.Limits{
		MaxStickers:   cfg.MaxPackStickers,
		MaxCategories: cfg.MaxCategoriesPerPack,
		MaxTags:       cfg.MaxTagsPerSticker,
		MaxEmojis:     cfg.MaxEmojisPerSticker,
	})

	// Engagement counters
	counters := engagement.NewStore(db.Pool)

	// View dedup
	eventLog := views.NewPostgresEventLog(db.Pool)
	tracker, err := views.NewTracker(eventLog, cfg.ViewWindow, cfg.ViewFailClosed)
	if err != nil {
		log.Fatalf("Failed to create view tracker: %v", err)
	}

	// S3 Storage
	s3Storage, err := storage.NewS3Storage(storage.Config{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		Bucket:          cfg.S3Bucket,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		CDNURL:          cfg.S3CDNURL,
	})
	if err != nil {
		log.Fatalf("Failed to create S3 storage: %v", err)
	}
	log.Println("S3 storage initialized")

	// Redis Cache (optional)
	var redisCache *cache.RedisCache
	if cfg.RedisAddr != "" && cfg.RedisAddr != "disabled" {
		redisCache, err = cache.NewRedisCache(cfg.RedisAddr)
		if err != nil {
			log.Printf("Warning: Redis not available, running without cache: %v", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			log.Println("Redis cache initialized")
		}
	} else {
		log.Println("Redis disabled, running without cache")
	}

	// Feed engine
	profileBuilder := profile.NewBuilder(profile.NewPostgresSource(db.Pool))
	engine := feed.NewEngine(packsRepo, profileBuilder, redisCache, feed.Options{
		RecommendedLimit:   cfg.RecommendedLimit,
		TrendingLimit:      cfg.TrendingLimit,
		TrendingMaxAgeDays: cfg.TrendingMaxAgeDays,
		MaxPreviewStickers: cfg.MaxPreviewStickers,
		ProfileCacheTTL:    cfg.ProfileCacheTTL,
		Seed:               cfg.FeedSeed,
	})

	// Bounded favorites list
	favoritesList := favorites.NewList(favorites.NewPostgresStore(db.Pool, counters), cfg.MaxFavoriteStickers)

	// Realtime data provider
	rtProvider := realtime.NewProvider(authRepo, packsRepo)

	// Centrifuge realtime node
	rtNode, err := realtime.NewNode(tokenService, rtProvider)
	if err != nil {
		log.Fatalf("Failed to create realtime node: %v", err)
	}

	// Realtime notifier for handlers
	rtNotifier := realtime.NewNotifier(rtNode)

	// Handlers
	authHandler := handlers.NewAuthHandler(authRepo, tokenService)
	packsHandler := handlers.NewPacksHandler(packsRepo, s3Storage, counters, redisCache, rtNotifier)
	feedsHandler := handlers.NewFeedsHandler(engine, tracker, counters, packsRepo, redisCache)
	favoritesHandler := handlers.NewFavoritesHandler(favoritesList, packsRepo, redisCache, rtNotifier)

	// Router
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)

	// Protected routes - Auth
	authMiddleware := middleware.Auth(tokenService)
	optionalAuth := middleware.OptionalAuth(tokenService)
	mux.Handle("GET /api/auth/me", authMiddleware(http.HandlerFunc(authHandler.Me)))
	mux.Handle("POST /api/auth/username", authMiddleware(http.HandlerFunc(authHandler.SetUsername)))

	// Feeds: anonymous users get unpersonalized results
	mux.Handle("GET /api/feed", optionalAuth(http.HandlerFunc(feedsHandler.GetHome)))
	mux.Handle("GET /api/feed/recommended", optionalAuth(http.HandlerFunc(feedsHandler.GetRecommended)))
	mux.Handle("GET /api/feed/trending", optionalAuth(http.HandlerFunc(feedsHandler.GetTrending)))
	mux.Handle("GET /api/feed/suggested", optionalAuth(http.HandlerFunc(feedsHandler.GetSuggested)))

	// Categories
	mux.HandleFunc("GET /api/categories", packsHandler.ListCategories)

	// Packs
	mux.Handle("POST /api/packs", authMiddleware(http.HandlerFunc(packsHandler.CreatePack)))
	mux.HandleFunc("GET /api/packs/{id}", packsHandler.GetPack)
	mux.Handle("POST /api/packs/{id}/publish", authMiddleware(http.HandlerFunc(packsHandler.PublishPack)))
	mux.Handle("DELETE /api/packs/{id}", authMiddleware(http.HandlerFunc(packsHandler.DeletePack)))

	// Pack stickers
	mux.Handle("POST /api/packs/{id}/stickers", authMiddleware(http.HandlerFunc(packsHandler.UploadSticker)))
	mux.Handle("DELETE /api/packs/{id}/stickers/{stickerId}", authMiddleware(http.HandlerFunc(packsHandler.RemoveSticker)))
	mux.Handle("POST /api/packs/{id}/stickers/remove", authMiddleware(http.HandlerFunc(packsHandler.RemoveStickers)))
	mux.Handle("PATCH /api/packs/{id}/stickers/{stickerId}/position", authMiddleware(http.HandlerFunc(packsHandler.MoveSticker)))
	mux.Handle("PUT /api/packs/{id}/stickers/order", authMiddleware(http.HandlerFunc(packsHandler.ReorderStickers)))

	// Collection
	mux.Handle("GET /api/packs/saved", authMiddleware(http.HandlerFunc(packsHandler.GetSavedPacks)))
	mux.Handle("POST /api/packs/{id}/save", authMiddleware(http.HandlerFunc(packsHandler.SavePack)))
	mux.Handle("DELETE /api/packs/{id}/save", authMiddleware(http.HandlerFunc(packsHandler.UnsavePack)))
	mux.Handle("POST /api/packs/{id}/hide", authMiddleware(http.HandlerFunc(packsHandler.HidePack)))
	mux.Handle("DELETE /api/packs/{id}/hide", authMiddleware(http.HandlerFunc(packsHandler.UnhidePack)))

	// Engagement
	mux.Handle("POST /api/packs/{id}/view", optionalAuth(http.HandlerFunc(feedsHandler.RecordView)))
	mux.Handle("POST /api/packs/{id}/download", optionalAuth(http.HandlerFunc(feedsHandler.RecordDownload)))

	// Favorite stickers
	mux.Handle("GET /api/favorites", authMiddleware(http.HandlerFunc(favoritesHandler.GetFavorites)))
	mux.Handle("POST /api/stickers/{stickerId}/favorite", authMiddleware(http.HandlerFunc(favoritesHandler.Toggle)))

	// Centrifuge WebSocket endpoint
	mux.Handle("GET /api/ws", rtNode.WebsocketHandler())

	// Apply CORS and request correlation
	handler := middleware.CORS(middleware.RequestID(mux))

	// Server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := rtNode.Shutdown(ctx); err != nil {
			log.Printf("Centrifuge shutdown error: %v", err)
		}

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server shutdown failed: %v", err)
		}
	}()

	log.Printf("Server starting on port %s", cfg.Port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}

	log.Println("Server stopped")
}
