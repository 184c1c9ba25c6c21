package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/savvydealshub/SavvyDealsHub/internal/cache"
	"github.com/savvydealshub/SavvyDealsHub/internal/config"
	"github.com/savvydealshub/SavvyDealsHub/internal/database"
	"github.com/savvydealshub/SavvyDealsHub/internal/events"
	"github.com/savvydealshub/SavvyDealsHub/internal/features"
	"github.com/savvydealshub/SavvyDealsHub/internal/feeds"
	"github.com/savvydealshub/SavvyDealsHub/internal/handler"
	"github.com/savvydealshub/SavvyDealsHub/internal/middleware"
	"github.com/savvydealshub/SavvyDealsHub/internal/service"
	"github.com/savvydealshub/SavvyDealsHub/internal/tracing"
)

func main() {
	configFile := flag.String("config", "", "Config file path (JSON)")
	port := flag.String("port", "", "Server port (overrides config)")
	dbPath := flag.String("db", "", "Database file path (overrides config)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Tracing
	stopTracing, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Tracing.Environment,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := stopTracing(ctx); err != nil {
			log.Printf("Error shutting down tracing: %v", err)
		}
	}()

	// Database
	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Feed cache
	var feedCache cache.Cache
	if cfg.Cache.Backend == "redis" {
		redisCache, err := cache.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisCache.Close()
		feedCache = redisCache
	} else {
		feedCache = cache.NewInMemoryCache()
	}

	feedClient := feeds.New(feeds.Config{
		URLs: cfg.Feeds.URLs,
		TTL:  time.Duration(cfg.Feeds.TTLSeconds) * time.Second,
	}, feedCache)

	// Feature flags
	flags := features.NewManager()
	flags.Register(features.FeatureRemoteFeeds, len(cfg.Feeds.URLs) > 0, "Merge remote JSON feeds into the catalog")
	flags.Register(features.FeatureClickTracking, true, "Record outbound click events")
	flags.Register(features.FeatureSponsoredPlacements, false, "Show labelled sponsored rows in compare results")
	flags.Register(features.FeatureEventHooksEnabled, true, "Async event bus")

	// Events
	eventManager := events.NewManager(flags.IsEnabled(features.FeatureEventHooksEnabled))
	defer eventManager.Shutdown()
	eventManager.Subscribe(events.EventClickRecorded, func(ctx context.Context, e events.Event) error {
		if data, ok := e.Data.(events.ClickRecordedData); ok {
			log.Printf("click recorded: retailer=%s category=%s cta=%s", data.Click.Retailer, data.Click.Category, data.Click.CTA)
		}
		return nil
	})
	eventManager.Subscribe(events.EventFeedsRefreshed, func(ctx context.Context, e events.Event) error {
		log.Printf("feed cache dropped; next catalog read refetches")
		return nil
	})

	// Service + handlers
	svc := service.NewService(db, feedClient, eventManager, flags)
	h := handler.NewHandlerWithOptions(svc, handler.NewHandlerOptions{
		MaxBodySize: cfg.Server.MaxRequestBodySize,
	})

	// Rate limiter
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Rate, time.Duration(cfg.RateLimit.Window)*time.Second)
	defer rateLimiter.Stop()

	// Router
	r := chi.NewRouter()

	// Middleware (order matters)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Tracing())

	if cfg.RateLimit.Enabled {
		r.Use(middleware.RateLimit(rateLimiter))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.Server.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Routes
	r.Route("/offers", func(r chi.Router) {
		r.Post("/", h.UpsertOffer)
		r.Get("/", h.ListOffers)
	})

	r.Get("/compare", h.Compare)
	r.Get("/deals/top", h.TopDeals)
	r.Get("/categories", h.Categories)

	r.Route("/clicks", func(r chi.Router) {
		r.Post("/", h.RecordClick)
	})
	r.Get("/analytics/clicks", h.ClickAnalytics)

	r.Route("/feeds", func(r chi.Router) {
		r.Get("/status", h.FeedStatus)
		r.Post("/refresh", h.RefreshFeeds)
	})

	r.Get("/health", h.Health)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Starting server on %s", addr)
	log.Printf("Database: %s", cfg.Database.Path)
	log.Printf("Feed URLs: %d (TTL %ds, cache backend %s)", len(cfg.Feeds.URLs), cfg.Feeds.TTLSeconds, cfg.Cache.Backend)
	if cfg.RateLimit.Enabled {
		log.Printf("Rate limit: %d requests per %d seconds", cfg.RateLimit.Rate, cfg.RateLimit.Window)
	}

	server := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down server: %v", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}
