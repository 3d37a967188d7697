package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	_ "meetdesk-backend/docs"
	"meetdesk-backend/meeting-service/handlers"
	"meetdesk-backend/meeting-service/middleware"
	"meetdesk-backend/meeting-service/routes"
	"meetdesk-backend/meeting-service/services"
	"meetdesk-backend/shared/clients"
	"meetdesk-backend/shared/config"
	"meetdesk-backend/shared/database"
	"meetdesk-backend/shared/metrics"
	"meetdesk-backend/shared/store"
	"meetdesk-backend/shared/telemetry"
	utils "meetdesk-backend/shared/utils/auth"
	"meetdesk-backend/shared/utils/cache"
)

const (
	serviceName         = "meeting-service"
	providerHTTPTimeout = 15 * time.Second
	shutdownTimeout     = 10 * time.Second
)

func main() {
	cfg := config.LoadConfig()
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Setup(ctx, serviceName, cfg.OTELEndpoint, cfg.OTELInsecure)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Printf("⚠️ Tracer shutdown error: %v", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(cfg.MetricsNamespace, registry)

	// Database
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close(db)
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	st := store.NewGormStore(db)
	if _, err := database.SeedAdmin(ctx, st, cfg); err != nil {
		log.Printf("⚠️ Admin seeding skipped: %v", err)
	}

	// Redis is optional: without it the slot cache is bypassed and every instance scans reminders.
	checks := map[string]routes.HealthCheck{}
	cacheManager, err := cache.NewCacheManager(ctx, cfg)
	if err != nil {
		log.Printf("⚠️ Redis unavailable, running without cache: %v", err)
	} else {
		defer cacheManager.Close()
		checks["redis"] = cacheManager.Ping
	}

	// Email
	templates, err := services.NewTemplateService("MeetDesk")
	if err != nil {
		log.Fatalf("Failed to load email templates: %v", err)
	}
	notifier := services.NewNotifier(services.NewSMTPMailer(cfg), templates, cfg.FrontendURL, cfg.ReminderWindow, m)

	// External providers
	zoom := clients.NewZoomClient(cfg, clients.NewHTTPClient(providerHTTPTimeout), m)
	razorpay := clients.NewRazorpayClient(cfg, clients.NewHTTPClient(providerHTTPTimeout), m)

	var avatars handlers.AvatarStorage
	if storage, err := services.NewAvatarStorage(ctx, cfg); err != nil {
		log.Printf("⚠️ MinIO unavailable, avatar uploads disabled: %v", err)
	} else {
		avatars = storage
		checks["storage"] = storage.Ping
	}

	// Realtime
	hub := services.NewHub(cfg.FrontendURL)
	go hub.Run(ctx)

	// Reminders
	reminders := services.NewReminderService(st, notifier, cacheManager, cfg.ReminderInterval, cfg.ReminderWindow, m)
	go reminders.Start(ctx)

	authLimiter := middleware.NewRateLimiter(ctx, middleware.RateLimitConfig{
		Requests:      cfg.AuthRateLimitRequests,
		Window:        cfg.AuthRateLimitWindow,
		Burst:         cfg.AuthRateLimitBurst,
		BlockDuration: cfg.AuthRateLimitBlock,
	}, 5*time.Minute)

	router := routes.NewRouter(routes.Dependencies{
		Config:      cfg,
		Store:       st,
		Tokens:      utils.NewTokenManager(cfg.JWTSecret, cfg.JWTExpireDuration()),
		Notifier:    notifier,
		Meetings:    zoom,
		Payments:    razorpay,
		Events:      hub,
		Stream:      hub,
		SlotCache:   cacheManager,
		Avatars:     avatars,
		AuthLimiter: authLimiter,
		Metrics:     m,
		Gatherer:    registry,
		Checks:      checks,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(router, serviceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("🚀 Meeting Service starting on port %s (%s)", cfg.Port, cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Shutting down Meeting Service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Graceful shutdown failed: %v", err)
	}
	log.Println("✅ Meeting Service stopped")
}
