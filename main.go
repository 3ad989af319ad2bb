package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"splitbills-backend/config"
	"splitbills-backend/database"
	"splitbills-backend/handlers"
	"splitbills-backend/logging"
	"splitbills-backend/middleware"
	"splitbills-backend/services"
)

func main() {
	cfg := config.Load()
	logging.Setup(logging.ParseLevel(cfg.LogLevel))

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	// Amounts go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		slog.Error("Database unavailable", "error", err)
		os.Exit(1)
	}
	store := database.NewStore(db)

	// Redis is optional; without it plans are computed on every request.
	var cache services.PlanCache
	rdb, err := database.ConnectRedis(ctx, cfg.RedisURL)
	switch {
	case err != nil:
		slog.Warn("Redis not available, running without plan cache", "error", err)
	case rdb != nil:
		defer rdb.Close()
		cache = services.NewRedisPlanCache(rdb, cfg.SettleCacheTTL)
		slog.Info("Redis connected", "ttl", cfg.SettleCacheTTL)
	}

	h := handlers.New(store, services.NewSettleService(store, cache), buildNotifier(ctx, cfg), cfg.Currency)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.CORSMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": cfg.AppName,
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(middleware.AuthRequired(cfg.JWTSecret))
	h.Register(api)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("Server starting", "service", cfg.AppName, "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
	slog.Info("Server stopped")
}

// buildNotifier enables each channel whose credentials are configured.
func buildNotifier(ctx context.Context, cfg *config.Config) services.Notifier {
	var notifiers services.MultiNotifier
	if cfg.SendGridAPIKey != "" {
		notifiers = append(notifiers, services.NewEmailNotifier(cfg.SendGridAPIKey, cfg.SendGridFrom, cfg.AppName, cfg.AppURL))
	} else {
		slog.Warn("SENDGRID_API_KEY not set, email notifications disabled")
	}
	if cfg.FirebaseCredPath != "" {
		push, err := services.NewPushNotifier(ctx, cfg.FirebaseCredPath)
		if err != nil {
			slog.Warn("Push notifications disabled", "error", err)
		} else {
			notifiers = append(notifiers, push)
		}
	}
	if len(notifiers) == 0 {
		return services.NopNotifier{}
	}
	return notifiers
}
