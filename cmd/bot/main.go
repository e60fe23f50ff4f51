package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/redis/go-redis/v9"
	earnapp "github.com/set-night/earnapp"
	"github.com/set-night/earnapp/internal/cache"
	"github.com/set-night/earnapp/internal/calendar"
	"github.com/set-night/earnapp/internal/config"
	"github.com/set-night/earnapp/internal/handler"
	"github.com/set-night/earnapp/internal/metrics"
	"github.com/set-night/earnapp/internal/middleware"
	"github.com/set-night/earnapp/internal/repository"
	"github.com/set-night/earnapp/internal/service"
	"github.com/set-night/earnapp/internal/telegram"
	"github.com/shopspring/decimal"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	loc, err := cfg.Location()
	if err != nil {
		slog.Error("invalid time zone", "error", err)
		os.Exit(1)
	}

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Run migrations
	migrationsFS, err := earnapp.Migrations()
	if err != nil {
		slog.Error("failed to load embedded migrations", "error", err)
		os.Exit(1)
	}
	if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	store := repository.NewLedgerStore(pool, cfg.LedgerMaxRetries)
	cal := calendar.New(loc, time.Now)

	// Caches: process-local LRU, shared through Redis when configured
	localMarkers, err := cache.NewLRUMarkers(config.ReferralMarkerSize, config.ReferralMarkerTTL)
	if err != nil {
		slog.Error("failed to create marker cache", "error", err)
		os.Exit(1)
	}
	var sharedMarkers cache.Markers
	rateCounter, err := cache.NewLRURateCounter(config.RateLimitCacheSize, config.RateLimitWindow)
	if err != nil {
		slog.Error("failed to create rate limiter", "error", err)
		os.Exit(1)
	}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid redis url", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unavailable, using local caches only", "error", err)
		} else {
			sharedMarkers = cache.NewRedisMarkers(rdb, "earnapp:referral", config.ReferralMarkerTTL)
			rateCounter = cache.NewRedisRateCounter(rdb, "earnapp:rate", config.RateLimitWindow)
		}
	}
	markers := cache.NewLayered(localMarkers, sharedMarkers)

	// Services that do not talk to Telegram
	scoreService := service.NewScoreService(store, cal)
	historyService := service.NewHistoryService(store, cal)
	userService := service.NewUserService(store, cal)
	catalogService := service.NewCatalogService(store, config.CatalogCacheDuration)
	resetService := service.NewResetService(store, cal, historyService, cfg.WeeklyHistoryWipe)
	farmingService := service.NewFarmingService(store, cal, scoreService, historyService,
		cfg.FarmingDuration, decimal.NewFromInt(config.FarmingReward))

	// Session service pointer for use in the user loader closure
	var sessionService *service.SessionService

	// Create bot
	opts := []bot.Option{
		bot.WithMiddlewares(
			middleware.Recover(),
			middleware.Logging(),
			middleware.RateLimit(rateCounter),
			func(next bot.HandlerFunc) bot.HandlerFunc {
				return func(ctx context.Context, b *bot.Bot, update *models.Update) {
					if sessionService == nil {
						return
					}
					middleware.UserLoader(sessionService)(next)(ctx, b, update)
				}
			},
		),
	}

	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	// Get bot info
	me, err := b.GetMe(ctx)
	if err != nil {
		slog.Error("failed to get bot info", "error", err)
		os.Exit(1)
	}
	slog.Info("bot info retrieved", "id", me.ID, "username", me.Username)

	botUsername := cfg.BotUsername
	if botUsername == "" {
		botUsername = me.Username
	}

	tgLogger := telegram.NewTelegramLogger(b, cfg)
	notifier := telegram.NewNotifier(b, tgLogger)

	verifier := service.NewVerifier(store, telegram.NewMembershipChecker(b), cfg.VerifyInterval, cfg.VerifyAttempts)
	defer verifier.Stop()

	taskService := service.NewTaskService(store, cal, scoreService, historyService, catalogService, verifier)
	streakService := service.NewStreakService(store, cal, notifier)
	referralService := service.NewReferralService(store, cal, scoreService, historyService, markers, notifier,
		cfg.BotHost, botUsername)
	gameService := service.NewGameService(store, scoreService, historyService, catalogService, taskService)
	sessionService = service.NewSessionService(userService, streakService, resetService)

	if _, err := referralService.InviteLink(strconv.FormatInt(me.ID, 10)); err != nil {
		slog.Warn("invite links disabled", "error", err)
	}

	// Catalog edits made elsewhere drop the cached task list
	unwatch, err := catalogService.Watch(ctx)
	if err != nil {
		slog.Warn("catalog watch unavailable, relying on cache expiry", "error", err)
	} else {
		defer unwatch()
	}

	// Initialize handler
	h := handler.New(handler.Deps{
		Bot:       b,
		Cfg:       cfg,
		Scores:    scoreService,
		History:   historyService,
		Catalog:   catalogService,
		Tasks:     taskService,
		Referrals: referralService,
		Games:     gameService,
		Farming:   farmingService,
		TgLogger:  tgLogger,
	})

	// Register all handlers
	h.Register()

	// Metrics endpoint
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()

	if cfg.DropPendingUpdates {
		if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: true}); err != nil {
			slog.Warn("failed to drop pending updates", "error", err)
		}
	}

	// Start bot
	slog.Info("starting bot", "username", me.Username, "id", me.ID, "port", cfg.Port)
	b.Start(ctx)

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown", "error", err)
	}
	slog.Info("bot stopped gracefully")
}
