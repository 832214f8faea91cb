package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"streak-bot/internal/api"
	"streak-bot/internal/auth"
	"streak-bot/internal/bot"
	"streak-bot/internal/config"
	"streak-bot/internal/db"
	"streak-bot/internal/feed"
	"streak-bot/internal/leaderboard"
	"streak-bot/internal/leetcode"
	"streak-bot/internal/logger"
	"streak-bot/internal/metrics"
	myMiddleware "streak-bot/internal/middleware"
	"streak-bot/internal/registry"
	"streak-bot/internal/removal"
)

const webhookPath = "/telegram/webhook"

func main() {
	// 1. Config & Flags
	addr := flag.String("addr", "", "http service address (overrides ADDR)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promRegistry)

	// 2. Connect to Redis (registry, activity cache, feed)
	var redisClient *redis.Client
	if cfg.NeedsRedis() {
		redisClient = redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			log.Fatalf("❌ Failed to connect to Redis: %v", err)
		}
		logger.Success("Connected to Redis at %s", cfg.RedisAddr)
	}

	// 3. Registry store
	var (
		store    registry.Store
		database *db.Database
	)
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		database, err = db.NewDatabase(cfg.DBDSN)
		if err != nil {
			log.Fatalf("❌ Failed to connect to DB: %v", err)
		}
		logger.Success("Connected to PostgreSQL")

		if err := database.AutoMigrate(context.Background()); err != nil {
			log.Fatalf("❌ Migration failed: %v", err)
		}
		logger.Success("Database schema initialized")
		store = registry.NewPostgresStore(database.Conn)
	case config.BackendRedis:
		store = registry.NewRedisStore(redisClient, "registry:")
	default:
		logger.Warning("Using the in-memory registry: usernames are lost on restart")
		store = registry.NewMemoryStore()
	}

	// 4. Activity source
	var source leetcode.Source = leetcode.NewClient(cfg.LeetCodeURL, cfg.FetchTimeout, m)
	if cfg.CacheTTL > 0 {
		source = leetcode.NewCachedSource(source, redisClient, "leetcode:", cfg.CacheTTL, m)
		logger.Info("Activity cache enabled (ttl %s)", cfg.CacheTTL)
	}

	// 5. Core services
	registryService := registry.NewService(store, source, cfg.VerifyPolicy)
	boardService := leaderboard.NewService(registryService, source, leaderboard.Options{
		Location:    cfg.Location,
		Concurrency: cfg.FetchConcurrency,
		Recorder:    m,
	})
	handler := bot.NewHandler(registryService, boardService, removal.NewFlow(registryService))

	// 6. Telegram
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatalf("❌ Failed to reach Telegram: %v", err)
	}
	logger.Success("Authorized on Telegram as @%s", botAPI.Self.UserName)

	if cfg.WebhookURL != "" {
		if err := bot.RegisterWebhook(botAPI, cfg.WebhookURL+webhookPath, cfg.WebhookSecret); err != nil {
			logger.Error("Webhook setting failed: %v", err)
		} else {
			logger.Success("Webhook set to %s%s", cfg.WebhookURL, webhookPath)
		}
	}
	webhook := bot.NewWebhook(handler, botAPI, m)

	// 7. Routes
	ctx, cancel := context.WithCancel(context.Background())

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", m.Handler())
	r.With(myMiddleware.WebhookSecret(cfg.WebhookSecret)).
		Post(webhookPath, m.WrapHandler("webhook", webhook).ServeHTTP)

	// Protected Routes (Require JWT)
	if cfg.JWTSecret != "" {
		hub := feed.NewHub(redisClient, feed.DefaultChannel)
		go hub.Run(ctx)
		if err := hub.SubscribeToRedis(ctx); err != nil {
			log.Fatalf("❌ Failed to subscribe to registry events: %v", err)
		}
		registryService.SetNotifier(hub)

		authMiddleware := myMiddleware.NewAuthMiddleware(auth.NewTokenService(cfg.JWTSecret))
		apiHandler := api.NewHandler(registryService, boardService)
		feedHandler := feed.NewHandler(hub)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Handle)
			r.Mount("/api", m.WrapHandler("api", apiHandler.Routes()))
			r.Get("/ws", feedHandler.ServeWs)
		})
	} else {
		logger.Warning("JWT_SECRET is not set: /api and /ws are disabled")
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("🚀 Server starting on %s (store: %s, verify: %s)", cfg.Addr, cfg.StoreBackend, cfg.VerifyPolicy)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"streak-bot": func(shutdownCtx context.Context) error {
				logger.Info("Graceful shutdown initiated...")
				err := server.Shutdown(shutdownCtx)
				cancel()
				if redisClient != nil {
					err = errors.Join(err, redisClient.Close())
				}
				if database != nil {
					err = errors.Join(err, database.Close())
				}
				return err
			},
		},
	)

	exitCode := <-wait
	logger.Info("Exited with code %d", exitCode)
	os.Exit(exitCode)
}
