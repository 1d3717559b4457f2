package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/Webrookie0/growex-all-projects/internal/config"
	"github.com/Webrookie0/growex-all-projects/internal/database"
	"github.com/Webrookie0/growex-all-projects/internal/events"
	"github.com/Webrookie0/growex-all-projects/internal/handlers"
	"github.com/Webrookie0/growex-all-projects/internal/logging"
	"github.com/Webrookie0/growex-all-projects/internal/metrics"
	"github.com/Webrookie0/growex-all-projects/internal/middleware"
	"github.com/Webrookie0/growex-all-projects/internal/realtime"
	"github.com/Webrookie0/growex-all-projects/internal/repository"
	"github.com/Webrookie0/growex-all-projects/internal/routes"
	"github.com/Webrookie0/growex-all-projects/internal/services"
	"github.com/Webrookie0/growex-all-projects/internal/ws"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg := config.Load()

	// Structured logging (JSON to stdout)
	logging.Setup(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	store, err := openStore(cfg)
	if err != nil {
		slog.Error("store connection failed", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	slog.Info("store ready", "driver", store.Driver)

	// Store-backed log handler (ERROR+ async batch)
	storeLogHandler := logging.NewStoreHandler(store.Logs)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		logging.NewStdoutHandler(cfg.LogLevel),
		storeLogHandler,
	)))

	cleanupDone := make(chan struct{})
	logging.StartCleanup(store.Logs, cfg.LogRetention, cleanupDone)

	broker, err := openBroker(cfg)
	if err != nil {
		slog.Error("broker connection failed", "driver", cfg.BrokerDriver, "error", err)
		os.Exit(1)
	}
	slog.Info("realtime broker ready", "driver", cfg.BrokerDriver)

	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		slog.Info("kafka events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	// Services
	authService := services.NewAuthService(store.Users, cfg)
	userService := services.NewUserService(store.Users)
	chatService := services.NewChatService(store.Users, store.Chats, broker, publisher)
	dashboardService := services.NewDashboardService(store.Users, store.Chats, chatService)

	hub := ws.NewHub()

	// Handlers
	h := routes.Handlers{
		Auth:      handlers.NewAuthHandler(authService),
		Health:    handlers.NewHealthHandler(store, store.Driver, cfg.BrokerDriver),
		User:      handlers.NewUserHandler(userService),
		Chat:      handlers.NewChatHandler(chatService),
		Dashboard: handlers.NewDashboardHandler(dashboardService),
		Admin:     handlers.NewAdminHandler(store.Logs),
		WS:        handlers.NewWSHandler(chatService, broker, hub),
	}

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.SecureHeaders())
	app.Use(metrics.Middleware())

	routes.Setup(app, cfg, store.Users, h)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := hub.Shutdown(ctx); err != nil {
		slog.Warn("websocket clients did not close in time", "error", err, "remaining", hub.Count())
	}
	if err := app.ShutdownWithContext(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	close(cleanupDone)
	storeLogHandler.Stop()

	if err := broker.Close(); err != nil {
		slog.Error("broker close error", "error", err)
	}
	if err := publisher.Close(); err != nil {
		slog.Error("event publisher close error", "error", err)
	}
	if err := store.Close(ctx); err != nil {
		slog.Error("store close error", "error", err)
	}
	sentry.Flush(2 * time.Second)

	slog.Info("server stopped")
}

func openStore(cfg *config.Config) (*repository.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		client, err := database.ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := repository.EnsureIndexes(ctx, client, cfg.MongoDatabase); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("failed to create mongo indexes: %w", err)
		}
		return repository.NewMongoStore(client, cfg.MongoDatabase), nil

	default:
		db, err := database.Connect(cfg)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
		return repository.NewGormStore(db, config.StoreDriverPostgres), nil
	}
}

func openBroker(cfg *config.Config) (realtime.Broker, error) {
	switch cfg.BrokerDriver {
	case config.BrokerDriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return realtime.NewRedisBroker(client), nil

	case config.BrokerDriverNATS:
		nc, err := nats.Connect(cfg.NATSURL,
			nats.Name("influencer-connect"),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			return nil, fmt.Errorf("nats connect: %w", err)
		}
		return realtime.NewNATSBroker(nc), nil

	default:
		return realtime.NewMemoryBroker(), nil
	}
}
