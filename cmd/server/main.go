package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/furniro/messaging/internal/application"
	"github.com/furniro/messaging/internal/config"
	"github.com/furniro/messaging/internal/handlers"
	"github.com/furniro/messaging/internal/hub"
	"github.com/furniro/messaging/internal/kafka"
	"github.com/furniro/messaging/internal/observability"
	"github.com/furniro/messaging/internal/outbox"
	"github.com/furniro/messaging/internal/presence"
	"github.com/furniro/messaging/internal/repository/postgres"
	"github.com/furniro/messaging/internal/router"
	"github.com/furniro/messaging/internal/tx"
)

func main() {
	cfg := config.Load()

	observability.InitLogger(cfg.ServiceName)
	log := observability.Log

	if cfg.TracingEnabled {
		tp, err := observability.InitTracer(cfg.ServiceName, cfg.JaegerURL)
		if err != nil {
			log.Fatal("failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				log.Error("failed to shutdown tracer provider", zap.Error(err))
			}
		}()
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	repo := &postgres.Repository{DB: db}
	txMgr := &tx.Manager{DB: db}
	app := application.New(repo, txMgr, log)

	tracker := presence.NewTracker(presence.NewRedisStore(redisClient), cfg.PresenceTTL)

	rooms := hub.New()
	socketH := hub.NewHandler(rooms, app, cfg.ServiceName)

	// Cancellable context for background workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var producer *kafka.Producer
	if cfg.KafkaEnabled {
		producer = kafka.NewProducer(cfg.KafkaBrokers)
		worker := &outbox.Worker{
			DB:        db,
			Producer:  producer,
			BatchSize: 100,
			PollDelay: 2 * time.Second,
		}
		go worker.Start(ctx)
	}

	handler := router.New(
		handlers.NewConversationHandler(app),
		handlers.NewMessageHandler(app),
		handlers.NewPresenceHandler(tracker),
		socketH,
		db,
		router.Config{
			JWTSecret:         cfg.JWTSecret,
			JWTIssuer:         cfg.JWTIssuer,
			JWTAudience:       cfg.JWTAudience,
			RateLimitRequests: cfg.RateLimitRequests,
			RateLimitWindow:   cfg.RateLimitWindow,
			ServiceName:       cfg.ServiceName,
		},
	)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
	}

	go func() {
		log.Info("HTTP server started", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down...")
	cancel()

	rooms.CloseAll()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error("kafka producer close failed", zap.Error(err))
		}
	}

	log.Info("shutdown complete")
}
