package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/tulepito/pito-cloud-canteen-sub008/internal/booking"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/config"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/db"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/events"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/export"
	httpapi "github.com/tulepito/pito-cloud-canteen-sub008/internal/http"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/http/handlers"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/jobs"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/lock"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/logger"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/payments"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/queue"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/rating"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/scan"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/store"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	var queueClient *queue.Client
	if cfg.RabbitMQURL != "" {
		qc, err := queue.New(cfg.RabbitMQURL)
		if err != nil {
			if cfg.Env == "production" {
				log.Fatal("rabbitmq connection failed", zap.Error(err))
			}
			log.Warn("rabbitmq connection failed; continuing without events", zap.Error(err))
			qc = nil
		}
		if qc != nil {
			if err := qc.EnsureTopology(); err != nil {
				if cfg.Env == "production" {
					log.Fatal("rabbitmq topology failed", zap.Error(err))
				}
				log.Warn("rabbitmq topology failed; continuing without events", zap.Error(err))
				_ = qc.Close()
				qc = nil
			}
		}
		queueClient = qc
		if qc != nil {
			log.Info("rabbitmq events enabled", zap.String("exchange", queue.EventsExchange))
			defer qc.Close()
		}
	} else {
		log.Info("event publishing disabled (RABBITMQ_URL is empty)")
	}

	entityStore := store.NewPG(pool)
	lockStore := lock.NewPGStore(pool)
	lockOpts := lock.Options{
		TTL:        cfg.LockTTL,
		MaxRetries: cfg.LockMaxRetries,
		RetryDelay: cfg.LockRetryDelay,
	}

	wsServer := ws.New(log, cfg.CorsAllowedOrigins)
	sink := &events.Sink{Queue: queueClient, WS: wsServer, Logger: log}

	jobSystem := jobs.NewSystem(log, cfg.WorkerConcurrency)
	processor := &jobs.MemberOrderProcessor{
		Store:    entityStore,
		Locks:    lockStore,
		LockOpts: lockOpts,
		Events:   sink,
		Logger:   log,
	}
	processor.Register(jobSystem)
	jobSystem.Start()
	defer jobSystem.Stop()

	paymentService := &payments.Service{
		Store:                entityStore,
		Ledger:               entityStore,
		Tiers:                cfg.PCCFee,
		DefaultVAT:           cfg.VATPercentage,
		ServiceFeePercentage: cfg.ServiceFeePercentage,
	}
	ratingService := &rating.Service{
		Store:    entityStore,
		Locks:    lockStore,
		LockOpts: lockOpts,
	}

	var exporter *export.Exporter
	if cfg.ObjectStoreEndpoint != "" {
		objectStore, err := export.NewObjectStore(ctx, export.ObjectStoreConfig{
			Endpoint:        cfg.ObjectStoreEndpoint,
			Region:          cfg.ObjectStoreRegion,
			AccessKeyID:     cfg.ObjectStoreAccessKeyID,
			SecretAccessKey: cfg.ObjectStoreSecretAccessKey,
			Bucket:          cfg.ObjectStoreBucket,
			PublicBaseURL:   cfg.ObjectStorePublicBaseURL,
		})
		if err != nil {
			log.Fatal("object store init failed", zap.Error(err))
		}
		exporter = &export.Exporter{Store: objectStore}
	} else {
		log.Info("quotation export disabled (OBJECT_STORE_ENDPOINT is empty)")
	}

	h := &handlers.Handler{
		Store:     entityStore,
		Ledger:    entityStore,
		Locks:     lockStore,
		LockOpts:  lockOpts,
		Jobs:      jobSystem,
		Booking:   booking.NewClient(cfg.BookingEngineURL),
		Payments:  paymentService,
		Ratings:   ratingService,
		Tokenizer: scan.NewTokenizer(cfg.ScanTokenSecret),
		Exporter:  exporter,
		Events:    sink,
		Logger:    log,
		Config:    cfg,
	}

	apiServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(h, log, cfg, wsServer),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("canteen api ready", zap.String("base", "/api"))
		log.Info("plan feed ready", zap.String("base", "/ws"))
		log.Info("canteen service listening", zap.String("addr", cfg.HTTPAddr))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxShutdown); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
}
