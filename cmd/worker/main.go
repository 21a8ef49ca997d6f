package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/saiyamvora13/vesabooks/internal/config"
	"github.com/saiyamvora13/vesabooks/internal/pkg/distlock"
	"github.com/saiyamvora13/vesabooks/internal/pkg/logger"
	"github.com/saiyamvora13/vesabooks/internal/printpdf"
	"github.com/saiyamvora13/vesabooks/internal/prodigi"
	"github.com/saiyamvora13/vesabooks/internal/repository/postgres"
	"github.com/saiyamvora13/vesabooks/internal/resend"
	"github.com/saiyamvora13/vesabooks/internal/service/order"
	"github.com/saiyamvora13/vesabooks/internal/service/storybook"
	"github.com/saiyamvora13/vesabooks/internal/storage"
	"github.com/saiyamvora13/vesabooks/internal/stripepay"
	"github.com/saiyamvora13/vesabooks/internal/worker"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifeMins) * time.Minute)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("connected to database")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	stripeClient := stripepay.NewClient(cfg.Stripe)
	prodigiClient := prodigi.NewClient(cfg.Prodigi)
	resendClient := resend.NewClient(cfg.Resend)

	orderSvc := order.NewService(postgres.NewOrderRepo(db), stripeClient, resendClient)
	storybookSvc := storybook.NewService(postgres.NewStorybookRepo(db), nil, nil, nil)

	// The sweep lock is optional: without Redis a single worker instance
	// runs the sweep unguarded.
	var sweepLock *distlock.RedisLock
	if cfg.Redis.Enabled && cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		sweepLock = distlock.NewRedisLock(client, "vesabooks:stuck-order-sweep", 5*time.Minute)
		logger.Info("sweep lock enabled")
	}

	builder := printpdf.NewBookBuilder(storage.Fetcher(store))

	processor := worker.NewWebhookProcessor(db, orderSvc, 5*time.Second)
	submitter := worker.NewPrintOrderSubmitter(orderSvc, storybookSvc, builder, store, prodigiClient, time.Minute)
	sweeper := worker.NewStuckOrderSweeper(orderSvc, sweepLock, cfg.Sweep)

	var wg sync.WaitGroup
	for _, run := range []func(context.Context){processor.Run, submitter.Run, sweeper.Run} {
		wg.Add(1)
		go func(run func(context.Context)) {
			defer wg.Done()
			run(ctx)
		}(run)
	}
	logger.Info("worker started")

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-done

	logger.Info("shutting down")
	cancel()
	wg.Wait()
}
