package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/saiyamvora13/vesabooks/internal/api"
	"github.com/saiyamvora13/vesabooks/internal/compositor"
	"github.com/saiyamvora13/vesabooks/internal/config"
	"github.com/saiyamvora13/vesabooks/internal/gemini"
	"github.com/saiyamvora13/vesabooks/internal/pkg/logger"
	"github.com/saiyamvora13/vesabooks/internal/prodigi"
	"github.com/saiyamvora13/vesabooks/internal/repository/postgres"
	"github.com/saiyamvora13/vesabooks/internal/resend"
	"github.com/saiyamvora13/vesabooks/internal/service/cart"
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

	db, err := openDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("connected to database")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	comp, err := compositor.New()
	if err != nil {
		log.Fatalf("Failed to initialize title compositor: %v", err)
	}

	stripeClient := stripepay.NewClient(cfg.Stripe)
	prodigiClient := prodigi.NewClient(cfg.Prodigi)
	resendClient := resend.NewClient(cfg.Resend)
	geminiClient := gemini.NewClient(cfg.Gemini)

	storybookSvc := storybook.NewService(
		postgres.NewStorybookRepo(db),
		geminiClient,
		storage.NewImageStore(store),
		comp,
	)
	cartSvc := cart.NewService(
		postgres.NewCartRepo(db),
		postgres.NewStorybookRepo(db),
		cart.Pricing{
			DigitalCents:  cfg.Pricing.DigitalCents,
			Print6x9Cents: cfg.Pricing.Print6x9Cents,
			Print8x8Cents: cfg.Pricing.Print8x8Cents,
			ShippingCents: cfg.Pricing.ShippingCents,
		},
	)
	orderSvc := order.NewService(postgres.NewOrderRepo(db), stripeClient, resendClient)

	receiver, err := worker.NewWebhookReceiver(db)
	if err != nil {
		log.Fatalf("Failed to initialize webhook receiver: %v", err)
	}
	defer receiver.Close()

	handlers := api.NewHandlers(storybookSvc, cartSvc, orderSvc, store, cfg)
	handlers.SetStripeClient(stripeClient)
	handlers.SetProdigiClient(prodigiClient)
	handlers.SetEventStager(receiver)

	sessions := api.NewSessionManager(cfg.Server)
	router := api.SetupRoutes(handlers, sessions)

	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-done
	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifeMins) * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
