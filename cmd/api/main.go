package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payrelay/internal/config"
	"payrelay/internal/core/reconcile"
	httpx "payrelay/internal/http"
	"payrelay/internal/metrics"
	"payrelay/internal/notify"
	"payrelay/internal/provider/paystack"
	"payrelay/internal/services/event"
	"payrelay/internal/services/payment"
	"payrelay/internal/store/cache"
	mongostore "payrelay/internal/store/mongo"
	"payrelay/internal/store/postgres"
	"payrelay/internal/store/repositories"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ledger
	pool := postgres.MustOpen(ctx, cfg.DB.DSN, cfg.StartupMaxWait)
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migrate fail")
	}
	paymentRepo := postgres.NewPaymentRepository(pool)
	eventRepo := postgres.NewEventRepository(pool)

	// Order catalog
	mongoClient := mongostore.MustConnect(ctx, cfg.Mongo.URI, cfg.StartupMaxWait)
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	orders := mongostore.NewOrderStore(mongoClient.Database(cfg.Mongo.Database))

	// Webhook dedup
	var dedup repositories.Deduper = cache.Noop{}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer rdb.Close()
		dedup = cache.NewRedisDeduper(rdb, cfg.Redis.DedupTTL)
	} else {
		log.Info().Msg("REDIS_ADDR not set, webhook dedup disabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Notifications
	publisher := notify.NewKafkaPublisher(cfg.Notify.Brokers, cfg.Notify.Timeout)
	dispatcher := notify.NewDispatcher(publisher, cfg.Notify.Queue, cfg.Notify.Timeout, m)

	gateway := paystack.New(paystack.Config{
		SecretKey:   cfg.Gateway.SecretKey,
		BaseURL:     cfg.Gateway.BaseURL,
		CallbackURL: cfg.Gateway.CallbackURL,
		Timeout:     cfg.Gateway.Timeout,
	})

	paymentSvc := payment.NewService(payment.Config{
		Currency:          cfg.Payment.Currency,
		MinorUnitExponent: cfg.Payment.MinorUnitExponent,
		GatewayTimeout:    cfg.Gateway.Timeout,
		IncludeContacts:   cfg.Notify.IncludeContacts,
		IncludeProducts:   cfg.Notify.IncludeProducts,
	}, paymentRepo, orders, gateway, dispatcher, m)
	processor := event.NewProcessor(gateway, eventRepo, dedup, paymentSvc, m)

	// Stale-pending sweep
	worker := reconcile.NewWorker(paymentSvc, cfg.Reconcile.PollInterval, cfg.Reconcile.StaleAfter, cfg.Reconcile.Batch)
	go worker.Run(ctx)

	r := httpx.NewRouter(httpx.RouterDependencies{
		Config:   cfg,
		Payments: paymentSvc,
		Webhooks: processor,
		Events:   processor,
		Gatherer: reg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Msgf("payrelay listening on :%s", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	cancel()

	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := dispatcher.Flush(ctx2); err != nil {
		log.Warn().Err(err).Msg("notifications still in flight at shutdown")
	}
	if err := publisher.Close(); err != nil {
		log.Error().Err(err).Msg("kafka close")
	}
	log.Info().Msg("server stopped")
}

func setupLogging(cfg config.Cfg) {
	level, err := zerolog.ParseLevel(cfg.App.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
