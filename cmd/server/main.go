package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/config"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/infra"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/repository"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/router"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: pretty in dev, JSON in prod
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	if cfg.MigrationsEnabled {
		if err := infra.RunMigrations(db); err != nil {
			log.Fatal().Err(err).Msg("failed to apply migrations")
		}
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := infra.NewMetrics("palazzo")

	// Worker processors are wired here (composition root) so the pool has
	// access to every infrastructure dependency.
	mailer := infra.NewMailer(cfg)
	var sender worker.AlertSender
	if mailer.Enabled() {
		sender = mailer
	}
	cbCfg := infra.DefaultCBConfig()
	cbCfg.OnStateChange = func(from, to infra.CBState) {
		metrics.SetCircuitOpen(to == infra.CBOpen)
		log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("mailer circuit breaker")
	}
	mailerCB := infra.NewCircuitBreaker(cbCfg)

	purchaseRepo := repository.NewPurchaseRepository(db)
	productRepo := repository.NewProductRepository(db)

	dispatcher := worker.NewDispatcher(rdb)
	pool := worker.NewPool(rdb, metrics)
	pool.Register(worker.JobReceipt, worker.NewReceiptWorker(purchaseRepo, cfg.StoreName, cfg.ReceiptStoragePath))
	pool.Register(worker.JobStockAlert, worker.NewStockAlertWorker(productRepo, sender, mailerCB, cfg.AlertEmail))
	pool.Start(ctx, cfg.WorkerPoolSize)

	r := router.New(ctx, cfg, db, rdb, metrics, dispatcher)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("inventory backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
