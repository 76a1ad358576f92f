package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AnneNgarachu/fitness16/internal/config"
	"github.com/AnneNgarachu/fitness16/internal/domain/ports/adapter"
	pg "github.com/AnneNgarachu/fitness16/internal/infra/db/postgres"
	"github.com/AnneNgarachu/fitness16/internal/infra/logging"
	"github.com/AnneNgarachu/fitness16/internal/infra/metrics"
	"github.com/AnneNgarachu/fitness16/internal/infra/mpesa"
	red "github.com/AnneNgarachu/fitness16/internal/infra/redis"
	"github.com/AnneNgarachu/fitness16/internal/infra/sched"
	"github.com/AnneNgarachu/fitness16/internal/infra/web"
	"github.com/AnneNgarachu/fitness16/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (bypass gateway)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// Missing gateway credentials are the recognized local/dev posture.
	dev := cfg.Runtime.Dev || !cfg.Payment.Mpesa.Configured()
	if dev {
		logger.Warn().Msg("developer mode: gateway calls are skipped, payments stay pending")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect")
	}
	defer pool.Close()

	// ---- Redis (optional: only needed for the multi-replica rollover lock) ----
	var locker red.Locker
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connect")
		}
		defer redisClient.Close()
		locker = red.NewLocker(redisClient)
	}

	// ---- Repositories ----
	payRepo := pg.NewPaymentRepo(pool)
	memRepo := pg.NewMembershipRepo(pool)
	auditRepo := pg.NewSecurityLogRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Gateway ----
	var gateway adapter.MpesaGateway
	if !dev {
		gateway = mpesa.NewDarajaGateway(cfg.Payment.Mpesa)
	}

	// ---- Use cases ----
	production := cfg.Payment.Mpesa.Env == "production"
	paymentUC := usecase.NewPaymentUseCase(payRepo, gateway, dev, logger)
	callbackUC := usecase.NewCallbackUseCase(payRepo, memRepo, auditRepo, txManager, production, logger)
	queueUC := usecase.NewQueueUseCase(memRepo, payRepo, gateway, dev, logger)
	rolloverUC := usecase.NewRolloverUseCase(memRepo, logger)
	auditUC := usecase.NewAuditUseCase(auditRepo, logger)

	// ---- Rollover worker ----
	worker := sched.NewRolloverWorker(cfg.Scheduler.RolloverInterval, rolloverUC, locker, logger)
	go func() {
		if err := worker.Run(ctx); err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("rollover worker stopped")
		}
	}()

	// ---- HTTP ----
	auth := web.NewAuthManager(cfg.Auth.JWTSecret, 30*time.Minute)
	server := web.NewServer(paymentUC, callbackUC, queueUC, rolloverUC, auditUC, auth, cfg.Scheduler.CronSecret, logger)
	go func() {
		if err := server.Start(cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	// ---- Graceful shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
