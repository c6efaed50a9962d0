package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"reviews_dashboard/internal/config"
	"reviews_dashboard/internal/scheduler"
	"reviews_dashboard/internal/server"
	"reviews_dashboard/internal/session"
	"reviews_dashboard/pkg/logger"
	"reviews_dashboard/pkg/metrics"
)

func main() {
	// 1. Load configuration
	cfg := config.MustLoad()

	// 2. Init structured logger (zap based)
	log := logger.New(cfg.LogLevel)
	defer logger.Sync(log)

	log.Infow("starting reviews-dashboard", "version", cfg.Version)

	// 3. Root context with graceful shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 4. Expose Prometheus metrics endpoint
	metricsSrv := metrics.MustServe(cfg.MetricsAddr, log)

	// 5. In-memory session manager; sessions expire after idle TTL
	manager := session.NewManager(session.Endpoints{
		WBBaseURL:     cfg.WBBaseURL,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIModel:   cfg.OpenAIModel,
		OrdersBaseURL: cfg.OrdersBaseURL,
		FetchTake:     cfg.FetchTake,
		WBRateRPS:     cfg.WBRateRPS,
		WBRateBurst:   cfg.WBRateBurst,
	}, cfg.SessionTTL, log)

	janitor := scheduler.New(time.Minute, manager.Sweep, log)
	go janitor.Run(ctx)

	// 6. Auto-connect a bootstrap session when both tokens are preloaded
	// via env (.env development convenience)
	if cfg.WBToken != "" && cfg.OpenAIKey != "" {
		sess, err := manager.Connect(ctx, session.Credentials{
			WBToken:     cfg.WBToken,
			OpenAIKey:   cfg.OpenAIKey,
			OrdersToken: cfg.OrdersToken,
		})
		if err != nil {
			log.Warnw("bootstrap session connect failed", "err", err)
		} else {
			log.Infow("bootstrap session ready", "token", sess.Token)
		}
	}

	// 7. Dashboard API server
	srv := server.New(manager, cfg.CORSOrigins, log)
	httpSrv := srv.HTTPServer(cfg.ListenAddr)
	go func() {
		log.Infow("dashboard api listening", "addr", cfg.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("api server failed", "err", err)
		}
	}()

	// 8. Wait for termination signal
	<-ctx.Done()
	log.Info("shutdown signal received, shutting down ...")

	// 9. Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	janitor.Shutdown()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warnw("api server shutdown error", "err", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Warnw("metrics server shutdown error", "err", err)
	}

	log.Info("bye")
}
