package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/logger/pkg/logger"
	"github.com/cwrk-planet/presence-service/config"
	"github.com/cwrk-planet/presence-service/internal/metrics"
	"github.com/cwrk-planet/presence-service/internal/postgres"
	"github.com/cwrk-planet/presence-service/internal/ratelimit"
	"github.com/cwrk-planet/presence-service/internal/relay"
	"github.com/cwrk-planet/presence-service/internal/security"
	"github.com/cwrk-planet/presence-service/internal/service"
	httpx "github.com/cwrk-planet/presence-service/internal/transport/http"
	"github.com/cwrk-planet/presence-service/internal/transport/ws"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting presence-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	ctx := context.Background()

	// --- postgres (опционально) ---
	var historySvc *service.HistoryService
	if cfg.Postgres.DSN != "" {
		db, err := postgres.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer db.Close()
		historySvc = service.NewHistoryService(postgres.NewMessageRepository(db.Pool))
	} else {
		slog.Warn("postgres.dsn is empty, message history disabled")
	}

	// --- jwt verifier (опционально) ---
	var verifier *security.Verifier
	if cfg.Auth.PublicKeyPath != "" {
		pub, err := security.LoadRSAPublicKeyFromPEM(cfg.Auth.PublicKeyPath)
		if err != nil {
			log.Fatalf("auth public key: %v", err)
		}
		verifier = security.NewVerifier(pub, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.Skew())
	}

	// --- relay core ---
	m := metrics.New(nil)
	limiter := ratelimit.New(cfg.WS.MessageRPS, cfg.WS.MessageBurst)
	var store relay.Appender
	if historySvc != nil {
		store = historySvc
	}
	core := relay.New(store, limiter, m, nil)

	// --- WS + HTTP ---
	wsServer := ws.NewServer(core, verifier, cfg.HTTP.AllowedOrigin, cfg.WS.PingEvery())
	handler := httpx.NewHandler(historySvc, core)
	router := httpx.NewRouter(handler, wsServer, cfg.HTTP.AllowedOrigin)
	httpSrv := &http.Server{
		Addr:        cfg.HTTP.Addr,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// сначала живые WS: их закрытие прогоняет сверку presence/typing
	core.Shutdown()
	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
