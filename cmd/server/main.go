// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/tactics-relay/internal/config"
	"github.com/jason-s-yu/tactics-relay/internal/conn"
	"github.com/jason-s-yu/tactics-relay/internal/gate"
	"github.com/jason-s-yu/tactics-relay/internal/handlers"
	"github.com/jason-s-yu/tactics-relay/internal/journal"
	"github.com/jason-s-yu/tactics-relay/internal/lobby"
	"github.com/jason-s-yu/tactics-relay/internal/metrics"
	"github.com/jason-s-yu/tactics-relay/internal/relay"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := logrus.New()

	cfg, err := config.Load(logger, "relay")
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	if err := cfg.Log.Apply(logger); err != nil {
		logger.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var j journal.Journal = journal.Noop{}
	if cfg.Redis.Addr != "" {
		rdb, err := journal.Connect(ctx, cfg.Redis.Addr, cfg.Redis.DB)
		if err != nil {
			logger.Fatalf("journal: %v", err)
		}
		defer rdb.Close()
		j = journal.NewRedis(rdb, cfg.Redis.Queue, logger)
		logger.WithFields(logrus.Fields{"addr": cfg.Redis.Addr, "queue": cfg.Redis.Queue}).Info("command journal enabled")
	}

	m := metrics.NewDefault()
	registry := conn.NewRegistry(logger)
	store := lobby.NewStore(logger,
		lobby.WithCodeGenerator(lobby.NanoidCodes(cfg.Lobby.CodeLength)),
		lobby.WithDefaultMap(cfg.Lobby.DefaultMap),
	)
	dispatcher := relay.New(logger, registry, store, gate.New(), j, m, relay.Options{
		InboxSize:        cfg.Relay.InboxSize,
		LegacyGameAction: cfg.Relay.LegacyGameAction,
	})

	staticDir := cfg.HTTP.StaticDir
	if _, err := os.Stat(staticDir); err != nil {
		logger.WithField("dir", staticDir).Warn("static directory missing, not serving assets")
		staticDir = ""
	}

	srv := &http.Server{
		Addr: cfg.HTTP.Addr(),
		Handler: handlers.SetupRoutes(logger, dispatcher, m, handlers.RouterConfig{
			HealthPath: cfg.HTTP.HealthPath,
			StaticDir:  staticDir,
			JWTSecret:  cfg.Auth.JWTSecret,
			WS: handlers.WSConfig{
				PingInterval: cfg.WS.PingInterval,
				WriteTimeout: cfg.WS.WriteTimeout,
				OutboxSize:   cfg.WS.OutboxSize,
				ReadLimit:    cfg.WS.ReadLimit,
			},
		}),
	}

	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	go func() {
		if err := dispatcher.Run(dispatchCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Error("relay dispatcher exited")
		}
	}()

	go func() {
		logger.Infof("Running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server exited: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("http shutdown")
	}

	// hijacked sockets are not covered by Shutdown
	registry.CloseAll()
	stopDispatch()
	<-dispatcher.Done()

	if err := j.Close(); err != nil {
		logger.WithError(err).Warn("journal close")
	}
	logger.Info("shut down gracefully")
}
