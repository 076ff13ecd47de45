package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatroom-server/internal/auth"
	"github.com/vovakirdan/chatroom-server/internal/config"
	"github.com/vovakirdan/chatroom-server/internal/core"
	"github.com/vovakirdan/chatroom-server/internal/service/chats"
	"github.com/vovakirdan/chatroom-server/internal/service/requests"
	"github.com/vovakirdan/chatroom-server/internal/store"
	"github.com/vovakirdan/chatroom-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/chatroom-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	bridge          *core.Bridge
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.TokenTTL,
	}
	authService := auth.NewService(st, jwtConfig)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := core.NewMetrics(registry)

	bridge := core.NewBridge(st, core.BridgeConfig{
		QueueSize: cfg.PersistQueueSize,
		Workers:   cfg.PersistWorkers,
		Timeout:   cfg.PersistTimeout,
	}, metrics, logger)
	hub := core.NewHub(bridge, metrics, logger)

	server := transporthttp.NewServer(transporthttp.Deps{
		Hub:      hub,
		Auth:     authService,
		Store:    st,
		Requests: requests.New(st, hub),
		Chats:    chats.New(st, hub),
		Metrics:  metrics,
		Gatherer: registry,
	}, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		bridge:          bridge,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		a.hub.Run(hubCtx)
	}()
	bridgeCtx, stopBridge := context.WithCancel(context.Background())
	bridgeDone := make(chan struct{})
	go func() {
		defer close(bridgeDone)
		a.bridge.Run(bridgeCtx)
	}()

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	var runErr error
	select {
	case runErr = <-serverErr:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		// Shutdown does not wait for hijacked websocket connections; the hub closes them below.
		runErr = a.server.Shutdown(shutdownCtx)
		if err := <-serverErr; runErr == nil {
			runErr = err
		}
	}

	// Close live clients first, then drain queued messages before the store goes away.
	// A submit racing the drain is counted as a persist failure.
	stopHub()
	<-hubDone
	stopBridge()
	<-bridgeDone
	a.cleanup()
	return runErr
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
