// Package main runs the chart pagination server:
// - REST and WebSocket APIs over the in-memory engine
// - UI sessions with their own isolated engines
// - Optional loading from PostgreSQL/ClickHouse and a Kafka update feed
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"chart-pager/internal/config"
	"chart-pager/internal/httpapi"
	"chart-pager/internal/ingestion"
	"chart-pager/internal/logging"
	"chart-pager/internal/observability"
	"chart-pager/internal/pagination"
	"chart-pager/internal/session"
	"chart-pager/internal/storage"
	chstore "chart-pager/internal/storage/clickhouse"
	"chart-pager/internal/storage/memory"
	"chart-pager/internal/storage/migrations"
	pgstore "chart-pager/internal/storage/postgres"
	"chart-pager/internal/wsapi"
)

// Server holds all components of the service.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	backend  *pagination.Service
	sessions *session.Manager
	loader   *ingestion.Loader
	consumer *ingestion.KafkaConsumer

	api        *httpapi.Server
	sockets    []*wsapi.Handler
	httpServer *http.Server
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source, cleanup, err := createSource(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("failed to create series source", zap.Error(err))
	}
	defer cleanup()

	server := newServer(cfg, source, logger)

	// Channel to signal completion
	done := make(chan struct{})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("received signal, initiating graceful shutdown", zap.String("signal", sig.String()))
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing immediate shutdown", zap.String("signal", sig.String()))
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Error("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = server.Run(ctx)
	close(done)

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// createSource opens the configured series source. A nil source disables
// the loader.
func createSource(ctx context.Context, cfg config.StorageConfig) (storage.SeriesSource, func(), error) {
	switch cfg.Backend {
	case config.BackendMemory:
		store, err := memory.LoadFile(cfg.MemoryFile)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil

	case config.BackendPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return pgstore.NewSeriesStore(pool), pool.Close, nil

	case config.BackendClickHouse:
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		return chstore.NewSeriesStore(conn), func() { conn.Close() }, nil

	default:
		return nil, func() {}, nil
	}
}

func newServer(cfg *config.Config, source storage.SeriesSource, logger *zap.Logger) *Server {
	s := &Server{cfg: cfg, logger: logger}

	s.backend = pagination.New(pagination.Config{
		ChunkThreshold: cfg.Engine.ChunkThreshold,
		Logger:         logger.Named("engine"),
	})

	if cfg.Session.Enabled {
		s.sessions = session.NewManager(session.Config{
			IdleTTL:        cfg.Session.IdleTTL,
			SweepInterval:  cfg.Session.SweepInterval,
			ChunkThreshold: cfg.Engine.ChunkThreshold,
			Logger:         logger.Named("session"),
		})
	}

	if source != nil {
		s.loader = ingestion.NewLoader(ingestion.LoaderOptions{
			Source:   source,
			Name:     cfg.Storage.Backend,
			Service:  s.backend,
			Interval: cfg.Loader.Interval,
			Logger:   logger.Named("loader"),
		})
	}

	if len(cfg.Kafka.Brokers) > 0 {
		s.consumer = ingestion.NewKafkaConsumer(ingestion.KafkaOptions{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		}, s.backend, logger.Named("kafka"))
	}

	s.api = httpapi.NewServer(httpapi.Options{
		Backend:      s.backend,
		Sessions:     s.sessions,
		Logger:       logger.Named("http"),
		DefaultCount: cfg.Engine.DefaultHistoryCount,
	})

	wsCfg := wsapi.DefaultConfig()
	wsCfg.PingInterval = cfg.WS.PingInterval
	wsCfg.SendBuffer = cfg.WS.SendBuffer
	wsCfg.DefaultCount = cfg.Engine.DefaultHistoryCount

	backendWS := wsapi.NewHandler(session.StaticLease(s.backend), &wsCfg, logger.Named("ws"))
	s.api.Handle("GET /ws/charts/{chartId}", backendWS)
	s.sockets = append(s.sockets, backendWS)
	if s.sessions != nil {
		sessionWS := wsapi.NewHandler(s.sessions.Lease("sessionId"), &wsCfg, logger.Named("ws"))
		s.api.Handle("GET /sessions/{sessionId}/ws/charts/{chartId}", sessionWS)
		s.sockets = append(s.sockets, sessionWS)
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           s.api,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}
	return s
}

// Run starts all components and blocks until ctx is cancelled or one fails.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting server",
		zap.String("addr", s.cfg.Server.Addr),
		zap.Int("chunk_threshold", s.backend.ChunkThreshold()),
		zap.String("storage", s.cfg.Storage.Backend),
	)

	errCh := make(chan error, 5)
	background := func(name string, run func(context.Context) error) {
		go func() {
			if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("%s: %w", name, err)
			}
		}()
	}

	if s.loader != nil {
		// A failed load leaves the API serving whatever did load.
		background("loader", func(ctx context.Context) error {
			if err := s.loader.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("series load failed", zap.Error(err))
			}
			return nil
		})
	}
	if s.consumer != nil {
		background("kafka consumer", s.consumer.Run)
		defer s.consumer.Close()
	}
	if s.sessions != nil {
		background("session sweeper", s.sessions.Run)
	}
	if addr := s.cfg.Server.MetricsAddr; addr != "" {
		background("metrics server", func(ctx context.Context) error {
			return serve(ctx, &http.Server{Addr: addr, Handler: observability.Handler()}, s.cfg.Server.ShutdownTimeout)
		})
	}

	go func() {
		err := serve(ctx, s.httpServer, s.cfg.Server.ShutdownTimeout)
		for _, h := range s.sockets {
			h.Close()
		}
		if err != nil {
			errCh <- fmt.Errorf("http server: %w", err)
			return
		}
		errCh <- ctx.Err()
	}()

	// The HTTP goroutine always reports once ctx is done.
	return <-errCh
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
