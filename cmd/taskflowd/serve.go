package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vnykmshr/taskflow/internal/gateway"
	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/config"
	"github.com/vnykmshr/taskflow/pkg/logger"
	"github.com/vnykmshr/taskflow/pkg/metrics"
	"github.com/vnykmshr/taskflow/pkg/scheduling/manager"
	"github.com/vnykmshr/taskflow/pkg/sharedstate"
	"github.com/vnykmshr/taskflow/pkg/sharedstate/rediscache"
	"github.com/vnykmshr/taskflow/pkg/taskservice"
)

func newServeCommand() *cobra.Command {
	v := config.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the worker pools and the HTTP gateway",
		Long: `Start the worker pools and the HTTP gateway.

Configuration is read from defaults, then the optional YAML file given with
--config, then TASKFLOW_* environment variables (e.g. TASKFLOW_SERVER_ADDR),
then command-line flags.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ReadFile(v, configFile); err != nil {
				return err
			}
			cfg, err := config.Decode(v)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configFile, "config", "c", "", "Path to YAML configuration file")
	flags.String("addr", "", "HTTP listen address (overrides server.addr)")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	_ = v.BindPFlag("server.addr", flags.Lookup("addr"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))

	return cmd
}

// app holds the wired components of a running daemon.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	prom    *prometheus.Registry
	state   *sharedstate.State
	manager *manager.Manager
	gateway *gateway.Server
	redis   redis.UniversalClient
}

// build wires every component from cfg without starting the HTTP listener.
func build(cfg *config.Config, log *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: log}

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		a.prom = prometheus.NewRegistry()
		a.prom.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		reg = metrics.Config{Enabled: true, Registry: a.prom}.Build()
	}

	st, err := sharedstate.New(cfg.State, sharedstate.WithLogger(log), sharedstate.WithMetrics(reg))
	if err != nil {
		return nil, fmt.Errorf("shared state: %w", err)
	}
	a.state = st

	m, err := manager.New(cfg.Pools, manager.WithLogger(log), manager.WithMetrics(reg))
	if err != nil {
		return nil, fmt.Errorf("worker pools: %w", err)
	}
	a.manager = m

	svc, err := taskservice.New(m, st, cfg.Tasks, log)
	if err != nil {
		_ = m.Shutdown(0)
		return nil, fmt.Errorf("task service: %w", err)
	}

	var cache gateway.CacheBackend
	if cfg.Cache.Backend == config.CacheRedis {
		a.redis = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Cache.RedisAddr},
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		rc, err := rediscache.New(rediscache.Config{
			Redis:   a.redis,
			Prefix:  cfg.Cache.Prefix,
			TTL:     cfg.Cache.TTL,
			Metrics: reg,
		})
		if err != nil {
			_ = m.Shutdown(0)
			_ = a.redis.Close()
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		if err := rc.Ping(context.Background()); err != nil {
			log.Warn("redis not reachable yet, cache requests will fail until it is", zap.Error(err))
		}
		cache = rc
	}

	if err := startJobs(m, st, cfg.Jobs, log); err != nil {
		_ = m.Shutdown(0)
		return nil, fmt.Errorf("background jobs: %w", err)
	}

	opts := gateway.Options{Cache: cache, Logger: log, MetricsPath: cfg.Metrics.Path}
	if a.prom != nil {
		opts.Gatherer = a.prom
	}
	a.gateway = gateway.New(svc, m, st, opts)

	return a, nil
}

// close drains the pools and releases external connections.
func (a *app) close() error {
	err := a.manager.Shutdown(a.cfg.Server.DrainTimeout)
	if a.redis != nil {
		_ = a.redis.Close()
	}
	return err
}

func serve(ctx context.Context, cfg *config.Config) error {
	if err := logger.Init(cfg.Log); err != nil {
		return err
	}
	log := logger.Get()
	defer func() { _ = logger.Sync() }()

	a, err := build(cfg, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      a.gateway,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("signal received, shutting down")
	case err := <-serveErr:
		if err != nil {
			log.Error("server failed", zap.Error(err))
		}
	}

	httpCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(httpCtx); err != nil {
		log.Warn("http shutdown incomplete", zap.Error(err))
	}

	if err := a.close(); err != nil {
		if errors.Is(err, tferrors.ErrShutdownForced) {
			log.Warn("tasks were cancelled during shutdown", zap.Error(err))
			return nil
		}
		return err
	}
	return nil
}
