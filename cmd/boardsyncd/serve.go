package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/lernhub/boardsync/internal/config"
	"github.com/lernhub/boardsync/pkg/docstore"
	"github.com/lernhub/boardsync/pkg/middleware"
	"github.com/lernhub/boardsync/pkg/room"
	"github.com/lernhub/boardsync/pkg/server"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		address    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the synchronization server",
		Long: `Start the WebSocket synchronization server.

Configuration is read from boardsync.json in the working directory
(or --config), with environment variables taking precedence.

Examples:
  boardsyncd serve
  boardsyncd serve --address=:9090
  boardsyncd serve --config=/etc/boardsync/boardsync.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, address)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to boardsync.json (default ./boardsync.json)")
	cmd.Flags().StringVarP(&address, "address", "a", "", "Listen address (overrides config)")

	return cmd
}

func runServe(configPath, address string) error {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return err
	}
	if address != "" {
		cfg.Address = address
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	roomCfg := &room.Config{
		SweepInterval: config.Duration(cfg.Room.SweepInterval, 0),
		IdleThreshold: config.Duration(cfg.Room.IdleThreshold, 0),
	}

	var metrics *middleware.Metrics
	if cfg.Metrics {
		metrics = middleware.NewMetrics()
		roomCfg.Hooks = metrics.Hooks()
	}

	manager := room.NewManager(roomCfg, logger)

	srvCfg := &server.Config{
		Address:        cfg.Address,
		ReadTimeout:    config.Duration(cfg.Server.ReadTimeout, 0),
		WriteTimeout:   config.Duration(cfg.Server.WriteTimeout, 0),
		PingInterval:   config.Duration(cfg.Server.PingInterval, 0),
		MaxMessageSize: cfg.Server.MaxMessageSize,
		SendQueueSize:  cfg.Server.SendQueueSize,
	}
	if cfg.Tracing {
		srvCfg.Middlewares = append(srvCfg.Middlewares, middleware.OpenTelemetry())
	}
	if metrics != nil {
		srvCfg.Middlewares = append(srvCfg.Middlewares, metrics.Handler)
	}
	srv := server.New(manager, srvCfg, logger)

	if metrics != nil {
		metrics.ObserveManager(manager)
		srv.Router().Handle("/metrics", promhttp.Handler())
	}

	store, err := newDocStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	srv.Router().Mount("/docs", docstore.Handler(store, logger))

	logger.Info("boardsyncd starting",
		"version", version,
		"address", cfg.Address,
		"docs_backend", cfg.Docs.Backend)

	return srv.Run()
}

// newDocStore builds the document storage backend named in the config.
func newDocStore(cfg *config.Config, logger *slog.Logger) (docstore.Store, error) {
	switch cfg.Docs.Backend {
	case "memory":
		return docstore.NewMemoryStore(), nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Docs.RedisAddr,
			Password: cfg.Docs.RedisPassword,
			DB:       cfg.Docs.RedisDB,
		})
		return docstore.NewRedisStore(client), nil

	case "s3":
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.Docs.S3Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.Docs.S3Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg)
		return docstore.NewS3Store(client, cfg.Docs.S3Bucket, cfg.Docs.S3Prefix), nil

	default:
		return nil, fmt.Errorf("unknown docs backend %q", cfg.Docs.Backend)
	}
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
