package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/adfharrison1/go-nosql/pkg/api"
	"github.com/adfharrison1/go-nosql/pkg/config"
	"github.com/adfharrison1/go-nosql/pkg/domain"
	"github.com/adfharrison1/go-nosql/pkg/logger"
	"github.com/adfharrison1/go-nosql/pkg/server"
	"github.com/adfharrison1/go-nosql/pkg/storage"
	"github.com/adfharrison1/go-nosql/pkg/wal"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the line protocol and HTTP servers",
		Example: `  go-nosql serve                              # Start with defaults
  go-nosql serve --port 9000 --workers 32     # Custom port and worker count
  go-nosql serve --config /etc/go-nosql.yaml  # Load settings from a file
  GONOSQL_WAL_DURABILITY=full go-nosql serve  # fsync every record`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "config file (default ./go-nosql.{yaml,json,toml} when present)")
	flags.String("data-dir", "data", "data directory for collections and the write-ahead log")
	flags.String("host", "", "listen host")
	flags.Int("port", 8888, "line protocol port")
	flags.Int("http-port", 8889, "HTTP API port")
	flags.Int("workers", server.DefaultWorkers, "maximum concurrent line protocol connections")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Bool("debug", false, "development logging")
	return cmd
}

// runServer wires the engine and both servers and blocks until a signal
// arrives or a server fails
func runServer(ctx context.Context, cfg *config.Config) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Debug)
	if err != nil {
		return err
	}
	defer log.Sync()

	engine, err := openEngine(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, engine.Close())
	}()

	if err := bootstrap(engine, cfg, log); err != nil {
		return err
	}

	lineServer, err := server.NewServer(engine, server.WithWorkers(cfg.Workers), server.WithLogger(log))
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           api.NewRouter(api.NewHandler(engine, log)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := lineServer.ListenAndServe(cfg.TCPAddr()); err != nil && !errors.Is(err, server.ErrServerClosed) {
			return fmt.Errorf("line server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Infow("http api listening", "addr", cfg.HTTPAddr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return multierr.Combine(
			httpServer.Shutdown(shutdownCtx),
			lineServer.Shutdown(shutdownCtx),
		)
	})

	err = g.Wait()
	log.Info("server exited")
	return err
}

func openEngine(cfg *config.Config, log *zap.SugaredLogger) (*storage.StorageEngine, error) {
	wlog, err := wal.Open(cfg.DataDir,
		wal.WithMaxFileSize(cfg.WAL.MaxFileSize),
		wal.WithDurability(cfg.Durability()),
		wal.WithArchiveSealed(cfg.WAL.ArchiveSealed),
		wal.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	engine, err := storage.NewStorageEngine(wlog, storage.WithDataDir(cfg.DataDir), storage.WithLogger(log))
	if err != nil {
		return nil, multierr.Append(err, wlog.Close())
	}
	log.Infow("storage engine ready",
		"data_dir", cfg.DataDir,
		"durability", cfg.Durability().String(),
		"max_file_size", cfg.WAL.MaxFileSize,
	)
	return engine, nil
}

// bootstrap creates the configured collections and indexes, then replays the
// write-ahead log so that indexes are filled as documents come back
func bootstrap(engine *storage.StorageEngine, cfg *config.Config, log *zap.SugaredLogger) error {
	names := append([]string{}, cfg.Collections...)
	for coll := range cfg.Indexes {
		names = append(names, coll)
	}
	for _, name := range names {
		result := engine.CreateCollection(name)
		if !result.Success && !result.Is(domain.ErrCollectionExists) {
			return fmt.Errorf("failed to create collection %s: %w", name, result.Error())
		}
	}

	for coll, fields := range cfg.Indexes {
		for _, field := range fields {
			if result := engine.CreateIndex(coll, field); !result.Success {
				return fmt.Errorf("failed to create index %s.%s: %w", coll, field, result.Error())
			}
		}
	}

	stats, err := engine.RecoverFromWAL()
	if err != nil {
		return err
	}
	log.Infow("recovered from write-ahead log",
		"files", stats.Files,
		"applied", stats.Applied,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"collections", len(engine.Collections()),
	)
	return nil
}
