package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"tasktracker/internal/server"
	"tasktracker/internal/storage"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the task service",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	store, err := storage.Open(cfg.Server.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	var rc *redis.Client
	if cfg.Server.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Server.RedisURL)
		if err != nil {
			return err
		}
		rc = redis.NewClient(opts)
		defer rc.Close()
	}

	logger := log.New()
	logger.SetLevel(log.GetLevel())
	cache := server.NewInsightsCache(rc, cfg.Server.InsightsTTL(), logger)
	e := server.New(server.NewHandlers(store, cache, cfg.Server.DueSoonDays, logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(log.Fields{"addr": addr, "db": cfg.Server.DBPath, "redis": rc != nil}).Info("serving")
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
