package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"tasktracker/internal/api"
	"tasktracker/internal/config"
	"tasktracker/internal/ui"
	"tasktracker/internal/viewmodel"
)

var (
	configPath string
	apiURL     string
	rootCmd    *cobra.Command
)

func init() {
	rootCmd = &cobra.Command{
		Use:           "todo",
		Short:         "Task tracker with smart insights",
		Long:          "todo is a terminal client for a remote task service. Run `todo serve` to start the bundled service.",
		RunE:          runClient,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/tasktracker/config.toml)")
	rootCmd.Flags().StringVar(&apiURL, "api-url", "", "base URL of the task service (overrides api_url)")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		path = config.ResolveConfigPath()
	}
	cfg, err := config.LoadOrCreate(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func runClient(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	// The terminal belongs to the UI, so logs go to a file.
	logger := log.New()
	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	logger.SetOutput(logFile)
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	client, err := api.New(cfg.APIURL, cfg.RequestTimeout())
	if err != nil {
		return err
	}
	logger.WithField("api_url", cfg.APIURL).Info("starting client")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := viewmodel.NewStore(client, logger)
	if err := ui.Run(ctx, store, cfg); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}
