package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mihaisavezi/llmpanel/internal/cache"
	"github.com/mihaisavezi/llmpanel/internal/config"
	"github.com/mihaisavezi/llmpanel/internal/executor"
	"github.com/mihaisavezi/llmpanel/internal/features"
	"github.com/mihaisavezi/llmpanel/internal/providers"
	"github.com/mihaisavezi/llmpanel/internal/storage"
	"github.com/mihaisavezi/llmpanel/internal/usage"
)

const (
	AppName = "llmpanel"
	Version = "0.3.0"
)

var (
	logger  = slog.New(slog.DiscardHandler)
	baseDir string
	cfgMgr  *config.Manager

	verbose   bool
	logFormat string
	quiet     bool
)

var rootCmd = &cobra.Command{
	Use:   AppName,
	Short: "Translate, polish and analyse text with any LLM provider",
	Long: `llmpanel sends text to one of ten LLM providers, retrying transient failures
and falling back to other models when one is rate limited or unavailable.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "hide retry and fallback notifications")
	rootCmd.PersistentFlags().StringVar(&baseDir, "dir", "", "settings directory (default ~/.llmpanel)")

	rootCmd.AddCommand(translateCmd, enhanceCmd, emailCmd, agentCmd)
	rootCmd.AddCommand(configCmd, providersCmd, historyCmd, feedbackCmd)
	rootCmd.AddCommand(serveCmd, startCmd, stopCmd, statusCmd)
}

func setup(_ *cobra.Command, _ []string) error {
	logger = newLogger(verbose, logFormat)

	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("get home directory: %w", err)
		}

		baseDir = filepath.Join(home, "."+AppName)
	}

	cfgMgr = config.NewManager(baseDir)

	if _, err := cfgMgr.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load settings: %w", err)
	}

	return nil
}

func newLogger(verbose bool, format string) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}

	handler := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})

	if verbose {
		handler.SetLevel(charmlog.DebugLevel)
	} else {
		handler.SetLevel(charmlog.WarnLevel)
	}

	return slog.New(handler)
}

// app is everything a command needs to run features.
type app struct {
	cfg      *config.Config
	registry *providers.Registry
	store    *storage.Store
	core     *features.Core
}

func newApp() (*app, error) {
	cfg := cfgMgr.Get()

	registry := providers.NewRegistry()
	registry.SetLogger(logger)
	registry.Initialize()
	registry.Restore(cfg)
	registry.SetStore(cfgMgr)

	store, err := storage.Open(filepath.Join(baseDir, storage.DefaultStateFilename))
	if err != nil {
		return nil, fmt.Errorf("open state: %w", err)
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	client := executor.NewClient(&http.Client{Timeout: timeout}, logger)

	var notifier executor.Notifier = cliNotifier{}
	if logFormat == "json" {
		notifier = executor.LogNotifier{Logger: logger}
	}

	opts := executor.DefaultOptions()
	opts.MaxRetries = cfg.MaxRetries
	opts.Fallback = cfg.Fallback()
	opts.ShowNotifications = !quiet

	core := features.NewCore(features.Config{
		Registry: registry,
		Executor: executor.New(registry, notifier, logger),
		Client:   client,
		Store:    store,
		Cache:    cache.New[any](cache.DefaultSize, cache.DefaultTTL),
		Counter:  usage.NewCounter(store, logger),
		Logger:   logger,
		Options:  opts,
	})

	return &app{cfg: cfg, registry: registry, store: store, core: core}, nil
}

// cliNotifier prints executor events as coloured status lines on stderr.
type cliNotifier struct{}

func (cliNotifier) Notify(e executor.Event) {
	switch e.Kind {
	case executor.EventRetry:
		color.New(color.FgYellow).Fprintf(os.Stderr, "⟳ %s/%s failed (%v), retrying in %s\n",
			e.Provider, e.Model, e.Err, e.Delay)
	case executor.EventFallback:
		color.New(color.FgCyan).Fprintf(os.Stderr, "↪ %s/%s unavailable, switching to %s/%s\n",
			e.Provider, e.Model, e.NextProvider, e.NextModel)
	case executor.EventExhausted:
		color.New(color.FgRed).Fprintf(os.Stderr, "✗ all models failed, last tried %s/%s\n",
			e.Provider, e.Model)
	}
}
