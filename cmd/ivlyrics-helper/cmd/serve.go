package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ivlis-studio/ivlyrics-helper/internal/cache"
	"github.com/ivlis-studio/ivlyrics-helper/internal/config"
	"github.com/ivlis-studio/ivlyrics-helper/internal/credentials"
	"github.com/ivlis-studio/ivlyrics-helper/internal/download"
	"github.com/ivlis-studio/ivlyrics-helper/internal/extractor"
	internalhttp "github.com/ivlis-studio/ivlyrics-helper/internal/http"
	"github.com/ivlis-studio/ivlyrics-helper/internal/http/handlers"
	"github.com/ivlis-studio/ivlyrics-helper/internal/lyrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the helper daemon",
	Long: `Start the local HTTP server the ivLyrics extension talks to.

The server provides:
- /video/request for on-demand downloads with SSE progress
- /video/files/ for serving the cached videos
- /lyrics/ endpoints relaying synced lyrics and playback state`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().Int("port", 15123, "Port to listen on")
	serveCmd.Flags().String("config", "", "Config file path (default: per-user data directory)")

	mustBindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	mustBindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	mustBindPFlag("config_file", serveCmd.Flags().Lookup("config"))
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	cfgPath := viper.GetString("config_file")
	if cfgPath == "" {
		cfgPath = config.ConfigPath()
	}

	manager, err := config.NewManager(cfgPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	logger.Info("configuration loaded", "path", cfgPath)

	serverCfg := internalhttp.DefaultServerConfig()
	serverCfg.Host = viper.GetString("server.host")
	serverCfg.Port = viper.GetInt("server.port")

	snapshot := manager.Snapshot()
	store := cache.NewStore(
		snapshot.VideoDir(),
		func() int64 {
			snap := manager.Snapshot()
			return snap.MaxCacheBytes()
		},
		logger,
	)
	if err := store.EnsureDir(); err != nil {
		return fmt.Errorf("preparing cache directory: %w", err)
	}

	resolver := credentials.NewResolver(func() string {
		return manager.Snapshot().CookiesFile
	}, logger)

	supervisor := extractor.NewSupervisor(config.ExtractorPath(), store.Dir(), logger)
	coordinator := download.NewCoordinator(supervisor, resolver, store, serverCfg.BaseURL(), logger)
	lyricsStore := lyrics.NewStore()

	server := internalhttp.NewServer(serverCfg, logger)
	handlers.NewVideoHandler(coordinator, store, logger).Register(server.Router())
	handlers.NewLyricsHandler(lyricsStore, logger).Register(server.Router())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Fetch the extractor binary up front so the first video request does
	// not pay the install cost. Failure is not fatal; the coordinator
	// retries per request.
	go func() {
		ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()
		if err := supervisor.Ensure(ensureCtx); err != nil {
			logger.Warn("extractor provisioning failed, will retry on first request", "error", err)
		}
	}()

	scheduler := cron.New(cron.WithSeconds())
	schedule := manager.Snapshot().PruneSchedule
	if schedule == "" {
		schedule = config.DefaultPruneSchedule
	}
	if _, err := scheduler.AddFunc(schedule, func() {
		if err := store.Prune(); err != nil {
			logger.Warn("scheduled cache prune failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}
	scheduler.Start()
	defer scheduler.Stop()
	logger.Info("cache prune scheduled", "schedule", schedule)

	return server.ListenAndServe(ctx)
}
