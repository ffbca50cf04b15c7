// Package cmd implements the CLI commands for ivlyrics-helper.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ivlis-studio/ivlyrics-helper/internal/config"
	"github.com/ivlis-studio/ivlyrics-helper/internal/observability"
	"github.com/ivlis-studio/ivlyrics-helper/internal/version"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "ivlyrics-helper",
	Short:   "Local companion daemon for the ivLyrics player extension",
	Version: version.Short(),
	Long: `ivlyrics-helper is a local-host daemon that bridges the ivLyrics music
player extension to an on-demand video library. It downloads requested
videos through yt-dlp into a size-bounded cache, streams download progress
over SSE, serves the cached files, and relays synced lyrics and playback
state between the extension and overlay clients.`,
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	cobra.OnInitialize(initEnv)

	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		return initLogging()
	}

	// Flags are not bound to viper; Changed() overrides preserve the
	// priority CLI flag > env var > default.
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format (text, json)")
}

// initEnv wires IVLYRICS_ environment variables into viper.
func initEnv() {
	viper.SetEnvPrefix("IVLYRICS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "json")
}

// initLogging configures the default slog logger.
func initLogging() error {
	level := viper.GetString("log_level")
	format := viper.GetString("log_format")

	if rootCmd.PersistentFlags().Changed("log-level") {
		level, _ = rootCmd.PersistentFlags().GetString("log-level")
	}
	if rootCmd.PersistentFlags().Changed("log-format") {
		format, _ = rootCmd.PersistentFlags().GetString("log-format")
	}

	level = strings.ToLower(level)
	if level == "warning" {
		level = "warn"
	}

	logger := observability.NewLoggerWithWriter(config.Logging{
		Level:  level,
		Format: strings.ToLower(format),
	}, os.Stderr)
	observability.SetDefault(logger)
	return nil
}

// mustBindPFlag binds a viper key to a cobra flag and panics if binding
// fails, which only happens on a programming error.
func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("failed to bind flag %q to key %q: %v", flag.Name, key, err))
	}
}
