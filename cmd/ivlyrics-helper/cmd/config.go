package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivlis-studio/ivlyrics-helper/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the helper configuration",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(config.ConfigPath())
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := config.NewManager(config.ConfigPath())
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		data, err := json.MarshalIndent(manager.Snapshot(), "", "  ")
		if err != nil {
			return fmt.Errorf("encoding configuration: %w", err)
		}
		fmt.Println(string(data))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
