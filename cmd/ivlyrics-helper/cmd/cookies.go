package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ivlis-studio/ivlyrics-helper/internal/config"
)

var cookiesCmd = &cobra.Command{
	Use:   "cookies",
	Short: "Manage the cookies.txt file used for age-restricted videos",
}

var cookiesSetCmd = &cobra.Command{
	Use:   "set <path>",
	Short: "Install a Netscape cookies.txt file",
	Long: `Copy the given cookies.txt file into the helper's data directory and
record it in the configuration. It is tried first when a video turns out to
be age-restricted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := config.NewManager(config.ConfigPath())
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		jarPath := config.CookieJarPath()
		if err := copyFile(args[0], jarPath); err != nil {
			return fmt.Errorf("installing cookies file: %w", err)
		}

		if err := manager.Update(func(cfg *config.App) {
			cfg.CookiesFile = jarPath
		}); err != nil {
			return fmt.Errorf("saving configuration: %w", err)
		}

		fmt.Printf("Cookies file installed at %s\n", jarPath)
		return nil
	},
}

var cookiesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the installed cookies.txt file",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := config.NewManager(config.ConfigPath())
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		if err := os.Remove(config.CookieJarPath()); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing cookies file: %w", err)
		}

		if err := manager.Update(func(cfg *config.App) {
			cfg.CookiesFile = ""
		}); err != nil {
			return fmt.Errorf("saving configuration: %w", err)
		}

		fmt.Println("Cookies file removed")
		return nil
	},
}

var cookiesStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a cookies.txt file is installed",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := config.NewManager(config.ConfigPath())
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		path := manager.Snapshot().CookiesFile
		if path == "" {
			fmt.Println("No cookies file configured")
			return nil
		}
		if _, err := os.Stat(path); err != nil {
			fmt.Printf("Cookies file configured at %s but missing on disk\n", path)
			return nil
		}
		fmt.Printf("Cookies file installed at %s\n", path)
		return nil
	},
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(config.DataDir(), 0o755); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

func init() {
	cookiesCmd.AddCommand(cookiesSetCmd)
	cookiesCmd.AddCommand(cookiesClearCmd)
	cookiesCmd.AddCommand(cookiesStatusCmd)
	rootCmd.AddCommand(cookiesCmd)
}
