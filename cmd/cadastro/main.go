package main

import (
	"fmt"
	"os"

	"cadastro/internal/config"
	"cadastro/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose    bool
	configPath string

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cadastro",
	Short: "Registration form server and its browser smoke test",
	Long: `cadastro serves the /cadastro registration form backed by SQLite and
drives a real Chrome through it as a smoke test.

  cadastro serve            # listen on 127.0.0.1:8000
  cadastro smoke            # fill and submit the form in a headless browser
  cadastro users list       # show registered users
  cadastro articles list    # show blog articles`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", configPath, err)
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level, cfg.Logging.Format)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.Initialize(logger, cfg.Logging.Categories)
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			logging.BootWarn("config %s not found, using defaults", configPath)
		} else {
			logging.BootDebug("config loaded from %s", configPath)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logging.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file")

	usersCmd.AddCommand(usersListCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(smokeCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(articlesCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
