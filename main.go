package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cryptoview/pricewatch/config"
	"github.com/cryptoview/pricewatch/core"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "pricewatch",
	Short: "Crypto watch-list backend with a price badge",
	Long: `pricewatch tracks a list of coins against a public price API, keeps a
badge for the pinned coin up to date and serves everything over HTTP.

Examples:
  pricewatch serve --config config.yaml
  pricewatch badge
  pricewatch settings show
`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background refreshers",
	RunE:  runServe,
}

var badgeCmd = &cobra.Command{
	Use:   "badge",
	Short: "Refresh the badge once and print the result",
	RunE:  runBadge,
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect stored user settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current settings as JSON",
	RunE:  runSettingsShow,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	settingsCmd.AddCommand(settingsShowCmd)
	rootCmd.AddCommand(serveCmd, badgeCmd, settingsCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to defaults when it does not exist
func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.LoadConfig(configPath)
}

func setup() (*core.App, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("error loading config: %w", err)
	}
	logger, err := core.NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	app, err := core.Setup(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return app, logger, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	app, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Registry.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start services: %w", err)
	}
	logger.Info("services started")

	<-ctx.Done()
	logger.Info("received shutdown signal, stopping services")
	app.Registry.StopAll()
	return nil
}

func runBadge(cmd *cobra.Command, args []string) error {
	app, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	defer app.Store.Close()

	res := app.Refresher.Refresh(cmd.Context())
	out := map[string]interface{}{
		"outcome": res.Outcome,
		"coinId":  res.CoinID,
		"badge":   res.Badge,
	}
	if res.Err != nil {
		out["error"] = res.Err.Error()
	}
	return printJSON(cmd, out)
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	app, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	defer app.Store.Close()

	current, err := app.Settings.Load(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd, current)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
