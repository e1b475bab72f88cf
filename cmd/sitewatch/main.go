// Package main is the sitewatch command line tool.
//
// Usage:
//
//	sitewatch cycle [--user ID] [--json]   # run one check cycle
//	sitewatch probe URL                    # probe a URL without touching the store
//	sitewatch sites [--user ID]            # list monitored sites
//	sitewatch version
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/sitewatch/internal/app"
	"github.com/hamed0406/sitewatch/internal/config"
	"github.com/hamed0406/sitewatch/internal/logging"
)

// set via -ldflags "-X main.version=..."
var (
	version = "dev"
	commit  = "none"
)

var rootCmd = &cobra.Command{
	Use:   "sitewatch",
	Short: "Check monitored websites and alert owners when they go down",
	Long: `sitewatch probes every monitored website (HEAD, then GET as a fallback),
stores the new status and emails the owner when a site goes from Up to Down.

Configuration comes from the environment (DATABASE_URL, FROM_EMAIL,
RESEND_API_KEY, ...) or from sitewatch.yaml.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "sitewatch %s (%s)\n", version, commit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config. Commands that do not touch the store pass
// needStore=false and tolerate a missing DATABASE_URL.
func loadConfig(needStore bool) (config.Config, *zap.Logger, error) {
	cfg, err := config.FromEnv()
	if err != nil && (needStore || !errors.Is(err, config.ErrMissingDatastore)) {
		return cfg, nil, err
	}
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel, logging.WithStdout(cfg.LogStdout))
	if err != nil {
		return cfg, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, logger, nil
}

func openContainer(ctx context.Context) (*app.Container, func(), error) {
	cfg, logger, err := loadConfig(true)
	if err != nil {
		return nil, nil, err
	}
	c, err := app.New(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return c, func() {
		if err := c.Close(); err != nil {
			logger.Warn("close_error", zap.Error(err))
		}
		_ = logger.Sync()
	}, nil
}
