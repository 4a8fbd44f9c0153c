package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"idcard/internal/app"
	"idcard/internal/config"
	"idcard/internal/logging"
)

var (
	envFile string
	verbose bool
	logger  *zap.Logger
)

// Worker consumes card events and keeps the gallery export cache warm.
var rootCmd = &cobra.Command{
	Use:          "idcard-worker",
	Short:        "Pre-render gallery downloads for saved cards",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnvFile(envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		var err error
		logger, err = logging.New(cfg.Env, cfg.LogLevel, verbose)
		if err != nil {
			return err
		}
		for _, w := range cfg.Warnings {
			logger.Warn(w)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()
		if a.InProcessWorker() {
			return errors.New("QUEUE_BACKEND=memory is only reachable from the API process; use redis")
		}
		if err := a.Worker().Run(ctx, a.Queue); err != nil {
			logger.Error("queue consume init failed", zap.Error(err))
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
