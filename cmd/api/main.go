package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"idcard/internal/app"
	"idcard/internal/auth"
	"idcard/internal/config"
	"idcard/internal/logging"
	"idcard/internal/page"
	"idcard/internal/web"
)

var (
	envFile string
	verbose bool
	logger  *zap.Logger
	cfg     config.App
)

var rootCmd = &cobra.Command{
	Use:   "idcard-api",
	Short: "Serve the student ID card generator",
	Long: `Serves the ID card generator page and JSON API.

With QUEUE_BACKEND=memory the export pre-render worker runs inside this
process; with QUEUE_BACKEND=redis run idcard-worker next to it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnvFile(envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
		cfg = config.Load()
		var err error
		logger, err = logging.New(cfg.Env, cfg.LogLevel, verbose)
		if err != nil {
			return err
		}
		for _, w := range cfg.Warnings {
			logger.Warn(w)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runHTTP(ctx)
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

func runHTTP(ctx context.Context) error {
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close", zap.Error(err))
		}
	}()

	deps := page.Deps{
		Store:    a.Cards,
		Exporter: a.Exporter,
		Gallery:  a.Gallery(),
		Queue:    a.Queue,
		Log:      logger.Named("page"),
	}
	s := &web.Server{
		Sessions: page.NewRegistry(deps, cfg.SessionTTL),
		Cards:    a.Cards,
		Exporter: a.Exporter,
		Gallery:  deps.Gallery,
		Queue:    a.Queue,
		Branding: a.Renderer.Branding,
		Checks:   map[string]web.HealthCheck{"store": a.KV.Healthy},
		Log:      logger.Named("http"),
	}
	if a.Redis != nil && a.Redis != a.KV {
		s.Checks["redis"] = a.Redis.Healthy
	}
	router, err := web.NewRouter(s, web.Options{
		Session: auth.SessionConfig{
			SigningKey: cfg.SessionSigningKey,
			Issuer:     cfg.SessionIssuer,
			TTL:        cfg.SessionTTL,
			Secure:     cfg.Production(),
		},
		RateLimitPerMin: cfg.RateLimitPerMin,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	if a.InProcessWorker() {
		g.Go(func() error { return a.Worker().Run(gctx, a.Queue) })
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		// give outstanding requests 10 seconds to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server forced shutdown", zap.Error(err))
		}
		return nil
	})

	err = g.Wait()
	logger.Info("server exited")
	return err
}
