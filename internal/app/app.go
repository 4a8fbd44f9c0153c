// Package app assembles the services both binaries share from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"idcard/internal/cards"
	"idcard/internal/config"
	"idcard/internal/exportcache"
	"idcard/internal/gallery"
	"idcard/internal/prerender"
	"idcard/internal/queue"
	"idcard/internal/raster"
	"idcard/internal/render"
	"idcard/internal/store"
)

// App is the wired dependency graph.
type App struct {
	Config   config.App
	Log      *zap.Logger
	KV       store.KV
	Cards    *cards.Repository
	Cache    *exportcache.Cache
	Renderer *render.Renderer
	Exporter *raster.Exporter
	Queue    queue.Queue
	Redis    *store.Redis

	closers []func() error
}

// New opens the store, rasterizer and queue named in cfg.
func New(ctx context.Context, cfg config.App, log *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	kv, err := store.Open(ctx, store.Options{
		Backend:     cfg.StoreBackend,
		Dir:         cfg.StoreDir,
		RedisAddr:   cfg.RedisAddr,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
	})
	if err != nil {
		if kv != nil {
			_ = kv.Close()
		}
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}
	a.KV = kv
	a.closers = append(a.closers, kv.Close)
	log.Info("store ready", zap.String("backend", cfg.StoreBackend))

	a.Cards = cards.NewRepository(kv, cfg.StorageKey, log.Named("cards"))
	a.Cache = exportcache.New(kv, a.Cards.Key())
	a.Renderer = render.NewRenderer(render.Branding{
		SchoolName:   cfg.SchoolName,
		Subtitle:     cfg.Subtitle,
		AcademicYear: cfg.AcademicYear,
		Motto:        cfg.Motto,
	})

	rz, err := a.rasterizer(cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Exporter = raster.NewExporter(a.Renderer, rz, log.Named("export"))
	log.Info("rasterizer ready", zap.String("backend", rz.Name()))

	switch cfg.QueueBackend {
	case "memory", "":
		a.Queue = queue.NewInMemory(64)
	case "redis":
		if r, ok := kv.(*store.Redis); ok {
			a.Redis = r
		} else {
			a.Redis = store.NewRedis(cfg.RedisAddr)
			a.closers = append(a.closers, a.Redis.Close)
		}
		a.Queue = queue.NewRedisQueue(a.Redis.Client, cfg.QueueKey)
	default:
		_ = a.Close()
		return nil, fmt.Errorf("unknown queue backend %q", cfg.QueueBackend)
	}
	return a, nil
}

func (a *App) rasterizer(cfg config.App) (raster.Rasterizer, error) {
	switch cfg.RasterBackend {
	case "native", "":
		return raster.NewNative()
	case "browser":
		b := raster.NewBrowser(cfg.BrowserBin, cfg.BrowserControlURL, a.Log.Named("browser"))
		a.closers = append(a.closers, b.Close)
		return b, nil
	default:
		return nil, fmt.Errorf("unknown raster backend %q", cfg.RasterBackend)
	}
}

// InProcessWorker reports whether the API process must run the pre-render
// worker itself because nobody else can read its queue.
func (a *App) InProcessWorker() bool {
	_, ok := a.Queue.(*queue.InMemory)
	return ok
}

// Gallery builds the saved-cards gallery over this app's services.
func (a *App) Gallery() *gallery.Gallery {
	return gallery.New(a.Cards, a.Exporter, a.Cache, a.Log.Named("gallery"))
}

// Worker builds the pre-render worker over this app's services.
func (a *App) Worker() *prerender.Worker {
	return prerender.New(a.Cards, a.Exporter, a.Cache, a.Log.Named("worker"))
}

// Close releases everything New opened, last opened first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
