package raster

import (
	"context"
	"time"

	"go.uber.org/zap"

	"idcard/internal/metrics"
	"idcard/internal/render"
	"idcard/internal/student"
)

// Artifact is an exported card image.
type Artifact struct {
	Filename string
	PNG      []byte
}

// Exporter renders a record with a template and rasterizes the result.
type Exporter struct {
	Renderer   *render.Renderer
	Rasterizer Rasterizer
	Log        *zap.Logger
}

// NewExporter wires a renderer and rasterizer.
func NewExporter(r *render.Renderer, rz Rasterizer, log *zap.Logger) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{Renderer: r, Rasterizer: rz, Log: log}
}

// Export produces the download for rec. source labels metrics and logs.
func (e *Exporter) Export(ctx context.Context, source string, v render.Variant, rec student.Record, opts Options) (Artifact, error) {
	start := time.Now()
	png, err := e.rasterize(ctx, v, rec, opts)
	if err != nil {
		metrics.Exports.WithLabelValues(source, "error").Inc()
		e.Log.Error("error generating image",
			zap.String("source", source),
			zap.String("card_id", rec.ID),
			zap.String("template", string(v)),
			zap.Error(err))
		return Artifact{}, err
	}
	metrics.ExportDuration.WithLabelValues(e.Rasterizer.Name()).Observe(time.Since(start).Seconds())
	metrics.Exports.WithLabelValues(source, "ok").Inc()
	return Artifact{Filename: Filename(rec.Name), PNG: png}, nil
}

func (e *Exporter) rasterize(ctx context.Context, v render.Variant, rec student.Record, opts Options) ([]byte, error) {
	layout, err := e.Renderer.Render(v, rec)
	if err != nil {
		return nil, err
	}
	return e.Rasterizer.Rasterize(ctx, layout, opts)
}
