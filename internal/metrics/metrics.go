// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CardsSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "idcard_cards_saved_total",
		Help: "Cards persisted to the record store.",
	})

	CardsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "idcard_cards_deleted_total",
		Help: "Delete requests applied to the record store.",
	})

	// Exports is labelled by source (preview, gallery, api, worker) and result (ok, error).
	Exports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "idcard_exports_total",
		Help: "Card rasterizations by source and result.",
	}, []string{"source", "result"})

	ExportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "idcard_export_duration_seconds",
		Help:    "Time spent rasterizing a card.",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"backend"})

	FormRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "idcard_form_rejections_total",
		Help: "Form actions blocked by validation.",
	}, []string{"reason"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "idcard_rate_limited_total",
		Help: "Requests rejected by the rate limiter.",
	})
)
