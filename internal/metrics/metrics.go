// Package metrics provides Prometheus metrics for the viewer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Feature-info lookup outcomes.
const (
	OutcomeFeatures = "features"
	OutcomeEmpty    = "empty"
	OutcomeStale    = "stale"
	OutcomeError    = "error"
)

var (
	FeatureInfoLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wmsview_featureinfo_lookups_total",
			Help: "GetFeatureInfo lookups by outcome",
		},
		[]string{"layer", "outcome"},
	)

	FeatureInfoDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wmsview_featureinfo_duration_seconds",
			Help:    "GetFeatureInfo round trip time in seconds",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"layer"},
	)

	LayerToggles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wmsview_layer_toggles_total",
			Help: "Layer overlays attached or detached",
		},
		[]string{"layer", "action"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wmsview_sessions_active",
			Help: "Number of live viewer sessions",
		},
	)

	FlowFrames = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wmsview_flow_frames_total",
			Help: "Flow animation frames rendered",
		},
	)
)
