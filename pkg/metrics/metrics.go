package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gold_analyses_total",
			Help: "Total number of market analyses produced",
		},
		[]string{"symbol", "level"},
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gold_analysis_duration_seconds",
			Help:    "Time spent producing one market analysis",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"symbol"},
	)

	CompositeScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gold_composite_score",
			Help: "Latest composite score per symbol",
		},
		[]string{"symbol"},
	)

	FetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gold_fetch_errors_total",
			Help: "Upstream data fetch failures",
		},
		[]string{"source"},
	)

	LLMCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gold_llm_calls_total",
			Help: "LLM calls by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gold_notifications_total",
			Help: "Signal notifications by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gold_websocket_clients",
			Help: "Currently connected websocket clients",
		},
	)
)
