package storyteller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Generation outcomes used as the status label
const (
	statusSuccess   = "success"
	statusLoadError = "load_error"
	statusStreamErr = "stream_error"
	statusSaveError = "save_error"
	statusPanic     = "panic"
)

var (
	generationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadly_story_generations_total",
			Help: "Story generations by outcome.",
		},
		[]string{"status"},
	)

	chunksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "threadly_story_chunks_total",
			Help: "Streamed story chunks relayed to players.",
		},
	)

	generationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "threadly_story_generation_duration_seconds",
			Help:    "Time from launch to the final story event.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)
)
