// Package metrics exposes Prometheus instrumentation for the speech pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "babelroom_ws_connections",
		Help: "Currently open websocket connections.",
	})

	ActiveRecordingSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "babelroom_active_recording_sessions",
		Help: "Recording sessions with a live recognition stream.",
	})

	RecognitionRestarts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "babelroom_recognition_restarts_total",
		Help: "Transparent recognition stream restarts after recoverable errors.",
	})

	RecognitionFatalErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "babelroom_recognition_fatal_errors_total",
		Help: "Recognition failures surfaced to clients as speech errors.",
	})

	TranslationCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "babelroom_translation_calls_total",
		Help: "Translation invocations by outcome, one per distinct target language.",
	}, []string{"outcome"})

	TranslatedDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "babelroom_translated_deliveries_total",
		Help: "Translated messages delivered to recipients.",
	})

	SynthesisCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "babelroom_synthesis_cache_total",
		Help: "Synthesis cache lookups by result.",
	}, []string{"result"})

	AudioChunks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "babelroom_audio_chunks_total",
		Help: "Audio chunks accepted from clients.",
	})
)
