package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 摄取与对话核心指标
var (
	DocumentsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatbot_documents_ingested_total",
		Help: "Number of documents successfully ingested into the vector index.",
	})

	ChunksIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatbot_chunks_ingested_total",
		Help: "Number of chunks upserted into the vector index.",
	})

	IngestionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatbot_ingestion_failures_total",
		Help: "Number of ingestion attempts that failed on a collaborator call.",
	})

	ChatTurns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatbot_chat_turns_total",
		Help: "Number of processed chat turns.",
	})

	GenerationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatbot_generation_failures_total",
		Help: "Number of turns answered with the fallback message because generation failed.",
	})

	RetrievalFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatbot_retrieval_failures_total",
		Help: "Number of retrieval calls that degraded to empty context.",
	})

	RetrievalDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chatbot_retrieval_duration_seconds",
		Help:    "Latency of embed-and-search retrieval calls.",
		Buckets: prometheus.DefBuckets,
	})

	GenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chatbot_generation_duration_seconds",
		Help:    "Latency of generative model calls.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})
)
