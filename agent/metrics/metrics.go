// Package metrics holds the process-wide Prometheus collectors for query handling.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "concierge"

var (
	ModelCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "model_calls_total",
		Help:      "Model gateway calls by backend and outcome.",
	}, []string{"backend", "outcome"})

	ModelLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "model_call_duration_seconds",
		Help:      "Model gateway call latency.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"backend"})

	RoutingDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "routing_decisions_total",
		Help:      "Router outcomes by specialist; fallback is true when the default was substituted.",
	}, []string{"specialist", "fallback"})

	ToolInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tool_invocations_total",
		Help:      "Tool calls by tool and outcome.",
	}, []string{"tool", "outcome"})

	LoopIterations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "tool_loop_iterations",
		Help:      "Model rounds used per tool-use loop.",
		Buckets:   prometheus.LinearBuckets(1, 1, 9),
	}, []string{"specialist"})

	RetrievalSearches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retrieval_searches_total",
		Help:      "Knowledge searches by mode (semantic or lexical).",
	}, []string{"mode"})

	QueriesHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queries_handled_total",
		Help:      "Queries handled by the orchestrator by outcome.",
	}, []string{"outcome"})
)
