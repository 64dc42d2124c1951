// Package metrics declares the Prometheus collectors of the GSQL engine.
//
// Collectors register with the default registry on first import. Callers
// update them directly; nothing here is exported over HTTP.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Status label values.
const (
	Ok   = "ok"
	Fail = "fail"
)

var (
	StatementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gsql_statements_total",
		Help: "Cumulative number of executed statements, by kind and status.",
	}, []string{"kind", "status"})

	StatementDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gsql_statement_duration_seconds",
		Help:    "Statement execution latency.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{"kind"})

	TransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gsql_transactions_total",
		Help: "Cumulative number of finished transactions, by outcome.",
	}, []string{"outcome"})

	BufferPoolOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gsql_buffer_pool_operations_total",
		Help: "Buffer pool operations (hit, miss, put, evict, invalidate).",
	}, []string{"op"})

	RecoveryAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gsql_recovery_attempts_total",
		Help: "Recovery cascade steps attempted, by stage and status.",
	}, []string{"stage", "status"})

	LockRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gsql_lock_retries_total",
		Help: "Statements retried after lock contention.",
	})

	BackupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gsql_backups_total",
		Help: "Backups written, by status.",
	}, []string{"status"})
)

// Status maps an error to the status label.
func Status(err error) string {
	if err != nil {
		return Fail
	}
	return Ok
}
