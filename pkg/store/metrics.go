package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gptree_store_reads_total",
		Help: "Total thread document reads.",
	})
	writes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gptree_store_writes_total",
		Help: "Total thread document writes.",
	})
	writeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gptree_store_write_failures_total",
		Help: "Total thread document writes that failed at the storage layer.",
	})
	statusRegressionsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gptree_store_status_regressions_skipped_total",
		Help: "Error-status writes skipped because the message was already completed.",
	})
)
