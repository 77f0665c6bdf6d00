package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	blocksApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chaindex_blocks_applied_total",
		Help: "Number of blocks fully committed by the pipeline.",
	})
	blocksRolledBack = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chaindex_blocks_rolled_back_total",
		Help: "Number of blocks undone by a reorg rollback.",
	})
	txsCommitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chaindex_txs_committed_total",
		Help: "Number of exchange transactions committed, by type.",
	}, []string{"type"})
	txsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chaindex_txs_rejected_total",
		Help: "Number of exchange transactions rejected by validation.",
	})
	dealsSettled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chaindex_deals_settled_total",
		Help: "Number of deals committed to the ledger.",
	})
)
