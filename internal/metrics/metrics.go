// Package metrics exposes the service's prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ignite"

var (
	IdempotencyOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "idempotency",
		Name:      "outcomes_total",
		Help:      "Idempotent executions by outcome (executed, replayed, in_flight, conflict, failed).",
	}, []string{"outcome"})

	CollapseRounds = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "game",
		Name:      "collapse_rounds_total",
		Help:      "Collapse rounds applied, random and operator driven.",
	})

	Eliminations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "game",
		Name:      "eliminations_total",
		Help:      "Participants eliminated by collapsed cells.",
	})

	SessionsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "game",
		Name:      "sessions_resolved_total",
		Help:      "Sessions reaching the resolved state, by path (auto, operator).",
	}, []string{"path"})

	LedgerMovements = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "movements_total",
		Help:      "Ledger mutations by type.",
	}, []string{"type"})

	LedgerVolume = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "volume_cents_total",
		Help:      "Absolute amount moved through the ledger in cents, by type.",
	}, []string{"type"})

	SessionsArchived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "archive",
		Name:      "sessions_total",
		Help:      "Resolved sessions moved to the archive sink.",
	})
)
