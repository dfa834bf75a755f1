package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bnema/fundcrawl/internal/domain"
)

var (
	metricSessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fundcrawl",
		Name:      "sessions_started_total",
		Help:      "Sessions started, by variant.",
	}, []string{"variant"})
	metricSessionsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fundcrawl",
		Name:      "sessions_finished_total",
		Help:      "Sessions that ended, by variant and outcome (completed, cancelled).",
	}, []string{"variant", "outcome"})
	metricItemsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fundcrawl",
		Name:      "items_settled_total",
		Help:      "Items and batches that reached a final state, by variant and outcome.",
	}, []string{"variant", "outcome"})
	metricSlotsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fundcrawl",
		Name:      "slots_resolved_total",
		Help:      "Collector slots resolved, by status.",
	}, []string{"status"})
	metricVisitsAbandoned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fundcrawl",
		Name:      "visits_abandoned_total",
		Help:      "Item visits force-completed because a new visit began or the session was cancelled.",
	})
	metricVisitsTimedOut = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fundcrawl",
		Name:      "visits_timed_out_total",
		Help:      "Item visits force-completed by the safety-net timer.",
	})
	metricIntentsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fundcrawl",
		Name:      "intents_emitted_total",
		Help:      "Outward intents emitted for the automation layer, by kind.",
	}, []string{"kind"})
)

func recordSessionStarted(variant domain.SessionVariant) {
	metricSessionsStarted.WithLabelValues(string(variant)).Inc()
}

func recordSessionFinished(variant domain.SessionVariant, outcome string) {
	metricSessionsFinished.WithLabelValues(string(variant), outcome).Inc()
}

func recordItemSettled(variant domain.SessionVariant, succeeded bool) {
	outcome := "completed"
	if !succeeded {
		outcome = "failed"
	}
	metricItemsSettled.WithLabelValues(string(variant), outcome).Inc()
}

func recordSlotResolved(status domain.SlotStatus) {
	metricSlotsResolved.WithLabelValues(status.String()).Inc()
}

func recordVisitForced(agg domain.VisitAggregate) {
	if agg.Abandoned {
		metricVisitsAbandoned.Inc()
	}
	if agg.TimedOut {
		metricVisitsTimedOut.Inc()
	}
}

func recordIntent(kind domain.IntentKind) {
	metricIntentsEmitted.WithLabelValues(string(kind)).Inc()
}
