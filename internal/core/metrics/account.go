package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every collector the service exports.
const Namespace = "accounts"

var (
	// Reconcile outcomes: linked, active, restored, created, failed.
	ReconcileTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "reconcile_total",
		Help:      "OAuth login reconciliations by outcome",
	}, []string{"provider", "outcome"})

	ReconcileConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "reconcile_conflicts_total",
		Help:      "Uniqueness conflicts recovered by re-running the matcher",
	})

	ProviderFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "provider_failures_total",
		Help:      "Identity provider exchanges that failed or timed out",
	}, []string{"provider"})

	UsernameAttempts = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "username_allocation_attempts",
		Help:      "Candidates checked per username allocation",
		Buckets:   []float64{1, 2, 3, 5, 8, 13},
	})

	DestroyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "destroy_total",
		Help:      "Account destructions by result",
	}, []string{"result"})

	MediaDeleteFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "media_delete_failures_total",
		Help:      "Blob deletions that failed, by kind (avatar, thumbnail)",
	}, []string{"kind"})
)

// Register registers the account metrics on reg (default registry when nil).
// Registering twice is not an error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		ReconcileTotal, ReconcileConflicts, ProviderFailures,
		UsernameAttempts, DestroyTotal, MediaDeleteFailures,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
