package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	reserveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stadion",
			Name:      "reserve_total",
			Help:      "Count of reserve attempts by outcome.",
		},
		[]string{"outcome"},
	)

	cancelTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stadion",
			Name:      "cancel_total",
			Help:      "Count of cancel attempts by actor and outcome.",
		},
		[]string{"actor", "outcome"},
	)

	blockToggled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stadion",
			Name:      "block_toggled_total",
			Help:      "Count of administrative slot block toggles.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(reserveTotal, cancelTotal, blockToggled)
	})
}

func IncReserve(outcome string) {
	reserveTotal.WithLabelValues(outcome).Inc()
}

func IncCancel(actor, outcome string) {
	cancelTotal.WithLabelValues(actor, outcome).Inc()
}

func IncBlockToggled() {
	blockToggled.Inc()
}
