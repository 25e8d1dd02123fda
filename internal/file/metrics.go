package file

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "viyey_orchestration_steps_total",
		Help: "Orchestration steps by name and outcome.",
	}, []string{"step", "outcome"})

	compensationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "viyey_compensations_total",
		Help: "Compensating deletes of stored objects by result.",
	}, []string{"result"})
)

func countStep(step Step, outcome Outcome) {
	stepsTotal.WithLabelValues(string(step), string(outcome)).Inc()
}
