// Package telemetry holds the Prometheus collectors exported on /metrics.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nbody_steps_total",
			Help: "Total number of simulation steps executed",
		},
		[]string{"strategy"},
	)

	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nbody_step_duration_seconds",
			Help:    "Wall time of one force evaluation plus integration",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"strategy"},
	)

	Particles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nbody_particles",
			Help: "Current particle count",
		},
	)

	OctreeNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nbody_octree_nodes",
			Help: "Nodes in the most recent Barnes-Hut tree",
		},
	)

	OctreeDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nbody_octree_max_depth",
			Help: "Deepest level reached by the most recent Barnes-Hut tree",
		},
	)

	KineticEnergy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nbody_kinetic_energy",
			Help: "Total kinetic energy after the last step",
		},
	)

	Paused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nbody_paused",
			Help: "1 while the simulation is paused",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nbody_http_requests_total",
			Help: "HTTP requests served by the control API",
		},
		[]string{"route", "code"},
	)
)

// ObserveStep records one completed step.
func ObserveStep(strategy string, d time.Duration) {
	StepsTotal.WithLabelValues(strategy).Inc()
	StepDuration.WithLabelValues(strategy).Observe(d.Seconds())
}

func SetPaused(paused bool) {
	if paused {
		Paused.Set(1)
		return
	}
	Paused.Set(0)
}
