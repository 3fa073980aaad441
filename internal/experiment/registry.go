package experiment

import (
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/nbodysim/internal/metrics"
)

// Registry maps metric names to constructors so runs can select them by
// name from the command line.
type Registry struct {
	metrics map[string]func() metrics.Metric
}

func NewRegistry() *Registry {
	r := &Registry{
		metrics: make(map[string]func() metrics.Metric),
	}

	r.metrics["kinetic_energy"] = func() metrics.Metric { return metrics.NewKinetic() }
	r.metrics["energy_drift"] = func() metrics.Metric { return metrics.NewEnergyDrift() }
	r.metrics["momentum"] = func() metrics.Metric { return metrics.NewMomentum() }
	r.metrics["com_shift"] = func() metrics.Metric { return metrics.NewCenterOfMassShift() }
	r.metrics["bounded"] = func() metrics.Metric { return metrics.NewBounded(100) }

	return r
}

func (r *Registry) GetMetric(name string) (metrics.Metric, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return fn(), nil
}

// ParseMetrics resolves a comma separated list. An empty list yields the
// defaults.
func (r *Registry) ParseMetrics(list string) ([]metrics.Metric, error) {
	if strings.TrimSpace(list) == "" {
		return metrics.Defaults(), nil
	}
	var out []metrics.Metric
	for _, name := range strings.Split(list, ",") {
		m, err := r.GetMetric(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *Registry) ListMetrics() []string {
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
