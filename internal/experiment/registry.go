package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/armsim/internal/control"
	"github.com/san-kum/armsim/internal/dynamo"
	"github.com/san-kum/armsim/internal/integrators"
	"github.com/san-kum/armsim/internal/metrics"
)

// Implicit is the integration mode that keeps the engine's implicit drive
// update. Its factory returns a nil integrator.
const Implicit = "implicit"

// TargetParams carries everything a target source factory may need.
type TargetParams struct {
	// Start is the configuration the arm begins in.
	Start     dynamo.Vector
	Q         dynamo.Vector
	Duration  float64
	Waypoints []control.Waypoint
	Loop      bool
	Limits    []dynamo.JointLimit
}

// MetricParams carries the handles metric factories bind to.
type MetricParams struct {
	Energy    dynamo.EnergySource
	Limits    []dynamo.JointLimit
	Tolerance float64
}

type Registry struct {
	integrators map[string]func() dynamo.Integrator
	targets     map[string]func(TargetParams) (control.TargetSource, error)
	metrics     map[string]func(MetricParams) dynamo.Metric
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func() dynamo.Integrator),
		targets:     make(map[string]func(TargetParams) (control.TargetSource, error)),
		metrics:     make(map[string]func(MetricParams) dynamo.Metric),
	}

	r.integrators[Implicit] = func() dynamo.Integrator { return nil }
	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["semi-implicit"] = func() dynamo.Integrator { return integrators.NewSemiImplicitEuler() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }
	r.integrators["rk45"] = func() dynamo.Integrator { return integrators.NewRK45() }
	r.integrators["verlet"] = func() dynamo.Integrator { return integrators.NewVerlet() }
	r.integrators["leapfrog"] = func() dynamo.Integrator { return integrators.NewLeapfrog() }

	r.targets["constant"] = func(p TargetParams) (control.TargetSource, error) {
		q := p.Q
		if q == nil {
			q = p.Start
		}
		if q == nil {
			return nil, fmt.Errorf("%w: constant target needs qpos", dynamo.ErrConfiguration)
		}
		return control.NewConstant(q), nil
	}
	r.targets["ramp"] = func(p TargetParams) (control.TargetSource, error) {
		return control.NewRamp(p.Start, p.Q, p.Duration)
	}
	r.targets["waypoints"] = func(p TargetParams) (control.TargetSource, error) {
		return control.NewWaypoints(p.Start, p.Waypoints, p.Loop)
	}
	r.targets["manual"] = func(p TargetParams) (control.TargetSource, error) {
		q := p.Q
		if q == nil {
			q = p.Start
		}
		return control.NewManual(q, p.Limits)
	}

	r.metrics["tracking_error"] = func(MetricParams) dynamo.Metric { return metrics.NewTrackingError() }
	r.metrics["max_tracking_error"] = func(MetricParams) dynamo.Metric { return metrics.NewMaxTrackingError() }
	r.metrics["control_effort"] = func(MetricParams) dynamo.Metric { return metrics.NewControlEffort() }
	r.metrics["limit_violations"] = func(p MetricParams) dynamo.Metric {
		return metrics.NewLimitViolations(p.Limits, p.Tolerance)
	}
	r.metrics["energy"] = func(p MetricParams) dynamo.Metric { return metrics.NewEnergy(p.Energy) }
	r.metrics["energy_drift"] = func(p MetricParams) dynamo.Metric { return metrics.NewEnergyDrift(p.Energy) }

	return r
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown integrator: %s", dynamo.ErrConfiguration, name)
	}
	return fn(), nil
}

func (r *Registry) GetTarget(name string, p TargetParams) (control.TargetSource, error) {
	fn, ok := r.targets[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown target: %s", dynamo.ErrConfiguration, name)
	}
	return fn(p)
}

func (r *Registry) GetMetric(name string, p MetricParams) (dynamo.Metric, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown metric: %s", dynamo.ErrConfiguration, name)
	}
	if (name == "energy" || name == "energy_drift") && p.Energy == nil {
		return nil, fmt.Errorf("%w: metric %s needs an energy source", dynamo.ErrConfiguration, name)
	}
	return fn(p), nil
}

func (r *Registry) ListIntegrators() []string { return sortedKeys(r.integrators) }
func (r *Registry) ListTargets() []string     { return sortedKeys(r.targets) }
func (r *Registry) ListMetrics() []string     { return sortedKeys(r.metrics) }

// DefaultMetrics are the metrics every run reports.
func (r *Registry) DefaultMetrics() []string {
	return []string{"tracking_error", "max_tracking_error", "control_effort", "limit_violations"}
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
