package sim

import (
	"fmt"
)

// DefaultCommProbability is used when an experiment does not set one.
const DefaultCommProbability = 0.3

// Experiment describes one run's parameters.
type Experiment struct {
	// Name identifies the experiment and defaults the run identifier.
	Name string `yaml:"name"`

	// TickRates gives one rate per node. Empty means "random 1..6 for
	// each node", the classic skewed-clock setup.
	TickRates []int `yaml:"tick_rates,omitempty"`

	// CommProbability is the per-tick send probability. Zero means the
	// default of 0.3.
	CommProbability float64 `yaml:"comm_probability,omitempty"`

	// Duration overrides the runner's duration when non-zero.
	Duration Duration `yaml:"duration,omitempty"`
}

// Validate rejects parameter combinations the runner cannot execute.
func (e *Experiment) Validate() error {
	for i, r := range e.TickRates {
		if r < 1 {
			return fmt.Errorf("experiment %s: tick rate %d for node %d must be positive", e.Name, r, i)
		}
	}
	if e.CommProbability < 0 || e.CommProbability > 1 {
		return fmt.Errorf("experiment %s: communication probability %g outside [0,1]", e.Name, e.CommProbability)
	}
	if e.Duration < 0 {
		return fmt.Errorf("experiment %s: negative duration", e.Name)
	}
	return nil
}

// Catalog is the standard sweep over clock-rate skew and message rate:
// uniform rates, mild and extreme skew, each crossed with low to high
// communication probability.
var Catalog = []Experiment{
	{Name: "1"},
	{Name: "2", TickRates: []int{6, 4, 4}},
	{Name: "3", TickRates: []int{3, 3, 3}},
	{Name: "4", TickRates: []int{1, 3, 6}},
	{Name: "5", TickRates: []int{5, 3, 2}},
	{Name: "6", TickRates: []int{5, 3, 2}, CommProbability: 0.6},
	{Name: "7", TickRates: []int{3, 3, 3}, CommProbability: 0.9},
	{Name: "8", TickRates: []int{4, 4, 6}, CommProbability: 0.9},
	{Name: "9", TickRates: []int{1, 1, 6}, CommProbability: 0.9},
	{Name: "10", TickRates: []int{1, 4, 6}, CommProbability: 0.9},
	{Name: "11", TickRates: []int{5, 3, 2}, CommProbability: 0.9},
	{Name: "12", TickRates: []int{1, 3, 6}, CommProbability: 0.1},
	{Name: "13", TickRates: []int{1, 3, 6}, CommProbability: 0.3},
	{Name: "14", TickRates: []int{1, 3, 6}, CommProbability: 0.6},
	{Name: "15", TickRates: []int{1, 3, 6}, CommProbability: 0.9},
}

// CatalogExperiment returns the catalog entry with the given name.
func CatalogExperiment(name string) (Experiment, error) {
	for _, e := range Catalog {
		if e.Name == name {
			return e, nil
		}
	}
	return Experiment{}, fmt.Errorf("unknown experiment %q (catalog has 1..%d)", name, len(Catalog))
}
