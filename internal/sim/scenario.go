package sim

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "30s" or "2m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\"")
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Scenario is a YAML file describing a sequence of experiments to run,
// as an alternative to the built-in catalog.
type Scenario struct {
	Experiments []Experiment `yaml:"experiments"`
}

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected so typos fail loudly instead of silently running defaults.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file %s: %w", path, err)
	}

	if len(s.Experiments) == 0 {
		return nil, fmt.Errorf("scenario file %s defines no experiments", path)
	}
	for i := range s.Experiments {
		if s.Experiments[i].Name == "" {
			s.Experiments[i].Name = strconv.Itoa(i + 1)
		}
		if err := s.Experiments[i].Validate(); err != nil {
			return nil, err
		}
	}
	return &s, nil
}
