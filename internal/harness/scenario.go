package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ioa/internal/engine"
	"github.com/roach88/ioa/internal/ioa"
)

// Scenario is one harness test.
type Scenario struct {
	// Name uniquely identifies this scenario; golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// Topology is the path of the topology file. LoadScenario resolves it
	// against the scenario's directory.
	Topology string `yaml:"topology"`

	// Scheduler is "cooperative" (the default) or "pool".
	Scheduler string `yaml:"scheduler,omitempty"`

	// Workers sizes the pool. Zero means the engine default.
	Workers int `yaml:"workers,omitempty"`

	// Timeout bounds the run, as a Go duration. Defaults to DefaultTimeout.
	Timeout string `yaml:"timeout,omitempty"`

	// RunID fixes the journal's run id. Defaults to testutil.DefaultRunID.
	RunID string `yaml:"run_id,omitempty"`

	// Assertions are checked against the journal after the run.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion checks one property of a run's journal.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Action is "automaton.action" (trace_count, deliveries).
	Action string `yaml:"action,omitempty"`

	// Count is the expected number (trace_count, deliveries).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected first-firing order (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Key is a bind key (bind_result).
	Key string `yaml:"key,omitempty"`

	// Result is the expected result code, e.g. BOUND (bind_result).
	Result string `yaml:"result,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceCount = "trace_count"
	AssertTraceOrder = "trace_order"
	AssertDeliveries = "deliveries"
	AssertBindResult = "bind_result"
)

// DefaultTimeout bounds a scenario run that does not set timeout.
const DefaultTimeout = 30 * time.Second

// LoadScenario reads a scenario file. Unknown fields are rejected, and the
// topology path is resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if s.Topology != "" && !filepath.IsAbs(s.Topology) {
		s.Topology = filepath.Join(filepath.Dir(path), s.Topology)
	}
	return s, nil
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// timeout returns the run bound; validateScenario has already parsed it.
func (s *Scenario) timeout() time.Duration {
	if s.Timeout == "" {
		return DefaultTimeout
	}
	d, _ := time.ParseDuration(s.Timeout)
	return d
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Topology == "" {
		return fmt.Errorf("topology is required")
	}

	switch s.Scheduler {
	case "", engine.KindCooperative, engine.KindPool:
	default:
		return fmt.Errorf("unknown scheduler %q", s.Scheduler)
	}
	if s.Workers < 0 {
		return fmt.Errorf("workers must be non-negative")
	}
	if s.Timeout != "" {
		d, err := time.ParseDuration(s.Timeout)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("timeout must be positive")
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceCount, AssertDeliveries:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for %s", index, a.Type)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertBindResult:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for bind_result", index)
		}
		if !knownBindCode(a.Result) {
			return fmt.Errorf("assertions[%d]: unknown bind result %q", index, a.Result)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func knownBindCode(s string) bool {
	for c := ioa.Bound; c <= ioa.OutputActionUnavailable; c++ {
		if c.String() == s {
			return true
		}
	}
	return false
}
