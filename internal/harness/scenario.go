package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines one rewrite to run and the outcome it must produce.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Sources declares the outer query sources: item name -> item type.
	// An empty type is allowed.
	Sources map[string]string `yaml:"sources,omitempty"`

	// Input is the expression literal to rewrite.
	Input any `yaml:"input,omitempty"`

	// Model is a query model literal to rewrite. Mutually exclusive with
	// Input.
	Model any `yaml:"model,omitempty"`

	// Mapping maps source names to replacement expression literals.
	Mapping map[string]any `yaml:"mapping,omitempty"`

	// Strict makes unmapped references fail the rewrite.
	Strict bool `yaml:"strict,omitempty"`

	// Expect specifies the required outcome.
	Expect Expect `yaml:"expect"`
}

// Expect specifies the outcome of a scenario.
type Expect struct {
	// Output is the expected result literal.
	Output any `yaml:"output,omitempty"`

	// Error is a substring the rewrite error must contain.
	Error string `yaml:"error,omitempty"`

	// Unchanged requires the rewriter to return the input tree itself.
	Unchanged bool `yaml:"unchanged,omitempty"`

	// Replacements, if set, is the exact number of substituted references.
	Replacements *int `yaml:"replacements,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "expected:" vs "expect:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file in dir, sorted by file
// name. Scenario names must be unique.
func LoadScenarios(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	seen := make(map[string]string, len(paths))
	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		if prev, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s",
				filepath.Base(path), s.Name, filepath.Base(prev))
		}
		seen[s.Name] = path
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and consistent.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Input == nil && s.Model == nil:
		return fmt.Errorf("one of input or model is required")
	case s.Input != nil && s.Model != nil:
		return fmt.Errorf("input and model are mutually exclusive")
	}

	return validateExpect(&s.Expect)
}

func validateExpect(e *Expect) error {
	set := 0
	if e.Output != nil {
		set++
	}
	if e.Error != "" {
		set++
	}
	if e.Unchanged {
		set++
	}
	if set != 1 {
		return fmt.Errorf("expect: exactly one of output, error or unchanged is required")
	}
	if e.Replacements != nil {
		if *e.Replacements < 0 {
			return fmt.Errorf("expect.replacements must be non-negative, got %d", *e.Replacements)
		}
		if e.Error != "" {
			return fmt.Errorf("expect.replacements cannot be combined with expect.error")
		}
	}
	return nil
}

// Document returns the scenario as a document literal for document.Decode.
func (s *Scenario) Document() map[string]any {
	raw := map[string]any{}
	if len(s.Sources) > 0 {
		sources := make(map[string]any, len(s.Sources))
		for name, itemType := range s.Sources {
			sources[name] = itemType
		}
		raw["sources"] = sources
	}
	if s.Input != nil {
		raw["input"] = s.Input
	}
	if s.Model != nil {
		raw["model"] = s.Model
	}
	if len(s.Mapping) > 0 {
		raw["mapping"] = s.Mapping
	}
	if s.Strict {
		raw["strict"] = true
	}
	return raw
}
