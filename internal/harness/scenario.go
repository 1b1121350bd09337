package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Scenario defines a model test: which model to run, under which seed and
// step limit, and what the run must satisfy.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name" validate:"required"`

	// Description explains what this scenario validates.
	Description string `yaml:"description" validate:"required"`

	// Model is the path of a CUE model file or directory. Relative paths
	// are resolved against the scenario file.
	Model string `yaml:"model" validate:"required"`

	// Seed drives every random choice of the run.
	Seed uint64 `yaml:"seed"`

	// MaxSteps caps the run. Zero runs until the model stops.
	MaxSteps int `yaml:"max_steps" validate:"gte=0"`

	// Assertions validate the finished run.
	// Supported types: steps, count, cell, no_matches, deterministic
	Assertions []Assertion `yaml:"assertions" validate:"required,min=1,dive"`
}

// Assertion validates one property of a finished run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "steps": the run took exactly Steps steps, or at most Max
	// - "count": every character in Counts occurs that many times
	// - "cell": the cell at (X, Y, Z) holds Char
	// - "no_matches": the run ended because nothing could apply
	// - "deterministic": a second run produces identical frames
	Type string `yaml:"type" validate:"required,oneof=steps count cell no_matches deterministic"`

	// Steps is the exact step count (used by steps).
	Steps *int `yaml:"steps,omitempty" validate:"omitempty,gte=0"`

	// Max is the largest acceptable step count (used by steps).
	Max *int `yaml:"max,omitempty" validate:"omitempty,gte=0"`

	// Counts maps single characters to occurrences (used by count).
	Counts map[string]int `yaml:"counts,omitempty" validate:"omitempty,dive,keys,len=1,endkeys,gte=0"`

	// X, Y, Z and Char locate and name the expected cell (used by cell).
	X    int    `yaml:"x,omitempty" validate:"gte=0"`
	Y    int    `yaml:"y,omitempty" validate:"gte=0"`
	Z    int    `yaml:"z,omitempty" validate:"gte=0"`
	Char string `yaml:"char,omitempty" validate:"omitempty,len=1"`
}

// Assertion type constants.
const (
	AssertSteps         = "steps"
	AssertCount         = "count"
	AssertCell          = "cell"
	AssertNoMatches     = "no_matches"
	AssertDeterministic = "deterministic"
)

// scenarioValidate checks struct tags. Field names in its errors are the
// YAML keys.
var scenarioValidate *validator.Validate

func init() {
	scenarioValidate = validator.New()
	scenarioValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the model path relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Reject unknown fields so "assertion:" vs "assertions:" is caught.
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Model != "" && !filepath.IsAbs(scenario.Model) && basePath != "" {
		scenario.Model = filepath.Join(basePath, scenario.Model)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every .yaml and .yml scenario in dir, sorted by file
// name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	scenarios := make([]*Scenario, 0, len(names))
	for _, name := range names {
		s, err := LoadScenario(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if err := scenarioValidate.Struct(s); err != nil {
		return validationError(err)
	}

	if _, err := os.Stat(s.Model); os.IsNotExist(err) {
		return fmt.Errorf("model not found: %s", s.Model)
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion checks the fields each assertion type needs.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertSteps:
		if a.Steps == nil && a.Max == nil {
			return fmt.Errorf("assertions[%d]: steps or max is required for steps", index)
		}
		if a.Steps != nil && a.Max != nil {
			return fmt.Errorf("assertions[%d]: steps and max are exclusive", index)
		}
	case AssertCount:
		if len(a.Counts) == 0 {
			return fmt.Errorf("assertions[%d]: counts is required for count", index)
		}
	case AssertCell:
		if a.Char == "" {
			return fmt.Errorf("assertions[%d]: char is required for cell", index)
		}
	}
	return nil
}

// validationError reports the first failed tag as "<field>: <problem>".
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "min":
		return fmt.Errorf("%s must be non-empty", field)
	case "oneof":
		return fmt.Errorf("%s: unknown value %q", field, fe.Value())
	default:
		return fmt.Errorf("%s: failed %s=%s", field, fe.Tag(), fe.Param())
	}
}
