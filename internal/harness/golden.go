package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// ErrGoldenMismatch is returned by CheckGolden when the rendered grid
// differs from the stored one.
var ErrGoldenMismatch = errors.New("golden file mismatch")

// RunWithGolden executes a scenario and compares the final grid against a
// golden file. The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the grid doesn't match the golden file.
// Assertion failures are reported through t as well.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}

	AssertGolden(t, scenario.Name, result)
	return nil
}

// AssertGolden compares an existing result's grid against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, []byte(result.Grid))
}

// GoldenPath is where CheckGolden keeps the golden file of a scenario.
func GoldenPath(dir, scenarioName string) string {
	return filepath.Join(dir, "golden", scenarioName+".golden")
}

// CheckGolden compares the rendered grid with dir/golden/<name>.golden
// outside of go test. With update it writes the file instead. A missing
// golden file is not an error; it reports false.
func CheckGolden(dir, scenarioName string, result *Result, update bool) (bool, error) {
	path := GoldenPath(dir, scenarioName)
	if update {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return false, err
		}
		if err := os.WriteFile(path, []byte(result.Grid), 0644); err != nil {
			return false, err
		}
		return true, nil
	}

	want, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !bytes.Equal(want, []byte(result.Grid)) {
		return true, fmt.Errorf("%w: %s", ErrGoldenMismatch, path)
	}
	return true, nil
}
