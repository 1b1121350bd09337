package harness

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/mjgrid/internal/grid"
)

// AssertionError is returned when an assertion fails.
// It includes the final grid to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Grid     string // Rendered final grid for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Grid != "" {
		fmt.Fprintf(&buf, "\nFinal grid:\n")
		for _, line := range strings.Split(strings.TrimRight(e.Grid, "\n"), "\n") {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}

	return buf.String()
}

// AssertionContext carries what assertions need beyond the result.
type AssertionContext struct {
	// Grid is the final grid of the run.
	Grid grid.Ops

	// Rerun plays the scenario again from scratch.
	Rerun func() (*Result, error)
}

// EvaluateAssertions checks every assertion and returns the messages of
// those that failed. An empty slice means all passed.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	errs := []string{}
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertSteps:
			err = assertSteps(result, a)
		case AssertCount:
			err = assertCount(result, a)
		case AssertCell:
			err = assertCell(result, a, actx.Grid)
		case AssertNoMatches:
			err = assertNoMatches(result)
		case AssertDeterministic:
			err = assertDeterministic(result, actx.Rerun)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

// assertSteps checks the step count against an exact value or a maximum.
func assertSteps(result *Result, a Assertion) error {
	switch {
	case a.Steps != nil && result.Steps != *a.Steps:
		return &AssertionError{
			Type:     AssertSteps,
			Expected: fmt.Sprintf("%d steps", *a.Steps),
			Actual:   fmt.Sprintf("%d steps", result.Steps),
			Grid:     result.Grid,
		}
	case a.Max != nil && result.Steps > *a.Max:
		return &AssertionError{
			Type:     AssertSteps,
			Expected: fmt.Sprintf("at most %d steps", *a.Max),
			Actual:   fmt.Sprintf("%d steps", result.Steps),
			Grid:     result.Grid,
		}
	}
	return nil
}

// assertCount checks character occurrences in the final grid. Characters
// are checked in sorted order so the first mismatch is stable.
func assertCount(result *Result, a Assertion) error {
	chars := make([]string, 0, len(a.Counts))
	for ch := range a.Counts {
		chars = append(chars, ch)
	}
	sort.Strings(chars)

	for _, ch := range chars {
		want := a.Counts[ch]
		got, ok := result.Counts[ch]
		if !ok {
			return &AssertionError{
				Type:     AssertCount,
				Expected: fmt.Sprintf("%d × %s", want, ch),
				Actual:   fmt.Sprintf("%s is not in the alphabet", ch),
				Grid:     result.Grid,
			}
		}
		if got != want {
			return &AssertionError{
				Type:     AssertCount,
				Expected: fmt.Sprintf("%d × %s", want, ch),
				Actual:   fmt.Sprintf("%d × %s", got, ch),
				Grid:     result.Grid,
			}
		}
	}
	return nil
}

// assertCell checks the character at one position of the final grid.
func assertCell(result *Result, a Assertion, g grid.Ops) error {
	mx, my, mz := g.Dims()
	if a.X >= mx || a.Y >= my || a.Z >= mz {
		return &AssertionError{
			Type:     AssertCell,
			Expected: fmt.Sprintf("%s at (%d,%d,%d)", a.Char, a.X, a.Y, a.Z),
			Actual:   fmt.Sprintf("position outside %dx%dx%d grid", mx, my, mz),
			Grid:     result.Grid,
		}
	}

	got := "?"
	if ch, ok := g.Alphabet().Char(g.At(a.X + a.Y*mx + a.Z*mx*my)); ok {
		got = string(ch)
	}
	if got != a.Char {
		return &AssertionError{
			Type:     AssertCell,
			Expected: fmt.Sprintf("%s at (%d,%d,%d)", a.Char, a.X, a.Y, a.Z),
			Actual:   fmt.Sprintf("%s at (%d,%d,%d)", got, a.X, a.Y, a.Z),
			Grid:     result.Grid,
		}
	}
	return nil
}

// assertNoMatches checks that the run ended because its last step made no
// progress, not because it hit the step limit.
func assertNoMatches(result *Result) error {
	if !result.Completed {
		return &AssertionError{
			Type:     AssertNoMatches,
			Expected: "run ends with no applicable rule",
			Actual:   fmt.Sprintf("stopped at step limit after %d steps", result.Steps),
			Grid:     result.Grid,
		}
	}
	return nil
}

// assertDeterministic replays the scenario and compares every frame.
func assertDeterministic(result *Result, rerun func() (*Result, error)) error {
	if rerun == nil {
		return fmt.Errorf("deterministic: no rerun available")
	}
	again, err := rerun()
	if err != nil {
		return fmt.Errorf("deterministic: rerun failed: %w", err)
	}

	want, got := result.FrameHashes(), again.FrameHashes()
	if again.Steps != result.Steps || !slices.Equal(want, got) {
		return &AssertionError{
			Type:     AssertDeterministic,
			Expected: fmt.Sprintf("%d steps, %d frames, final %s", result.Steps, len(want), lastOf(want)),
			Actual:   fmt.Sprintf("%d steps, %d frames, final %s", again.Steps, len(got), lastOf(got)),
			Grid:     result.Grid,
		}
	}
	return nil
}

func lastOf(hashes []string) string {
	if len(hashes) == 0 {
		return "<none>"
	}
	return hashes[len(hashes)-1]
}
