package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mjgrid/internal/recording"
	"github.com/roach88/mjgrid/internal/testutil"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
	require.NoError(t, err)
	return s
}

func TestRun_Growth(t *testing.T) {
	result, err := Run(loadTestScenario(t, "growth"))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "scenario-growth", result.RunID)
	assert.Equal(t, 16, result.Steps)
	assert.True(t, result.Completed)
	assert.Equal(t, map[string]int{"B": 0, "W": 16}, result.Counts)
	assert.Len(t, result.Frames, 16, "initial state plus one frame per write")
	assert.Equal(t, recording.Hash(result.Frames[len(result.Frames)-1].State), result.Hash)
}

func TestRun_Paint(t *testing.T) {
	result, err := Run(loadTestScenario(t, "paint"))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, 10, result.Steps)
	assert.Equal(t, "RRR\nRRR\nRRR\n", result.Grid)
}

func TestRun_StepLimit(t *testing.T) {
	s := loadTestScenario(t, "growth")
	s.MaxSteps = 5
	s.Assertions = []Assertion{{Type: AssertNoMatches}}

	result, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, 5, result.Steps)
	assert.False(t, result.Completed)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "stopped at step limit after 5 steps")
}

func TestRun_FailedAssertionsAreCollected(t *testing.T) {
	s := loadTestScenario(t, "growth")
	exact := 3
	s.Assertions = []Assertion{
		{Type: AssertSteps, Steps: &exact},
		{Type: AssertCount, Counts: map[string]int{"W": 1}},
		{Type: AssertCell, X: 0, Y: 0, Char: "B"},
	}

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "Expected: 3 steps")
	assert.Contains(t, result.Errors[1], "Actual: 16 × W")
	assert.Contains(t, result.Errors[2], "Actual: W at (0,0,0)")
}

func TestRun_ModelCompileError(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "bad.cue", `model: {values: "BW", root: {kind: "teleport"}}`)
	path := testutil.WriteFile(t, dir, "bad.yaml", `
name: bad
description: "Model with an unknown node kind"
model: bad.cue
assertions: [{type: no_matches}]
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)

	_, err = Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load model")
	assert.Contains(t, err.Error(), "unknown node kind")
}

func TestRun_SeedChangesNothingForDeterministicModel(t *testing.T) {
	a := loadTestScenario(t, "paint")
	b := loadTestScenario(t, "paint")
	b.Seed = 99

	ra, err := Run(a)
	require.NoError(t, err)
	rb, err := Run(b)
	require.NoError(t, err)

	assert.Equal(t, ra.Hash, rb.Hash, "both seeds paint the whole grid")
}
