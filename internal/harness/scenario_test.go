package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mjgrid/internal/testutil"
)

// writeScenario writes a model and a scenario next to it and returns the
// scenario path.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "model.cue", `model: {values: "BW", size: [2, 2], root: {kind: "one", rules: [{in: "B", out: "W"}]}}`)
	return testutil.WriteFile(t, dir, "test.yaml", content)
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
model: model.cue
seed: 42
max_steps: 10
assertions:
  - type: steps
    max: 10
  - type: count
    counts: {W: 4}
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "model.cue"), scenario.Model, "model resolves against the scenario file")
	assert.Equal(t, uint64(42), scenario.Seed)
	assert.Equal(t, 10, scenario.MaxSteps)
	require.Len(t, scenario.Assertions, 2)
	require.NotNil(t, scenario.Assertions[0].Max)
	assert.Equal(t, 10, *scenario.Assertions[0].Max)
	assert.Equal(t, map[string]int{"W": 4}, scenario.Assertions[1].Counts)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: "Misspelled assertions key"
model: model.cue
assertion:
  - type: no_matches
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
description: "d"
model: model.cue
assertions: [{type: no_matches}]
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			content: `
name: n
model: model.cue
assertions: [{type: no_matches}]
`,
			wantErr: "description is required",
		},
		{
			name: "missing model",
			content: `
name: n
description: "d"
assertions: [{type: no_matches}]
`,
			wantErr: "model is required",
		},
		{
			name: "model not found",
			content: `
name: n
description: "d"
model: other.cue
assertions: [{type: no_matches}]
`,
			wantErr: "model not found",
		},
		{
			name: "no assertions",
			content: `
name: n
description: "d"
model: model.cue
assertions: []
`,
			wantErr: "assertions",
		},
		{
			name: "negative max_steps",
			content: `
name: n
description: "d"
model: model.cue
max_steps: -1
assertions: [{type: no_matches}]
`,
			wantErr: "max_steps",
		},
		{
			name: "unknown assertion type",
			content: `
name: n
description: "d"
model: model.cue
assertions: [{type: trace_contains}]
`,
			wantErr: `assertions[0].type: unknown value "trace_contains"`,
		},
		{
			name: "steps without bound",
			content: `
name: n
description: "d"
model: model.cue
assertions: [{type: steps}]
`,
			wantErr: "assertions[0]: steps or max is required",
		},
		{
			name: "steps with both bounds",
			content: `
name: n
description: "d"
model: model.cue
assertions: [{type: steps, steps: 3, max: 4}]
`,
			wantErr: "steps and max are exclusive",
		},
		{
			name: "count without counts",
			content: `
name: n
description: "d"
model: model.cue
assertions: [{type: count}]
`,
			wantErr: "counts is required",
		},
		{
			name: "count key longer than one character",
			content: `
name: n
description: "d"
model: model.cue
assertions: [{type: count, counts: {WB: 1}}]
`,
			wantErr: "assertions[0].counts",
		},
		{
			name: "cell without char",
			content: `
name: n
description: "d"
model: model.cue
assertions: [{type: cell, x: 1}]
`,
			wantErr: "char is required",
		},
		{
			name: "negative cell coordinate",
			content: `
name: n
description: "d"
model: model.cue
assertions: [{type: cell, x: -1, char: W}]
`,
			wantErr: "assertions[0].x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	dir := t.TempDir()
	model := testutil.WriteFile(t, dir, filepath.Join("models", "m.cue"), `model: {values: "BW", root: {kind: "one", rules: [{in: "B", out: "W"}]}}`)
	path := testutil.WriteFile(t, dir, filepath.Join("scenarios", "s.yaml"), `
name: n
description: "d"
model: models/m.cue
assertions: [{type: no_matches}]
`)

	s, err := LoadScenarioWithBasePath(path, dir)
	require.NoError(t, err)
	assert.Equal(t, model, s.Model)
}

func TestLoadScenarios_SortedByFileName(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "growth", scenarios[0].Name)
	assert.Equal(t, "paint", scenarios[1].Name)
}

func TestLoadScenarios_ReportsFailingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: [\n"), 0644))

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
}
