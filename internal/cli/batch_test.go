package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeeds(t *testing.T) {
	tests := []struct {
		in   string
		want []uint64
	}{
		{"7", []uint64{7}},
		{"1-3", []uint64{1, 2, 3}},
		{"1,5,9-11", []uint64{1, 5, 9, 10, 11}},
		{" 4 , 2 ", []uint64{4, 2}},
		{"3-3", []uint64{3}},
		{"2,2", []uint64{2, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSeeds(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSeeds_Invalid(t *testing.T) {
	for _, in := range []string{"", "a", "1,,2", "5-2", "1-x", "-3", "0-200000"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseSeeds(in)
			assert.Error(t, err)
		})
	}
}

func TestBatchJSON(t *testing.T) {
	model := writeGrowthModel(t)

	buf := &bytes.Buffer{}
	cmd := NewBatchCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{model, "--seeds", "1-6", "--jobs", "3"})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string      `json:"status"`
		Data   BatchResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "growth", resp.Data.Model)
	assert.Equal(t, 6, resp.Data.Total)
	assert.Zero(t, resp.Data.Limited)
	require.Len(t, resp.Data.Runs, 6)

	first := resp.Data.Runs[0]
	for i, r := range resp.Data.Runs {
		assert.Equal(t, uint64(i+1), r.Seed, "results keep seed order")
		assert.Equal(t, 16, r.Steps)
		assert.True(t, r.Completed)
		assert.Equal(t, first.Hash, r.Hash, "every seed fills the grid")
	}
}

func TestBatchMatchesSingleRun(t *testing.T) {
	model := writeGrowthModel(t)

	runBuf := &bytes.Buffer{}
	runCmd := NewRunCommand(&RootOptions{Format: "json"})
	runCmd.SetOut(runBuf)
	runCmd.SetErr(&bytes.Buffer{})
	runCmd.SetArgs([]string{model, "--seed", "4", "--steps", "5"})
	require.NoError(t, runCmd.Execute())

	var single struct {
		Data RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(runBuf.Bytes(), &single))

	batchBuf := &bytes.Buffer{}
	batchCmd := NewBatchCommand(&RootOptions{Format: "json"})
	batchCmd.SetOut(batchBuf)
	batchCmd.SetErr(&bytes.Buffer{})
	batchCmd.SetArgs([]string{model, "--seeds", "4", "--steps", "5"})
	require.NoError(t, batchCmd.Execute())

	var batch struct {
		Data BatchResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(batchBuf.Bytes(), &batch))
	require.Len(t, batch.Data.Runs, 1)
	assert.Equal(t, single.Data.Hash, batch.Data.Runs[0].Hash)
	assert.False(t, batch.Data.Runs[0].Completed)
	assert.Equal(t, 1, batch.Data.Limited)
}

func TestBatchText(t *testing.T) {
	model := writeGrowthModel(t)

	buf := &bytes.Buffer{}
	cmd := NewBatchCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{model, "--seeds", "1,2", "--steps", "2"})

	require.NoError(t, cmd.Execute())
	out := buf.String()
	assert.Contains(t, out, "SEED")
	assert.Contains(t, out, "(limit)")
	assert.Contains(t, out, "2 runs, 2 stopped at the step limit")
}

func TestBatchInvalidFlags(t *testing.T) {
	model := writeGrowthModel(t)

	tests := []struct {
		name string
		args []string
	}{
		{"bad seeds", []string{model, "--seeds", "x"}},
		{"zero jobs", []string{model, "--jobs", "0"}},
		{"missing model", []string{"/nonexistent/model.cue"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewBatchCommand(&RootOptions{Format: "text"})
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}
