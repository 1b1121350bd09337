package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mjgrid/internal/grid"
)

func TestContext_ChangesSince(t *testing.T) {
	ctx := &Context{Grid: grid.MustNew(3, 1, 1, "BW"), First: []int{0}}
	ctx.Record(0, 0, 0)
	ctx.NextTurn()
	ctx.Record(1, 0, 0)
	ctx.Record(2, 0, 0)

	assert.Equal(t, 1, ctx.Turn())
	assert.Equal(t, []Position{{1, 0, 0}, {2, 0, 0}}, ctx.ChangesSince(1))
	assert.Len(t, ctx.ChangesSince(0), 3)
	assert.Len(t, ctx.ChangesSince(-1), 3, "unknown turn returns everything")
	assert.Len(t, ctx.ChangesSince(7), 3)
}

func TestContext_SwapGridBumpsEpoch(t *testing.T) {
	ctx := &Context{Grid: grid.MustNew(1, 1, 1, "BW")}
	other := grid.MustNew(2, 2, 1, "BRW")
	ctx.SwapGrid(other)
	assert.Equal(t, 1, ctx.Epoch)
	assert.Same(t, other, ctx.Grid)
}

func TestContext_ResetLog(t *testing.T) {
	ctx := &Context{First: []int{0}}
	ctx.Record(0, 0, 0)
	ctx.NextTurn()
	ctx.resetLog()
	assert.Empty(t, ctx.Changes)
	assert.Equal(t, []int{0}, ctx.First)
}

func TestParseScale(t *testing.T) {
	tests := []struct {
		in      string
		want    [3]ScaleFactor
		wantErr bool
	}{
		{in: "2 2 1", want: [3]ScaleFactor{{2, 1}, {2, 1}, {1, 1}}},
		{in: "1/2 1/2 1", want: [3]ScaleFactor{{1, 2}, {1, 2}, {1, 1}}},
		{in: "2 2", wantErr: true},
		{in: "0 1 1", wantErr: true},
		{in: "1/0 1 1", wantErr: true},
		{in: "a 1 1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseScale(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScaleFactor_Apply(t *testing.T) {
	assert.Equal(t, 6, ScaleFactor{2, 1}.Apply(3))
	assert.Equal(t, 2, ScaleFactor{1, 2}.Apply(5))
	assert.Equal(t, "1/2", ScaleFactor{1, 2}.String())
	assert.Equal(t, "3", ScaleFactor{3, 1}.String())
}
