package compiler

import (
	"errors"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mjgrid/internal/engine"
	"github.com/roach88/mjgrid/internal/grid"
)

func compile(t *testing.T, src string) (*Model, error) {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	return CompileModel(v.LookupPath(cue.ParsePath("model")))
}

func mustCompile(t *testing.T, src string) *Model {
	t.Helper()
	m, err := compile(t, src)
	require.NoError(t, err)
	return m
}

func dims(g grid.Ops) [3]int {
	mx, my, mz := g.Dims()
	return [3]int{mx, my, mz}
}

func firstChild(t *testing.T, m *Model) engine.Node {
	t.Helper()
	root, ok := m.Root.(*engine.MarkovNode)
	require.True(t, ok, "root is %T", m.Root)
	require.NotEmpty(t, root.Children)
	return root.Children[0]
}

func TestCompileModel_Growth(t *testing.T) {
	m := mustCompile(t, `
		model: {
			name: "growth"
			values: "BW"
			size: [4, 4]
			origin: true
			root: {kind: "one", rules: [{in: "WB", out: "WW"}]}
		}
	`)

	assert.Equal(t, "growth", m.Name)
	assert.True(t, m.Origin)
	assert.Equal(t, [3]int{4, 4, 1}, dims(m.Grid))

	one, ok := firstChild(t, m).(*engine.OneNode)
	require.True(t, ok)
	assert.Len(t, one.Rules, 4, "a 1x2 rule has four distinct square variants")

	in, err := m.Interpreter()
	require.NoError(t, err)
	assert.Equal(t, 16, in.Run(1, 0))
	assert.Equal(t, 16, m.Grid.(*grid.Grid).Count(1))
}

func TestCompileModel_Defaults(t *testing.T) {
	m := mustCompile(t, `
		model: {
			values: "BW"
			root: {kind: "markov", children: [{kind: "all", rules: [{in: "B", out: "W"}]}]}
		}
	`)
	assert.Equal(t, "model", m.Name, "name falls back to the field label")
	assert.False(t, m.Origin)
	assert.Equal(t, DefaultSize, dims(m.Grid))
	assert.Len(t, m.Root.(*engine.MarkovNode).Children, 1, "markov roots are not wrapped again")
}

func TestCompileModel_SymmetryInheritance(t *testing.T) {
	m := mustCompile(t, `
		model: {
			values: "BW"
			symmetry: "()"
			root: {kind: "sequence", children: [
				{kind: "one", rules: [{in: "WB", out: "WW"}]},
				{kind: "one", symmetry: "(x)", rules: [{in: "WB", out: "WW"}]},
				{kind: "one", rules: [{in: "WB", out: "WW", symmetry: "(xy)"}]},
			]}
		}
	`)
	seq, ok := m.Root.(*engine.SequenceNode)
	require.True(t, ok)
	require.Len(t, seq.Children, 3)
	assert.Len(t, seq.Children[0].(*engine.OneNode).Rules, 1)
	assert.Len(t, seq.Children[1].(*engine.OneNode).Rules, 2)
	assert.Len(t, seq.Children[2].(*engine.OneNode).Rules, 4)
}

func TestCompileModel_RuleOptions(t *testing.T) {
	m := mustCompile(t, `
		model: {
			values: "BRW"
			unions: {"?": "RW"}
			root: {
				kind: "prl"
				steps: 5
				rules: [{in: "?B", out: "*R", p: 0.25, symmetry: "()"}]
			}
		}
	`)
	prl, ok := firstChild(t, m).(*engine.ParallelNode)
	require.True(t, ok)
	assert.Equal(t, 5, prl.Steps)
	require.Len(t, prl.Rules, 1)
	assert.Equal(t, 0.25, prl.Rules[0].P)
	assert.Equal(t, uint32(0b110), prl.Rules[0].Input[0])
}

func TestCompileModel_Fields(t *testing.T) {
	m := mustCompile(t, `
		model: {
			values: "BRWG"
			root: {
				kind: "one"
				rules: [{in: "B", out: "W"}, {in: "B", out: "G"}]
				fields: [
					{for: "W", on: "B", to: "R", recompute: true},
					{for: "G", on: "BW", from: "R", essential: true},
				]
			}
		}
	`)
	one := firstChild(t, m).(*engine.OneNode)
	require.Len(t, one.Fields, 4)
	assert.Nil(t, one.Fields[0])

	w := one.Fields[2]
	require.NotNil(t, w)
	assert.Equal(t, uint32(0b0001), w.Substrate)
	assert.Equal(t, uint32(0b0010), w.Zero)
	assert.True(t, w.Recompute)
	assert.False(t, w.Inversed)

	g := one.Fields[3]
	require.NotNil(t, g)
	assert.Equal(t, uint32(0b0101), g.Substrate)
	assert.True(t, g.Inversed)
	assert.True(t, g.Essential)
}

func TestCompileModel_Map(t *testing.T) {
	m := mustCompile(t, `
		model: {
			values: "BW"
			size: [3, 3]
			root: {kind: "sequence", children: [
				{kind: "all", rules: [{in: "B", out: "W"}]},
				{
					kind: "map"
					values: "BR"
					scale: "2 2 1"
					rules: [{in: "W", out: "RR/RR"}]
					children: [{kind: "one", rules: [{in: "R", out: "B"}], steps: 1}]
				},
			]}
		}
	`)
	seq := m.Root.(*engine.SequenceNode)
	mp, ok := seq.Children[1].(*engine.MapNode)
	require.True(t, ok)
	assert.Equal(t, "BR", mp.Grid.Alphabet().String())
	require.Len(t, mp.Children, 1)

	in, err := m.Interpreter()
	require.NoError(t, err)
	in.Run(1, 0)
	assert.Same(t, mp.Grid, in.Grid())
	assert.Equal(t, 36, mp.Grid.Len())
	assert.Equal(t, 35, mp.Grid.Count(1))
}

func TestCompileModel_WFCOverlap(t *testing.T) {
	m := mustCompile(t, `
		model: {
			values: "B"
			size: [6, 6]
			root: {
				kind: "wfc"
				values: "BW"
				periodic: true
				tries: 50
				overlap: {n: 2, sample: ["BW", "WB"], symmetry: "()"}
			}
		}
	`)
	node, ok := firstChild(t, m).(*engine.WFCNode)
	require.True(t, ok)
	assert.Equal(t, 50, node.Tries)

	in, err := m.Interpreter()
	require.NoError(t, err)
	in.Run(3, 0)
	assert.Equal(t, engine.WFCCompleted, node.State())
	assert.Equal(t, 18, node.Grid.Count(0))
	assert.Equal(t, 18, node.Grid.Count(1))
}

func TestCompileModel_WFCTilesAndMap(t *testing.T) {
	m := mustCompile(t, `
		model: {
			values: "XY"
			size: [4, 4]
			root: {
				kind: "wfc"
				values: "BW"
				periodic: true
				map: [{in: "X", out: "black white"}]
				tiles: {
					size: 1
					tiles: [{name: "black", pattern: ["B"]}, {name: "white", pattern: "W"}]
					neighbors: [
						{left: "black", right: "white"},
						{top: "white", bottom: "black"},
					]
				}
			}
		}
	`)
	node := firstChild(t, m).(*engine.WFCNode)
	require.Len(t, node.Map, 2)
	assert.Equal(t, []bool{true, true}, node.Map[0])
	assert.Nil(t, node.Map[1])

	in, err := m.Interpreter()
	require.NoError(t, err)
	in.Run(5, 0)
	assert.Equal(t, engine.WFCCompleted, node.State())
	assert.Equal(t, 8, node.Grid.Count(0))
}

func TestCompileModel_Errors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"missing values", `model: {root: {kind: "one", rules: [{in: "B", out: "W"}]}}`, "values"},
		{"missing root", `model: {values: "BW"}`, "root"},
		{"unknown kind", `model: {values: "BW", root: {kind: "spin"}}`, "root.kind"},
		{"excluded kind", `model: {values: "BW", root: {kind: "convchain"}}`, "root.kind"},
		{"search without observations", `model: {values: "BW", root: {kind: "one", search: true, rules: [{in: "B", out: "W"}]}}`, "root.search"},
		{"prl fields", `model: {values: "BW", root: {kind: "prl", rules: [{in: "B", out: "W"}], fields: [{for: "W", on: "B", to: "W"}]}}`, "root.fields"},
		{"prl temperature", `model: {values: "BW", root: {kind: "prl", temperature: 0.5, rules: [{in: "B", out: "W"}]}}`, "root.temperature"},
		{"prl observations", `model: {values: "BW", root: {kind: "prl", observations: [{value: "W", from: "B", to: "W"}], rules: [{in: "B", out: "W"}]}}`, "root.observations"},
		{"bad observation", `model: {values: "BW", root: {kind: "one", observations: [{value: "Q", from: "B", to: "W"}], rules: [{in: "B", out: "W"}]}}`, "root.observations[0].value"},
		{"size and polar", `model: {values: "BW", size: [2, 2], polar: {divisions: 6}, root: {kind: "one", rules: [{in: "B", out: "W"}]}}`, "size"},
		{"polar without divisions", `model: {values: "BW", polar: {r_min: 2}, root: {kind: "one", rules: [{in: "B", out: "W"}]}}`, "polar"},
		{"square symmetry in 3D", `model: {values: "BW", size: [2, 2, 2], symmetry: "(x)(y)", root: {kind: "one", rules: [{in: "B", out: "W"}]}}`, "symmetry"},
		{"unknown neighborhood", `model: {values: "BW", root: {kind: "convolution", neighborhood: "NoCorners", rules: [{in: "B", out: "W"}]}}`, "root.neighborhood"},
		{"sum without values", `model: {values: "BW", root: {kind: "convolution", neighborhood: "Moore", rules: [{in: "B", out: "W", sum: "3"}]}}`, "root.rules[0]"},
		{"bad sum", `model: {values: "BW", root: {kind: "convolution", neighborhood: "Moore", rules: [{in: "B", out: "W", values: "W", sum: "3..1"}]}}`, "root.rules[0].sum"},
		{"path color", `model: {values: "BW", root: {kind: "path", from: "B", to: "W", on: "B", color: "Q"}}`, "root.color"},
		{"no rules", `model: {values: "BW", root: {kind: "all"}}`, "root.rules"},
		{"bad rule char", `model: {values: "BW", root: {kind: "one", rules: [{in: "Q", out: "W"}]}}`, "root.rules[0]"},
		{"bad symmetry", `model: {values: "BW", symmetry: "(z)", root: {kind: "one", rules: [{in: "B", out: "W"}]}}`, "symmetry"},
		{"bad size", `model: {values: "BW", size: [0, 3], root: {kind: "one", rules: [{in: "B", out: "W"}]}}`, "size[0]"},
		{"duplicate values", `model: {values: "BB", root: {kind: "one", rules: [{in: "B", out: "W"}]}}`, "values"},
		{"field without target", `model: {values: "BW", root: {kind: "one", rules: [{in: "B", out: "W"}], fields: [{for: "W", on: "B"}]}}`, "root.fields[0]"},
		{"bad scale", `model: {values: "BW", root: {kind: "map", scale: "2", rules: [{in: "B", out: "W"}]}}`, "root.scale"},
		{"wfc needs one model", `model: {values: "BW", root: {kind: "wfc", values: "BW"}}`, "root"},
		{"bad neighbor", `model: {values: "B", root: {kind: "wfc", values: "B", tiles: {tiles: [{name: "a", pattern: "B"}], neighbors: [{left: "a"}]}}}`, "root.tiles.neighbors[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compile(t, tt.src)
			require.Error(t, err)
			var ce *CompileError
			require.True(t, errors.As(err, &ce), "got %T: %v", err, err)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCompileModel_CUEError(t *testing.T) {
	_, err := compile(t, `model: {values: "BW", size: [4, 4] & [5, 5], root: {kind: "one"}}`)
	require.Error(t, err)
}

func TestCompileModel_NonExistentPath(t *testing.T) {
	v := cuecontext.New().CompileString(`other: {}`)
	_, err := CompileModel(v.LookupPath(cue.ParsePath("model")))
	require.Error(t, err)
}

func TestCompileError_Format(t *testing.T) {
	err := &CompileError{Field: "root.kind", Message: "unknown node kind"}
	assert.Equal(t, "root.kind: unknown node kind", err.Error())
}

func TestCompileModel_PolarGrowsAroundRing(t *testing.T) {
	m := mustCompile(t, `
		model: {
			values: "BW"
			unions: {"?": "BW"}
			polar: {r_min: 1, depth: 1, divisions: 6}
			origin: true
			root: {kind: "one", rules: [{in: "WB", out: "WW"}]}
		}
	`)
	p, ok := m.Grid.(*grid.PolarGrid)
	require.True(t, ok, "grid is %T", m.Grid)
	assert.Equal(t, 6, p.ThetaDivisions)
	_, isUnion := p.Alphabet().Wave('?')
	assert.True(t, isUnion, "unions attach to polar alphabets")

	in, err := m.Interpreter()
	require.NoError(t, err)
	in.Run(1, 0)
	assert.Equal(t, 6, p.Count(1))
}

func TestCompileModel_PolarArc(t *testing.T) {
	m := mustCompile(t, `
		model: {
			values: "BW"
			polar: {r_min: 8, depth: 2, arc: 1.0}
			root: {kind: "all", rules: [{in: "B", out: "W"}]}
		}
	`)
	assert.Equal(t, [3]int{grid.ThetaDivisionsFor(8, 1.0), 2, 1}, dims(m.Grid))
}

func TestCompileModel_SphericalUsesCubeSymmetry(t *testing.T) {
	m := mustCompile(t, `
		model: {
			values: "BW"
			spherical: {r_min: 2, depth: 2, theta: 8, phi: 4}
			root: {kind: "one", rules: [{in: "WB", out: "WW"}]}
		}
	`)
	_, ok := m.Grid.(*grid.SphericalGrid)
	require.True(t, ok, "grid is %T", m.Grid)
	assert.Equal(t, [3]int{8, 4, 2}, dims(m.Grid))
	assert.Len(t, firstChild(t, m).(*engine.OneNode).Rules, 6, "a directed line points six ways in a cube")
}

func TestCompileModel_CubeSymmetry(t *testing.T) {
	m := mustCompile(t, `
		model: {
			values: "BW"
			size: [4, 4, 4]
			root: {kind: "sequence", children: [
				{kind: "one", rules: [{in: "WB", out: "WW"}]},
				{kind: "one", symmetry: "(xy)", rules: [{in: "WB", out: "WW"}]},
				{kind: "one", symmetry: "()", rules: [{in: "WB", out: "WW"}]},
			]}
		}
	`)
	seq := m.Root.(*engine.SequenceNode)
	assert.Len(t, seq.Children[0].(*engine.OneNode).Rules, 6)
	assert.Len(t, seq.Children[1].(*engine.OneNode).Rules, 4)
	assert.Len(t, seq.Children[2].(*engine.OneNode).Rules, 1)
}

func TestCompileModel_Path(t *testing.T) {
	m := mustCompile(t, `
		model: {
			values: "BSFP"
			size: [5, 1]
			symmetry: "()"
			root: {kind: "sequence", children: [
				{kind: "one", rules: [{in: "BBBBB", out: "SBBBF"}]},
				{kind: "path", from: "S", to: "F", on: "B", color: "P", inertia: true},
			]}
		}
	`)
	pn, ok := m.Root.(*engine.SequenceNode).Children[1].(*engine.PathNode)
	require.True(t, ok)
	assert.Equal(t, uint32(0b0010), pn.Start)
	assert.Equal(t, uint32(0b0100), pn.Finish)
	assert.Equal(t, byte(3), pn.Value)
	assert.True(t, pn.Inertia)
	assert.False(t, pn.Longest)

	in, err := m.Interpreter()
	require.NoError(t, err)
	in.Run(1, 0)
	assert.Equal(t, "SPPPF\n", grid.Render(m.Grid))
}

func TestCompileModel_Convolution(t *testing.T) {
	m := mustCompile(t, `
		model: {
			values: "DA"
			root: {
				kind: "convolution"
				neighborhood: "Moore"
				periodic: true
				steps: 10
				rules: [
					{in: "D", out: "A", values: "A", sum: "3"},
					{in: "A", out: "D", values: "A", sum: "0..1,4..8", p: 0.5},
				]
			}
		}
	`)
	conv, ok := firstChild(t, m).(*engine.ConvolutionNode)
	require.True(t, ok)
	assert.Equal(t, engine.Moore2D, conv.Kernel)
	assert.True(t, conv.Periodic)
	assert.Equal(t, 10, conv.Steps)
	require.Len(t, conv.Rules, 2)
	assert.Equal(t, []byte{1}, conv.Rules[0].Values)
	assert.True(t, conv.Rules[0].Sums[3])
	assert.False(t, conv.Rules[0].Sums[2])
	assert.Equal(t, 1.0, conv.Rules[0].P)
	assert.Equal(t, 0.5, conv.Rules[1].P)
}

func TestCompileModel_Observations(t *testing.T) {
	m := mustCompile(t, `
		model: {
			values: "BRW"
			root: {
				kind: "one"
				search: true
				limit: 200
				depth_coefficient: 0.25
				observations: [{value: "R", from: "B", to: "W"}]
				rules: [{in: "B", out: "W"}]
			}
		}
	`)
	one := firstChild(t, m).(*engine.OneNode)
	require.Len(t, one.Observations, 3)
	assert.Nil(t, one.Observations[0])
	assert.Equal(t, &engine.Observation{From: 0, To: 0b100}, one.Observations[1])
	assert.True(t, one.Search)
	assert.Equal(t, 200, one.Limit)
	assert.Equal(t, 0.25, one.DepthCoefficient)
}

func TestCompileModel_ObservationDefaults(t *testing.T) {
	m := mustCompile(t, `
		model: {
			values: "BRW"
			root: {kind: "all", observations: [{value: "R", from: "B", to: "BW"}], rules: [{in: "B", out: "W"}]}
		}
	`)
	all := firstChild(t, m).(*engine.AllNode)
	assert.False(t, all.Search)
	assert.Equal(t, -1, all.Limit)
	assert.Equal(t, 0.5, all.DepthCoefficient)
	assert.Equal(t, uint32(0b101), all.Observations[1].To)
}
