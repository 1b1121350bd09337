// Package compiler turns CUE model descriptions into engine node trees.
//
// A model names its alphabet, grid size and a root node:
//
//	model: {
//	    values: "BRW"
//	    size: [16, 16, 1]
//	    origin: true
//	    root: {kind: "one", rules: [{in: "RB", out: "WR"}]}
//	}
//
// In place of size, a model may lay its cells out on rings or shells:
//
//	polar: {r_min: 8, depth: 4, divisions: 48}   // or arc: 1.0
//	spherical: {r_min: 4, depth: 2, theta: 16, phi: 8}
//
// Theta always wraps; phi wraps when it has more than one division.
//
// Symmetry is inherited down the tree and may be overridden on any node or
// rule. Names are square subgroups on flat grids and cube subgroups when the
// grid has depth. The root is wrapped in a markov node unless it already
// loops.
package compiler

import (
	"unicode/utf8"

	"cuelang.org/go/cue"

	"github.com/roach88/mjgrid/internal/engine"
	"github.com/roach88/mjgrid/internal/grid"
	"github.com/roach88/mjgrid/internal/rule"
)

// DefaultSize is the grid extent used when a model gives none.
var DefaultSize = [3]int{16, 16, 1}

// Model is a compiled, runnable model.
type Model struct {
	Name   string
	Grid   grid.Ops
	Root   engine.Node
	Origin bool
}

// Interpreter builds an interpreter over the model's grid.
func (m *Model) Interpreter(opts ...engine.InterpreterOption) (*engine.Interpreter, error) {
	return engine.New(m.Root, m.Grid, append([]engine.InterpreterOption{engine.WithOrigin(m.Origin)}, opts...)...)
}

// scope is what a node inherits from its parent. An empty symmetry is the
// full group for the grid's dimensionality.
type scope struct {
	grid     grid.Ops
	is2D     bool
	symmetry string
}

type compiler struct {
	unions map[rune]string
}

// CompileModel parses a CUE value into a Model.
//
// The CUE value should be the model struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(src)
//	m, err := CompileModel(v.LookupPath(cue.ParsePath("model")))
func CompileModel(v cue.Value) (*Model, error) {
	if !v.Exists() {
		return nil, &CompileError{Field: "model", Message: "model is required"}
	}
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	m := &Model{}
	name, err := optString(v, "name", "")
	if err != nil {
		return nil, err
	}
	if name == "" {
		if sel := v.Path().Selectors(); len(sel) > 0 {
			name = sel[len(sel)-1].String()
		}
	}
	m.Name = name

	values, err := requireString(v, "", "values")
	if err != nil {
		return nil, err
	}

	c := &compiler{unions: make(map[rune]string)}
	if u, ok := lookup(v, "unions"); ok {
		iter, err := u.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			sym := iter.Label()
			if utf8.RuneCountInString(sym) != 1 {
				return nil, invalid(iter.Value(), path("unions", sym), "union symbol must be a single character")
			}
			members, err := iter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			r, _ := utf8.DecodeRuneInString(sym)
			c.unions[r] = members
		}
	}

	if m.Grid, err = c.grid(v, values); err != nil {
		return nil, err
	}

	if m.Origin, err = optBool(v, "origin", false); err != nil {
		return nil, err
	}

	sc := scope{grid: m.Grid, is2D: m.Grid.Is2D()}
	if sc.symmetry, err = symmetry(v, "", sc); err != nil {
		return nil, err
	}

	rootVal, ok := lookup(v, "root")
	if !ok {
		return nil, missing(v, "", "root")
	}
	root, err := c.node(rootVal, "root", sc)
	if err != nil {
		return nil, err
	}
	switch root.(type) {
	case *engine.MarkovNode, *engine.SequenceNode:
	default:
		root = engine.NewMarkov(root)
	}
	m.Root = root
	return m, nil
}

// alphabet builds an alphabet from values and attaches the model's unions.
// Unions naming characters outside values are an error only when strict.
func (c *compiler) alphabet(v cue.Value, at, values string, strict bool) (*grid.Alphabet, error) {
	alpha, err := grid.NewAlphabet(values)
	if err != nil {
		return nil, invalid(v, at, "%v", err)
	}
	return alpha, c.addUnions(v, alpha, strict)
}

func (c *compiler) addUnions(v cue.Value, alpha *grid.Alphabet, strict bool) error {
	for sym, members := range c.unions {
		if err := alpha.AddUnion(sym, members); err != nil && strict {
			return invalid(v, path("unions", string(sym)), "%v", err)
		}
	}
	return nil
}

// grid builds the model grid from whichever of size, polar or spherical is
// given. Size is the default.
func (c *compiler) grid(v cue.Value, values string) (grid.Ops, error) {
	polarVal, isPolar := lookup(v, "polar")
	sphereVal, isSpherical := lookup(v, "spherical")
	_, hasSize := lookup(v, "size")
	if (isPolar && isSpherical) || (hasSize && (isPolar || isSpherical)) {
		return nil, invalid(v, "size", "size, polar and spherical are exclusive")
	}

	var g grid.Ops
	var err error
	switch {
	case isPolar:
		g, err = polarGrid(polarVal, values)
	case isSpherical:
		g, err = sphericalGrid(sphereVal, values)
	default:
		var size [3]int
		if size, err = gridSize(v); err != nil {
			return nil, err
		}
		alpha, err := c.alphabet(v, "values", values, true)
		if err != nil {
			return nil, err
		}
		g, err = grid.NewWithAlphabet(size[0], size[1], size[2], alpha)
		if err != nil {
			return nil, invalid(v, "size", "%v", err)
		}
		return g, nil
	}
	if err != nil {
		return nil, err
	}
	return g, c.addUnions(v, g.Alphabet(), true)
}

func polarGrid(v cue.Value, values string) (grid.Ops, error) {
	rMin, err := optInt(v, "r_min", 0)
	if err != nil {
		return nil, err
	}
	depth, err := optInt(v, "depth", 1)
	if err != nil {
		return nil, err
	}
	divisions, err := optInt(v, "divisions", 0)
	if err != nil {
		return nil, err
	}
	arc, err := optFloat(v, "arc", 0)
	if err != nil {
		return nil, err
	}

	var p *grid.PolarGrid
	switch {
	case divisions > 0 && arc > 0:
		return nil, invalid(v, "polar", "polar takes divisions or arc, not both")
	case arc > 0:
		p, err = grid.NewPolar(rMin, depth, arc, values)
	case divisions > 0:
		p, err = grid.NewPolarDivisions(rMin, depth, divisions, values)
	default:
		return nil, invalid(v, "polar", "polar needs divisions or arc")
	}
	if err != nil {
		return nil, invalid(v, "polar", "%v", err)
	}
	return p, nil
}

func sphericalGrid(v cue.Value, values string) (grid.Ops, error) {
	rMin, err := optInt(v, "r_min", 0)
	if err != nil {
		return nil, err
	}
	depth, err := optInt(v, "depth", 1)
	if err != nil {
		return nil, err
	}
	theta, err := optInt(v, "theta", 0)
	if err != nil {
		return nil, err
	}
	phi, err := optInt(v, "phi", 1)
	if err != nil {
		return nil, err
	}
	s, err := grid.NewSpherical(rMin, depth, theta, phi, values)
	if err != nil {
		return nil, invalid(v, "spherical", "%v", err)
	}
	return s, nil
}

func gridSize(v cue.Value) ([3]int, error) {
	size := DefaultSize
	f, ok := lookup(v, "size")
	if !ok {
		return size, nil
	}
	iter, err := f.List()
	if err != nil {
		return size, formatCUEError(err)
	}
	i := 0
	for ; iter.Next(); i++ {
		if i >= 3 {
			return size, invalid(f, "size", "at most three dimensions")
		}
		n, err := iter.Value().Int64()
		if err != nil {
			return size, formatCUEError(err)
		}
		if n < 1 {
			return size, invalid(iter.Value(), index("size", i), "dimension must be positive, got %d", n)
		}
		size[i] = int(n)
	}
	if i < 2 {
		return size, invalid(f, "size", "need at least two dimensions")
	}
	if i == 2 {
		size[2] = 1
	}
	return size, nil
}

// symmetry reads an optional symmetry name, falling back to the one in
// scope. The name must exist for the scope's dimensionality.
func symmetry(v cue.Value, at string, sc scope) (string, error) {
	s, err := optString(v, "symmetry", "")
	if err != nil {
		return sc.symmetry, err
	}
	if s == "" {
		return sc.symmetry, nil
	}
	if _, err := rule.ParseSymmetry(s, sc.is2D); err != nil {
		f, _ := lookup(v, "symmetry")
		return sc.symmetry, invalid(f, path(at, "symmetry"), "%v", err)
	}
	return s, nil
}

// subgroup reads an optional square symmetry name for a WFC model, falling
// back to the inherited name.
func subgroup(v cue.Value, at, inherited string) (rule.Subgroup, error) {
	s, err := optString(v, "symmetry", inherited)
	if err != nil {
		return rule.Subgroup{}, err
	}
	sg, err := rule.ParseSubgroup(s)
	if err != nil {
		f, ok := lookup(v, "symmetry")
		if !ok {
			f = v
		}
		return sg, invalid(f, path(at, "symmetry"), "%v", err)
	}
	return sg, nil
}

func singleChar(v cue.Value, at, s string) (rune, error) {
	if utf8.RuneCountInString(s) != 1 {
		return 0, invalid(v, at, "want a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

func unknownKind(v cue.Value, at, kind string) error {
	if kind == "convchain" {
		return invalid(v, path(at, "kind"), "node kind %q is not supported", kind)
	}
	return invalid(v, path(at, "kind"), "unknown node kind %q", kind)
}
