package compiler

import (
	"cuelang.org/go/cue"

	"github.com/roach88/mjgrid/internal/engine"
	"github.com/roach88/mjgrid/internal/grid"
)

// pathNode compiles {from, to, on, color, inertia?, longest?, edges?,
// vertices?}. From, to and on are sets of characters.
func (c *compiler) pathNode(v cue.Value, at string, sc scope) (engine.Node, error) {
	alpha := sc.grid.Alphabet()
	wave := func(name string) (uint32, error) {
		s, err := requireString(v, at, name)
		if err != nil {
			return 0, err
		}
		w, err := alpha.WaveOf(s)
		if err != nil {
			return 0, invalid(v, path(at, name), "%v", err)
		}
		return w, nil
	}

	n := &engine.PathNode{}
	var err error
	if n.Start, err = wave("from"); err != nil {
		return nil, err
	}
	if n.Finish, err = wave("to"); err != nil {
		return nil, err
	}
	if n.Substrate, err = wave("on"); err != nil {
		return nil, err
	}
	if n.Value, err = c.char(v, at, "color", alpha); err != nil {
		return nil, err
	}
	for name, dst := range map[string]*bool{
		"inertia":  &n.Inertia,
		"longest":  &n.Longest,
		"edges":    &n.Edges,
		"vertices": &n.Vertices,
	} {
		if *dst, err = optBool(v, name, false); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// convolutionNode compiles {neighborhood, periodic?, steps?, rules}. Each
// rule is {in, out, values?, sum?, p?}; values and sum come together.
func (c *compiler) convolutionNode(v cue.Value, at string, sc scope) (engine.Node, error) {
	alpha := sc.grid.Alphabet()
	name, err := requireString(v, at, "neighborhood")
	if err != nil {
		return nil, err
	}
	n := &engine.ConvolutionNode{}
	if n.Kernel, err = engine.Kernel(name, sc.is2D); err != nil {
		return nil, invalid(v, path(at, "neighborhood"), "%v", err)
	}
	if n.Periodic, err = optBool(v, "periodic", false); err != nil {
		return nil, err
	}
	if n.Steps, err = optInt(v, "steps", 0); err != nil {
		return nil, err
	}
	if n.Steps < 0 {
		return nil, invalid(v, path(at, "steps"), "steps must not be negative")
	}

	err = each(v, at, "rules", func(_ int, e cue.Value, eat string) error {
		r, err := c.convolutionRule(e, eat, alpha)
		if err != nil {
			return err
		}
		n.Rules = append(n.Rules, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(n.Rules) == 0 {
		return nil, invalid(v, path(at, "rules"), "at least one rule is required")
	}
	return n, nil
}

func (c *compiler) convolutionRule(v cue.Value, at string, alpha *grid.Alphabet) (engine.ConvolutionRule, error) {
	var r engine.ConvolutionRule
	var err error
	if r.Input, err = c.char(v, at, "in", alpha); err != nil {
		return r, err
	}
	if r.Output, err = c.char(v, at, "out", alpha); err != nil {
		return r, err
	}
	if r.P, err = optFloat(v, "p", 1); err != nil {
		return r, err
	}

	values, err := optString(v, "values", "")
	if err != nil {
		return r, err
	}
	sum, err := optString(v, "sum", "")
	if err != nil {
		return r, err
	}
	if (values == "") != (sum == "") {
		return r, invalid(v, at, "values and sum come together")
	}
	if values == "" {
		return r, nil
	}
	for _, ch := range values {
		value, ok := alpha.Value(ch)
		if !ok {
			return r, invalid(v, path(at, "values"), "unknown character %q", ch)
		}
		r.Values = append(r.Values, value)
	}
	if r.Sums, err = engine.ParseSums(sum); err != nil {
		return r, invalid(v, path(at, "sum"), "%v", err)
	}
	return r, nil
}
