package compiler

import (
	"cuelang.org/go/cue"

	"github.com/roach88/mjgrid/internal/engine"
	"github.com/roach88/mjgrid/internal/field"
	"github.com/roach88/mjgrid/internal/grid"
	"github.com/roach88/mjgrid/internal/rule"
)

func (c *compiler) node(v cue.Value, at string, sc scope) (engine.Node, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	kind, err := requireString(v, at, "kind")
	if err != nil {
		return nil, err
	}
	if sc.symmetry, err = symmetry(v, at, sc); err != nil {
		return nil, err
	}

	switch kind {
	case "one", "all", "prl":
		cfg, err := c.ruleConfig(v, at, sc, kind == "prl")
		if err != nil {
			return nil, err
		}
		switch kind {
		case "one":
			return engine.NewOne(cfg), nil
		case "all":
			return engine.NewAll(cfg), nil
		default:
			return engine.NewParallel(cfg), nil
		}
	case "markov", "sequence":
		children, err := c.children(v, at, sc)
		if err != nil {
			return nil, err
		}
		if kind == "markov" {
			return engine.NewMarkov(children...), nil
		}
		return engine.NewSequence(children...), nil
	case "map":
		return c.mapNode(v, at, sc)
	case "wfc":
		return c.wfcNode(v, at, sc)
	case "path":
		return c.pathNode(v, at, sc)
	case "convolution":
		return c.convolutionNode(v, at, sc)
	}
	return nil, unknownKind(v, at, kind)
}

func (c *compiler) children(v cue.Value, at string, sc scope) ([]engine.Node, error) {
	var out []engine.Node
	err := each(v, at, "children", func(_ int, e cue.Value, eat string) error {
		n, err := c.node(e, eat, sc)
		if err != nil {
			return err
		}
		out = append(out, n)
		return nil
	})
	return out, err
}

// ruleConfig compiles the rules and options of a one, all or prl node.
// Parallel nodes take every match, so they refuse the options that steer
// selection.
func (c *compiler) ruleConfig(v cue.Value, at string, sc scope, parallel bool) (engine.RuleConfig, error) {
	var cfg engine.RuleConfig
	var err error
	alpha := sc.grid.Alphabet()

	cfg.Rules, err = c.rules(v, at, sc, func(in, out string, p float64) (*rule.Rule, error) {
		return rule.Parse(alpha, in, out, p)
	})
	if err != nil {
		return cfg, err
	}
	if len(cfg.Rules) == 0 {
		return cfg, invalid(v, path(at, "rules"), "at least one rule is required")
	}

	if cfg.Steps, err = optInt(v, "steps", 0); err != nil {
		return cfg, err
	}
	if cfg.Steps < 0 {
		return cfg, invalid(v, path(at, "steps"), "steps must not be negative")
	}
	if parallel {
		for _, name := range []string{"fields", "temperature", "observations", "search"} {
			if f, ok := lookup(v, name); ok {
				return cfg, invalid(f, path(at, name), "prl does not take %s", name)
			}
		}
		return cfg, nil
	}
	if cfg.Temperature, err = optFloat(v, "temperature", 0); err != nil {
		return cfg, err
	}

	err = each(v, at, "fields", func(_ int, e cue.Value, eat string) error {
		if cfg.Fields == nil {
			cfg.Fields = make([]*field.Field, alpha.NumValues())
		}
		return c.field(e, eat, alpha, cfg.Fields)
	})
	if err != nil {
		return cfg, err
	}
	return cfg, c.observations(v, at, alpha, &cfg)
}

// observations compiles {value, from, to} goals and the search options that
// go with them.
func (c *compiler) observations(v cue.Value, at string, alpha *grid.Alphabet, cfg *engine.RuleConfig) error {
	err := each(v, at, "observations", func(_ int, e cue.Value, eat string) error {
		value, err := c.char(e, eat, "value", alpha)
		if err != nil {
			return err
		}
		from, err := c.char(e, eat, "from", alpha)
		if err != nil {
			return err
		}
		toStr, err := requireString(e, eat, "to")
		if err != nil {
			return err
		}
		to, err := alpha.WaveOf(toStr)
		if err != nil {
			return invalid(e, path(eat, "to"), "%v", err)
		}
		if cfg.Observations == nil {
			cfg.Observations = make([]*engine.Observation, alpha.NumValues())
		}
		cfg.Observations[value] = &engine.Observation{From: from, To: to}
		return nil
	})
	if err != nil {
		return err
	}

	if cfg.Search, err = optBool(v, "search", false); err != nil {
		return err
	}
	if cfg.Search && cfg.Observations == nil {
		f, _ := lookup(v, "search")
		return invalid(f, path(at, "search"), "search needs observations")
	}
	if cfg.Limit, err = optInt(v, "limit", -1); err != nil {
		return err
	}
	if cfg.DepthCoefficient, err = optFloat(v, "depth_coefficient", 0.5); err != nil {
		return err
	}
	return nil
}

// char reads a single character field and resolves it to a value.
func (c *compiler) char(v cue.Value, at, name string, alpha *grid.Alphabet) (byte, error) {
	s, err := requireString(v, at, name)
	if err != nil {
		return 0, err
	}
	ch, err := singleChar(v, path(at, name), s)
	if err != nil {
		return 0, err
	}
	value, ok := alpha.Value(ch)
	if !ok {
		return 0, invalid(v, path(at, name), "unknown character %q", ch)
	}
	return value, nil
}

// rules compiles a rules list with parse and expands each rule by its
// symmetry.
func (c *compiler) rules(v cue.Value, at string, sc scope, parse func(in, out string, p float64) (*rule.Rule, error)) ([]*rule.Rule, error) {
	var out []*rule.Rule
	err := each(v, at, "rules", func(_ int, e cue.Value, eat string) error {
		in, err := requireString(e, eat, "in")
		if err != nil {
			return err
		}
		o, err := requireString(e, eat, "out")
		if err != nil {
			return err
		}
		p, err := optFloat(e, "p", 1)
		if err != nil {
			return err
		}
		name, err := symmetry(e, eat, sc)
		if err != nil {
			return err
		}
		sym, err := rule.ParseSymmetry(name, sc.is2D)
		if err != nil {
			return invalid(e, path(eat, "symmetry"), "%v", err)
		}
		r, err := parse(in, o, p)
		if err != nil {
			return invalid(e, eat, "%v", err)
		}
		out = append(out, sym.Expand(r)...)
		return nil
	})
	return out, err
}

// field compiles {for, on, to | from, recompute?, essential?} into fields,
// indexed by the value of for.
func (c *compiler) field(v cue.Value, at string, alpha *grid.Alphabet, fields []*field.Field) error {
	value, err := c.char(v, at, "for", alpha)
	if err != nil {
		return err
	}

	on, err := requireString(v, at, "on")
	if err != nil {
		return err
	}
	substrate, err := alpha.WaveOf(on)
	if err != nil {
		return invalid(v, path(at, "on"), "%v", err)
	}

	to, err := optString(v, "to", "")
	if err != nil {
		return err
	}
	from, err := optString(v, "from", "")
	if err != nil {
		return err
	}
	zeroStr, inversed := to, false
	switch {
	case to != "" && from != "":
		return invalid(v, at, "field takes to or from, not both")
	case from != "":
		zeroStr, inversed = from, true
	case to == "":
		return invalid(v, at, "field needs to or from")
	}
	zero, err := alpha.WaveOf(zeroStr)
	if err != nil {
		return invalid(v, at, "%v", err)
	}

	f := field.New(substrate, zero)
	f.Inversed = inversed
	if f.Recompute, err = optBool(v, "recompute", false); err != nil {
		return err
	}
	if f.Essential, err = optBool(v, "essential", false); err != nil {
		return err
	}
	fields[value] = f
	return nil
}

func (c *compiler) mapNode(v cue.Value, at string, sc scope) (engine.Node, error) {
	src := sc.grid.Alphabet()
	values, err := optString(v, "values", src.String())
	if err != nil {
		return nil, err
	}
	alpha, err := c.alphabet(v, path(at, "values"), values, false)
	if err != nil {
		return nil, err
	}
	target, err := grid.NewWithAlphabet(1, 1, 1, alpha)
	if err != nil {
		return nil, invalid(v, at, "%v", err)
	}

	scaleStr, err := requireString(v, at, "scale")
	if err != nil {
		return nil, err
	}
	scale, err := engine.ParseScale(scaleStr)
	if err != nil {
		return nil, invalid(v, path(at, "scale"), "%v", err)
	}

	rules, err := c.rules(v, at, sc, func(in, out string, p float64) (*rule.Rule, error) {
		return rule.ParseMapped(src, alpha, in, out, p)
	})
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, invalid(v, path(at, "rules"), "at least one rule is required")
	}

	inner := scope{grid: target, is2D: sc.is2D && scale[2].Num == scale[2].Den, symmetry: sc.symmetry}
	children, err := c.children(v, at, inner)
	if err != nil {
		return nil, err
	}
	return engine.NewMap(target, scale, rules, children...), nil
}
