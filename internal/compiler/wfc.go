package compiler

import (
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/mjgrid/internal/engine"
	"github.com/roach88/mjgrid/internal/grid"
	"github.com/roach88/mjgrid/internal/wfc"
)

func (c *compiler) wfcNode(v cue.Value, at string, sc scope) (engine.Node, error) {
	values, err := requireString(v, at, "values")
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

	overlapVal, hasOverlap := lookup(v, "overlap")
	tilesVal, hasTiles := lookup(v, "tiles")
	if hasOverlap == hasTiles {
		return nil, invalid(v, at, "wfc needs exactly one of overlap or tiles")
	}

	// patterns resolves a map output into admissible patterns.
	var model wfc.Model
	var patterns func(out string) ([]bool, error)
	if hasOverlap {
		o, err := c.overlap(overlapVal, path(at, "overlap"), alpha, sc.symmetry)
		if err != nil {
			return nil, err
		}
		model = o
		patterns = func(out string) ([]bool, error) {
			w, err := alpha.WaveOf(out)
			if err != nil {
				return nil, err
			}
			return o.PatternsStartingWith(w), nil
		}
	} else {
		t, err := c.tiles(tilesVal, path(at, "tiles"), alpha, sc.symmetry)
		if err != nil {
			return nil, err
		}
		model = t
		patterns = func(out string) ([]bool, error) {
			return t.PatternsOf(strings.Fields(out))
		}
	}

	node := engine.NewWFC(model, target)
	if node.Tries, err = optInt(v, "tries", engine.DefaultTries); err != nil {
		return nil, err
	}
	if node.Periodic, err = optBool(v, "periodic", false); err != nil {
		return nil, err
	}
	if node.Shannon, err = optBool(v, "shannon", false); err != nil {
		return nil, err
	}

	src := sc.grid.Alphabet()
	err = each(v, at, "map", func(_ int, e cue.Value, eat string) error {
		in, err := requireString(e, eat, "in")
		if err != nil {
			return err
		}
		out, err := requireString(e, eat, "out")
		if err != nil {
			return err
		}
		wave, err := src.WaveOf(in)
		if err != nil {
			return invalid(e, path(eat, "in"), "%v", err)
		}
		allowed, err := patterns(out)
		if err != nil {
			return invalid(e, path(eat, "out"), "%v", err)
		}
		if node.Map == nil {
			node.Map = make([][]bool, src.NumValues())
		}
		for value := range node.Map {
			if wave&(1<<value) == 0 {
				continue
			}
			if node.Map[value] == nil {
				node.Map[value] = make([]bool, len(allowed))
			}
			for p, ok := range allowed {
				node.Map[value][p] = node.Map[value][p] || ok
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	node.Children, err = c.children(v, at, scope{grid: target, is2D: sc.is2D, symmetry: sc.symmetry})
	if err != nil {
		return nil, err
	}
	return node, nil
}

func (c *compiler) overlap(v cue.Value, at string, alpha *grid.Alphabet, inherited string) (*wfc.Overlap, error) {
	n, err := optInt(v, "n", 3)
	if err != nil {
		return nil, err
	}
	periodicInput, err := optBool(v, "periodicInput", true)
	if err != nil {
		return nil, err
	}
	sym, err := subgroup(v, at, inherited)
	if err != nil {
		return nil, err
	}
	sample, smx, smy, err := pattern(v, at, "sample", alpha)
	if err != nil {
		return nil, err
	}
	o, err := wfc.NewOverlap(sample, smx, smy, alpha.NumValues(), n, periodicInput, sym)
	if err != nil {
		return nil, invalid(v, at, "%v", err)
	}
	return o, nil
}

func (c *compiler) tiles(v cue.Value, at string, alpha *grid.Alphabet, inherited string) (*wfc.Tile, error) {
	size, err := optInt(v, "size", 1)
	if err != nil {
		return nil, err
	}
	overlap, err := optInt(v, "overlap", 0)
	if err != nil {
		return nil, err
	}

	var specs []wfc.TileSpec
	err = each(v, at, "tiles", func(_ int, e cue.Value, eat string) error {
		name, err := requireString(e, eat, "name")
		if err != nil {
			return err
		}
		weight, err := optFloat(e, "weight", 1)
		if err != nil {
			return err
		}
		sym, err := subgroup(e, eat, inherited)
		if err != nil {
			return err
		}
		data, mx, my, err := pattern(e, eat, "pattern", alpha)
		if err != nil {
			return err
		}
		if mx != size || my != size {
			return invalid(e, path(eat, "pattern"), "tile is %dx%d, want %dx%d", mx, my, size, size)
		}
		specs = append(specs, wfc.TileSpec{Name: name, Pattern: data, Weight: weight, Symmetry: sym})
		return nil
	})
	if err != nil {
		return nil, err
	}

	var adj []wfc.Adjacency
	err = each(v, at, "neighbors", func(_ int, e cue.Value, eat string) error {
		left, err := optString(e, "left", "")
		if err != nil {
			return err
		}
		right, err := optString(e, "right", "")
		if err != nil {
			return err
		}
		top, err := optString(e, "top", "")
		if err != nil {
			return err
		}
		bottom, err := optString(e, "bottom", "")
		if err != nil {
			return err
		}
		switch {
		case left != "" && right != "" && top == "" && bottom == "":
			adj = append(adj, wfc.Adjacency{A: left, B: right})
		case top != "" && bottom != "" && left == "" && right == "":
			adj = append(adj, wfc.Adjacency{A: top, B: bottom, Vertical: true})
		default:
			return invalid(e, eat, "neighbor needs left and right, or top and bottom")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	t, err := wfc.NewTile(specs, adj, size, overlap, alpha.NumValues())
	if err != nil {
		return nil, invalid(v, at, "%v", err)
	}
	return t, nil
}

// pattern reads rows of characters into values, row-major.
func pattern(v cue.Value, at, field string, alpha *grid.Alphabet) ([]byte, int, int, error) {
	lines, err := rows(v, at, field)
	if err != nil {
		return nil, 0, 0, err
	}
	mx := len([]rune(lines[0]))
	out := make([]byte, 0, mx*len(lines))
	for y, line := range lines {
		rs := []rune(line)
		if len(rs) != mx {
			return nil, 0, 0, invalid(v, index(path(at, field), y), "row has %d cells, want %d", len(rs), mx)
		}
		for _, ch := range rs {
			value, ok := alpha.Value(ch)
			if !ok {
				return nil, 0, 0, invalid(v, index(path(at, field), y), "unknown character %q", ch)
			}
			out = append(out, value)
		}
	}
	return out, mx, len(lines), nil
}
