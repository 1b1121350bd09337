package grid

// Periodic is implemented by grids whose axes wrap around. Cartesian grids do
// not implement it and never wrap.
type Periodic interface {
	Periodic() (x, y, z bool)
}

// Wraps reports, per axis, whether g wraps.
func Wraps(g Ops) [3]bool {
	p, ok := g.(Periodic)
	if !ok {
		return [3]bool{}
	}
	x, y, z := p.Periodic()
	return [3]bool{x, y, z}
}

// Wrap folds v into [0, m) when periodic is set. It reports false when v is
// out of range on a bounded axis.
func Wrap(v, m int, periodic bool) (int, bool) {
	if v >= 0 && v < m {
		return v, true
	}
	if !periodic || m <= 0 {
		return v, false
	}
	v %= m
	if v < 0 {
		v += m
	}
	return v, true
}

// Index resolves (x, y, z) to a flat index on g, folding periodic axes.
func Index(g Ops, x, y, z int) (int, bool) {
	mx, my, mz := g.Dims()
	w := Wraps(g)
	var ok bool
	if x, ok = Wrap(x, mx, w[0]); !ok {
		return 0, false
	}
	if y, ok = Wrap(y, my, w[1]); !ok {
		return 0, false
	}
	if z, ok = Wrap(z, mz, w[2]); !ok {
		return 0, false
	}
	return x + y*mx + z*mx*my, true
}
