package wfc

import (
	"math"

	"github.com/roach88/mjgrid/internal/rng"
)

// Status is the outcome of one observation step.
type Status int

const (
	// Progress means a cell was observed and the wave is still consistent.
	Progress Status = iota
	// Done means every observable cell is collapsed.
	Done
	// Contradiction means some cell ran out of patterns.
	Contradiction
)

func (s Status) String() string {
	switch s {
	case Progress:
		return "progress"
	case Done:
		return "done"
	case Contradiction:
		return "contradiction"
	}
	return "unknown"
}

// Config describes a solver. Propagator[d][p] lists the patterns allowed in
// the neighbour at direction d of a cell holding p.
type Config struct {
	Propagator [][][]int
	Weights    []float64

	// N is the pattern extent. In non-periodic mode cells whose pattern
	// would leave the grid are never observed.
	N        int
	Periodic bool
	Shannon  bool

	MX, MY, MZ int
}

type banned struct {
	cell, p int
}

// Solver runs observe/propagate over a Wave.
type Solver struct {
	cfg Config

	wave  *Wave
	start *Wave

	weightLogs      []float64
	sumOfWeights    float64
	sumOfWeightLogs float64
	startingEntropy float64

	stack        []banned
	distribution []float64
	failed       bool
}

// NewSolver allocates wave storage for cfg.
func NewSolver(cfg Config) *Solver {
	length := cfg.MX * cfg.MY * cfg.MZ
	patterns := len(cfg.Weights)
	dirs := len(cfg.Propagator)

	s := &Solver{
		cfg:          cfg,
		wave:         NewWave(length, patterns, dirs, cfg.Shannon),
		start:        NewWave(length, patterns, dirs, cfg.Shannon),
		weightLogs:   make([]float64, patterns),
		distribution: make([]float64, patterns),
	}
	for p, w := range cfg.Weights {
		if w > 0 {
			s.weightLogs[p] = w * math.Log(w)
		}
		s.sumOfWeights += w
		s.sumOfWeightLogs += s.weightLogs[p]
	}
	if s.sumOfWeights > 0 {
		s.startingEntropy = math.Log(s.sumOfWeights) - s.sumOfWeightLogs/s.sumOfWeights
	}
	return s
}

func (s *Solver) Wave() *Wave { return s.wave }
func (s *Solver) Config() Config { return s.cfg }

// Init resets the wave, bans every pattern admissible rejects, propagates
// and remembers the result as the restart point. It returns false when the
// constraints alone are contradictory.
func (s *Solver) Init(admissible func(cell, p int) bool) bool {
	s.stack = s.stack[:0]
	s.failed = false
	s.wave.Init(s.cfg.Propagator, s.sumOfWeights, s.sumOfWeightLogs, s.startingEntropy)

	if admissible != nil {
		for i := 0; i < s.wave.Length; i++ {
			for p := 0; p < s.wave.P; p++ {
				if !admissible(i, p) && s.wave.Possible(i, p) {
					s.Ban(i, p)
				}
			}
		}
	}
	if !s.Propagate() {
		return false
	}
	s.start.CopyFrom(s.wave)
	return true
}

// Restart returns the wave to the state saved by Init.
func (s *Solver) Restart() {
	s.stack = s.stack[:0]
	s.failed = false
	s.wave.CopyFrom(s.start)
}

// Ban removes p from cell and queues the removal for propagation.
func (s *Solver) Ban(cell, p int) {
	if s.wave.remove(cell, p, s.cfg.Weights[p], s.weightLogs[p]) == 0 {
		s.failed = true
	}
	s.stack = append(s.stack, banned{cell, p})
}

// Propagate drains the ban stack. It returns false when any cell has no
// pattern left.
func (s *Solver) Propagate() bool {
	mx, my, mz := s.cfg.MX, s.cfg.MY, s.cfg.MZ
	for len(s.stack) > 0 {
		b := s.stack[len(s.stack)-1]
		s.stack = s.stack[:len(s.stack)-1]

		x1 := b.cell % mx
		y1 := (b.cell % (mx * my)) / mx
		z1 := b.cell / (mx * my)

		for d := range s.cfg.Propagator {
			x2, y2, z2 := x1+DX[d], y1+DY[d], z1+DZ[d]
			if !s.cfg.Periodic && (x2 < 0 || y2 < 0 || z2 < 0 ||
				x2+s.cfg.N > mx || y2+s.cfg.N > my || z2+1 > mz) {
				continue
			}
			x2, y2, z2 = wrap(x2, mx), wrap(y2, my), wrap(z2, mz)
			i2 := x2 + y2*mx + z2*mx*my

			for _, t2 := range s.cfg.Propagator[d][b.p] {
				if s.wave.decrement(i2, t2, d) == 0 {
					s.Ban(i2, t2)
				}
			}
		}
	}
	return !s.failed
}

// NextUnobserved returns the observable cell with the lowest entropy among
// those with more than one pattern left, or -1 when none remain. Ties are
// broken by a small random perturbation.
func (s *Solver) NextUnobserved(r *rng.RNG) int {
	mx, my, mz := s.cfg.MX, s.cfg.MY, s.cfg.MZ
	minEntropy := 1e4
	argmin := -1
	for z := 0; z < mz; z++ {
		for y := 0; y < my; y++ {
			for x := 0; x < mx; x++ {
				if !s.cfg.Periodic && (x+s.cfg.N > mx || y+s.cfg.N > my || z+1 > mz) {
					continue
				}
				i := x + y*mx + z*mx*my
				if s.wave.Remaining(i) <= 1 {
					continue
				}
				e := s.wave.Entropy(i)
				if e <= minEntropy {
					noise := 1e-6 * r.Float64()
					if e+noise < minEntropy {
						minEntropy = e + noise
						argmin = i
					}
				}
			}
		}
	}
	return argmin
}

// Observe collapses cell to one of its patterns, weighted by pattern weight.
func (s *Solver) Observe(cell int, r *rng.RNG) {
	for p := range s.distribution {
		if s.wave.Possible(cell, p) {
			s.distribution[p] = s.cfg.Weights[p]
		} else {
			s.distribution[p] = 0
		}
	}
	pick := rng.Weighted(s.distribution, r.Float64())
	for p := range s.distribution {
		if p != pick && s.wave.Possible(cell, p) {
			s.Ban(cell, p)
		}
	}
}

// Step observes one cell and propagates.
func (s *Solver) Step(r *rng.RNG) Status {
	if s.failed {
		return Contradiction
	}
	cell := s.NextUnobserved(r)
	if cell < 0 {
		return Done
	}
	s.Observe(cell, r)
	if !s.Propagate() {
		return Contradiction
	}
	return Progress
}

// GoodSeed tries up to tries child seeds drawn from parent, running each to
// completion from the restart point. It returns the first seed that
// completes without contradiction and leaves the wave at the restart point.
func (s *Solver) GoodSeed(parent *rng.RNG, tries int) (uint64, bool) {
	defer s.Restart()
	for k := 0; k < tries; k++ {
		seed := parent.Child()
		local := rng.New(seed)
		s.Restart()
		for {
			st := s.Step(local)
			if st == Done {
				return seed, true
			}
			if st == Contradiction {
				break
			}
		}
	}
	return 0, false
}

func wrap(v, m int) int {
	if v < 0 {
		return v + m
	}
	if v >= m {
		return v - m
	}
	return v
}
