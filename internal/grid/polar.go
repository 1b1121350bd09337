package grid

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// MinThetaDivisions keeps very small rings from degenerating.
const MinThetaDivisions = 6

// PolarGrid stores cells on concentric rings. Every ring has the same number
// of theta divisions, so radial neighbours line up exactly.
//
// Flat index: theta + r*ThetaDivisions. Dims reports (ThetaDivisions, RDepth, 1).
type PolarGrid struct {
	RMin           int
	RDepth         int
	ThetaDivisions int
	TargetArc      float64

	state []byte
	mask  []bool
	alpha *Alphabet
}

var (
	_ Ops      = (*PolarGrid)(nil)
	_ Periodic = (*PolarGrid)(nil)
)

// PolarNeighbors lists the adjacent cells of a polar cell. Radial neighbours
// are absent at the inner and outer rings; theta always wraps.
type PolarNeighbors struct {
	ThetaMinus [2]int
	ThetaPlus  [2]int
	RMinus     *[2]int
	RPlus      *[2]int
}

// ThetaDivisionsFor returns floor(2*pi*r/targetArc), at least MinThetaDivisions.
func ThetaDivisionsFor(r int, targetArc float64) int {
	n := int(math.Floor(2 * math.Pi * float64(r) / targetArc))
	return max(n, MinThetaDivisions)
}

// NewPolar creates a cleared polar grid.
func NewPolar(rMin, rDepth int, targetArc float64, values string) (*PolarGrid, error) {
	if targetArc <= 0 {
		return nil, ErrOutOfBounds
	}
	p, err := NewPolarDivisions(rMin, rDepth, ThetaDivisionsFor(rMin, targetArc), values)
	if err != nil {
		return nil, err
	}
	p.TargetArc = targetArc
	return p, nil
}

// NewPolarDivisions creates a cleared polar grid with an explicit number of
// theta divisions, as stored alongside recorded frames.
func NewPolarDivisions(rMin, rDepth, theta int, values string) (*PolarGrid, error) {
	alpha, err := NewAlphabet(values)
	if err != nil {
		return nil, err
	}
	if rDepth < 1 || rMin < 0 || theta < 1 {
		return nil, ErrOutOfBounds
	}
	n := theta * rDepth
	return &PolarGrid{
		RMin:           rMin,
		RDepth:         rDepth,
		ThetaDivisions: theta,
		TargetArc:      2 * math.Pi * float64(rMin) / float64(theta),
		state:          make([]byte, n),
		mask:           make([]bool, n),
		alpha:          alpha,
	}, nil
}

func (p *PolarGrid) Len() int { return len(p.state) }
func (p *PolarGrid) Dims() (int, int, int) { return p.ThetaDivisions, p.RDepth, 1 }
func (p *PolarGrid) Is2D() bool { return true }
func (p *PolarGrid) State() []byte { return p.state }
func (p *PolarGrid) Mask() []bool { return p.mask }
func (p *PolarGrid) At(i int) byte { return p.state[i] }
func (p *PolarGrid) SetAt(i int, v byte) { p.state[i] = v }
func (p *PolarGrid) Alphabet() *Alphabet { return p.alpha }
func (p *PolarGrid) Clear() { clear(p.state); clear(p.mask) }
func (p *PolarGrid) ClearMask() { clear(p.mask) }

// Periodic reports that theta (the x axis) wraps and r does not.
func (p *PolarGrid) Periodic() (bool, bool, bool) { return true, false, false }

func (p *PolarGrid) index(r, theta int) int {
	t := theta % p.ThetaDivisions
	if t < 0 {
		t += p.ThetaDivisions
	}
	return t + r*p.ThetaDivisions
}

// GetPolar reads (r, theta). Theta wraps; an out-of-range ring yields NoValue.
func (p *PolarGrid) GetPolar(r, theta int) byte {
	if r < 0 || r >= p.RDepth {
		return NoValue
	}
	return p.state[p.index(r, theta)]
}

// SetPolar writes (r, theta). Theta wraps.
func (p *PolarGrid) SetPolar(r, theta int, v byte) error {
	if r < 0 || r >= p.RDepth {
		return ErrOutOfBounds
	}
	if int(v) >= p.alpha.NumValues() {
		return ErrValueOutOfRange
	}
	p.state[p.index(r, theta)] = v
	return nil
}

// RActual is the physical radius of ring r.
func (p *PolarGrid) RActual(r int) int {
	return p.RMin + r
}

// AngularRange returns the start and end angle of a cell in radians.
func (p *PolarGrid) AngularRange(theta int) (float64, float64) {
	divs := float64(p.ThetaDivisions)
	t := float64(((theta % p.ThetaDivisions) + p.ThetaDivisions) % p.ThetaDivisions)
	return t / divs * 2 * math.Pi, (t + 1) / divs * 2 * math.Pi
}

// ToCartesian returns the centre of a cell in the plane.
func (p *PolarGrid) ToCartesian(r, theta int) (float64, float64) {
	start, end := p.AngularRange(theta)
	mid := (start + end) / 2
	ra := float64(p.RActual(r))
	return ra * math.Cos(mid), ra * math.Sin(mid)
}

// Neighbors returns the adjacent cells of (r, theta).
func (p *PolarGrid) Neighbors(r, theta int) PolarNeighbors {
	t := ((theta % p.ThetaDivisions) + p.ThetaDivisions) % p.ThetaDivisions
	n := PolarNeighbors{
		ThetaMinus: [2]int{r, (t + p.ThetaDivisions - 1) % p.ThetaDivisions},
		ThetaPlus:  [2]int{r, (t + 1) % p.ThetaDivisions},
	}
	if r > 0 {
		n.RMinus = &[2]int{r - 1, t}
	}
	if r < p.RDepth-1 {
		n.RPlus = &[2]int{r + 1, t}
	}
	return n
}

// Count returns how many cells hold v.
func (p *PolarGrid) Count(v byte) int {
	return countValue(p.state, v)
}

// Checksum is a stable digest of geometry and state.
func (p *PolarGrid) Checksum() uint64 {
	h := sha256.New()
	var hdr [12]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(p.RMin))
	binary.LittleEndian.PutUint32(hdr[4:], uint32(p.RDepth))
	binary.LittleEndian.PutUint32(hdr[8:], uint32(p.ThetaDivisions))
	h.Write(hdr[:])
	h.Write(p.state)
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum[:8])
}

func (p *PolarGrid) StateToBytes() []byte {
	return copyState(p.state)
}

func (p *PolarGrid) StateFromBytes(b []byte) error {
	return restoreState(p.state, b, p.alpha)
}
