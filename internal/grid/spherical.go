package grid

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// SphericalGrid stores cells on concentric shells split into theta and phi
// divisions. Theta always wraps; phi wraps when there is more than one
// division; r is bounded.
//
// Flat index: theta + phi*ThetaDivisions + r*ThetaDivisions*PhiDivisions.
// Dims reports (ThetaDivisions, PhiDivisions, RDepth).
type SphericalGrid struct {
	RMin           int
	RDepth         int
	ThetaDivisions int
	PhiDivisions   int

	state []byte
	mask  []bool
	alpha *Alphabet
}

var (
	_ Ops      = (*SphericalGrid)(nil)
	_ Periodic = (*SphericalGrid)(nil)
)

// NewSpherical creates a cleared spherical grid.
func NewSpherical(rMin, rDepth, theta, phi int, values string) (*SphericalGrid, error) {
	alpha, err := NewAlphabet(values)
	if err != nil {
		return nil, err
	}
	if rDepth < 1 || rMin < 0 || theta < 1 || phi < 1 {
		return nil, ErrOutOfBounds
	}
	n := theta * phi * rDepth
	return &SphericalGrid{
		RMin:           rMin,
		RDepth:         rDepth,
		ThetaDivisions: theta,
		PhiDivisions:   phi,
		state:          make([]byte, n),
		mask:           make([]bool, n),
		alpha:          alpha,
	}, nil
}

func (s *SphericalGrid) Len() int { return len(s.state) }
func (s *SphericalGrid) Dims() (int, int, int) {
	return s.ThetaDivisions, s.PhiDivisions, s.RDepth
}
func (s *SphericalGrid) Is2D() bool          { return false }
func (s *SphericalGrid) State() []byte       { return s.state }
func (s *SphericalGrid) Mask() []bool        { return s.mask }
func (s *SphericalGrid) At(i int) byte       { return s.state[i] }
func (s *SphericalGrid) SetAt(i int, v byte) { s.state[i] = v }
func (s *SphericalGrid) Alphabet() *Alphabet { return s.alpha }
func (s *SphericalGrid) Clear()              { clear(s.state); clear(s.mask) }
func (s *SphericalGrid) ClearMask()          { clear(s.mask) }

// Periodic reports that theta wraps, phi wraps when split, and r is bounded.
func (s *SphericalGrid) Periodic() (bool, bool, bool) {
	return true, s.PhiDivisions > 1, false
}

func (s *SphericalGrid) index(r, theta, phi int) (int, bool) {
	return Index(s, theta, phi, r)
}

// GetSpherical reads (r, theta, phi). An out-of-range shell yields NoValue.
func (s *SphericalGrid) GetSpherical(r, theta, phi int) byte {
	i, ok := s.index(r, theta, phi)
	if !ok {
		return NoValue
	}
	return s.state[i]
}

// SetSpherical writes (r, theta, phi).
func (s *SphericalGrid) SetSpherical(r, theta, phi int, v byte) error {
	i, ok := s.index(r, theta, phi)
	if !ok {
		return ErrOutOfBounds
	}
	if int(v) >= s.alpha.NumValues() {
		return ErrValueOutOfRange
	}
	s.state[i] = v
	return nil
}

// Neighbors returns the flat indices adjacent to (r, theta, phi) in the order
// -theta, +theta, -phi, +phi, -r, +r. Missing neighbours are skipped.
func (s *SphericalGrid) Neighbors(r, theta, phi int) []int {
	out := make([]int, 0, 6)
	for _, d := range [6][3]int{{0, -1, 0}, {0, 1, 0}, {0, 0, -1}, {0, 0, 1}, {-1, 0, 0}, {1, 0, 0}} {
		if d[2] != 0 && s.PhiDivisions == 1 {
			continue
		}
		if i, ok := s.index(r+d[0], theta+d[1], phi+d[2]); ok {
			out = append(out, i)
		}
	}
	return out
}

// ToCartesian returns the centre of a cell in space.
func (s *SphericalGrid) ToCartesian(r, theta, phi int) (float64, float64, float64) {
	ra := float64(s.RMin + r)
	th := (float64(theta) + 0.5) / float64(s.ThetaDivisions) * 2 * math.Pi
	ph := (float64(phi) + 0.5) / float64(s.PhiDivisions) * math.Pi
	return ra * math.Sin(ph) * math.Cos(th), ra * math.Sin(ph) * math.Sin(th), ra * math.Cos(ph)
}

// Count returns how many cells hold v.
func (s *SphericalGrid) Count(v byte) int {
	return countValue(s.state, v)
}

// Checksum is a stable digest of geometry and state.
func (s *SphericalGrid) Checksum() uint64 {
	h := sha256.New()
	var hdr [16]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(s.RMin))
	binary.LittleEndian.PutUint32(hdr[4:], uint32(s.RDepth))
	binary.LittleEndian.PutUint32(hdr[8:], uint32(s.ThetaDivisions))
	binary.LittleEndian.PutUint32(hdr[12:], uint32(s.PhiDivisions))
	h.Write(hdr[:])
	h.Write(s.state)
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum[:8])
}

func (s *SphericalGrid) StateToBytes() []byte {
	return copyState(s.state)
}

func (s *SphericalGrid) StateFromBytes(b []byte) error {
	return restoreState(s.state, b, s.alpha)
}
