package grid

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDimensionMismatch is returned when a state snapshot does not fit the grid.
	ErrDimensionMismatch = errors.New("grid: state length does not match grid dimensions")

	// ErrValueOutOfRange is returned when a write uses a value outside the alphabet.
	ErrValueOutOfRange = errors.New("grid: value out of range")

	// ErrOutOfBounds is returned by strict writes outside the grid.
	ErrOutOfBounds = errors.New("grid: position out of bounds")
)

// Ops is the flat-index contract shared by every grid geometry.
//
// Rules, fields and nodes are written against Ops only. Dims reports the
// extent used for x + y*mx + z*mx*my indexing; a non-Cartesian grid maps its
// own coordinates onto that layout.
type Ops interface {
	Len() int
	Dims() (mx, my, mz int)
	Is2D() bool

	// State and Mask expose the live backing arrays.
	State() []byte
	Mask() []bool

	At(i int) byte
	SetAt(i int, v byte)

	Clear()
	ClearMask()

	Alphabet() *Alphabet

	StateToBytes() []byte
	StateFromBytes(b []byte) error
}

// Grid is a dense Cartesian grid, x fastest, then y, then z.
type Grid struct {
	MX, MY, MZ int

	state []byte
	mask  []bool
	alpha *Alphabet
}

var _ Ops = (*Grid)(nil)

// New creates a cleared grid with the given dimensions and alphabet.
func New(mx, my, mz int, values string) (*Grid, error) {
	alpha, err := NewAlphabet(values)
	if err != nil {
		return nil, err
	}
	return NewWithAlphabet(mx, my, mz, alpha)
}

// NewWithAlphabet creates a grid that shares an already built alphabet.
func NewWithAlphabet(mx, my, mz int, alpha *Alphabet) (*Grid, error) {
	if mx < 1 || my < 1 || mz < 1 {
		return nil, fmt.Errorf("grid: invalid dimensions %dx%dx%d", mx, my, mz)
	}
	n := mx * my * mz
	return &Grid{
		MX:    mx,
		MY:    my,
		MZ:    mz,
		state: make([]byte, n),
		mask:  make([]bool, n),
		alpha: alpha,
	}, nil
}

// MustNew is New for tests and fixed configurations; it panics on error.
func MustNew(mx, my, mz int, values string) *Grid {
	g, err := New(mx, my, mz, values)
	if err != nil {
		panic(err)
	}
	return g
}

func (g *Grid) Len() int { return len(g.state) }
func (g *Grid) Dims() (int, int, int) { return g.MX, g.MY, g.MZ }
func (g *Grid) Is2D() bool { return g.MZ == 1 }
func (g *Grid) State() []byte { return g.state }
func (g *Grid) Mask() []bool { return g.mask }
func (g *Grid) At(i int) byte { return g.state[i] }
func (g *Grid) SetAt(i int, v byte) { g.state[i] = v }
func (g *Grid) Alphabet() *Alphabet { return g.alpha }
func (g *Grid) Index(x, y, z int) int { return x + y*g.MX + z*g.MX*g.MY }
func (g *Grid) InBounds(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < g.MX && y < g.MY && z < g.MZ
}

// Get returns the value at (x, y, z), or NoValue outside the grid.
func (g *Grid) Get(x, y, z int) byte {
	if !g.InBounds(x, y, z) {
		return NoValue
	}
	return g.state[g.Index(x, y, z)]
}

// Set writes v at (x, y, z). Writes outside the grid or outside the alphabet
// are rejected so the value invariant always holds.
func (g *Grid) Set(x, y, z int, v byte) error {
	if !g.InBounds(x, y, z) {
		return fmt.Errorf("%w: (%d,%d,%d) in %dx%dx%d", ErrOutOfBounds, x, y, z, g.MX, g.MY, g.MZ)
	}
	if int(v) >= g.alpha.NumValues() {
		return fmt.Errorf("%w: %d with %d values", ErrValueOutOfRange, v, g.alpha.NumValues())
	}
	g.state[g.Index(x, y, z)] = v
	return nil
}

// Clear zeroes every cell and the mask.
func (g *Grid) Clear() {
	clear(g.state)
	clear(g.mask)
}

// ClearMask releases every claimed cell.
func (g *Grid) ClearMask() {
	clear(g.mask)
}

// Resize reshapes the grid and clears it.
func (g *Grid) Resize(mx, my, mz int) {
	g.MX, g.MY, g.MZ = mx, my, mz
	n := mx * my * mz
	g.state = make([]byte, n)
	g.mask = make([]bool, n)
}

// Count returns how many cells hold v.
func (g *Grid) Count(v byte) int {
	return countValue(g.state, v)
}

// StateToBytes returns a copy of the state in flat order.
func (g *Grid) StateToBytes() []byte {
	return copyState(g.state)
}

// StateFromBytes restores a snapshot taken from a grid of identical dimensions.
func (g *Grid) StateFromBytes(b []byte) error {
	return restoreState(g.state, b, g.alpha)
}

// Render draws the grid as rows of characters. Z layers are separated by a
// blank line.
func (g *Grid) Render() string {
	var b strings.Builder
	for z := 0; z < g.MZ; z++ {
		if z > 0 {
			b.WriteByte('\n')
		}
		for y := 0; y < g.MY; y++ {
			start := g.Index(0, y, z)
			b.WriteString(renderRow(g.alpha, g.state[start:start+g.MX]))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// FromRows builds a 2D grid from rows of characters.
func FromRows(values string, rows ...string) (*Grid, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("grid: no rows")
	}
	mx := len([]rune(rows[0]))
	g, err := New(mx, len(rows), 1, values)
	if err != nil {
		return nil, err
	}
	for y, row := range rows {
		rs := []rune(row)
		if len(rs) != mx {
			return nil, fmt.Errorf("grid: row %d has %d cells, want %d", y, len(rs), mx)
		}
		for x, ch := range rs {
			v, ok := g.alpha.Value(ch)
			if !ok {
				return nil, &AlphabetError{Char: ch, Message: "unknown character"}
			}
			g.state[g.Index(x, y, 0)] = v
		}
	}
	return g, nil
}

func countValue(state []byte, v byte) int {
	n := 0
	for _, s := range state {
		if s == v {
			n++
		}
	}
	return n
}

func copyState(state []byte) []byte {
	out := make([]byte, len(state))
	copy(out, state)
	return out
}

func restoreState(dst, src []byte, alpha *Alphabet) error {
	if len(src) != len(dst) {
		return fmt.Errorf("%w: got %d bytes, grid has %d cells", ErrDimensionMismatch, len(src), len(dst))
	}
	for i, v := range src {
		if int(v) >= alpha.NumValues() {
			return fmt.Errorf("%w: byte %d at cell %d", ErrValueOutOfRange, v, i)
		}
	}
	copy(dst, src)
	return nil
}

// Render draws any grid as rows of characters, using the grid's own Render
// when it has one.
func Render(g Ops) string {
	if r, ok := g.(interface{ Render() string }); ok {
		return r.Render()
	}
	mx, my, mz := g.Dims()
	state := g.State()
	var b strings.Builder
	for z := 0; z < mz; z++ {
		if z > 0 {
			b.WriteByte('\n')
		}
		for y := 0; y < my; y++ {
			start := y*mx + z*mx*my
			b.WriteString(renderRow(g.Alphabet(), state[start:start+mx]))
			b.WriteByte('\n')
		}
	}
	return b.String()
}
