package rule

import (
	"fmt"
	"math/bits"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/mjgrid/internal/grid"
)

// NoOp in an output pattern leaves the cell unchanged.
const NoOp byte = 0xff

// Shift is an offset inside a rule's input extent.
type Shift struct {
	X, Y, Z int
}

// Rule is an immutable local rewrite from an input wave pattern to an output
// value pattern.
//
// Input cells are waves: the cell matches if (Input[i] & (1 << value)) != 0.
// Output cells are values, or NoOp. Output extent may exceed input extent
// for scaling rules.
type Rule struct {
	Input  []uint32
	Output []byte

	IMX, IMY, IMZ int
	OMX, OMY, OMZ int

	// C is the number of values in the input alphabet.
	C int
	P float64

	// IShifts[v] lists input offsets whose wave admits v. A grid cell holding
	// v can only be covered by an anchor at position minus one of these.
	IShifts [][]Shift

	// BInput is Input collapsed to single values: NoOp where the wave admits
	// every value, otherwise the lowest admitted value. Backward potentials
	// write it as the predecessor of a matched output.
	BInput []byte

	// OShifts[v] lists output offsets that write v; NoOp cells count for
	// every value. Nil unless output and input extents agree.
	OShifts [][]Shift
}

// New builds a rule from flat patterns and computes its shift index.
func New(input []uint32, imx, imy, imz int, output []byte, omx, omy, omz int, c int, p float64) *Rule {
	r := &Rule{
		Input:  input,
		Output: output,
		IMX:    imx,
		IMY:    imy,
		IMZ:    imz,
		OMX:    omx,
		OMY:    omy,
		OMZ:    omz,
		C:      c,
		P:      p,
	}
	r.index()
	return r
}

func (r *Rule) index() {
	full := uint32(1)<<uint(r.C) - 1
	r.BInput = make([]byte, len(r.Input))
	for i, w := range r.Input {
		if w == full {
			r.BInput[i] = NoOp
		} else {
			r.BInput[i] = byte(bits.TrailingZeros32(w))
		}
	}

	r.IShifts = make([][]Shift, r.C)
	for z := 0; z < r.IMZ; z++ {
		for y := 0; y < r.IMY; y++ {
			for x := 0; x < r.IMX; x++ {
				w := r.Input[x+y*r.IMX+z*r.IMX*r.IMY]
				for c := 0; c < r.C; c++ {
					if w&(1<<uint(c)) != 0 {
						r.IShifts[c] = append(r.IShifts[c], Shift{x, y, z})
					}
				}
			}
		}
	}

	if r.OMX != r.IMX || r.OMY != r.IMY || r.OMZ != r.IMZ {
		return
	}
	r.OShifts = make([][]Shift, r.C)
	for z := 0; z < r.OMZ; z++ {
		for y := 0; y < r.OMY; y++ {
			for x := 0; x < r.OMX; x++ {
				o := r.Output[x+y*r.OMX+z*r.OMX*r.OMY]
				if o == NoOp {
					for c := range r.OShifts {
						r.OShifts[c] = append(r.OShifts[c], Shift{x, y, z})
					}
				} else if int(o) < r.C {
					r.OShifts[o] = append(r.OShifts[o], Shift{x, y, z})
				}
			}
		}
	}
}

// Parse builds a same-grid rule from input and output pattern strings.
//
// Pattern grammar: ' ' separates Z layers (the first layer written is the
// top, z = MZ-1), '/' separates Y rows, characters run along X. In the input
// '*' accepts anything; in the output '*' means NoOp.
func Parse(alpha *grid.Alphabet, input, output string, p float64) (*Rule, error) {
	r, err := ParseMapped(alpha, alpha, input, output, p)
	if err != nil {
		return nil, err
	}
	if r.IMX != r.OMX || r.IMY != r.OMY || r.IMZ != r.OMZ {
		return nil, &ParseError{
			Kind:    DimensionMismatch,
			Message: fmt.Sprintf("input is %dx%dx%d, output is %dx%dx%d", r.IMX, r.IMY, r.IMZ, r.OMX, r.OMY, r.OMZ),
		}
	}
	return r, nil
}

// ParseMapped builds a rule whose input is read in one alphabet and whose
// output is written in another, with independent extents. Used by scaling
// map rules.
func ParseMapped(in, out *grid.Alphabet, input, output string, p float64) (*Rule, error) {
	inChars, imx, imy, imz, err := parsePattern(input)
	if err != nil {
		return nil, err
	}
	outChars, omx, omy, omz, err := parsePattern(output)
	if err != nil {
		return nil, err
	}
	if p < 0 || p > 1 {
		return nil, &ParseError{Kind: InvalidProbability, Message: fmt.Sprintf("p = %g", p)}
	}

	waves := make([]uint32, len(inChars))
	for i, ch := range inChars {
		w, ok := in.Wave(ch)
		if !ok {
			return nil, &ParseError{Kind: UnknownCharacter, Char: ch, Message: "input " + input}
		}
		waves[i] = w
	}

	values := make([]byte, len(outChars))
	for i, ch := range outChars {
		if ch == grid.Wildcard {
			values[i] = NoOp
			continue
		}
		v, ok := out.Value(ch)
		if !ok {
			return nil, &ParseError{Kind: UnknownCharacter, Char: ch, Message: "output " + output}
		}
		values[i] = v
	}

	return New(waves, imx, imy, imz, values, omx, omy, omz, in.NumValues(), p), nil
}

// parsePattern returns the characters of s in x + y*MX + z*MX*MY order.
// The pattern is NFC-normalized first so it agrees with the alphabet.
func parsePattern(s string) ([]rune, int, int, int, error) {
	s = norm.NFC.String(s)
	if s == "" {
		return nil, 0, 0, 0, &ParseError{Kind: EmptyPattern}
	}
	layers := strings.Split(s, " ")
	mz := len(layers)
	first := strings.Split(layers[0], "/")
	my := len(first)
	mx := len([]rune(first[0]))
	if mx == 0 {
		return nil, 0, 0, 0, &ParseError{Kind: EmptyPattern, Message: s}
	}

	out := make([]rune, mx*my*mz)
	for z := 0; z < mz; z++ {
		rows := strings.Split(layers[mz-1-z], "/")
		if len(rows) != my {
			return nil, 0, 0, 0, &ParseError{Kind: NonRectangular, Message: s}
		}
		for y, row := range rows {
			rs := []rune(row)
			if len(rs) != mx {
				return nil, 0, 0, 0, &ParseError{Kind: NonRectangular, Message: s}
			}
			for x, ch := range rs {
				out[x+y*mx+z*mx*my] = ch
			}
		}
	}
	return out, mx, my, mz, nil
}

// ZRotated rotates the XY plane by 90 degrees.
func (r *Rule) ZRotated() *Rule {
	in := make([]uint32, len(r.Input))
	nimx, nimy := r.IMY, r.IMX
	for z := 0; z < r.IMZ; z++ {
		for y := 0; y < nimy; y++ {
			for x := 0; x < nimx; x++ {
				in[x+y*nimx+z*nimx*nimy] = r.Input[(r.IMX-1-y)+x*r.IMX+z*r.IMX*r.IMY]
			}
		}
	}
	out := make([]byte, len(r.Output))
	nomx, nomy := r.OMY, r.OMX
	for z := 0; z < r.OMZ; z++ {
		for y := 0; y < nomy; y++ {
			for x := 0; x < nomx; x++ {
				out[x+y*nomx+z*nomx*nomy] = r.Output[(r.OMX-1-y)+x*r.OMX+z*r.OMX*r.OMY]
			}
		}
	}
	return New(in, nimx, nimy, r.IMZ, out, nomx, nomy, r.OMZ, r.C, r.P)
}

// Reflected mirrors the rule along X.
func (r *Rule) Reflected() *Rule {
	in := make([]uint32, len(r.Input))
	for z := 0; z < r.IMZ; z++ {
		for y := 0; y < r.IMY; y++ {
			for x := 0; x < r.IMX; x++ {
				in[x+y*r.IMX+z*r.IMX*r.IMY] = r.Input[(r.IMX-1-x)+y*r.IMX+z*r.IMX*r.IMY]
			}
		}
	}
	out := make([]byte, len(r.Output))
	for z := 0; z < r.OMZ; z++ {
		for y := 0; y < r.OMY; y++ {
			for x := 0; x < r.OMX; x++ {
				out[x+y*r.OMX+z*r.OMX*r.OMY] = r.Output[(r.OMX-1-x)+y*r.OMX+z*r.OMX*r.OMY]
			}
		}
	}
	return New(in, r.IMX, r.IMY, r.IMZ, out, r.OMX, r.OMY, r.OMZ, r.C, r.P)
}

// YRotated rotates the XZ plane by 90 degrees: (x, y, z) -> (z, y, MX-1-x).
func (r *Rule) YRotated() *Rule {
	in := make([]uint32, len(r.Input))
	nimx, nimy, nimz := r.IMZ, r.IMY, r.IMX
	for z := 0; z < nimz; z++ {
		for y := 0; y < nimy; y++ {
			for x := 0; x < nimx; x++ {
				in[x+y*nimx+z*nimx*nimy] = r.Input[(r.IMX-1-z)+y*r.IMX+x*r.IMX*r.IMY]
			}
		}
	}
	out := make([]byte, len(r.Output))
	nomx, nomy, nomz := r.OMZ, r.OMY, r.OMX
	for z := 0; z < nomz; z++ {
		for y := 0; y < nomy; y++ {
			for x := 0; x < nomx; x++ {
				out[x+y*nomx+z*nomx*nomy] = r.Output[(r.OMX-1-z)+y*r.OMX+x*r.OMX*r.OMY]
			}
		}
	}
	return New(in, nimx, nimy, nimz, out, nomx, nomy, nomz, r.C, r.P)
}

// Same reports structural equality of extents and patterns.
func (r *Rule) Same(o *Rule) bool {
	if r.IMX != o.IMX || r.IMY != o.IMY || r.IMZ != o.IMZ ||
		r.OMX != o.OMX || r.OMY != o.OMY || r.OMZ != o.OMZ {
		return false
	}
	for i := range r.Input {
		if r.Input[i] != o.Input[i] {
			return false
		}
	}
	for i := range r.Output {
		if r.Output[i] != o.Output[i] {
			return false
		}
	}
	return true
}

// Footprint is the extent covered when the rule is placed: the larger of
// input and output on each axis.
func (r *Rule) Footprint() (int, int, int) {
	return max(r.IMX, r.OMX), max(r.IMY, r.OMY), max(r.IMZ, r.OMZ)
}
