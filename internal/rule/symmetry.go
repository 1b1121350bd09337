package rule

// Subgroup selects elements of the square's dihedral group, in generation
// order: e, reflect(e), rot, reflect(rot), rot2, reflect(rot2), rot3,
// reflect(rot3).
type Subgroup [8]bool

// Named subgroups.
var (
	SubgroupNone      = Subgroup{true, false, false, false, false, false, false, false}
	SubgroupReflectX  = Subgroup{true, true, false, false, false, false, false, false}
	SubgroupReflectY  = Subgroup{true, false, false, false, false, true, false, false}
	SubgroupReflectXY = Subgroup{true, true, false, false, true, true, false, false}
	SubgroupRotate    = Subgroup{true, false, true, false, true, false, true, false}
	SubgroupAll       = Subgroup{true, true, true, true, true, true, true, true}
)

var subgroupNames = map[string]Subgroup{
	"()":     SubgroupNone,
	"(x)":    SubgroupReflectX,
	"(y)":    SubgroupReflectY,
	"(x)(y)": SubgroupReflectXY,
	"(xy+)":  SubgroupRotate,
	"(xy)":   SubgroupAll,
}

// ParseSubgroup resolves a subgroup name. The empty string means all eight.
func ParseSubgroup(s string) (Subgroup, error) {
	if s == "" {
		return SubgroupAll, nil
	}
	g, ok := subgroupNames[s]
	if !ok {
		return Subgroup{}, &ParseError{Kind: UnknownSubgroup, Message: s}
	}
	return g, nil
}

// Square expands r into the variants selected by subgroup, dropping any
// variant structurally equal to one already kept. The first occurrence wins,
// so r itself is always first when the identity is selected.
func Square(r *Rule, subgroup Subgroup) []*Rule {
	var all [8]*Rule
	all[0] = r
	all[1] = r.Reflected()
	all[2] = r.ZRotated()
	all[3] = all[2].Reflected()
	all[4] = all[2].ZRotated()
	all[5] = all[4].Reflected()
	all[6] = all[4].ZRotated()
	all[7] = all[6].Reflected()

	return distinct(all[:], subgroup[:])
}

// distinct keeps the selected variants, dropping structural duplicates.
func distinct(all []*Rule, selected []bool) []*Rule {
	var out []*Rule
	for i, v := range all {
		if !selected[i] {
			continue
		}
		dup := false
		for _, kept := range out {
			if kept.Same(v) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out
}

// ExpandAll applies Square to every rule in rules, preserving order.
func ExpandAll(rules []*Rule, subgroup Subgroup) []*Rule {
	var out []*Rule
	for _, r := range rules {
		out = append(out, Square(r, subgroup)...)
	}
	return out
}

// CubeSubgroup selects elements of the cube's 48-element symmetry group in
// the order Cube generates them. Even elements are rotations; odd elements
// are their mirror images along X.
type CubeSubgroup [48]bool

func cubeSubgroup(keep func(i int) bool) CubeSubgroup {
	var g CubeSubgroup
	for i := range g {
		g[i] = keep(i)
	}
	return g
}

// Named cube subgroups.
var (
	CubeNone      = cubeSubgroup(func(i int) bool { return i == 0 })
	CubeReflectX  = cubeSubgroup(func(i int) bool { return i < 2 })
	CubeReflectZ  = cubeSubgroup(func(i int) bool { return i == 0 || i == 17 })
	CubeSquare    = cubeSubgroup(func(i int) bool { return i < 8 })
	CubeRotations = cubeSubgroup(func(i int) bool { return i%2 == 0 })
	CubeAll       = cubeSubgroup(func(int) bool { return true })
)

var cubeNames = map[string]CubeSubgroup{
	"()":     CubeNone,
	"(x)":    CubeReflectX,
	"(z)":    CubeReflectZ,
	"(xy)":   CubeSquare,
	"(xyz+)": CubeRotations,
	"(xyz)":  CubeAll,
}

// ParseCubeSubgroup resolves a 3D subgroup name. The empty string means all
// 48.
func ParseCubeSubgroup(s string) (CubeSubgroup, error) {
	if s == "" {
		return CubeAll, nil
	}
	g, ok := cubeNames[s]
	if !ok {
		return CubeSubgroup{}, &ParseError{Kind: UnknownSubgroup, Message: s}
	}
	return g, nil
}

// Cube expands r into the variants selected by subgroup. Like Square, the
// first occurrence of each distinct variant wins.
func Cube(r *Rule, subgroup CubeSubgroup) []*Rule {
	var s [48]*Rule
	s[0] = r
	s[1] = r.Reflected()
	for i := 2; i < 8; i += 2 {
		s[i] = s[i-2].ZRotated()
		s[i+1] = s[i].Reflected()
	}
	// Tip the eight square variants over the Y axis, then again.
	for i := 8; i < 32; i += 2 {
		s[i] = s[i-8].YRotated()
		s[i+1] = s[i].Reflected()
	}
	// Turn the side-lying variants to cover the remaining orientations.
	for i := 32; i < 40; i += 2 {
		s[i] = s[i-24].ZRotated()
		s[i+1] = s[i].Reflected()
	}
	for i := 40; i < 48; i += 2 {
		s[i] = s[i-16].ZRotated()
		s[i+1] = s[i].Reflected()
	}
	return distinct(s[:], subgroup[:])
}

// Symmetry is a named subgroup resolved for a grid: the square group on 2D
// grids and the cube group on 3D grids.
type Symmetry struct {
	square Subgroup
	cube   CubeSubgroup
	is3D   bool
}

// ParseSymmetry resolves name for a grid of the given dimensionality.
func ParseSymmetry(name string, is2D bool) (Symmetry, error) {
	if is2D {
		g, err := ParseSubgroup(name)
		return Symmetry{square: g}, err
	}
	g, err := ParseCubeSubgroup(name)
	return Symmetry{cube: g, is3D: true}, err
}

// Expand returns the variants of r under s.
func (s Symmetry) Expand(r *Rule) []*Rule {
	if s.is3D {
		return Cube(r, s.cube)
	}
	return Square(r, s.square)
}
