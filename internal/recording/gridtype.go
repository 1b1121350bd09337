package recording

import (
	"fmt"

	"github.com/roach88/mjgrid/internal/grid"
)

// Kind is the geometry of a recorded grid.
type Kind string

const (
	Cartesian2D Kind = "cartesian2d"
	Cartesian3D Kind = "cartesian3d"
	Polar2D     Kind = "polar2d"
	Spherical3D Kind = "spherical3d"
)

// ParseKind validates a stored kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case Cartesian2D, Cartesian3D, Polar2D, Spherical3D:
		return k, nil
	}
	return "", fmt.Errorf("recording: unknown grid kind %q", s)
}

// GridType describes the geometry behind a state. For polar grids MX and MY
// mirror ThetaDivisions and RDepth; spherical grids add PhiDivisions as MY and
// move RDepth to MZ.
type GridType struct {
	Kind           Kind `json:"kind"`
	MX             int  `json:"mx"`
	MY             int  `json:"my"`
	MZ             int  `json:"mz"`
	RMin           int  `json:"r_min,omitempty"`
	RDepth         int  `json:"r_depth,omitempty"`
	ThetaDivisions int  `json:"theta_divisions,omitempty"`
	PhiDivisions   int  `json:"phi_divisions,omitempty"`
}

// TotalCells is the state length a grid of this type holds.
func (t GridType) TotalCells() int {
	switch t.Kind {
	case Polar2D:
		return t.RDepth * t.ThetaDivisions
	case Spherical3D:
		return t.RDepth * t.ThetaDivisions * t.PhiDivisions
	}
	return t.MX * t.MY * t.MZ
}

func (t GridType) String() string {
	switch t.Kind {
	case Polar2D:
		return fmt.Sprintf("%s r%d+%d θ%d", t.Kind, t.RMin, t.RDepth, t.ThetaDivisions)
	case Spherical3D:
		return fmt.Sprintf("%s r%d+%d θ%d φ%d", t.Kind, t.RMin, t.RDepth, t.ThetaDivisions, t.PhiDivisions)
	}
	return fmt.Sprintf("%s %dx%dx%d", t.Kind, t.MX, t.MY, t.MZ)
}

// TypeOf returns the geometry of g.
func TypeOf(g grid.Ops) GridType {
	switch p := g.(type) {
	case *grid.PolarGrid:
		return GridType{
			Kind:           Polar2D,
			MX:             p.ThetaDivisions,
			MY:             p.RDepth,
			MZ:             1,
			RMin:           p.RMin,
			RDepth:         p.RDepth,
			ThetaDivisions: p.ThetaDivisions,
		}
	case *grid.SphericalGrid:
		return GridType{
			Kind:           Spherical3D,
			MX:             p.ThetaDivisions,
			MY:             p.PhiDivisions,
			MZ:             p.RDepth,
			RMin:           p.RMin,
			RDepth:         p.RDepth,
			ThetaDivisions: p.ThetaDivisions,
			PhiDivisions:   p.PhiDivisions,
		}
	}
	mx, my, mz := g.Dims()
	kind := Cartesian3D
	if g.Is2D() {
		kind = Cartesian2D
	}
	return GridType{Kind: kind, MX: mx, MY: my, MZ: mz}
}

// NewGrid builds an empty grid of type t over palette.
func NewGrid(t GridType, palette string) (grid.Ops, error) {
	switch t.Kind {
	case Polar2D:
		return grid.NewPolarDivisions(t.RMin, t.RDepth, t.ThetaDivisions, palette)
	case Spherical3D:
		return grid.NewSpherical(t.RMin, t.RDepth, t.ThetaDivisions, t.PhiDivisions, palette)
	case Cartesian2D, Cartesian3D:
		return grid.New(t.MX, t.MY, t.MZ, palette)
	}
	return nil, fmt.Errorf("recording: unknown grid kind %q", t.Kind)
}
