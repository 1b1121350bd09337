package recording

import "github.com/roach88/mjgrid/internal/grid"

// Recordable exposes what a frame needs from a grid.
type Recordable interface {
	GridType() GridType
	Palette() string
	StateToBytes() []byte
	StateFromBytes(b []byte) error
}

// adapter lets any grid.Ops be recorded.
type adapter struct {
	grid.Ops
}

// Adapt wraps g as a Recordable.
func Adapt(g grid.Ops) Recordable {
	return adapter{g}
}

func (a adapter) GridType() GridType { return TypeOf(a.Ops) }
func (a adapter) Palette() string    { return a.Alphabet().String() }
