package grid

// Empty is the identifier a View returns for cells outside the grid.
const Empty uint32 = 0

// View translates grid values into identifiers of an external domain
// (materials, block IDs, palette entries) without copying the grid.
//
// Characters missing from the mapping translate to value+1 so that every
// value stays distinct from Empty.
type View struct {
	ops  Ops
	ids  []uint32
	zoff int
}

// NewView builds a view over g using the given character mapping.
func NewView(g Ops, charToID map[rune]uint32) *View {
	alpha := g.Alphabet()
	ids := make([]uint32, alpha.NumValues())
	for i := range ids {
		ch, _ := alpha.Char(byte(i))
		if id, ok := charToID[ch]; ok {
			ids[i] = id
		} else {
			ids[i] = uint32(i) + 1
		}
	}
	return &View{ops: g, ids: ids}
}

// Layer selects the z layer used by Get. The default is 0.
func (v *View) Layer(z int) *View {
	out := *v
	out.zoff = z
	return &out
}

// Get returns the external ID at (x, y) on the selected layer, or Empty.
func (v *View) Get(x, y int) uint32 {
	return v.Get3(x, y, v.zoff)
}

// Get3 returns the external ID at (x, y, z), or Empty. Dimensions are read
// from the grid on every call, so a view survives Resize.
func (v *View) Get3(x, y, z int) uint32 {
	mx, my, mz := v.ops.Dims()
	if x < 0 || y < 0 || z < 0 || x >= mx || y >= my || z >= mz {
		return Empty
	}
	val := v.ops.At(x + y*mx + z*mx*my)
	if int(val) >= len(v.ids) {
		return Empty
	}
	return v.ids[val]
}

// Dims returns the dimensions of the viewed grid.
func (v *View) Dims() (int, int, int) {
	return v.ops.Dims()
}
