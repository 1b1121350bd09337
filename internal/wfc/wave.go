package wfc

import "math"

// Direction tables. 2D models use the first four entries.
var (
	DX       = [6]int{1, 0, -1, 0, 0, 0}
	DY       = [6]int{0, 1, 0, -1, 0, 0}
	DZ       = [6]int{0, 0, 0, 0, 1, -1}
	Opposite = [6]int{2, 3, 0, 1, 5, 4}
)

// Wave is the per-cell set of still possible patterns.
//
// data is indexed cell*P + p. compatible counts, for each cell, pattern and
// direction, how many patterns in the neighbour opposite that direction
// still support p; p is banned when a count reaches zero.
type Wave struct {
	Length int
	P      int
	D      int

	data       []bool
	compatible []int32
	sumsOfOnes []int32

	shannon          bool
	sumsOfWeights    []float64
	sumsOfWeightLogs []float64
	entropies        []float64
}

// NewWave allocates a wave of length cells over p patterns and d directions.
func NewWave(length, p, d int, shannon bool) *Wave {
	w := &Wave{
		Length:     length,
		P:          p,
		D:          d,
		data:       make([]bool, length*p),
		compatible: make([]int32, length*p*d),
		sumsOfOnes: make([]int32, length),
		shannon:    shannon,
	}
	if shannon {
		w.sumsOfWeights = make([]float64, length)
		w.sumsOfWeightLogs = make([]float64, length)
		w.entropies = make([]float64, length)
	}
	return w
}

// Init marks every pattern possible everywhere and seeds the compatible
// counts from the propagator.
func (w *Wave) Init(propagator [][][]int, sumOfWeights, sumOfWeightLogs, startingEntropy float64) {
	for i := 0; i < w.Length; i++ {
		for p := 0; p < w.P; p++ {
			w.data[i*w.P+p] = true
			for d := 0; d < w.D; d++ {
				w.compatible[(i*w.P+p)*w.D+d] = int32(len(propagator[Opposite[d]][p]))
			}
		}
		w.sumsOfOnes[i] = int32(w.P)
		if w.shannon {
			w.sumsOfWeights[i] = sumOfWeights
			w.sumsOfWeightLogs[i] = sumOfWeightLogs
			w.entropies[i] = startingEntropy
		}
	}
}

// CopyFrom overwrites w with src. Both waves must share their shape.
func (w *Wave) CopyFrom(src *Wave) {
	copy(w.data, src.data)
	copy(w.compatible, src.compatible)
	copy(w.sumsOfOnes, src.sumsOfOnes)
	if w.shannon {
		copy(w.sumsOfWeights, src.sumsOfWeights)
		copy(w.sumsOfWeightLogs, src.sumsOfWeightLogs)
		copy(w.entropies, src.entropies)
	}
}

func (w *Wave) Possible(cell, p int) bool { return w.data[cell*w.P+p] }
func (w *Wave) Remaining(cell int) int { return int(w.sumsOfOnes[cell]) }

// Entropy is the Shannon entropy of the cell when enabled, otherwise the
// number of remaining patterns.
func (w *Wave) Entropy(cell int) float64 {
	if w.shannon {
		return w.entropies[cell]
	}
	return float64(w.sumsOfOnes[cell])
}

// Collapsed returns the single remaining pattern of cell, or -1.
func (w *Wave) Collapsed(cell int) int {
	if w.sumsOfOnes[cell] != 1 {
		return -1
	}
	for p := 0; p < w.P; p++ {
		if w.data[cell*w.P+p] {
			return p
		}
	}
	return -1
}

// remove clears p at cell and returns the new count of remaining patterns.
func (w *Wave) remove(cell, p int, weight, weightLog float64) int32 {
	w.data[cell*w.P+p] = false
	for d := 0; d < w.D; d++ {
		w.compatible[(cell*w.P+p)*w.D+d] = 0
	}
	w.sumsOfOnes[cell]--

	if w.shannon {
		sum := w.sumsOfWeights[cell]
		if sum > 0 {
			w.entropies[cell] += w.sumsOfWeightLogs[cell]/sum - math.Log(sum)
		}
		w.sumsOfWeights[cell] -= weight
		w.sumsOfWeightLogs[cell] -= weightLog
		sum = w.sumsOfWeights[cell]
		if sum > 0 {
			w.entropies[cell] -= w.sumsOfWeightLogs[cell]/sum - math.Log(sum)
		}
	}
	return w.sumsOfOnes[cell]
}

func (w *Wave) decrement(cell, p, d int) int32 {
	i := (cell*w.P+p)*w.D + d
	w.compatible[i]--
	return w.compatible[i]
}
