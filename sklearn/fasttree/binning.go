package fasttree

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// zeroThreshold separates the zero bin from its neighbours so that any
// non-zero value, however small, lands outside it.
const zeroThreshold = 1e-35

// BinMapper discretizes the values of one feature.
// Bin i holds values in (UpperBounds[i-1], UpperBounds[i]]; the last bound is +Inf.
type BinMapper struct {
	UpperBounds []float64
	DefaultBin  int
}

// NumBins returns the number of bins
func (b *BinMapper) NumBins() int {
	return len(b.UpperBounds)
}

// ValueToBin maps a value to its bin. NaN is treated as zero.
func (b *BinMapper) ValueToBin(v float64) int {
	if math.IsNaN(v) {
		v = 0
	}
	return sort.SearchFloat64s(b.UpperBounds, v)
}

// newBinMapper builds bins from the non-zero values of a feature and the
// number of zero entries. Zero always gets a bin of its own.
func newBinMapper(nonZero []float64, numZeros, maxBin int) *BinMapper {
	sorted := make([]float64, len(nonZero), len(nonZero)+1)
	copy(sorted, nonZero)
	if numZeros > 0 {
		sorted = append(sorted, 0)
	}
	sort.Float64s(sorted)

	// Distinct values with counts
	var values []float64
	var counts []int
	for i, v := range sorted {
		if i > 0 && v == sorted[i-1] {
			counts[len(counts)-1]++
			continue
		}
		values = append(values, v)
		counts = append(counts, 1)
	}
	for i, v := range values {
		if v == 0 {
			counts[i] = numZeros
		}
	}

	if len(values) == 0 {
		return &BinMapper{UpperBounds: []float64{math.Inf(1)}}
	}

	total := len(nonZero) + numZeros
	target := 1
	if len(values) > maxBin {
		target = (total + maxBin - 1) / maxBin
	}

	bounds := make([]float64, 0, min(len(values), maxBin+2))
	acc := 0
	for i := 0; i < len(values)-1; i++ {
		acc += counts[i]
		v, next := values[i], values[i+1]
		if acc >= target || v == 0 || next == 0 {
			bounds = append(bounds, binBoundary(v, next))
			acc = 0
		}
	}
	bounds = append(bounds, math.Inf(1))

	m := &BinMapper{UpperBounds: bounds}
	m.DefaultBin = m.ValueToBin(0)
	return m
}

// binBoundary returns the upper bound of the bin holding lo
func binBoundary(lo, hi float64) float64 {
	switch {
	case lo == 0:
		return zeroThreshold
	case hi == 0:
		return -zeroThreshold
	}
	return lo + (hi-lo)/2
}

// binnedDataset stores the feature matrix as bin indices. Only entries
// whose bin differs from the feature's default (zero) bin are kept.
type binnedDataset struct {
	numRows    int
	mappers    []*BinMapper
	columnRows [][]int32
	columnBins [][]uint16
}

// newBinnedDataset discretizes X column by column
func newBinnedDataset(X mat.Matrix, maxBin int) *binnedDataset {
	rows, cols := X.Dims()
	d := &binnedDataset{
		numRows:    rows,
		mappers:    make([]*BinMapper, cols),
		columnRows: make([][]int32, cols),
		columnBins: make([][]uint16, cols),
	}

	var raw *mat.Dense
	if dense, ok := X.(*mat.Dense); ok {
		raw = dense
	} else {
		raw = mat.DenseCopyOf(X)
	}

	nonZero := make([]float64, 0, rows)
	nzRows := make([]int32, 0, rows)
	for j := 0; j < cols; j++ {
		nonZero = nonZero[:0]
		nzRows = nzRows[:0]
		for i := 0; i < rows; i++ {
			v := raw.At(i, j)
			if v != 0 && !math.IsNaN(v) {
				nonZero = append(nonZero, v)
				nzRows = append(nzRows, int32(i))
			}
		}

		mapper := newBinMapper(nonZero, rows-len(nonZero), maxBin)
		d.mappers[j] = mapper

		for k, v := range nonZero {
			bin := mapper.ValueToBin(v)
			if bin != mapper.DefaultBin {
				d.columnRows[j] = append(d.columnRows[j], nzRows[k])
				d.columnBins[j] = append(d.columnBins[j], uint16(bin))
			}
		}
	}
	return d
}

func (d *binnedDataset) numFeatures() int {
	return len(d.mappers)
}
