package primitives

import (
	"sort"
)

// rankAverage returns the 1-based ranks of x, assigning tied values the
// average of the ranks they span.
func rankAverage(x []float64) []float64 {
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return x[idx[i]] < x[idx[j]] })

	ranks := make([]float64, len(x))
	for i := 0; i < len(idx); {
		j := i
		for j < len(idx) && x[idx[j]] == x[idx[i]] {
			j++
		}
		// Positions i..j-1 hold ranks i+1..j
		avg := float64(i+1+j) / 2
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		i = j
	}
	return ranks
}

// tieTerm computes Σ (t³ - t) over the tie groups of x
func tieTerm(x []float64) float64 {
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	t := 0.0
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j] == sorted[i] {
			j++
		}
		run := float64(j - i)
		t += run*run*run - run
		i = j
	}
	return t
}

func concat(a, b []float64) []float64 {
	out := make([]float64, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

