package primitives

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"abtester/domain/core"
	"abtester/domain/experiment"
)

// MannWhitneyExactLimit is the largest size of the smaller sample for which
// the exact U distribution is used when there are no ties.
const MannWhitneyExactLimit = 8

// mannWhitneyExactMaxPairs bounds n1*n2 for the exact distribution table.
// Larger designs fall back to the normal approximation.
const mannWhitneyExactMaxPairs = 2000

// MannWhitneyResult is the outcome of a Mann-Whitney U-test
type MannWhitneyResult struct {
	N1, N2 int

	// U is the U statistic of the first sample: the number of pairs in which
	// the value from a exceeds the value from b, counting ties as 0.5.
	U float64

	Exact bool
	P     float64
}

// MannWhitneyU performs the Mann-Whitney U-test. When the smaller sample has
// at most MannWhitneyExactLimit observations and there are no ties the exact
// U distribution is used; otherwise the normal approximation with tie
// and continuity corrections is used.
//
// Less means values from a tend to be smaller than values from b.
func MannWhitneyU(a, b []float64, alt experiment.Alternative) (*MannWhitneyResult, error) {
	n1, n2 := len(a), len(b)
	if n1 == 0 || n2 == 0 {
		return nil, core.NewComputationError("mann-whitney", fmt.Errorf("%w: empty sample", core.ErrSampleSize))
	}
	if err := checkFinite("sample_a", a); err != nil {
		return nil, err
	}
	if err := checkFinite("sample_b", b); err != nil {
		return nil, err
	}

	merged := concat(a, b)
	ranks := rankAverage(merged)
	r1 := 0.0
	for _, r := range ranks[:n1] {
		r1 += r
	}
	u1 := r1 - float64(n1*(n1+1))/2
	u2 := float64(n1*n2) - u1

	var u, factor float64
	switch alt {
	case experiment.Greater:
		u, factor = u1, 1
	case experiment.Less:
		u, factor = u2, 1
	default:
		u, factor = math.Max(u1, u2), 2
	}

	ties := tieTerm(merged)
	res := &MannWhitneyResult{N1: n1, N2: n2, U: u1}
	if ties == 0 && min(n1, n2) <= MannWhitneyExactLimit && n1*n2 <= mannWhitneyExactMaxPairs {
		res.Exact = true
		res.P = clampUnit(factor * uSurvival(int(u), n1, n2))
		return res, nil
	}

	n := float64(n1 + n2)
	mu := float64(n1*n2) / 2
	sigma := math.Sqrt(float64(n1*n2) / 12 * ((n + 1) - ties/(n*(n-1))))
	if sigma == 0 {
		return nil, core.NewComputationError("mann-whitney", core.ErrZeroVariance)
	}
	z := (u - mu - 0.5) / sigma
	res.P = clampUnit(factor * distuv.UnitNormal.Survival(z))
	return res, nil
}

// uSurvival returns P(U >= u) under the null hypothesis for samples of size
// m and n without ties, from the Mann-Whitney recurrence
// f(m, n, u) = f(m-1, n, u-n) + f(m, n-1, u).
func uSurvival(u, m, n int) float64 {
	if u <= 0 {
		return 1
	}
	if u > m*n {
		return 0
	}
	// U has the same null distribution for (m, n) and (n, m)
	if m > n {
		m, n = n, m
	}

	// prev[j] holds the count distribution of U for i-1 and j observations
	prev := make([][]float64, n+1)
	for j := range prev {
		prev[j] = []float64{1}
	}
	for i := 1; i <= m; i++ {
		cur := make([][]float64, n+1)
		cur[0] = []float64{1}
		for j := 1; j <= n; j++ {
			row := make([]float64, i*j+1)
			for v := range row {
				c := 0.0
				if v-j >= 0 && v-j <= (i-1)*j {
					c += prev[j][v-j]
				}
				if v <= i*(j-1) {
					c += cur[j-1][v]
				}
				row[v] = c
			}
			cur[j] = row
		}
		prev = cur
	}

	total, tail := 0.0, 0.0
	for v, c := range prev[n] {
		total += c
		if v >= u {
			tail += c
		}
	}
	return tail / total
}
