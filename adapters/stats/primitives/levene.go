package primitives

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"abtester/domain/core"
)

// LeveneResult is the outcome of Levene's test for equal variances
type LeveneResult struct {
	W        float64
	DF1, DF2 float64
	P        float64
}

// Levene performs the median-centred (Brown-Forsythe) variant of Levene's
// test of the null hypothesis that all groups have equal variances.
func Levene(groups ...[]float64) (*LeveneResult, error) {
	k := len(groups)
	if k < 2 {
		return nil, core.NewComputationError("levene", fmt.Errorf("%w: need at least 2 groups, got %d", core.ErrSampleSize, k))
	}

	total := 0
	zbars := make([]float64, k)
	devs := make([][]float64, k)
	for i, g := range groups {
		if len(g) < 2 {
			return nil, core.NewComputationError("levene", fmt.Errorf("%w: group %d has %d observations", core.ErrSampleSize, i, len(g)))
		}
		if err := checkFinite("group", g); err != nil {
			return nil, err
		}
		med, err := stats.Median(g)
		if err != nil {
			return nil, core.NewComputationError("levene", err)
		}
		z := make([]float64, len(g))
		for j, v := range g {
			z[j] = math.Abs(v - med)
		}
		devs[i] = z
		zbars[i] = stat.Mean(z, nil)
		total += len(g)
	}

	grand := 0.0
	for i, g := range groups {
		grand += zbars[i] * float64(len(g))
	}
	grand /= float64(total)

	between, within := 0.0, 0.0
	for i, z := range devs {
		d := zbars[i] - grand
		between += float64(len(z)) * d * d
		for _, v := range z {
			e := v - zbars[i]
			within += e * e
		}
	}

	df1 := float64(k - 1)
	df2 := float64(total - k)
	if within == 0 {
		return nil, core.NewComputationError("levene", core.ErrZeroVariance)
	}
	w := (df2 * between) / (df1 * within)
	f := distuv.F{D1: df1, D2: df2}
	return &LeveneResult{W: w, DF1: df1, DF2: df2, P: clampUnit(f.Survival(w))}, nil
}
