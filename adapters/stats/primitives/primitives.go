// Package primitives implements the numerical building blocks of the A/B
// decision engine on top of gonum and montanaflynn/stats.
package primitives

import (
	"fmt"
	"math"

	"abtester/domain/core"
	"abtester/domain/experiment"
	"abtester/ports"
)

// Primitives is the gonum-backed implementation of ports.StatsPrimitivesPort
type Primitives struct{}

var _ ports.StatsPrimitivesPort = (*Primitives)(nil)

// New creates the default primitives adapter
func New() *Primitives {
	return &Primitives{}
}

// Skewness returns the biased Fisher-Pearson coefficient of x
func (p *Primitives) Skewness(x []float64) (float64, error) {
	return Skewness(x)
}

// ShapiroWilk returns the Shapiro-Wilk p-value of x
func (p *Primitives) ShapiroWilk(x []float64) (float64, error) {
	res, err := ShapiroWilk(x)
	if err != nil {
		return 0, err
	}
	return res.P, nil
}

// Levene returns the median-centred Levene p-value for a and b
func (p *Primitives) Levene(a, b []float64) (float64, error) {
	res, err := Levene(a, b)
	if err != nil {
		return 0, err
	}
	return res.P, nil
}

// TTest returns the p-value of Student's or Welch's t-test
func (p *Primitives) TTest(a, b []float64, equalVar bool, alt experiment.Alternative) (float64, error) {
	var (
		res *TTestResult
		err error
	)
	if equalVar {
		res, err = StudentTTest(a, b, alt)
	} else {
		res, err = WelchTTest(a, b, alt)
	}
	if err != nil {
		return 0, err
	}
	return res.P, nil
}

// RankTest returns the p-value of the selected non-parametric test
func (p *Primitives) RankTest(a, b []float64, test experiment.RankTest, alt experiment.Alternative) (float64, error) {
	switch test {
	case experiment.BrunnerMunzel, "":
		res, err := BrunnerMunzel(a, b, alt)
		if err != nil {
			return 0, err
		}
		return res.P, nil
	case experiment.MannWhitney:
		res, err := MannWhitneyU(a, b, alt)
		if err != nil {
			return 0, err
		}
		return res.P, nil
	}
	return 0, core.NewValidationError("rank_test", fmt.Sprintf("unrecognized rank test %q", test))
}

// distribution is the subset of a gonum distuv distribution needed to turn a
// statistic into a p-value
type distribution interface {
	CDF(x float64) float64
	Survival(x float64) float64
}

// pValue converts a test statistic into a p-value for the given alternative.
// Less and Greater refer to the first sample relative to the second.
func pValue(stat float64, dist distribution, alt experiment.Alternative) float64 {
	var p float64
	switch alt {
	case experiment.Less:
		p = dist.CDF(stat)
	case experiment.Greater:
		p = dist.Survival(stat)
	default:
		p = 2 * math.Min(dist.CDF(stat), dist.Survival(stat))
	}
	return clampUnit(p)
}

func clampUnit(p float64) float64 {
	return math.Max(0, math.Min(1, p))
}

// checkFinite rejects samples containing NaN or infinities
func checkFinite(name string, x []float64) error {
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return core.NewValidationError(name, fmt.Sprintf("non-finite value at index %d", i))
		}
	}
	return nil
}
