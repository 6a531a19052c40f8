package primitives

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"abtester/domain/core"
)

// Skewness computes the biased Fisher-Pearson coefficient of skewness
// g1 = m3 / m2^1.5 from the population central moments.
func Skewness(x []float64) (float64, error) {
	if len(x) < 2 {
		return 0, core.NewComputationError("skewness", fmt.Errorf("%w: need at least 2 observations, got %d", core.ErrSampleSize, len(x)))
	}
	if err := checkFinite("sample", x); err != nil {
		return 0, err
	}

	m2 := stat.Moment(2, x, nil)
	if m2 == 0 {
		return 0, core.NewComputationError("skewness", core.ErrZeroVariance)
	}
	m3 := stat.Moment(3, x, nil)
	return m3 / math.Pow(m2, 1.5), nil
}

// Kurtosis computes the biased excess kurtosis g2 = m4 / m2^2 - 3
func Kurtosis(x []float64) (float64, error) {
	if len(x) < 2 {
		return 0, core.NewComputationError("kurtosis", fmt.Errorf("%w: need at least 2 observations, got %d", core.ErrSampleSize, len(x)))
	}
	m2 := stat.Moment(2, x, nil)
	if m2 == 0 {
		return 0, core.NewComputationError("kurtosis", core.ErrZeroVariance)
	}
	return stat.Moment(4, x, nil)/(m2*m2) - 3, nil
}
