package primitives

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"abtester/domain/core"
	"abtester/domain/experiment"
)

// TTestResult is the outcome of a two-sample t-test
type TTestResult struct {
	N1, N2 int
	T      float64
	DoF    float64
	P      float64
}

// StudentTTest performs the two-sample t-test assuming equal variances
// (pooled variance estimate).
func StudentTTest(a, b []float64, alt experiment.Alternative) (*TTestResult, error) {
	n1, n2, err := ttestSizes(a, b)
	if err != nil {
		return nil, err
	}
	m1, v1 := stat.MeanVariance(a, nil)
	m2, v2 := stat.MeanVariance(b, nil)

	dof := n1 + n2 - 2
	pooled := ((n1-1)*v1 + (n2-1)*v2) / dof
	se := math.Sqrt(pooled * (1/n1 + 1/n2))
	return finishTTest(a, b, m1-m2, se, dof, alt)
}

// WelchTTest performs the two-sample t-test without assuming equal variances,
// using the Welch-Satterthwaite degrees of freedom.
func WelchTTest(a, b []float64, alt experiment.Alternative) (*TTestResult, error) {
	n1, n2, err := ttestSizes(a, b)
	if err != nil {
		return nil, err
	}
	m1, v1 := stat.MeanVariance(a, nil)
	m2, v2 := stat.MeanVariance(b, nil)

	q1, q2 := v1/n1, v2/n2
	se2 := q1 + q2
	dof := se2 * se2 / (q1*q1/(n1-1) + q2*q2/(n2-1))
	return finishTTest(a, b, m1-m2, math.Sqrt(se2), dof, alt)
}

func ttestSizes(a, b []float64) (float64, float64, error) {
	if len(a) < 2 || len(b) < 2 {
		return 0, 0, core.NewComputationError("t-test", fmt.Errorf("%w: need at least 2 observations per sample, got %d and %d", core.ErrSampleSize, len(a), len(b)))
	}
	if err := checkFinite("sample_a", a); err != nil {
		return 0, 0, err
	}
	if err := checkFinite("sample_b", b); err != nil {
		return 0, 0, err
	}
	return float64(len(a)), float64(len(b)), nil
}

func finishTTest(a, b []float64, diff, se, dof float64, alt experiment.Alternative) (*TTestResult, error) {
	if se == 0 || math.IsNaN(dof) {
		return nil, core.NewComputationError("t-test", core.ErrZeroVariance)
	}
	t := diff / se
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: dof}
	return &TTestResult{
		N1:  len(a),
		N2:  len(b),
		T:   t,
		DoF: dof,
		P:   pValue(t, dist, alt),
	}, nil
}
