package primitives

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"abtester/domain/core"
	"abtester/domain/experiment"
)

// BrunnerMunzelResult is the outcome of a Brunner-Munzel test
type BrunnerMunzelResult struct {
	N1, N2 int
	W      float64
	DoF    float64
	P      float64
}

// BrunnerMunzel tests the null hypothesis that P(X < Y) + P(X = Y)/2 = 1/2.
// Unlike the Mann-Whitney U-test it does not assume equal variances or
// identical distribution shapes. The statistic is referred to a Student's t
// distribution with Satterthwaite degrees of freedom.
//
// Less means values from a tend to be smaller than values from b.
func BrunnerMunzel(a, b []float64, alt experiment.Alternative) (*BrunnerMunzelResult, error) {
	nx, ny := len(a), len(b)
	if nx < 2 || ny < 2 {
		return nil, core.NewComputationError("brunner-munzel", fmt.Errorf("%w: need at least 2 observations per sample, got %d and %d", core.ErrSampleSize, nx, ny))
	}
	if err := checkFinite("sample_a", a); err != nil {
		return nil, err
	}
	if err := checkFinite("sample_b", b); err != nil {
		return nil, err
	}

	combined := rankAverage(concat(a, b))
	rcx, rcy := combined[:nx], combined[nx:]
	rx, ry := rankAverage(a), rankAverage(b)

	rcxMean, rcyMean := stat.Mean(rcx, nil), stat.Mean(rcy, nil)
	rxMean, ryMean := stat.Mean(rx, nil), stat.Mean(ry, nil)

	fx, fy := float64(nx), float64(ny)
	sx := placementVariance(rcx, rx, rcxMean, rxMean)
	sy := placementVariance(rcy, ry, rcyMean, ryMean)

	spread := fx*sx + fy*sy
	if spread == 0 {
		return nil, core.NewComputationError("brunner-munzel", core.ErrZeroVariance)
	}
	w := fx * fy * (rcyMean - rcxMean) / ((fx + fy) * math.Sqrt(spread))

	dfDenom := (fx*sx)*(fx*sx)/(fx-1) + (fy*sy)*(fy*sy)/(fy-1)
	dof := spread * spread / dfDenom

	// A positive W means b ranks higher than a, so the tail for "a less
	// than b" is the lower tail of -W.
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: dof}
	return &BrunnerMunzelResult{
		N1:  nx,
		N2:  ny,
		W:   w,
		DoF: dof,
		P:   pValue(-w, dist, alt),
	}, nil
}

// placementVariance computes S² of the placements of one sample
func placementVariance(combined, internal []float64, combinedMean, internalMean float64) float64 {
	s := 0.0
	for i := range combined {
		d := combined[i] - internal[i] - combinedMean + internalMean
		s += d * d
	}
	return s / float64(len(combined)-1)
}
