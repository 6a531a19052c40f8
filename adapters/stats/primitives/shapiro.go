package primitives

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"abtester/domain/core"
)

// ShapiroWilkMaxN is the largest sample size for which the Royston
// approximation of the W distribution is calibrated. Larger samples are still
// accepted, but the p-value becomes less accurate.
const ShapiroWilkMaxN = 5000

// Royston (1995) polynomial coefficients, algorithm AS R94
var (
	swC1 = []float64{0, 0.221157, -0.147981, -2.071190, 4.434685, -2.706056}
	swC2 = []float64{0, 0.042981, -0.293762, -1.752461, 5.682633, -3.582633}
	swC3 = []float64{0.5440, -0.39978, 0.025054, -6.714e-4}
	swC4 = []float64{1.3822, -0.77857, 0.062767, -0.0020322}
	swC5 = []float64{-1.5861, -0.31082, -0.083751, 0.0038915}
	swC6 = []float64{-0.4803, -0.082676, 0.0030302}
	swG  = []float64{-2.273, 0.459}
)

// ShapiroWilkResult is the outcome of a Shapiro-Wilk normality test
type ShapiroWilkResult struct {
	N int
	W float64
	P float64
}

// ShapiroWilk tests the null hypothesis that x was drawn from a normal
// distribution, using Royston's algorithm AS R94 for the coefficients and the
// p-value.
//
// Fails with core.ErrSampleSize when len(x) < 3 and with core.ErrZeroVariance
// when all observations are equal.
func ShapiroWilk(x []float64) (*ShapiroWilkResult, error) {
	n := len(x)
	if n < 3 {
		return nil, core.NewComputationError("shapiro-wilk", fmt.Errorf("%w: need at least 3 observations, got %d", core.ErrSampleSize, n))
	}
	if err := checkFinite("sample", x); err != nil {
		return nil, err
	}

	xs := append([]float64(nil), x...)
	sort.Float64s(xs)
	if xs[n-1]-xs[0] < 1e-19 {
		return nil, core.NewComputationError("shapiro-wilk", core.ErrZeroVariance)
	}

	a := swCoefficients(n)
	w := swStatistic(xs, a)

	if n == 3 {
		// Exact distribution
		const sixOverPi = 6 / math.Pi
		p := sixOverPi * (math.Asin(math.Sqrt(w)) - math.Pi/3)
		return &ShapiroWilkResult{N: n, W: w, P: clampUnit(p)}, nil
	}

	return &ShapiroWilkResult{N: n, W: w, P: swPValue(w, n)}, nil
}

// swCoefficients returns the upper half of the antisymmetric coefficient
// vector: a[0] weights x(n) - x(1), a[1] weights x(n-1) - x(2), and so on.
func swCoefficients(n int) []float64 {
	half := n / 2
	a := make([]float64, half)
	if n == 3 {
		a[0] = math.Sqrt(0.5)
		return a
	}

	an := float64(n)
	m := make([]float64, half)
	summ2 := 0.0
	for i := range m {
		m[i] = distuv.UnitNormal.Quantile((float64(i+1) - 0.375) / (an + 0.25))
		summ2 += m[i] * m[i]
	}
	summ2 *= 2
	ssumm2 := math.Sqrt(summ2)
	rsn := 1 / math.Sqrt(an)

	a1 := poly(swC1, rsn) - m[0]/ssumm2
	var fac float64
	first := 1
	if n > 5 {
		first = 2
		a2 := -m[1]/ssumm2 + poly(swC2, rsn)
		fac = math.Sqrt((summ2 - 2*m[0]*m[0] - 2*m[1]*m[1]) / (1 - 2*a1*a1 - 2*a2*a2))
		a[1] = a2
	} else {
		fac = math.Sqrt((summ2 - 2*m[0]*m[0]) / (1 - 2*a1*a1))
	}
	a[0] = a1
	for i := first; i < half; i++ {
		a[i] = -m[i] / fac
	}
	return a
}

// swStatistic computes W as the squared correlation between the ordered
// sample and the full coefficient vector.
func swStatistic(xs []float64, a []float64) float64 {
	n := len(xs)
	full := make([]float64, n)
	for i, ai := range a {
		full[i] = -ai
		full[n-1-i] = ai
	}

	ma, mx := 0.0, 0.0
	for i := range xs {
		ma += full[i]
		mx += xs[i]
	}
	ma /= float64(n)
	mx /= float64(n)

	var saa, sxx, sax float64
	for i := range xs {
		da := full[i] - ma
		dx := xs[i] - mx
		saa += da * da
		sxx += dx * dx
		sax += da * dx
	}
	w := sax * sax / (saa * sxx)
	return math.Min(w, 1)
}

// swPValue approximates the upper-tail probability of 1-W with Royston's
// normalizing transformations.
func swPValue(w float64, n int) float64 {
	an := float64(n)
	w1 := 1 - w
	if w1 <= 0 {
		return 1
	}
	y := math.Log(w1)

	var mean, sd float64
	if n <= 11 {
		gamma := poly(swG, an)
		if y >= gamma {
			return 1e-99
		}
		y = -math.Log(gamma - y)
		mean = poly(swC3, an)
		sd = math.Exp(poly(swC4, an))
	} else {
		xx := math.Log(an)
		mean = poly(swC5, xx)
		sd = math.Exp(poly(swC6, xx))
	}
	return clampUnit(distuv.Normal{Mu: mean, Sigma: sd}.Survival(y))
}

// poly evaluates c[0] + c[1]*x + c[2]*x² + ...
func poly(c []float64, x float64) float64 {
	res := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		res = res*x + c[i]
	}
	return res
}
