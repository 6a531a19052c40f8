package primitives

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abtester/domain/core"
	"abtester/domain/experiment"
)

const tol = 1e-9

var (
	ttestA = []float64{2, 1, 3, 4}
	ttestB = []float64{6, 5, 7, 9}

	// Brunner-Munzel reference data with many ties
	bmX = []float64{1, 2, 1, 1, 1, 1, 1, 1, 1, 1, 2, 4, 1, 1}
	bmY = []float64{3, 3, 4, 3, 1, 2, 3, 1, 1, 5, 4}

	// Levene reference data (three production lines)
	leveneA = []float64{8.88, 9.12, 9.04, 8.98, 9.00, 9.08, 9.01, 8.85, 9.06, 8.99}
	leveneB = []float64{8.88, 8.95, 9.29, 9.44, 9.15, 9.58, 8.36, 9.18, 8.67, 9.05}
	leveneC = []float64{8.95, 9.12, 8.95, 8.85, 9.03, 8.84, 9.07, 8.98, 8.86, 8.98}
)

func TestSkewness(t *testing.T) {
	skewed := []float64{1, 2, 1, 3, 2, 1, 2, 100}
	g1, err := Skewness(skewed)
	require.NoError(t, err)
	assert.InDelta(t, 2.2659520851117723, g1, tol)

	mild := []float64{2, 3, 2, 4, 3, 2, 3, 3}
	g1, err = Skewness(mild)
	require.NoError(t, err)
	assert.InDelta(t, 0.3239695482936233, g1, tol)

	symmetric := []float64{1, 2, 3, 4, 5}
	g1, err = Skewness(symmetric)
	require.NoError(t, err)
	assert.InDelta(t, 0, g1, tol)

	// Mirroring the data flips the sign
	mirrored := make([]float64, len(skewed))
	for i, v := range skewed {
		mirrored[i] = -v
	}
	g1m, err := Skewness(mirrored)
	require.NoError(t, err)
	assert.InDelta(t, -2.2659520851117723, g1m, tol)
}

func TestSkewnessDegenerate(t *testing.T) {
	_, err := Skewness([]float64{3, 3, 3, 3})
	assert.ErrorIs(t, err, core.ErrZeroVariance)
	assert.True(t, core.IsComputationError(err))

	_, err = Skewness([]float64{1})
	assert.ErrorIs(t, err, core.ErrSampleSize)

	_, err = Skewness([]float64{1, math.NaN(), 3})
	assert.True(t, core.IsValidationError(err))
}

func TestKurtosis(t *testing.T) {
	k, err := Kurtosis([]float64{1, 2, 3, 4, 5})
	require.NoError(t, err)
	// Uniform-like data is platykurtic: m4/m2² = 6.8/4 = 1.7
	assert.InDelta(t, -1.3, k, tol)
}

func TestShapiroWilk(t *testing.T) {
	tests := []struct {
		name string
		x    []float64
		w, p float64
	}{
		{"n=3 exact", []float64{1, 2, 4}, 0.9642857142857144, 0.6368868450289701},
		{"n=8", []float64{2, 3, 2, 4, 3, 2, 3, 3}, 0.8272053058640407, 0.0555185895471082},
		{"n=10", leveneA, 0.9406864794909187, 0.5606770911240919},
		{"n=11 right tail", []float64{148, 154, 158, 160, 161, 162, 166, 170, 182, 195, 236}, 0.7888146948353875, 0.006703814056502999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ShapiroWilk(tt.x)
			require.NoError(t, err)
			assert.Equal(t, len(tt.x), res.N)
			assert.InDelta(t, tt.w, res.W, 1e-6)
			assert.InDelta(t, tt.p, res.P, 1e-6)
		})
	}
}

func TestShapiroWilkOrderInvariant(t *testing.T) {
	x := []float64{8.88, 8.95, 9.29, 9.44, 9.15, 9.58, 8.36, 9.18, 8.67, 9.05}
	reversed := make([]float64, len(x))
	for i, v := range x {
		reversed[len(x)-1-i] = v
	}
	r1, err := ShapiroWilk(x)
	require.NoError(t, err)
	r2, err := ShapiroWilk(reversed)
	require.NoError(t, err)
	assert.InDelta(t, r1.P, r2.P, tol)
	assert.InDelta(t, 0.9605158717611467, r1.P, 1e-6)
}

func TestShapiroWilkLargeSample(t *testing.T) {
	// Evenly spaced normal quantiles are as normal as data gets
	n := 200
	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i+1) / float64(n+1)
	}
	for i := range x {
		x[i] = normalQuantile(x[i])
	}
	res, err := ShapiroWilk(x)
	require.NoError(t, err)
	assert.Greater(t, res.W, 0.99)
	assert.Greater(t, res.P, 0.5)

	// Squares of the same values are strongly right-skewed
	sq := make([]float64, n)
	for i, v := range x {
		sq[i] = v * v
	}
	res, err = ShapiroWilk(sq)
	require.NoError(t, err)
	assert.Less(t, res.P, 1e-6)
}

func TestShapiroWilkErrors(t *testing.T) {
	_, err := ShapiroWilk([]float64{1, 2})
	assert.ErrorIs(t, err, core.ErrSampleSize)

	_, err = ShapiroWilk([]float64{5, 5, 5, 5})
	assert.ErrorIs(t, err, core.ErrZeroVariance)
}

func TestLevene(t *testing.T) {
	res, err := Levene(leveneA, leveneB, leveneC)
	require.NoError(t, err)
	assert.InDelta(t, 7.584952754501659, res.W, 1e-9)
	assert.InDelta(t, 0.0024315059672496936, res.P, 1e-9)
	assert.Equal(t, 2.0, res.DF1)
	assert.Equal(t, 27.0, res.DF2)

	res, err = Levene(leveneA, leveneB)
	require.NoError(t, err)
	assert.InDelta(t, 8.461374333228713, res.W, 1e-9)
	assert.InDelta(t, 0.009364737715584402, res.P, 1e-9)
}

func TestLeveneErrors(t *testing.T) {
	_, err := Levene(leveneA)
	assert.ErrorIs(t, err, core.ErrSampleSize)

	_, err = Levene([]float64{1, 1, 1}, []float64{2, 2, 2})
	assert.ErrorIs(t, err, core.ErrZeroVariance)
}

func TestTTests(t *testing.T) {
	tests := []struct {
		name     string
		equalVar bool
		alt      experiment.Alternative
		dof, p   float64
	}{
		{"student less", true, experiment.Less, 6, 0.0036820296121056195},
		{"student two-sided", true, experiment.TwoSided, 6, 0.0073640592242113214},
		{"student greater", true, experiment.Greater, 6, 0.9963179703878944},
		{"welch less", false, experiment.Less, 5.584615384615385, 0.004256431565689112},
		{"welch two-sided", false, experiment.TwoSided, 5.584615384615385, 0.0085128631313781695},
		{"welch greater", false, experiment.Greater, 5.584615384615385, 0.9957435684343109},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				res *TTestResult
				err error
			)
			if tt.equalVar {
				res, err = StudentTTest(ttestA, ttestB, tt.alt)
			} else {
				res, err = WelchTTest(ttestA, ttestB, tt.alt)
			}
			require.NoError(t, err)
			assert.InDelta(t, -3.9703446152237674, res.T, tol)
			assert.InDelta(t, tt.dof, res.DoF, tol)
			assert.InDelta(t, tt.p, res.P, 1e-9)
		})
	}
}

func TestTTestIdenticalSamples(t *testing.T) {
	res, err := StudentTTest(ttestA, ttestA, experiment.TwoSided)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.T)
	assert.InDelta(t, 1.0, res.P, tol)

	res, err = WelchTTest(ttestA, ttestA, experiment.Less)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.P, tol)
}

func TestTTestErrors(t *testing.T) {
	_, err := StudentTTest([]float64{1}, ttestB, experiment.TwoSided)
	assert.ErrorIs(t, err, core.ErrSampleSize)

	_, err = WelchTTest([]float64{1, 1, 1}, []float64{2, 2, 2}, experiment.TwoSided)
	assert.ErrorIs(t, err, core.ErrZeroVariance)
}

func TestBrunnerMunzel(t *testing.T) {
	tests := []struct {
		alt experiment.Alternative
		p   float64
	}{
		{experiment.TwoSided, 0.0057862086661515377},
		{experiment.Less, 0.0028931043330757346},
		{experiment.Greater, 0.9971068956669242},
	}
	for _, tt := range tests {
		t.Run(string(tt.alt), func(t *testing.T) {
			res, err := BrunnerMunzel(bmX, bmY, tt.alt)
			require.NoError(t, err)
			assert.InDelta(t, 3.1374674823029505, res.W, 1e-9)
			assert.InDelta(t, 17.682841979481548, res.DoF, 1e-9)
			assert.InDelta(t, tt.p, res.P, 1e-9)
		})
	}
}

func TestBrunnerMunzelSkewedSample(t *testing.T) {
	a := []float64{1, 2, 1, 3, 2, 1, 2, 100}
	b := []float64{2, 3, 2, 4, 3, 2, 3, 3}
	res, err := BrunnerMunzel(a, b, experiment.TwoSided)
	require.NoError(t, err)
	assert.InDelta(t, 1.6703434956214631, res.W, 1e-9)
	assert.InDelta(t, 0.12911733242959417, res.P, 1e-9)
}

func TestBrunnerMunzelCompleteSeparation(t *testing.T) {
	_, err := BrunnerMunzel([]float64{1, 2, 3}, []float64{4, 5, 6}, experiment.TwoSided)
	assert.ErrorIs(t, err, core.ErrZeroVariance)
}

func TestMannWhitneyU(t *testing.T) {
	s1 := []float64{2, 1, 3, 5}
	s2 := []float64{12, 11, 13, 15}
	s3 := []float64{0, 4, 6, 7}
	s5 := []float64{1, 1, 1, 1, 1}

	res, err := MannWhitneyU(s1, s2, experiment.TwoSided)
	require.NoError(t, err)
	assert.True(t, res.Exact)
	assert.InDelta(t, 0.028571428571428577, res.P, tol)

	res, err = MannWhitneyU(s2, s1, experiment.TwoSided)
	require.NoError(t, err)
	assert.InDelta(t, 0.028571428571428577, res.P, tol)

	res, err = MannWhitneyU(s1, s2, experiment.Less)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/70, res.P, tol)

	res, err = MannWhitneyU(s1, s3, experiment.TwoSided)
	require.NoError(t, err)
	assert.InDelta(t, 0.485714285714285770, res.P, tol)

	// Ties force the normal approximation
	res, err = MannWhitneyU(s1, s5, experiment.TwoSided)
	require.NoError(t, err)
	assert.False(t, res.Exact)
	assert.InDelta(t, 17.5, res.U, tol)
	assert.InDelta(t, 0.04162006292836562, res.P, tol)

	_, err = MannWhitneyU([]float64{2, 2, 2}, []float64{2, 2}, experiment.TwoSided)
	assert.ErrorIs(t, err, core.ErrZeroVariance)
}

func TestMannWhitneyUUnbalancedExact(t *testing.T) {
	small := []float64{1, 2, 3, 4, 30}
	large := make([]float64, 20)
	for i := range large {
		large[i] = float64(i + 5)
	}

	res, err := MannWhitneyU(small, large, experiment.TwoSided)
	require.NoError(t, err)
	assert.True(t, res.Exact)
	assert.InDelta(t, 20, res.U, tol)
	assert.InDelta(t, 0.042348955392433656, res.P, 1e-9)

	res, err = MannWhitneyU(large, small, experiment.TwoSided)
	require.NoError(t, err)
	assert.True(t, res.Exact)
	assert.InDelta(t, 0.042348955392433656, res.P, 1e-9)

	res, err = MannWhitneyU(small, large, experiment.Less)
	require.NoError(t, err)
	assert.InDelta(t, 0.021174477696216828, res.P, 1e-9)

	res, err = MannWhitneyU(small, large, experiment.Greater)
	require.NoError(t, err)
	assert.InDelta(t, 0.9824392998306042, res.P, 1e-9)

	// Past the pair cap the normal approximation takes over
	wide := make([]float64, 500)
	for i := range wide {
		wide[i] = float64(i) + 0.5
	}
	res, err = MannWhitneyU(small, wide, experiment.TwoSided)
	require.NoError(t, err)
	assert.False(t, res.Exact)
}

func TestMannWhitneyULargeSamples(t *testing.T) {
	l1 := make([]float64, 500)
	for i := range l1 {
		l1[i] = float64(i * 2)
	}
	l2 := make([]float64, 600)
	for i := range l2 {
		l2[i] = float64(i*2 - 41)
	}
	l3 := append([]float64{}, l2...)
	copy(l3[:30], l1[:30])

	res, err := MannWhitneyU(l1, l2, experiment.TwoSided)
	require.NoError(t, err)
	assert.InDelta(t, 135250, res.U, tol)
	assert.InDelta(t, 0.0049335360814172224, res.P, 1e-9)

	res, err = MannWhitneyU(l1, l2, experiment.Less)
	require.NoError(t, err)
	assert.InDelta(t, 0.0024667680407086667, res.P, 1e-9)

	res, err = MannWhitneyU(l1, l1, experiment.TwoSided)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.P)

	res, err = MannWhitneyU(l1, l3, experiment.TwoSided)
	require.NoError(t, err)
	assert.InDelta(t, 0.0038703814239617884, res.P, 1e-9)
}

func TestPrimitivesAdapter(t *testing.T) {
	p := New()

	pv, err := p.TTest(ttestA, ttestB, true, experiment.TwoSided)
	require.NoError(t, err)
	assert.InDelta(t, 0.0073640592242113214, pv, 1e-9)

	pv, err = p.TTest(ttestA, ttestB, false, experiment.TwoSided)
	require.NoError(t, err)
	assert.InDelta(t, 0.0085128631313781695, pv, 1e-9)

	pv, err = p.RankTest(bmX, bmY, experiment.BrunnerMunzel, experiment.TwoSided)
	require.NoError(t, err)
	assert.InDelta(t, 0.0057862086661515377, pv, 1e-9)

	pv, err = p.RankTest(bmX, bmY, "", experiment.TwoSided)
	require.NoError(t, err)
	assert.InDelta(t, 0.0057862086661515377, pv, 1e-9)

	_, err = p.RankTest(bmX, bmY, experiment.RankTest("kruskal"), experiment.TwoSided)
	assert.True(t, core.IsValidationError(err))

	pv, err = p.Levene(leveneA, leveneB)
	require.NoError(t, err)
	assert.InDelta(t, 0.009364737715584402, pv, 1e-9)
}

func TestRankAverage(t *testing.T) {
	assert.Equal(t, []float64{2.5, 1, 2.5, 4}, rankAverage([]float64{2, 1, 2, 3}))
	assert.Equal(t, 30.0, tieTerm([]float64{1, 1, 1, 2, 3, 3}))
}
