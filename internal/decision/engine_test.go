package decision

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"abtester/adapters/stats/primitives"
	"abtester/domain/core"
	"abtester/domain/experiment"
	"abtester/internal"
	"abtester/internal/testkit"
)

// mockPrimitives is a testify mock of ports.StatsPrimitivesPort
type mockPrimitives struct {
	mock.Mock
}

func (m *mockPrimitives) Skewness(x []float64) (float64, error) {
	args := m.Called(x)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockPrimitives) ShapiroWilk(x []float64) (float64, error) {
	args := m.Called(x)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockPrimitives) Levene(a, b []float64) (float64, error) {
	args := m.Called(a, b)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockPrimitives) TTest(a, b []float64, equalVar bool, alt experiment.Alternative) (float64, error) {
	args := m.Called(a, b, equalVar, alt)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockPrimitives) RankTest(a, b []float64, test experiment.RankTest, alt experiment.Alternative) (float64, error) {
	args := m.Called(a, b, test, alt)
	return args.Get(0).(float64), args.Error(1)
}

func seq(n int, offset float64) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i) + offset
	}
	return x
}

func newTestEngine(p *mockPrimitives, opts ...Option) *Engine {
	return NewEngine(p, append([]Option{WithLogger(internal.Discard())}, opts...)...)
}

func TestEvaluate_RejectsInvalidInput(t *testing.T) {
	valid := []float64{1, 2, 3}
	tests := []struct {
		name string
		a, b []float64
		cfg  func(c *experiment.Config)
	}{
		{"empty sample A", nil, valid, nil},
		{"single observation in B", valid, []float64{4}, nil},
		{"NaN in A", []float64{1, math.NaN(), 3}, valid, nil},
		{"infinity in B", valid, []float64{1, math.Inf(-1)}, nil},
		{"alpha zero", valid, valid, func(c *experiment.Config) { c.Alpha = 0 }},
		{"alpha one", valid, valid, func(c *experiment.Config) { c.Alpha = 1 }},
		{"unknown alternative", valid, valid, func(c *experiment.Config) { c.Alternative = "sideways" }},
		{"unknown rank test", valid, valid, func(c *experiment.Config) { c.RankTest = "kruskal" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := new(mockPrimitives)
			cfg := experiment.DefaultConfig()
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}

			result, err := newTestEngine(p).Evaluate(tt.a, tt.b, cfg)
			assert.Nil(t, result)
			assert.True(t, errors.Is(err, core.ErrInvalidInput), "got %v", err)
			p.AssertNotCalled(t, "Skewness", mock.Anything)
		})
	}
}

func TestEvaluate_SkewOverride(t *testing.T) {
	for _, skew := range []float64{2.5, -2.5, 40} {
		t.Run(fmt.Sprintf("skew %g", skew), func(t *testing.T) {
			a, b := seq(20, 0), seq(20, 1)
			p := new(mockPrimitives)
			p.On("Skewness", a).Return(skew, nil)
			p.On("Skewness", b).Return(0.1, nil)
			p.On("RankTest", a, b, experiment.BrunnerMunzel, experiment.TwoSided).Return(0.2, nil)

			result, err := newTestEngine(p).Evaluate(a, b, experiment.DefaultConfig())
			require.NoError(t, err)

			assert.Equal(t, experiment.NonParametric, result.Family)
			assert.Nil(t, result.Homogeneity)
			assert.Equal(t, experiment.PathSkewOverride, result.NormalityA.Path)
			assert.Equal(t, experiment.PathSkewOverride, result.NormalityB.Path)
			assert.Equal(t, math.Abs(skew), result.MaxSkew)
			p.AssertNotCalled(t, "ShapiroWilk", mock.Anything)
			p.AssertNotCalled(t, "Levene", mock.Anything, mock.Anything)
		})
	}
}

func TestEvaluate_SkewExactlyTwoIsNotOverride(t *testing.T) {
	a, b := seq(10, 0), seq(10, 1)
	p := new(mockPrimitives)
	p.On("Skewness", mock.Anything).Return(2.0, nil)
	p.On("ShapiroWilk", mock.Anything).Return(0.01, nil)
	p.On("RankTest", a, b, experiment.BrunnerMunzel, experiment.TwoSided).Return(0.5, nil)

	result, err := newTestEngine(p).Evaluate(a, b, experiment.DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, experiment.PathShapiroWilk, result.NormalityA.Path)
	assert.False(t, result.NormalityA.Normal)
	p.AssertNumberOfCalls(t, "ShapiroWilk", 2)
}

func TestEvaluate_LargeSamplesSkipNormalityTest(t *testing.T) {
	a, b := seq(100, 0), seq(120, 0.5)
	p := new(mockPrimitives)
	p.On("Skewness", mock.Anything).Return(0.3, nil)
	p.On("Levene", a, b).Return(0.4, nil)
	p.On("TTest", a, b, true, experiment.TwoSided).Return(0.01, nil)

	result, err := newTestEngine(p).Evaluate(a, b, experiment.DefaultConfig())
	require.NoError(t, err)

	p.AssertNumberOfCalls(t, "ShapiroWilk", 0)
	assert.Equal(t, experiment.PathLargeSample, result.NormalityA.Path)
	assert.Equal(t, experiment.PathLargeSample, result.NormalityB.Path)
	assert.Equal(t, experiment.Parametric, result.Family)
	assert.Equal(t, experiment.TestStudent, result.Test)
	assert.Equal(t, experiment.RejectH0, result.Decision)
	assert.Equal(t, experiment.CommentNotSimilar, result.Comment)
}

func TestEvaluate_OneSmallSampleRunsNormalityTest(t *testing.T) {
	a, b := seq(100, 0), seq(99, 0.5)
	p := new(mockPrimitives)
	p.On("Skewness", mock.Anything).Return(0.3, nil)
	p.On("ShapiroWilk", mock.Anything).Return(0.6, nil)
	p.On("Levene", a, b).Return(0.4, nil)
	p.On("TTest", a, b, true, experiment.TwoSided).Return(0.3, nil)

	result, err := newTestEngine(p).Evaluate(a, b, experiment.DefaultConfig())
	require.NoError(t, err)

	p.AssertNumberOfCalls(t, "ShapiroWilk", 2)
	require.NotNil(t, result.NormalityA.ShapiroP)
	assert.Equal(t, 0.6, *result.NormalityA.ShapiroP)
	assert.Equal(t, experiment.FailToRejectH0, result.Decision)
	assert.Equal(t, experiment.CommentSimilar, result.Comment)
}

func TestEvaluate_NormalityUsesConfiguredAlpha(t *testing.T) {
	a, b := seq(10, 0), seq(10, 1)
	p := new(mockPrimitives)
	p.On("Skewness", mock.Anything).Return(0.1, nil)
	p.On("ShapiroWilk", a).Return(0.07, nil)
	p.On("ShapiroWilk", b).Return(0.5, nil)
	p.On("RankTest", a, b, experiment.BrunnerMunzel, experiment.TwoSided).Return(0.5, nil)
	p.On("Levene", a, b).Return(0.5, nil)
	p.On("TTest", a, b, true, experiment.TwoSided).Return(0.5, nil)

	cfg := experiment.DefaultConfig()
	cfg.Alpha = 0.10
	result, err := newTestEngine(p).Evaluate(a, b, cfg)
	require.NoError(t, err)
	assert.False(t, result.NormalityA.Normal)
	assert.Equal(t, experiment.NonParametric, result.Family)

	cfg.Alpha = 0.05
	result, err = newTestEngine(p).Evaluate(a, b, cfg)
	require.NoError(t, err)
	assert.True(t, result.NormalityA.Normal)
	assert.Equal(t, experiment.Parametric, result.Family)
}

func TestEvaluate_HomogeneityThresholdIsFixed(t *testing.T) {
	tests := []struct {
		name        string
		alpha       float64
		leveneP     float64
		homogeneous bool
		test        experiment.TestName
	}{
		{"levene 0.03 under alpha 0.10", 0.10, 0.03, false, experiment.TestWelch},
		{"levene 0.07 under alpha 0.10", 0.10, 0.07, true, experiment.TestStudent},
		{"levene 0.03 under alpha 0.01", 0.01, 0.03, false, experiment.TestWelch},
		{"levene exactly 0.05", 0.01, 0.05, true, experiment.TestStudent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := seq(10, 0), seq(10, 1)
			p := new(mockPrimitives)
			p.On("Skewness", mock.Anything).Return(0.1, nil)
			p.On("ShapiroWilk", mock.Anything).Return(0.9, nil)
			p.On("Levene", a, b).Return(tt.leveneP, nil)
			p.On("TTest", a, b, tt.homogeneous, experiment.TwoSided).Return(0.5, nil)

			cfg := experiment.DefaultConfig()
			cfg.Alpha = tt.alpha
			result, err := newTestEngine(p).Evaluate(a, b, cfg)
			require.NoError(t, err)

			require.NotNil(t, result.Homogeneity)
			assert.Equal(t, tt.homogeneous, result.Homogeneity.Homogeneous)
			assert.Equal(t, tt.leveneP, result.Homogeneity.LeveneP)
			assert.Equal(t, tt.test, result.Test)
			p.AssertExpectations(t)
		})
	}
}

func TestEvaluate_PassesAlternativeAndRankTest(t *testing.T) {
	a, b := seq(10, 0), seq(10, 1)
	p := new(mockPrimitives)
	p.On("Skewness", a).Return(3.0, nil)
	p.On("Skewness", b).Return(0.0, nil)
	p.On("RankTest", a, b, experiment.MannWhitney, experiment.Less).Return(0.001, nil)

	cfg := experiment.DefaultConfig()
	cfg.Alternative = experiment.Less
	cfg.RankTest = experiment.MannWhitney
	result, err := newTestEngine(p).Evaluate(a, b, cfg)
	require.NoError(t, err)

	assert.Equal(t, experiment.TestMannWhitney, result.Test)
	assert.Equal(t, experiment.Less, result.Alternative)
	assert.True(t, result.Rejected())
	p.AssertExpectations(t)
}

func TestEvaluate_PropagatesComputationErrors(t *testing.T) {
	a, b := seq(10, 0), seq(10, 1)
	p := new(mockPrimitives)
	p.On("Skewness", mock.Anything).Return(0.1, nil)
	p.On("ShapiroWilk", a).Return(0.0, core.NewComputationError("shapiro-wilk", core.ErrZeroVariance))

	result, err := newTestEngine(p).Evaluate(a, b, experiment.DefaultConfig())
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, core.ErrNumericalComputation))
	assert.True(t, errors.Is(err, core.ErrZeroVariance))
	p.AssertNotCalled(t, "RankTest", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEvaluate_PropagatesTestFailure(t *testing.T) {
	a, b := seq(150, 0), seq(150, 1)
	p := new(mockPrimitives)
	p.On("Skewness", mock.Anything).Return(0.1, nil)
	p.On("Levene", a, b).Return(0.9, nil)
	p.On("TTest", a, b, true, experiment.TwoSided).Return(0.0, core.NewComputationError("student-t", core.ErrZeroVariance))

	_, err := newTestEngine(p).Evaluate(a, b, experiment.DefaultConfig())
	require.Error(t, err)
	assert.True(t, core.IsComputationError(err))
	assert.Contains(t, err.Error(), "student-t")
}

func TestEvaluate_HypothesisObserver(t *testing.T) {
	tests := []struct {
		alt    experiment.Alternative
		h0, h1 string
	}{
		{experiment.TwoSided, "H0: A == B", "H1: A != B"},
		{experiment.Less, "H0: A >= B", "H1: A < B"},
		{experiment.Greater, "H0: A <= B", "H1: A > B"},
	}

	for _, tt := range tests {
		t.Run(string(tt.alt), func(t *testing.T) {
			p := new(mockPrimitives)
			p.On("Skewness", mock.Anything).Return(5.0, nil)
			p.On("RankTest", mock.Anything, mock.Anything, experiment.BrunnerMunzel, tt.alt).Return(0.5, nil)

			var gotH0, gotH1 string
			engine := newTestEngine(p, WithHypothesisObserver(func(h0, h1 string) {
				gotH0, gotH1 = h0, h1
			}))

			cfg := experiment.DefaultConfig()
			cfg.Alternative = tt.alt
			_, err := engine.Evaluate(seq(5, 0), seq(5, 1), cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.h0, gotH0)
			assert.Equal(t, tt.h1, gotH1)
		})
	}
}

// spyPrimitives counts normality test calls on top of the real primitives
type spyPrimitives struct {
	*primitives.Primitives
	shapiroCalls int
}

func (s *spyPrimitives) ShapiroWilk(x []float64) (float64, error) {
	s.shapiroCalls++
	return s.Primitives.ShapiroWilk(x)
}

func TestEvaluate_SkewedSmallSamples(t *testing.T) {
	a := []float64{1, 2, 1, 3, 2, 1, 2, 100}
	b := []float64{2, 3, 2, 4, 3, 2, 3, 3}
	spy := &spyPrimitives{Primitives: primitives.New()}

	result, err := NewEngine(spy, WithLogger(internal.Discard())).Evaluate(a, b, experiment.DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, experiment.NonParametric, result.Family)
	assert.Nil(t, result.Homogeneity)
	assert.Equal(t, experiment.TestBrunnerMunzel, result.Test)
	assert.InDelta(t, 2.2659520851117723, result.MaxSkew, 1e-12)
	assert.InDelta(t, 0.12911733242959417, result.PValue, 1e-9)
	assert.Equal(t, experiment.FailToRejectH0, result.Decision)
	assert.Equal(t, experiment.CommentSimilar, result.Comment)
	assert.Equal(t, 0, spy.shapiroCalls)

	var names []string
	for _, col := range result.Columns() {
		names = append(names, col.Name)
	}
	assert.Equal(t, []string{"Test Type", "AB Hypothesis", "p-value", "Comment"}, names)
}

func TestEvaluate_LargeNormalSamples(t *testing.T) {
	samples := testkit.NewSampleGenerator(testkit.DefaultSampleConfig()).Generate()
	spy := &spyPrimitives{Primitives: primitives.New()}

	result, err := NewEngine(spy, WithLogger(internal.Discard())).Evaluate(samples["A"], samples["B"], experiment.DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, experiment.Parametric, result.Family)
	require.NotNil(t, result.Homogeneity)
	assert.Contains(t, []experiment.TestName{experiment.TestStudent, experiment.TestWelch}, result.Test)
	assert.Equal(t, 0, spy.shapiroCalls)
	assert.GreaterOrEqual(t, result.PValue, 0.0)
	assert.LessOrEqual(t, result.PValue, 1.0)
	assert.Len(t, result.Columns(), 5)
}
