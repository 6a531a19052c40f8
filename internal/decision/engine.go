package decision

import (
	"fmt"
	"math"

	"abtester/domain/core"
	"abtester/domain/experiment"
	"abtester/internal"
	"abtester/ports"
)

// LargeSampleSize is the per-sample size from which both samples are treated
// as normal without a normality test
const LargeSampleSize = 100

// SkewThreshold is the absolute skewness above which both samples are
// treated as non-normal
const SkewThreshold = 2.0

// HypothesisObserver receives the hypothesis statement of each evaluation
type HypothesisObserver func(h0, h1 string)

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(logger *internal.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithHypothesisObserver registers a callback that receives the hypothesis
// statement before the tests run
func WithHypothesisObserver(obs HypothesisObserver) Option {
	return func(e *Engine) {
		e.observer = obs
	}
}

// Engine selects and runs the two-sample test appropriate for the data.
// It holds no per-call state and is safe for concurrent use.
type Engine struct {
	primitives ports.StatsPrimitivesPort
	logger     *internal.Logger
	observer   HypothesisObserver
}

// NewEngine creates a decision engine over the given primitives
func NewEngine(primitives ports.StatsPrimitivesPort, opts ...Option) *Engine {
	e := &Engine{
		primitives: primitives,
		logger:     internal.DefaultLogger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate classifies both samples, runs the selected test and packages the verdict
func (e *Engine) Evaluate(a, b []float64, cfg experiment.Config) (*experiment.TestResult, error) {
	if err := validateSample("sample_a", a); err != nil {
		return nil, err
	}
	if err := validateSample("sample_b", b); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	h0, h1 := cfg.Alternative.Hypotheses()
	e.logger.Debug("[Decision] %s / %s (alpha=%g, n_a=%d, n_b=%d)", h0, h1, cfg.Alpha, len(a), len(b))
	if e.observer != nil {
		e.observer(h0, h1)
	}

	result := &experiment.TestResult{
		Alternative: cfg.Alternative,
		Alpha:       cfg.Alpha,
		SizeA:       len(a),
		SizeB:       len(b),
	}

	if err := e.classifyNormality(a, b, cfg, result); err != nil {
		return nil, err
	}

	var (
		p   float64
		err error
	)
	if result.NormalityA.Normal && result.NormalityB.Normal {
		p, err = e.runParametric(a, b, cfg, result)
	} else {
		p, err = e.runRank(a, b, cfg, result)
	}
	if err != nil {
		return nil, err
	}

	result.PValue = p
	if p < cfg.Alpha {
		result.Decision = experiment.RejectH0
		result.Comment = experiment.CommentNotSimilar
	} else {
		result.Decision = experiment.FailToRejectH0
		result.Comment = experiment.CommentSimilar
	}

	e.logger.Debug("[Decision] %s via %s: p=%.6g -> %s", result.Family, result.Test, p, result.Decision)
	return result, nil
}

// classifyNormality fills the normality verdicts and the max skewness
func (e *Engine) classifyNormality(a, b []float64, cfg experiment.Config, result *experiment.TestResult) error {
	skewA, err := e.primitives.Skewness(a)
	if err != nil {
		return fmt.Errorf("skewness of sample A: %w", err)
	}
	skewB, err := e.primitives.Skewness(b)
	if err != nil {
		return fmt.Errorf("skewness of sample B: %w", err)
	}
	e.logger.Trace("[Decision] skewness a=%.6g b=%.6g", skewA, skewB)

	result.MaxSkew = math.Max(math.Abs(skewA), math.Abs(skewB))

	switch {
	case result.MaxSkew > SkewThreshold:
		e.logger.Debug("[Decision] max |skew| %.4g > %g, both samples non-normal", result.MaxSkew, SkewThreshold)
		result.NormalityA = experiment.NormalityVerdict{Normal: false, Path: experiment.PathSkewOverride}
		result.NormalityB = experiment.NormalityVerdict{Normal: false, Path: experiment.PathSkewOverride}

	case len(a) >= LargeSampleSize && len(b) >= LargeSampleSize:
		e.logger.Debug("[Decision] both samples have n >= %d, treated as normal", LargeSampleSize)
		result.NormalityA = experiment.NormalityVerdict{Normal: true, Path: experiment.PathLargeSample}
		result.NormalityB = experiment.NormalityVerdict{Normal: true, Path: experiment.PathLargeSample}

	default:
		if result.NormalityA, err = e.shapiro(a, cfg.Alpha); err != nil {
			return fmt.Errorf("normality of sample A: %w", err)
		}
		if result.NormalityB, err = e.shapiro(b, cfg.Alpha); err != nil {
			return fmt.Errorf("normality of sample B: %w", err)
		}
	}
	return nil
}

func (e *Engine) shapiro(x []float64, alpha float64) (experiment.NormalityVerdict, error) {
	p, err := e.primitives.ShapiroWilk(x)
	if err != nil {
		return experiment.NormalityVerdict{}, err
	}
	e.logger.Trace("[Decision] shapiro-wilk n=%d p=%.6g", len(x), p)
	return experiment.NormalityVerdict{
		Normal:   p >= alpha,
		Path:     experiment.PathShapiroWilk,
		ShapiroP: &p,
	}, nil
}

func (e *Engine) runParametric(a, b []float64, cfg experiment.Config, result *experiment.TestResult) (float64, error) {
	leveneP, err := e.primitives.Levene(a, b)
	if err != nil {
		return 0, fmt.Errorf("variance homogeneity: %w", err)
	}
	homogeneous := leveneP >= experiment.AssumptionAlpha
	e.logger.Trace("[Decision] levene p=%.6g homogeneous=%t", leveneP, homogeneous)

	result.Family = experiment.Parametric
	result.Homogeneity = &experiment.HomogeneityVerdict{Homogeneous: homogeneous, LeveneP: leveneP}
	if homogeneous {
		result.Test = experiment.TestStudent
	} else {
		result.Test = experiment.TestWelch
	}

	p, err := e.primitives.TTest(a, b, homogeneous, cfg.Alternative)
	if err != nil {
		return 0, fmt.Errorf("%s test: %w", result.Test, err)
	}
	return p, nil
}

func (e *Engine) runRank(a, b []float64, cfg experiment.Config, result *experiment.TestResult) (float64, error) {
	rank := cfg.EffectiveRankTest()

	result.Family = experiment.NonParametric
	result.Homogeneity = nil
	if rank == experiment.MannWhitney {
		result.Test = experiment.TestMannWhitney
	} else {
		result.Test = experiment.TestBrunnerMunzel
	}

	p, err := e.primitives.RankTest(a, b, rank, cfg.Alternative)
	if err != nil {
		return 0, fmt.Errorf("%s test: %w", result.Test, err)
	}
	e.logger.Trace("[Decision] %s p=%.6g", result.Test, p)
	return p, nil
}

func validateSample(name string, x []float64) error {
	if len(x) < experiment.MinSampleSize {
		return fmt.Errorf("%w: %s has %d observations, need at least %d",
			core.ErrInsufficientData, name, len(x), experiment.MinSampleSize)
	}
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return core.NewValidationError(name, fmt.Sprintf("non-finite value %v at index %d", v, i))
		}
	}
	return nil
}
