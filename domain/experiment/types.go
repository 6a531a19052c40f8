package experiment

import (
	"fmt"
	"math"
	"strings"

	"abtester/domain/core"
)

// DefaultAlpha is the significance level used when none is configured
const DefaultAlpha = 0.05

// AssumptionAlpha is the fixed significance level for the auxiliary
// variance-homogeneity check. It is independent of Config.Alpha.
const AssumptionAlpha = 0.05

// MinSampleSize is the smallest sample the engine accepts
const MinSampleSize = 2

// Alternative is the alternative hypothesis of the primary test
type Alternative string

const (
	TwoSided Alternative = "two-sided"
	Less     Alternative = "less"
	Greater  Alternative = "greater"
)

// ParseAlternative parses a user-supplied alternative mode
func ParseAlternative(s string) (Alternative, error) {
	alt := Alternative(strings.ToLower(strings.TrimSpace(s)))
	if !alt.Valid() {
		return "", core.NewValidationError("alternative", fmt.Sprintf("unrecognized mode %q (want two-sided, less or greater)", s))
	}
	return alt, nil
}

// Valid reports whether a is one of the three recognized modes
func (a Alternative) Valid() bool {
	switch a {
	case TwoSided, Less, Greater:
		return true
	}
	return false
}

// Flip returns the alternative that applies when samples A and B are swapped
func (a Alternative) Flip() Alternative {
	switch a {
	case Less:
		return Greater
	case Greater:
		return Less
	}
	return a
}

// Hypotheses returns the null and alternative hypothesis statements for a
func (a Alternative) Hypotheses() (h0, h1 string) {
	switch a {
	case Less:
		return "H0: A >= B", "H1: A < B"
	case Greater:
		return "H0: A <= B", "H1: A > B"
	}
	return "H0: A == B", "H1: A != B"
}

// RankTest selects the non-parametric fallback
type RankTest string

const (
	BrunnerMunzel RankTest = "brunner-munzel"
	MannWhitney   RankTest = "mann-whitney"
)

// ParseRankTest parses a user-supplied rank test name
func ParseRankTest(s string) (RankTest, error) {
	rt := RankTest(strings.ToLower(strings.TrimSpace(s)))
	if !rt.Valid() {
		return "", core.NewValidationError("rank_test", fmt.Sprintf("unrecognized rank test %q (want brunner-munzel or mann-whitney)", s))
	}
	return rt, nil
}

// Valid reports whether r is one of the supported rank tests
func (r RankTest) Valid() bool {
	return r == BrunnerMunzel || r == MannWhitney
}

// Config is the immutable input of one evaluation
type Config struct {
	Alpha       float64     `json:"alpha" yaml:"alpha"`
	Alternative Alternative `json:"alternative" yaml:"alternative"`
	LabelA      string      `json:"label_a" yaml:"label_a"`
	LabelB      string      `json:"label_b" yaml:"label_b"`
	RankTest    RankTest    `json:"rank_test,omitempty" yaml:"rank_test,omitempty"`
}

// DefaultConfig returns a two-sided configuration at alpha 0.05
func DefaultConfig() Config {
	return Config{
		Alpha:       DefaultAlpha,
		Alternative: TwoSided,
		LabelA:      "A",
		LabelB:      "B",
		RankTest:    BrunnerMunzel,
	}
}

// Validate checks the configuration. An empty RankTest is treated as BrunnerMunzel.
func (c Config) Validate() error {
	if math.IsNaN(c.Alpha) || c.Alpha <= 0 || c.Alpha >= 1 {
		return core.NewValidationError("alpha", fmt.Sprintf("%v is outside (0, 1)", c.Alpha))
	}
	if !c.Alternative.Valid() {
		return core.NewValidationError("alternative", fmt.Sprintf("unrecognized mode %q", c.Alternative))
	}
	if c.RankTest != "" && !c.RankTest.Valid() {
		return core.NewValidationError("rank_test", fmt.Sprintf("unrecognized rank test %q", c.RankTest))
	}
	return nil
}

// EffectiveRankTest returns the configured rank test, defaulting to BrunnerMunzel
func (c Config) EffectiveRankTest() RankTest {
	if c.RankTest == "" {
		return BrunnerMunzel
	}
	return c.RankTest
}

// Swapped returns the configuration for evaluating (B, A) instead of (A, B)
func (c Config) Swapped() Config {
	c.LabelA, c.LabelB = c.LabelB, c.LabelA
	c.Alternative = c.Alternative.Flip()
	return c
}

// NormalityPath records how a normality verdict was reached
type NormalityPath string

const (
	PathSkewOverride NormalityPath = "skew-override"
	PathLargeSample  NormalityPath = "large-sample"
	PathShapiroWilk  NormalityPath = "shapiro-wilk"
)

// NormalityVerdict is the per-sample normality classification
type NormalityVerdict struct {
	Normal bool          `json:"normal"`
	Path   NormalityPath `json:"path"`
	// ShapiroP is set only when Path is PathShapiroWilk
	ShapiroP *float64 `json:"shapiro_p,omitempty"`
}

// HomogeneityVerdict is the variance-homogeneity classification
type HomogeneityVerdict struct {
	Homogeneous bool    `json:"homogeneous"`
	LeveneP     float64 `json:"levene_p"`
}

// Label renders the verdict the way reports show it
func (h HomogeneityVerdict) Label() string {
	if h.Homogeneous {
		return "Yes"
	}
	return "No"
}

// TestFamily is the family of the primary test
type TestFamily string

const (
	Parametric    TestFamily = "Parametric"
	NonParametric TestFamily = "Non-Parametric"
)

// Decision is the hypothesis decision
type Decision string

const (
	RejectH0       Decision = "Reject H0"
	FailToRejectH0 Decision = "Fail to Reject H0"
)

const (
	CommentSimilar    = "A/B groups are similar!"
	CommentNotSimilar = "A/B groups are not similar!"
)

// TestName identifies the statistic that produced the p-value
type TestName string

const (
	TestStudent       TestName = "student-t"
	TestWelch         TestName = "welch-t"
	TestBrunnerMunzel TestName = "brunner-munzel"
	TestMannWhitney   TestName = "mann-whitney-u"
)

// TestResult is the outcome of one evaluation. Homogeneity is non-nil iff
// Family is Parametric.
type TestResult struct {
	Family      TestFamily          `json:"test_type"`
	Homogeneity *HomogeneityVerdict `json:"homogeneity,omitempty"`
	Decision    Decision            `json:"ab_hypothesis"`
	PValue      float64             `json:"p_value"`
	Comment     string              `json:"comment"`

	// Audit trail
	Test        TestName         `json:"test"`
	Alternative Alternative      `json:"alternative"`
	Alpha       float64          `json:"alpha"`
	MaxSkew     float64          `json:"max_skewness"`
	NormalityA  NormalityVerdict `json:"normality_a"`
	NormalityB  NormalityVerdict `json:"normality_b"`
	SizeA       int              `json:"n_a"`
	SizeB       int              `json:"n_b"`
}

// Rejected reports whether the null hypothesis was rejected
func (r *TestResult) Rejected() bool {
	return r.Decision == RejectH0
}

// Column is one named cell of the ordered result record
type Column struct {
	Name  string
	Value string
}

// Columns returns the result record in its canonical order:
// test type, [homogeneity], hypothesis decision, p-value, comment.
func (r *TestResult) Columns() []Column {
	cols := []Column{{Name: "Test Type", Value: string(r.Family)}}
	if r.Homogeneity != nil {
		cols = append(cols, Column{Name: "Homogeneity", Value: r.Homogeneity.Label()})
	}
	cols = append(cols,
		Column{Name: "AB Hypothesis", Value: string(r.Decision)},
		Column{Name: "p-value", Value: fmt.Sprintf("%.6g", r.PValue)},
		Column{Name: "Comment", Value: r.Comment},
	)
	return cols
}
