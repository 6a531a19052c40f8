package ports

import (
	"abtester/domain/experiment"
)

// StatsPrimitivesPort exposes the numerical building blocks the decision engine
// consumes. Implementations must be free of side effects and safe for
// concurrent use. Failures on degenerate input wrap core.ErrNumericalComputation.
type StatsPrimitivesPort interface {
	// Skewness returns the biased Fisher-Pearson coefficient g1 = m3 / m2^1.5
	Skewness(x []float64) (float64, error)

	// ShapiroWilk returns the p-value of the Shapiro-Wilk normality test
	ShapiroWilk(x []float64) (float64, error)

	// Levene returns the p-value of the median-centred Levene test
	Levene(a, b []float64) (float64, error)

	// TTest returns the p-value of Student's (equalVar) or Welch's two-sample t-test
	TTest(a, b []float64, equalVar bool, alt experiment.Alternative) (float64, error)

	// RankTest returns the p-value of the selected non-parametric two-sample test
	RankTest(a, b []float64, test experiment.RankTest, alt experiment.Alternative) (float64, error)
}
