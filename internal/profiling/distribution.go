package profiling

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"abtester/adapters/stats/primitives"
)

// DistributionAnalyzer handles distribution shape analysis
type DistributionAnalyzer struct{}

// NewDistributionAnalyzer creates a new distribution analyzer
func NewDistributionAnalyzer() *DistributionAnalyzer {
	return &DistributionAnalyzer{}
}

// Summarize computes count, min, median, max, mean and sample std
func (da *DistributionAnalyzer) Summarize(data []float64) (Summary, error) {
	summary := Summary{Count: len(data)}
	if len(data) == 0 {
		return summary, fmt.Errorf("cannot summarize an empty sample")
	}

	var err error
	if summary.Min, err = stats.Min(data); err != nil {
		return summary, err
	}
	if summary.Max, err = stats.Max(data); err != nil {
		return summary, err
	}
	if summary.Median, err = stats.Median(data); err != nil {
		return summary, err
	}
	if summary.Mean, err = stats.Mean(data); err != nil {
		return summary, err
	}
	if len(data) > 1 {
		if summary.Std, err = stats.StandardDeviationSample(data); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

// Shape returns skewness and excess kurtosis, leaving undefined measures nil
func (da *DistributionAnalyzer) Shape(data []float64) Shape {
	var shape Shape
	if skew, err := primitives.Skewness(data); err == nil {
		shape.Skewness = &skew
	}
	if kurt, err := primitives.Kurtosis(data); err == nil {
		shape.Kurtosis = &kurt
	}
	return shape
}

// Percentiles evaluates the given percentile ranks (0-100) by linear
// interpolation between order statistics
func (da *DistributionAnalyzer) Percentiles(data []float64, ranks []float64) ([]Percentile, error) {
	sorted, err := sortedCopy(data)
	if err != nil {
		return nil, err
	}
	out := make([]Percentile, len(ranks))
	for i, rank := range ranks {
		if rank < 0 || rank > 100 {
			return nil, fmt.Errorf("percentile rank %v outside [0, 100]", rank)
		}
		out[i] = Percentile{Rank: rank, Value: linearPercentile(sorted, rank)}
	}
	return out, nil
}

// Deciles bins the sample at its decile boundaries. Repeated boundaries are
// collapsed, so heavily tied data yields fewer than ten bins.
func (da *DistributionAnalyzer) Deciles(data []float64) ([]DecileBin, error) {
	sorted, err := sortedCopy(data)
	if err != nil {
		return nil, err
	}

	var edges []float64
	for k := 0; k <= 10; k++ {
		edge := linearPercentile(sorted, float64(k*10))
		if len(edges) == 0 || edge > edges[len(edges)-1] {
			edges = append(edges, edge)
		}
	}
	if len(edges) == 1 {
		return []DecileBin{{Label: "D1", Lower: edges[0], Upper: edges[0], Count: len(sorted)}}, nil
	}

	bins := make([]DecileBin, len(edges)-1)
	for i := range bins {
		bins[i] = DecileBin{Label: fmt.Sprintf("D%d", i+1), Lower: edges[i], Upper: edges[i+1]}
	}
	for _, v := range sorted {
		// first edge index with edge >= v; v == edges[0] goes to the first bin
		idx := sort.SearchFloat64s(edges, v)
		if idx == 0 {
			idx = 1
		}
		bins[idx-1].Count++
	}
	return bins, nil
}

// StdBins sizes a histogram at one bin per standard deviation of range
func (da *DistributionAnalyzer) StdBins(summary Summary) StdBins {
	if summary.Std == 0 || summary.Count < 2 {
		return StdBins{Count: 1, Width: summary.Max}
	}
	count := int(math.RoundToEven((1 + summary.Max - summary.Min) / summary.Std))
	if count < 1 {
		count = 1
	}
	return StdBins{Count: count, Width: summary.Max / float64(count)}
}

// sortedCopy returns an ascending copy of data, leaving data untouched
func sortedCopy(data []float64) ([]float64, error) {
	if len(data) == 0 {
		return nil, stats.ErrEmptyInput
	}
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)
	return sorted, nil
}

// linearPercentile interpolates between the order statistics at
// h = (n-1) * p / 100
func linearPercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * p / 100
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}
