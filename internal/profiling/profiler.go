package profiling

import (
	"fmt"

	"abtester/internal"
)

// DataProfiler builds descriptive profiles of the groups in an experiment
type DataProfiler struct {
	analyzer *DistributionAnalyzer
	logger   *internal.Logger
}

// NewDataProfiler creates a new data profiler
func NewDataProfiler(logger *internal.Logger) *DataProfiler {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &DataProfiler{
		analyzer: NewDistributionAnalyzer(),
		logger:   logger,
	}
}

// ProfileGroup profiles one group's sample
func (dp *DataProfiler) ProfileGroup(label string, data []float64) (*GroupProfile, error) {
	summary, err := dp.analyzer.Summarize(data)
	if err != nil {
		return nil, fmt.Errorf("group %q: %w", label, err)
	}
	percentiles, err := dp.analyzer.Percentiles(data, NormalPercentiles)
	if err != nil {
		return nil, fmt.Errorf("group %q: %w", label, err)
	}
	deciles, err := dp.analyzer.Deciles(data)
	if err != nil {
		return nil, fmt.Errorf("group %q: %w", label, err)
	}

	profile := &GroupProfile{
		Label:       label,
		Summary:     summary,
		Shape:       dp.analyzer.Shape(data),
		Percentiles: percentiles,
		Deciles:     deciles,
		StdBins:     dp.analyzer.StdBins(summary),
	}
	dp.logger.Debug("[Profiler] %s: n=%d mean=%.4g std=%.4g", label, summary.Count, summary.Mean, summary.Std)
	return profile, nil
}

// ProfileGroups profiles every group in the given label order. Empty groups
// are skipped.
func (dp *DataProfiler) ProfileGroups(groups map[string][]float64, order []string) ([]GroupProfile, error) {
	profiles := make([]GroupProfile, 0, len(order))
	for _, label := range order {
		data := groups[label]
		if len(data) == 0 {
			dp.logger.Warn("[Profiler] group %q has no numeric values, skipping", label)
			continue
		}
		profile, err := dp.ProfileGroup(label, data)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *profile)
	}
	return profiles, nil
}
