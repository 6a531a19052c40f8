package profiling

// NormalPercentiles are the percentile ranks aligned with the normal
// distribution: the median and roughly 1, 2 and 3 standard deviations either
// side, plus the 0.1 % tails
var NormalPercentiles = []float64{0.1, 2.2, 15.8, 50, 84.1, 97.7, 99.8, 99.9}

// Summary is the per-group aggregate table row
type Summary struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	// Std is the sample standard deviation (n-1 denominator); zero for n < 2
	Std float64 `json:"std"`
}

// Shape holds the moment-based shape measures. Nil when undefined, e.g. for
// a constant sample.
type Shape struct {
	Skewness *float64 `json:"skewness,omitempty"`
	Kurtosis *float64 `json:"excess_kurtosis,omitempty"`
}

// Percentile is one value of the percentile table
type Percentile struct {
	Rank  float64 `json:"rank"`
	Value float64 `json:"value"`
}

// DecileBin is one decile interval. The first bin is closed on both ends,
// the rest are (Lower, Upper].
type DecileBin struct {
	Label string  `json:"label"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// StdBins is the histogram binning with one bin per standard deviation of range
type StdBins struct {
	Count int     `json:"count"`
	Width float64 `json:"width"`
}

// GroupProfile is the descriptive profile of one group
type GroupProfile struct {
	Label       string       `json:"label"`
	Summary     Summary      `json:"summary"`
	Shape       Shape        `json:"shape"`
	Percentiles []Percentile `json:"percentiles"`
	Deciles     []DecileBin  `json:"deciles"`
	StdBins     StdBins      `json:"std_bins"`
}
