package dataset

// RawRow is one data row keyed by column header
type RawRow map[string]string

// Table is a parsed tabular file
type Table struct {
	Headers []string
	Rows    []RawRow
}

// HasColumn reports whether the table has the named column
func (t *Table) HasColumn(name string) bool {
	for _, h := range t.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// Filter bounds the values kept from the target column to [Min, Max).
// Nil bounds are open.
type Filter struct {
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// Keep reports whether v passes the filter
func (f Filter) Keep(v float64) bool {
	if f.Min != nil && v < *f.Min {
		return false
	}
	if f.Max != nil && v >= *f.Max {
		return false
	}
	return true
}

// SplitConfig selects the two samples of an A/B comparison
type SplitConfig struct {
	GroupColumn string `json:"group_column" yaml:"group_column"`
	ValueColumn string `json:"value_column" yaml:"value_column"`
	LabelA      string `json:"label_a" yaml:"label_a"`
	LabelB      string `json:"label_b" yaml:"label_b"`
	Filter      Filter `json:"filter" yaml:"filter"`
}

// Samples holds the partitioned A/B samples
type Samples struct {
	A []float64
	B []float64
	// Dropped counts rows of either group removed as empty, non-numeric or filtered
	Dropped int
}
