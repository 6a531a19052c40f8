package dataset

import (
	"math"
	"sort"
	"strconv"

	"abtester/domain/core"
)

// Split partitions the value column into the A and B samples by group label.
// Empty or non-numeric cells are dropped, as are values outside the filter.
func Split(table *Table, cfg SplitConfig) (*Samples, error) {
	if !table.HasColumn(cfg.GroupColumn) {
		return nil, core.NewUnknownColumnError(cfg.GroupColumn)
	}
	if !table.HasColumn(cfg.ValueColumn) {
		return nil, core.NewUnknownColumnError(cfg.ValueColumn)
	}
	if cfg.LabelA == cfg.LabelB {
		return nil, core.NewValidationError("labels", "label_a and label_b must differ")
	}

	samples := &Samples{}
	seenA, seenB := false, false
	for _, row := range table.Rows {
		var dst *[]float64
		switch row[cfg.GroupColumn] {
		case cfg.LabelA:
			dst, seenA = &samples.A, true
		case cfg.LabelB:
			dst, seenB = &samples.B, true
		default:
			continue
		}

		v, ok := parseValue(row[cfg.ValueColumn])
		if !ok || !cfg.Filter.Keep(v) {
			samples.Dropped++
			continue
		}
		*dst = append(*dst, v)
	}

	if !seenA {
		return nil, core.NewUnknownGroupError(cfg.GroupColumn, cfg.LabelA)
	}
	if !seenB {
		return nil, core.NewUnknownGroupError(cfg.GroupColumn, cfg.LabelB)
	}
	return samples, nil
}

// GroupValues returns the numeric values of every group in the table, keyed
// by label, plus the labels in order of first appearance
func GroupValues(table *Table, groupColumn, valueColumn string, filter Filter) (map[string][]float64, []string, error) {
	if !table.HasColumn(groupColumn) {
		return nil, nil, core.NewUnknownColumnError(groupColumn)
	}
	if !table.HasColumn(valueColumn) {
		return nil, nil, core.NewUnknownColumnError(valueColumn)
	}

	groups := make(map[string][]float64)
	var labels []string
	for _, row := range table.Rows {
		label := row[groupColumn]
		if label == "" {
			continue
		}
		if _, ok := groups[label]; !ok {
			groups[label] = nil
			labels = append(labels, label)
		}
		if v, ok := parseValue(row[valueColumn]); ok && filter.Keep(v) {
			groups[label] = append(groups[label], v)
		}
	}
	return groups, labels, nil
}

// Labels returns the distinct group labels sorted
func Labels(table *Table, groupColumn string) []string {
	seen := make(map[string]bool)
	for _, row := range table.Rows {
		if label := row[groupColumn]; label != "" {
			seen[label] = true
		}
	}
	labels := make([]string, 0, len(seen))
	for label := range seen {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

func parseValue(cell string) (float64, bool) {
	if cell == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
