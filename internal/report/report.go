package report

import (
	"fmt"
	"strings"

	"abtester/domain/core"
	"abtester/domain/experiment"
	"abtester/internal/batch"
	"abtester/internal/profiling"
)

// Format is an output format of the renderer
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat parses a format name; "md" is accepted for markdown
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("unknown report format %q (want text, json, markdown or html)", s)
}

// Report is a single evaluation ready for rendering
type Report struct {
	ID       string                   `json:"id,omitempty"`
	Config   experiment.Config        `json:"config"`
	Result   *experiment.TestResult   `json:"result"`
	Profiles []profiling.GroupProfile `json:"profiles,omitempty"`
}

// Title names the comparison by its group labels
func (r Report) Title() string {
	return fmt.Sprintf("A/B test: %s vs %s", r.Config.LabelA, r.Config.LabelB)
}

// BatchEntry is the rendered form of one batch job
type BatchEntry struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Config     experiment.Config      `json:"config"`
	Result     *experiment.TestResult `json:"result,omitempty"`
	Error      string                 `json:"error,omitempty"`
	StartedAt  core.Timestamp         `json:"started_at"`
	DurationMs float64                `json:"duration_ms"`
}

// FromJobResults converts batch results for rendering
func FromJobResults(results []batch.JobResult) []BatchEntry {
	entries := make([]BatchEntry, len(results))
	for i, res := range results {
		entries[i] = BatchEntry{
			ID:         res.ID.String(),
			Name:       res.Name,
			Config:     res.Config,
			Result:     res.Result,
			StartedAt:  res.StartedAt,
			DurationMs: float64(res.Duration.Microseconds()) / 1000,
		}
		if res.Err != nil {
			entries[i].Error = res.Err.Error()
		}
	}
	return entries
}

// HypothesisLines returns the hypothesis statement block
func HypothesisLines(alt experiment.Alternative) []string {
	h0, h1 := alt.Hypotheses()
	return []string{"# A/B Testing Hypothesis", h0, h1}
}

// batchColumns are the columns of the batch table; Homogeneity shows "-"
// for non-parametric rows
var batchColumns = []string{"Name", "Test Type", "Homogeneity", "AB Hypothesis", "p-value", "Comment"}

func batchRow(e BatchEntry) []string {
	if e.Result == nil {
		return []string{e.Name, "-", "-", "-", "-", "error: " + e.Error}
	}
	row := []string{e.Name}
	cols := e.Result.Columns()
	if e.Result.Homogeneity == nil {
		row = append(row, cols[0].Value, "-")
		cols = cols[1:]
	} else {
		row = append(row, cols[0].Value, cols[1].Value)
		cols = cols[2:]
	}
	for _, c := range cols {
		row = append(row, c.Value)
	}
	return row
}
