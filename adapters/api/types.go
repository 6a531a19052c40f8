package api

import (
	"abtester/domain/core"
	"abtester/domain/experiment"
	"abtester/internal/profiling"
	"abtester/internal/report"
)

// EvaluateRequest is the body of POST /api/v1/evaluate
type EvaluateRequest struct {
	SampleA []float64         `json:"sample_a"`
	SampleB []float64         `json:"sample_b"`
	Config  experiment.Config `json:"config"`
	// Profile adds descriptive group profiles to the response
	Profile bool `json:"profile,omitempty"`
}

// Hypothesis is the hypothesis statement of an evaluation
type Hypothesis struct {
	H0 string `json:"h0"`
	H1 string `json:"h1"`
}

// EvaluateResponse is the reply to a successful evaluation
type EvaluateResponse struct {
	ID          string                   `json:"id"`
	EvaluatedAt core.Timestamp           `json:"evaluated_at"`
	Hypothesis  Hypothesis               `json:"hypothesis"`
	Result      *experiment.TestResult   `json:"result"`
	Profiles    []profiling.GroupProfile `json:"profiles,omitempty"`
}

// BatchJob is one job of a batch request
type BatchJob struct {
	Name    string            `json:"name"`
	SampleA []float64         `json:"sample_a"`
	SampleB []float64         `json:"sample_b"`
	Config  experiment.Config `json:"config"`
}

// BatchRequest is the body of POST /api/v1/batch
type BatchRequest struct {
	Jobs []BatchJob `json:"jobs"`
}

// BatchResponse lists job outcomes in request order
type BatchResponse struct {
	Results []report.BatchEntry `json:"results"`
}

// DescribeRequest is the body of POST /api/v1/describe
type DescribeRequest struct {
	Groups map[string][]float64 `json:"groups"`
	// Order lists the group labels to profile; defaults to sorted labels
	Order []string `json:"order,omitempty"`
}

// DescribeResponse carries one profile per non-empty group
type DescribeResponse struct {
	Profiles []profiling.GroupProfile `json:"profiles"`
}

// ErrorBody is the error envelope of every failed request
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failure
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
