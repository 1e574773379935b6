package ai

import "context"

// FitAssessment is the structured outcome of comparing a candidate resume
// against a job description.
type FitAssessment struct {
	// Strengths and Weaknesses are newline-joined bullet lists.
	Strengths  string
	Weaknesses string
	// Score is the 0-100 fit estimate as reported by the model. It is stored
	// unclamped: out-of-range values pass through unchanged.
	Score     float64
	Rationale string
	// Raw keeps the original model response for diagnostics.
	Raw string
}

// Evaluator produces a fit assessment by calling an external completion
// service and defensively parsing its output.
type Evaluator interface {
	Evaluate(ctx context.Context, jobText, resumeText string) (*FitAssessment, error)
}
