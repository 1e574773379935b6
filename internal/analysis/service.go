// Package analysis orchestrates the fit-scoring pipeline: it loads job and
// resume texts, extracts missing ones from the stored PDFs, asks the AI
// evaluator for an assessment and persists the result.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fitscreen/fitscreen/internal/ai"
	"github.com/fitscreen/fitscreen/internal/pdftext"
	"github.com/fitscreen/fitscreen/internal/store"
)

// ErrNotConfigured is returned when no AI evaluator has been wired, usually
// because the API key is missing.
var ErrNotConfigured = errors.New("ai evaluator is not configured, set the API key")

// Store is the subset of the persistence layer the service needs.
type Store interface {
	GetJob(ctx context.Context, id uint) (*store.JobDescription, error)
	SetJobText(ctx context.Context, id uint, text string) error
	MarkJobScored(ctx context.Context, id uint, at time.Time) error
	ListCandidatesWithLatestResume(ctx context.Context, jobID uint) ([]store.CandidateWithResume, error)
	GetCandidate(ctx context.Context, id uint) (*store.Candidate, error)
	GetLatestResume(ctx context.Context, candidateID uint) (*store.Resume, error)
	SetResumeText(ctx context.Context, id uint, text string) error
	SaveAssessment(ctx context.Context, candidateID, jobID uint, fields store.AssessmentFields) error
}

// TextExtractor pulls plain text out of an uploaded PDF.
type TextExtractor interface {
	Extract(path string) (string, error)
}

// Service runs fit analyses for whole jobs or single candidates.
type Service struct {
	store     Store
	extractor TextExtractor
	evaluator ai.Evaluator
	logger    *zap.Logger
}

// New creates a Service. The evaluator may be nil when no API key is
// configured; analysis runs then fail with ErrNotConfigured.
func New(st Store, extractor TextExtractor, evaluator ai.Evaluator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		store:     st,
		extractor: extractor,
		evaluator: evaluator,
		logger:    logger,
	}
}

// Outcome summarizes how a batch run went.
type Outcome string

const (
	// OutcomeSuccess means every candidate was assessed.
	OutcomeSuccess Outcome = "success"
	// OutcomePartial means some candidates were assessed and some failed.
	OutcomePartial Outcome = "partial"
	// OutcomeFailed means no candidate could be assessed.
	OutcomeFailed Outcome = "failed"
	// OutcomeNoCandidates means the job has no candidates to assess.
	OutcomeNoCandidates Outcome = "no_candidates"
)

// BatchResult reports per-candidate outcomes of a job run. One candidate
// failing never stops the others.
type BatchResult struct {
	Outcome   Outcome
	Processed int
	Failed    int
	Errors    []string
}

func (r *BatchResult) addError(msg string) {
	r.Failed++
	r.Errors = append(r.Errors, msg)
}

// Summary renders the result as a short human-readable message.
func (r *BatchResult) Summary() string {
	switch r.Outcome {
	case OutcomeNoCandidates:
		return "no candidates to analyze for this job"
	case OutcomeSuccess:
		return fmt.Sprintf("analysis completed for %d candidate(s)", r.Processed)
	}

	msg := fmt.Sprintf("analysis finished: %d succeeded, %d failed", r.Processed, r.Failed)
	if r.Outcome == OutcomeFailed {
		for _, e := range r.Errors {
			if strings.Contains(e, "quota exceeded") {
				msg += ". Your API quota appears to be exhausted, check your billing"
				break
			}
		}
	}

	return msg
}

// RunJob analyzes every candidate of the given job. Configuration problems,
// a missing job and a job description that cannot be parsed are hard errors;
// everything that goes wrong for an individual candidate is recorded in the
// result and the run continues.
func (s *Service) RunJob(ctx context.Context, jobID uint) (*BatchResult, error) {
	if s.evaluator == nil {
		return nil, ErrNotConfigured
	}

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if err := s.ensureJobText(ctx, job); err != nil {
		return nil, fmt.Errorf("parse job description: %w", err)
	}

	candidates, err := s.store.ListCandidatesWithLatestResume(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		return &BatchResult{Outcome: OutcomeNoCandidates}, nil
	}

	result := &BatchResult{}
	for _, c := range candidates {
		if c.Resume == nil {
			result.addError(fmt.Sprintf("no resume found for candidate: %s", c.Candidate.Name))
			continue
		}

		if err := s.evaluateCandidate(ctx, &c.Candidate, c.Resume, job); err != nil {
			s.logger.Warn("candidate analysis failed",
				zap.Uint("candidate_id", c.Candidate.ID),
				zap.Error(err),
			)
			result.addError(describeFailure(c.Candidate.Name, err))
			continue
		}

		result.Processed++
	}

	// The job is stamped scored even when candidates failed, so a rerun is an
	// explicit operator decision rather than an automatic retry.
	if err := s.store.MarkJobScored(ctx, jobID, time.Now()); err != nil {
		return nil, err
	}

	switch {
	case result.Failed == 0:
		result.Outcome = OutcomeSuccess
	case result.Processed == 0:
		result.Outcome = OutcomeFailed
	default:
		result.Outcome = OutcomePartial
	}

	s.logger.Info("job analysis finished",
		zap.Uint("job_id", jobID),
		zap.String("outcome", string(result.Outcome)),
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed),
	)

	return result, nil
}

// RunCandidate analyzes a single candidate against its job. The first error
// in the pipeline is the outcome.
func (s *Service) RunCandidate(ctx context.Context, candidateID uint) error {
	if s.evaluator == nil {
		return ErrNotConfigured
	}

	candidate, err := s.store.GetCandidate(ctx, candidateID)
	if err != nil {
		return err
	}

	job, err := s.store.GetJob(ctx, candidate.JobDescriptionID)
	if err != nil {
		return err
	}

	if err := s.ensureJobText(ctx, job); err != nil {
		return fmt.Errorf("parse job description: %w", err)
	}

	resume, err := s.store.GetLatestResume(ctx, candidateID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no resume found for candidate: %s", candidate.Name)
		}
		return err
	}

	if err := s.evaluateCandidate(ctx, candidate, resume, job); err != nil {
		return errors.New(describeFailure(candidate.Name, err))
	}

	return nil
}

// ensureJobText lazily extracts the job description text from its PDF the
// first time it is needed and caches it in the store. A job without a PDF is
// evaluated with empty text.
func (s *Service) ensureJobText(ctx context.Context, job *store.JobDescription) error {
	if job.Text != "" || job.PDFPath == "" {
		return nil
	}

	text, err := s.extractor.Extract(job.PDFPath)
	if err != nil {
		return err
	}

	if err := s.store.SetJobText(ctx, job.ID, text); err != nil {
		return err
	}

	job.Text = text
	return nil
}

func (s *Service) evaluateCandidate(ctx context.Context, candidate *store.Candidate, resume *store.Resume, job *store.JobDescription) error {
	if resume.Text == "" && resume.PDFPath != "" {
		text, err := s.extractor.Extract(resume.PDFPath)
		if err != nil {
			return err
		}

		if err := s.store.SetResumeText(ctx, resume.ID, text); err != nil {
			return err
		}

		resume.Text = text
	}

	assessment, err := s.evaluator.Evaluate(ctx, job.Text, resume.Text)
	if err != nil {
		return err
	}

	return s.store.SaveAssessment(ctx, candidate.ID, job.ID, store.AssessmentFields{
		Strengths:  assessment.Strengths,
		Weaknesses: assessment.Weaknesses,
		Score:      assessment.Score,
		Rationale:  assessment.Rationale,
	})
}

// describeFailure turns a pipeline error into the operator-facing message
// recorded for a candidate.
func describeFailure(name string, err error) string {
	var aiErr *ai.Error
	if errors.As(err, &aiErr) {
		switch aiErr.Kind {
		case ai.KindQuota:
			return fmt.Sprintf("API quota exceeded for %s. Please check your billing and upgrade your plan.", name)
		case ai.KindRateLimit:
			return fmt.Sprintf("API rate limit exceeded for %s. Please wait a moment and try again.", name)
		case ai.KindInvalidKey:
			return fmt.Sprintf("Invalid API key for %s. Please check your API key configuration.", name)
		case ai.KindInvalidFormat:
			return fmt.Sprintf("Invalid response format for %s", name)
		}
	}

	var extErr *pdftext.ExtractionError
	if errors.As(err, &extErr) {
		return fmt.Sprintf("Failed to parse resume for %s: %v", name, err)
	}

	return fmt.Sprintf("Analysis failed for %s: %v", name, err)
}
