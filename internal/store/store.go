package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// ErrNotFound is returned when a referenced job, candidate, resume or
// analysis does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the single source of truth for jobs, candidates, resumes and
// analyses, backed by MySQL via gorm.
type Store struct {
	db *gorm.DB
}

// Open connects to MySQL and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := db.AutoMigrate(&JobDescription{}, &Candidate{}, &Resume{}, &Analysis{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

// NewWithDB wraps an existing gorm connection.
func NewWithDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateJob(ctx context.Context, job *JobDescription) error {
	return s.db.WithContext(ctx).Create(job).Error
}

func (s *Store) GetJob(ctx context.Context, id uint) (*JobDescription, error) {
	var job JobDescription
	if err := s.db.WithContext(ctx).First(&job, id).Error; err != nil {
		return nil, wrapNotFound(err, "job %d", id)
	}
	return &job, nil
}

func (s *Store) ListJobs(ctx context.Context) ([]JobDescription, error) {
	var jobs []JobDescription
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// SetJobText stores the lazily extracted job description text and advances
// the status to parsed.
func (s *Store) SetJobText(ctx context.Context, id uint, text string) error {
	return s.db.WithContext(ctx).Model(&JobDescription{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"jd_text": text,
			"status":  JobStatusParsed,
		}).Error
}

// MarkJobScored stamps the job as scored with the given processing time.
// Called exactly once per batch run, regardless of per-candidate failures.
func (s *Store) MarkJobScored(ctx context.Context, id uint, at time.Time) error {
	return s.db.WithContext(ctx).Model(&JobDescription{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       JobStatusScored,
			"processed_at": at,
		}).Error
}

// DeleteJob removes the job together with its candidates, their resumes and
// analyses. It returns the PDF paths of the removed records so the caller can
// clean up stored files.
func (s *Store) DeleteJob(ctx context.Context, id uint) ([]string, error) {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, 1)
	if job.PDFPath != "" {
		paths = append(paths, job.PDFPath)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidateIDs []uint
		if err := tx.Model(&Candidate{}).
			Where("job_description_id = ?", id).
			Pluck("id", &candidateIDs).Error; err != nil {
			return err
		}

		if len(candidateIDs) > 0 {
			var resumes []Resume
			if err := tx.Where("candidate_id IN ?", candidateIDs).Find(&resumes).Error; err != nil {
				return err
			}
			for _, resume := range resumes {
				if resume.PDFPath != "" {
					paths = append(paths, resume.PDFPath)
				}
			}

			if err := tx.Where("candidate_id IN ?", candidateIDs).Delete(&Resume{}).Error; err != nil {
				return err
			}
			if err := tx.Where("candidate_id IN ?", candidateIDs).Delete(&Analysis{}).Error; err != nil {
				return err
			}
			if err := tx.Where("job_description_id = ?", id).Delete(&Candidate{}).Error; err != nil {
				return err
			}
		}

		return tx.Delete(&JobDescription{}, id).Error
	})
	if err != nil {
		return nil, err
	}

	return paths, nil
}

func (s *Store) CreateCandidate(ctx context.Context, candidate *Candidate) error {
	return s.db.WithContext(ctx).Create(candidate).Error
}

func (s *Store) GetCandidate(ctx context.Context, id uint) (*Candidate, error) {
	var candidate Candidate
	if err := s.db.WithContext(ctx).First(&candidate, id).Error; err != nil {
		return nil, wrapNotFound(err, "candidate %d", id)
	}
	return &candidate, nil
}

// ListCandidatesWithLatestResume returns all candidates of a job, each paired
// with its most recent resume. The order is stable (ascending id) so error
// reporting correlates across runs.
func (s *Store) ListCandidatesWithLatestResume(ctx context.Context, jobID uint) ([]CandidateWithResume, error) {
	var candidates []Candidate
	if err := s.db.WithContext(ctx).
		Where("job_description_id = ?", jobID).
		Order("id").
		Find(&candidates).Error; err != nil {
		return nil, err
	}

	result := make([]CandidateWithResume, 0, len(candidates))
	for i := range candidates {
		resume, err := s.GetLatestResume(ctx, candidates[i].ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		result = append(result, CandidateWithResume{Candidate: candidates[i], Resume: resume})
	}

	return result, nil
}

// DeleteCandidate removes the candidate together with its resumes and
// analyses, returning resume PDF paths for file cleanup.
func (s *Store) DeleteCandidate(ctx context.Context, id uint) ([]string, error) {
	if _, err := s.GetCandidate(ctx, id); err != nil {
		return nil, err
	}

	var paths []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var resumes []Resume
		if err := tx.Where("candidate_id = ?", id).Find(&resumes).Error; err != nil {
			return err
		}
		for _, resume := range resumes {
			if resume.PDFPath != "" {
				paths = append(paths, resume.PDFPath)
			}
		}

		if err := tx.Where("candidate_id = ?", id).Delete(&Resume{}).Error; err != nil {
			return err
		}
		if err := tx.Where("candidate_id = ?", id).Delete(&Analysis{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Candidate{}, id).Error
	})
	if err != nil {
		return nil, err
	}

	return paths, nil
}

func (s *Store) AddResume(ctx context.Context, resume *Resume) error {
	return s.db.WithContext(ctx).Create(resume).Error
}

// GetLatestResume returns the most recently created resume of a candidate.
func (s *Store) GetLatestResume(ctx context.Context, candidateID uint) (*Resume, error) {
	var resume Resume
	err := s.db.WithContext(ctx).
		Where("candidate_id = ?", candidateID).
		Order("created_at DESC, id DESC").
		First(&resume).Error
	if err != nil {
		return nil, wrapNotFound(err, "resume for candidate %d", candidateID)
	}
	return &resume, nil
}

// SetResumeText stores the lazily extracted resume text.
func (s *Store) SetResumeText(ctx context.Context, id uint, text string) error {
	return s.db.WithContext(ctx).Model(&Resume{}).
		Where("id = ?", id).
		Update("resume_text", text).Error
}

// AssessmentFields carries the persisted outcome of one AI evaluation.
type AssessmentFields struct {
	Strengths  string
	Weaknesses string
	Score      float64
	Rationale  string
}

// SaveAssessment upserts the analysis for the (candidate, job) pair and
// updates the candidate fit score in the same transaction, so no observer
// sees one write without the other.
func (s *Store) SaveAssessment(ctx context.Context, candidateID, jobID uint, fields AssessmentFields) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		analysis := Analysis{
			CandidateID:      candidateID,
			JobDescriptionID: jobID,
			Strengths:        fields.Strengths,
			Weaknesses:       fields.Weaknesses,
			Score:            fields.Score,
			Rationale:        fields.Rationale,
		}

		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "candidate_id"}, {Name: "job_description_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"strengths", "weaknesses", "score", "rationale", "updated_at",
			}),
		}).Create(&analysis).Error
		if err != nil {
			return err
		}

		return tx.Model(&Candidate{}).
			Where("id = ?", candidateID).
			Update("fit_score", fields.Score).Error
	})
}

func (s *Store) GetAnalysis(ctx context.Context, candidateID, jobID uint) (*Analysis, error) {
	var analysis Analysis
	err := s.db.WithContext(ctx).
		Where("candidate_id = ? AND job_description_id = ?", candidateID, jobID).
		First(&analysis).Error
	if err != nil {
		return nil, wrapNotFound(err, "analysis for candidate %d", candidateID)
	}
	return &analysis, nil
}

// CandidatesRanked returns the candidates of a job ordered by fit score,
// highest first, unscored candidates last, each paired with its analysis.
func (s *Store) CandidatesRanked(ctx context.Context, jobID uint) ([]CandidateWithAnalysis, error) {
	var candidates []Candidate
	if err := s.db.WithContext(ctx).
		Where("job_description_id = ?", jobID).
		Order("fit_score IS NULL, fit_score DESC, id").
		Find(&candidates).Error; err != nil {
		return nil, err
	}

	result := make([]CandidateWithAnalysis, 0, len(candidates))
	for i := range candidates {
		analysis, err := s.GetAnalysis(ctx, candidates[i].ID, jobID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		result = append(result, CandidateWithAnalysis{Candidate: candidates[i], Analysis: analysis})
	}

	return result, nil
}

func wrapNotFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
	}
	return err
}
