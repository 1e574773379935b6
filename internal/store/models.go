package store

import (
	"strings"
	"time"
)

// Job description lifecycle. A job starts as uploaded, becomes parsed once
// its PDF text has been extracted, and scored after a processing pass ran to
// completion.
const (
	JobStatusUploaded = "uploaded"
	JobStatusParsed   = "parsed"
	JobStatusScored   = "scored"
)

type JobDescription struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	PDFPath     string     `gorm:"column:pdf_path;size:512" json:"pdf_path,omitempty"`
	Text        string     `gorm:"column:jd_text;type:longtext" json:"-"`
	Status      string     `gorm:"size:32;not null;default:'uploaded'" json:"status"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Candidates []Candidate `gorm:"foreignKey:JobDescriptionID" json:"candidates,omitempty"`
}

type Candidate struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	JobDescriptionID uint      `gorm:"not null;index" json:"job_description_id"`
	Name             string    `gorm:"size:255;not null" json:"name"`
	Email            string    `gorm:"size:255" json:"email,omitempty"`
	FitScore         *float64  `json:"fit_score,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	Resumes []Resume `gorm:"foreignKey:CandidateID" json:"resumes,omitempty"`
}

// Resume is immutable once stored except for the lazily populated text. The
// most recently created resume is the one considered during analysis.
type Resume struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CandidateID uint      `gorm:"not null;index" json:"candidate_id"`
	PDFPath     string    `gorm:"column:pdf_path;size:512;not null" json:"pdf_path"`
	Text        string    `gorm:"column:resume_text;type:longtext" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Analysis holds the outcome of one AI evaluation for a (candidate, job)
// pair. The composite unique index makes re-processing an upsert: at most one
// analysis exists per pair at any time.
type Analysis struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	CandidateID      uint      `gorm:"not null;uniqueIndex:idx_candidate_job" json:"candidate_id"`
	JobDescriptionID uint      `gorm:"not null;uniqueIndex:idx_candidate_job" json:"job_description_id"`
	Strengths        string    `gorm:"type:text" json:"strengths"`
	Weaknesses       string    `gorm:"type:text" json:"weaknesses"`
	Score            float64   `json:"score"`
	Rationale        string    `gorm:"type:text" json:"rationale"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// StrengthsList splits the newline-joined strengths back into bullets.
func (a *Analysis) StrengthsList() []string {
	return splitBullets(a.Strengths)
}

// WeaknessesList splits the newline-joined weaknesses back into bullets.
func (a *Analysis) WeaknessesList() []string {
	return splitBullets(a.Weaknesses)
}

func splitBullets(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	lines := strings.Split(s, "\n")
	bullets := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		bullets = append(bullets, line)
	}

	return bullets
}

// CandidateWithResume pairs a candidate with its most recent resume. Resume
// is nil when the candidate has no resume at all.
type CandidateWithResume struct {
	Candidate Candidate
	Resume    *Resume
}

// CandidateWithAnalysis pairs a candidate with its analysis for the owning
// job, if one exists.
type CandidateWithAnalysis struct {
	Candidate Candidate `json:"candidate"`
	Analysis  *Analysis `json:"analysis,omitempty"`
}
