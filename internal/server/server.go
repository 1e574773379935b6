// Package server exposes the recruiting workflow over HTTP: job and
// candidate uploads, analysis runs and the Excel report.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fitscreen/fitscreen/internal/analysis"
	"github.com/fitscreen/fitscreen/internal/store"
)

// Store is the persistence surface the HTTP handlers need.
type Store interface {
	CreateJob(ctx context.Context, job *store.JobDescription) error
	ListJobs(ctx context.Context) ([]store.JobDescription, error)
	GetJob(ctx context.Context, id uint) (*store.JobDescription, error)
	DeleteJob(ctx context.Context, id uint) ([]string, error)
	CreateCandidate(ctx context.Context, candidate *store.Candidate) error
	GetCandidate(ctx context.Context, id uint) (*store.Candidate, error)
	DeleteCandidate(ctx context.Context, id uint) ([]string, error)
	AddResume(ctx context.Context, resume *store.Resume) error
	GetAnalysis(ctx context.Context, candidateID, jobID uint) (*store.Analysis, error)
	CandidatesRanked(ctx context.Context, jobID uint) ([]store.CandidateWithAnalysis, error)
}

// Analyzer runs fit analyses for jobs and single candidates.
type Analyzer interface {
	RunJob(ctx context.Context, jobID uint) (*analysis.BatchResult, error)
	RunCandidate(ctx context.Context, candidateID uint) error
}

// Server wires the HTTP routes to the store and the analysis service.
type Server struct {
	store      Store
	analyzer   Analyzer
	uploadsDir string
	logger     *zap.Logger
}

// New creates a Server storing uploaded PDFs under uploadsDir.
func New(st Store, analyzer Analyzer, uploadsDir string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		store:      st,
		analyzer:   analyzer,
		uploadsDir: uploadsDir,
		logger:     logger,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(s.requestLogger(), gin.Recovery())

	router.GET("/jobs", s.listJobs)
	router.POST("/jobs", s.createJob)
	router.GET("/jobs/:id", s.getJob)
	router.DELETE("/jobs/:id", s.deleteJob)
	router.POST("/jobs/:id/candidates", s.addCandidate)
	router.POST("/jobs/:id/process", s.processJob)
	router.GET("/jobs/:id/report", s.jobReport)

	router.GET("/candidates/:id", s.getCandidate)
	router.DELETE("/candidates/:id", s.deleteCandidate)
	router.POST("/candidates/:id/process", s.processCandidate)

	return router
}

// Run serves the API until the listener fails.
func (s *Server) Run(addr string) error {
	for _, sub := range []string{"jds", "resumes"} {
		if err := os.MkdirAll(filepath.Join(s.uploadsDir, sub), 0o755); err != nil {
			return fmt.Errorf("prepare uploads dir: %w", err)
		}
	}

	s.logger.Info("http server starting", zap.String("addr", addr))
	return s.Router().Run(addr)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

// savePDF stores an uploaded multipart file under uploadsDir/<sub> and
// returns the stored path. Only .pdf uploads are accepted.
func (s *Server) savePDF(c *gin.Context, field, sub string) (string, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return "", fmt.Errorf("%s is required", field)
	}

	name := filepath.Base(header.Filename)
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return "", fmt.Errorf("%s must be a PDF file", field)
	}

	dir := filepath.Join(s.uploadsDir, sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, fmt.Sprintf("%d_%s", time.Now().UnixNano(), name))
	if err := c.SaveUploadedFile(header, path); err != nil {
		return "", fmt.Errorf("store %s: %w", field, err)
	}

	return path, nil
}

// removeFiles deletes stored PDFs after their database rows are gone.
// Failures are logged, not surfaced: the records are already deleted.
func (s *Server) removeFiles(paths []string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove uploaded file", zap.String("path", p), zap.Error(err))
		}
	}
}

func abortNotFound(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
}
