package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fitscreen/fitscreen/internal/analysis"
	"github.com/fitscreen/fitscreen/internal/export"
	"github.com/fitscreen/fitscreen/internal/store"
)

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func (s *Server) listJobs(c *gin.Context) {
	jobs, err := s.store.ListJobs(c.Request.Context())
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (s *Server) createJob(c *gin.Context) {
	title := c.PostForm("title")
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	path, err := s.savePDF(c, "pdf", "jds")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job := &store.JobDescription{
		Title:   title,
		PDFPath: path,
		Status:  store.JobStatusUploaded,
	}
	if err := s.store.CreateJob(c.Request.Context(), job); err != nil {
		s.serverError(c, err)
		return
	}

	c.JSON(http.StatusCreated, job)
}

func (s *Server) getJob(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	job, err := s.store.GetJob(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		abortNotFound(c, "job")
		return
	}
	if err != nil {
		s.serverError(c, err)
		return
	}

	candidates, err := s.store.CandidatesRanked(c.Request.Context(), id)
	if err != nil {
		s.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"job": job, "candidates": candidates})
}

func (s *Server) deleteJob(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	paths, err := s.store.DeleteJob(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		abortNotFound(c, "job")
		return
	}
	if err != nil {
		s.serverError(c, err)
		return
	}

	s.removeFiles(paths)
	c.JSON(http.StatusOK, gin.H{"message": "job deleted"})
}

func (s *Server) addCandidate(c *gin.Context) {
	jobID, ok := idParam(c)
	if !ok {
		return
	}

	if _, err := s.store.GetJob(c.Request.Context(), jobID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			abortNotFound(c, "job")
			return
		}
		s.serverError(c, err)
		return
	}

	name := c.PostForm("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	path, err := s.savePDF(c, "pdf", "resumes")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	candidate := &store.Candidate{
		JobDescriptionID: jobID,
		Name:             name,
		Email:            c.PostForm("email"),
	}
	if err := s.store.CreateCandidate(c.Request.Context(), candidate); err != nil {
		s.serverError(c, err)
		return
	}

	resume := &store.Resume{CandidateID: candidate.ID, PDFPath: path}
	if err := s.store.AddResume(c.Request.Context(), resume); err != nil {
		s.serverError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"candidate": candidate, "resume_id": resume.ID})
}

func (s *Server) getCandidate(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	candidate, err := s.store.GetCandidate(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		abortNotFound(c, "candidate")
		return
	}
	if err != nil {
		s.serverError(c, err)
		return
	}

	resp := gin.H{"candidate": candidate}
	if a, err := s.store.GetAnalysis(c.Request.Context(), id, candidate.JobDescriptionID); err == nil {
		resp["analysis"] = gin.H{
			"strengths":  a.StrengthsList(),
			"weaknesses": a.WeaknessesList(),
			"score":      a.Score,
			"rationale":  a.Rationale,
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) deleteCandidate(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	paths, err := s.store.DeleteCandidate(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		abortNotFound(c, "candidate")
		return
	}
	if err != nil {
		s.serverError(c, err)
		return
	}

	s.removeFiles(paths)
	c.JSON(http.StatusOK, gin.H{"message": "candidate deleted"})
}

func (s *Server) processJob(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	result, err := s.analyzer.RunJob(c.Request.Context(), id)
	if err != nil {
		s.analysisError(c, err, "job")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"outcome":   result.Outcome,
		"processed": result.Processed,
		"failed":    result.Failed,
		"errors":    result.Errors,
		"message":   result.Summary(),
	})
}

func (s *Server) processCandidate(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	if err := s.analyzer.RunCandidate(c.Request.Context(), id); err != nil {
		s.analysisError(c, err, "candidate")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "analysis completed"})
}

func (s *Server) jobReport(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	job, err := s.store.GetJob(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		abortNotFound(c, "job")
		return
	}
	if err != nil {
		s.serverError(c, err)
		return
	}

	candidates, err := s.store.CandidatesRanked(c.Request.Context(), id)
	if err != nil {
		s.serverError(c, err)
		return
	}

	filename := fmt.Sprintf("fit-report-job-%d.xlsx", id)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	report := export.Report{Job: job, Candidates: candidates, Generated: time.Now()}
	if err := export.Write(c.Writer, report); err != nil {
		s.logger.Error("report rendering failed", zap.Uint("job_id", id), zap.Error(err))
	}
}

func (s *Server) analysisError(c *gin.Context, err error, what string) {
	switch {
	case errors.Is(err, analysis.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		abortNotFound(c, what)
	default:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	}
}

func (s *Server) serverError(c *gin.Context, err error) {
	s.logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
