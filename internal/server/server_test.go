package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/fitscreen/fitscreen/internal/analysis"
	"github.com/fitscreen/fitscreen/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeStore struct {
	jobs       map[uint]*store.JobDescription
	candidates map[uint]*store.Candidate
	analyses   map[uint]*store.Analysis
	resumes    []*store.Resume
	nextID     uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:       map[uint]*store.JobDescription{},
		candidates: map[uint]*store.Candidate{},
		analyses:   map[uint]*store.Analysis{},
		nextID:     1,
	}
}

func (f *fakeStore) CreateJob(_ context.Context, job *store.JobDescription) error {
	job.ID = f.nextID
	f.nextID++
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeStore) ListJobs(_ context.Context) ([]store.JobDescription, error) {
	var jobs []store.JobDescription
	for _, j := range f.jobs {
		jobs = append(jobs, *j)
	}
	return jobs, nil
}

func (f *fakeStore) GetJob(_ context.Context, id uint) (*store.JobDescription, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return job, nil
}

func (f *fakeStore) DeleteJob(_ context.Context, id uint) ([]string, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(f.jobs, id)
	return []string{job.PDFPath}, nil
}

func (f *fakeStore) CreateCandidate(_ context.Context, candidate *store.Candidate) error {
	candidate.ID = f.nextID
	f.nextID++
	f.candidates[candidate.ID] = candidate
	return nil
}

func (f *fakeStore) GetCandidate(_ context.Context, id uint) (*store.Candidate, error) {
	candidate, ok := f.candidates[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return candidate, nil
}

func (f *fakeStore) DeleteCandidate(_ context.Context, id uint) ([]string, error) {
	if _, ok := f.candidates[id]; !ok {
		return nil, store.ErrNotFound
	}
	delete(f.candidates, id)
	return nil, nil
}

func (f *fakeStore) AddResume(_ context.Context, resume *store.Resume) error {
	resume.ID = f.nextID
	f.nextID++
	f.resumes = append(f.resumes, resume)
	return nil
}

func (f *fakeStore) GetAnalysis(_ context.Context, candidateID, _ uint) (*store.Analysis, error) {
	a, ok := f.analyses[candidateID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) CandidatesRanked(_ context.Context, _ uint) ([]store.CandidateWithAnalysis, error) {
	return nil, nil
}

type fakeAnalyzer struct {
	result *analysis.BatchResult
	err    error
}

func (f *fakeAnalyzer) RunJob(_ context.Context, _ uint) (*analysis.BatchResult, error) {
	return f.result, f.err
}

func (f *fakeAnalyzer) RunCandidate(_ context.Context, _ uint) error {
	return f.err
}

func newTestServer(t *testing.T, st Store, analyzer Analyzer) *Server {
	t.Helper()
	return New(st, analyzer, t.TempDir(), nil)
}

func multipartPDF(t *testing.T, fields map[string]string, fileField, filename string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		w.WriteField(k, v)
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, filename)
		if err != nil {
			t.Fatal(err)
		}
		part.Write([]byte("%PDF-1.4 test"))
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestCreateJob(t *testing.T) {
	st := newFakeStore()
	srv := newTestServer(t, st, &fakeAnalyzer{})
	router := srv.Router()

	body, contentType := multipartPDF(t, map[string]string{"title": "Backend Engineer"}, "pdf", "jd.pdf")
	req := httptest.NewRequest(http.MethodPost, "/jobs", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(st.jobs) != 1 {
		t.Fatalf("jobs stored = %d, want 1", len(st.jobs))
	}
	for _, job := range st.jobs {
		if job.Status != store.JobStatusUploaded {
			t.Errorf("job status = %q, want %q", job.Status, store.JobStatusUploaded)
		}
		if job.PDFPath == "" {
			t.Error("job PDF path not recorded")
		}
	}
}

func TestCreateJobRejectsNonPDF(t *testing.T) {
	srv := newTestServer(t, newFakeStore(), &fakeAnalyzer{})
	router := srv.Router()

	body, contentType := multipartPDF(t, map[string]string{"title": "Backend"}, "pdf", "jd.docx")
	req := httptest.NewRequest(http.MethodPost, "/jobs", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "must be a PDF") {
		t.Errorf("body = %s, want PDF rejection message", rec.Body.String())
	}
}

func TestCreateJobRequiresTitle(t *testing.T) {
	srv := newTestServer(t, newFakeStore(), &fakeAnalyzer{})
	router := srv.Router()

	body, contentType := multipartPDF(t, nil, "pdf", "jd.pdf")
	req := httptest.NewRequest(http.MethodPost, "/jobs", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAddCandidate(t *testing.T) {
	st := newFakeStore()
	st.jobs[1] = &store.JobDescription{ID: 1, Title: "Backend"}
	st.nextID = 2
	srv := newTestServer(t, st, &fakeAnalyzer{})
	router := srv.Router()

	body, contentType := multipartPDF(t, map[string]string{"name": "Alice", "email": "alice@example.com"}, "pdf", "resume.pdf")
	req := httptest.NewRequest(http.MethodPost, "/jobs/1/candidates", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(st.candidates) != 1 || len(st.resumes) != 1 {
		t.Fatalf("stored candidates/resumes = %d/%d, want 1/1", len(st.candidates), len(st.resumes))
	}
	for _, c := range st.candidates {
		if c.JobDescriptionID != 1 {
			t.Errorf("candidate job id = %d, want 1", c.JobDescriptionID)
		}
	}
}

func TestAddCandidateUnknownJob(t *testing.T) {
	srv := newTestServer(t, newFakeStore(), &fakeAnalyzer{})
	router := srv.Router()

	body, contentType := multipartPDF(t, map[string]string{"name": "Alice"}, "pdf", "resume.pdf")
	req := httptest.NewRequest(http.MethodPost, "/jobs/42/candidates", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestProcessJob(t *testing.T) {
	st := newFakeStore()
	st.jobs[1] = &store.JobDescription{ID: 1}
	result := &analysis.BatchResult{
		Outcome:   analysis.OutcomePartial,
		Processed: 2,
		Failed:    1,
		Errors:    []string{"no resume found for candidate: Bob"},
	}
	srv := newTestServer(t, st, &fakeAnalyzer{result: result})
	router := srv.Router()

	req := httptest.NewRequest(http.MethodPost, "/jobs/1/process", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Outcome   string   `json:"outcome"`
		Processed int      `json:"processed"`
		Failed    int      `json:"failed"`
		Errors    []string `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Outcome != string(analysis.OutcomePartial) || resp.Processed != 2 || resp.Failed != 1 {
		t.Errorf("response = %+v, want the batch result echoed", resp)
	}
}

func TestProcessJobNotConfigured(t *testing.T) {
	srv := newTestServer(t, newFakeStore(), &fakeAnalyzer{err: analysis.ErrNotConfigured})
	router := srv.Router()

	req := httptest.NewRequest(http.MethodPost, "/jobs/1/process", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestProcessCandidateNotFound(t *testing.T) {
	srv := newTestServer(t, newFakeStore(), &fakeAnalyzer{err: store.ErrNotFound})
	router := srv.Router()

	req := httptest.NewRequest(http.MethodPost, "/candidates/9/process", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetCandidateWithAnalysis(t *testing.T) {
	st := newFakeStore()
	st.candidates[3] = &store.Candidate{ID: 3, JobDescriptionID: 1, Name: "Carol"}
	st.analyses[3] = &store.Analysis{
		CandidateID:      3,
		JobDescriptionID: 1,
		Strengths:        "Kubernetes\nGo services",
		Weaknesses:       "No MySQL",
		Score:            67,
		Rationale:        "Good infra match.",
	}
	srv := newTestServer(t, st, &fakeAnalyzer{})
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/candidates/3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Analysis struct {
			Strengths []string `json:"strengths"`
			Score     float64  `json:"score"`
		} `json:"analysis"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Analysis.Strengths) != 2 {
		t.Errorf("strengths = %v, want 2 bullets", resp.Analysis.Strengths)
	}
	if resp.Analysis.Score != 67 {
		t.Errorf("score = %v, want 67", resp.Analysis.Score)
	}
}

func TestJobReportDownload(t *testing.T) {
	st := newFakeStore()
	st.jobs[1] = &store.JobDescription{ID: 1, Title: "Backend", Status: store.JobStatusScored}
	srv := newTestServer(t, st, &fakeAnalyzer{})
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/jobs/1/report", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "fit-report-job-1.xlsx") {
		t.Errorf("content disposition = %q", got)
	}
	if rec.Body.Len() == 0 {
		t.Error("report body is empty")
	}
}
