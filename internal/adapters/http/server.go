package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/domain"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/ports"
)

// Server exposes the scan lifecycle over HTTP. Callers only ever observe
// job status and, on completion, the score and report; provider error
// internals stay in the logs.
type Server struct {
	scans     ports.Scans
	jobs      ports.JobStore
	blobs     ports.BlobStore
	maxUpload int64
}

func New(scans ports.Scans, jobs ports.JobStore, blobs ports.BlobStore, maxUpload int64) *Server {
	return &Server{scans: scans, jobs: jobs, blobs: blobs, maxUpload: maxUpload}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealthz)
	r.Post("/scans", s.handleSubmit)
	r.Get("/scans", s.handleList)
	r.Get("/scans/{id}", s.handleStatus)
	r.Post("/scans/{id}/retry", s.handleRetry)
	r.Get("/scans/{id}/report", s.handleReport)
	r.Post("/admin/jobs/release-stale", s.handleReleaseStale)
	return r
}

type scanResponse struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	FileName  string    `json:"file_name"`
	Score     *int      `json:"score,omitempty"`
	HasReport bool      `json:"has_report"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toResponse(job domain.ScanJob) scanResponse {
	return scanResponse{
		ID:        job.ID,
		Status:    string(job.Status),
		FileName:  job.FileName,
		Score:     job.Score,
		HasReport: job.ReportRef != nil,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if s.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	id, err := s.scans.Submit(r.Context(), ports.SubmitRequest{
		OwnerID:  ownerID(r),
		FileName: header.Filename,
		Size:     header.Size,
		Blob:     file,
	})
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Msg)
			return
		}
		serverError(w, "submit", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": id})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.scans.ListByOwner(r.Context(), ownerID(r))
	if err != nil {
		serverError(w, "list", err)
		return
	}
	out := make([]scanResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, toResponse(job))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.scans.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "scan not found")
		return
	}
	if err != nil {
		serverError(w, "status", err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(job))
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	err := s.scans.Retry(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "scan not found")
	case errors.Is(err, domain.ErrRetryConflict):
		writeError(w, http.StatusConflict, "only failed scans can be retried")
	case err != nil:
		serverError(w, "retry", err)
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "requeued"})
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	job, err := s.scans.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "scan not found")
		return
	}
	if err != nil {
		serverError(w, "report", err)
		return
	}
	if job.Status != domain.StatusCompleted || job.ReportRef == nil {
		writeError(w, http.StatusNotFound, "report not available")
		return
	}
	doc, err := s.blobs.Get(r.Context(), *job.ReportRef)
	if err != nil {
		serverError(w, "report", err)
		return
	}
	defer doc.Close()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.Copy(w, doc)
}

func (s *Server) handleReleaseStale(w http.ResponseWriter, r *http.Request) {
	cutoff := 30 * time.Minute
	if v := r.URL.Query().Get("cutoff"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "invalid cutoff duration")
			return
		}
		cutoff = d
	}
	released, err := s.jobs.ReleaseStale(r.Context(), cutoff)
	if err != nil {
		serverError(w, "release-stale", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"released": released})
}

func ownerID(r *http.Request) string {
	if v := r.Header.Get("X-Owner-ID"); v != "" {
		return v
	}
	return "anonymous"
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func serverError(w http.ResponseWriter, op string, err error) {
	log.Printf("[http] %s: %v", op, err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
