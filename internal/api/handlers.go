// Package api exposes the core's HTTP surface: single and batch credential
// checks, batch job polling/deletion, and status/health endpoints.
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lkeld/leakcheck-core/internal/apierr"
	"github.com/lkeld/leakcheck-core/internal/batch"
	"github.com/lkeld/leakcheck-core/internal/checker"
	"github.com/lkeld/leakcheck-core/internal/config"
	"github.com/lkeld/leakcheck-core/internal/oauthtoken"
	"github.com/lkeld/leakcheck-core/internal/ratelimit"
)

// Handlers holds every collaborator the HTTP layer needs to serve requests.
type Handlers struct {
	config  *config.Config
	checker *checker.Service
	tokens  *oauthtoken.Manager
	jobs    *batch.Registry
	limits  *ratelimit.Limiter
}

// NewHandlers wires the checker, job registry, and rate limiter from cfg.
func NewHandlers(cfg *config.Config, checkerSvc *checker.Service, tokens *oauthtoken.Manager) *Handlers {
	return &Handlers{
		config:  cfg,
		checker: checkerSvc,
		tokens:  tokens,
		jobs:    batch.NewRegistry(checkerSvc),
		limits:  ratelimit.New(cfg.RateLimitSingleRPM, cfg.RateLimitBatchRPM),
	}
}

// Health reports 200 OK unconditionally, mirroring the protocol's liveness
// probe: it checks the process is up, not that its dependencies are.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

type statusResponse struct {
	Status          string `json:"status"`
	Timestamp       string `json:"timestamp"`
	GoogleAPIStatus string `json:"googleApiStatus"`
}

// Status reports the process's own health plus whether it can currently
// obtain an oracle bearer token.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	googleStatus := "disconnected"
	if h.tokens.CheckConnection(r.Context()) {
		googleStatus = "connected"
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Status:          "healthy",
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		GoogleAPIStatus: googleStatus,
	})
}

type singleCheckRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type singleCheckResponse struct {
	Username string `json:"username"`
	IsLeaked bool   `json:"isLeaked"`
	Message  string `json:"message"`
}

// CheckSingle checks one username/password pair against the oracle.
func (h *Handlers) CheckSingle(w http.ResponseWriter, r *http.Request) {
	if !h.limits.AllowSingle() {
		writeAPIError(w, apierr.New(apierr.RateLimited, "Rate limit exceeded for single credential checks"))
		return
	}

	var req singleCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, apierr.New(apierr.InvalidInput, "Invalid request body"))
		return
	}

	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Password) == "" {
		writeAPIError(w, apierr.New(apierr.InvalidInput, "Username and password are required"))
		return
	}

	isLeaked, err := h.checker.CheckSingleCredential(r.Context(), req.Username, req.Password)
	if err != nil {
		writeAPIError(w, apierr.New(apierr.Internal, "Credential check failed: "+err.Error()))
		return
	}

	message := "Credential not found in our breach database"
	if isLeaked {
		message = "Credential found in a known data breach"
	}

	writeJSON(w, http.StatusOK, singleCheckResponse{
		Username: req.Username,
		IsLeaked: isLeaked,
		Message:  message,
	})
}

type batchCheckResponse struct {
	JobID   string `json:"jobId"`
	Message string `json:"message"`
}

// maxUploadBytes bounds the multipart form read; the protocol itself bounds
// line count (10,000), but a byte ceiling guards against pathologically
// long single lines before that check ever runs.
const maxUploadBytes = 64 << 20 // 64MiB

// CheckBatch accepts a multipart-uploaded newline-delimited credential file
// and starts an asynchronous batch job.
func (h *Handlers) CheckBatch(w http.ResponseWriter, r *http.Request) {
	if !h.limits.AllowBatch() {
		writeAPIError(w, apierr.New(apierr.RateLimited, "Rate limit exceeded for batch credential checks"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeAPIError(w, apierr.New(apierr.InvalidInput, "Error reading multipart form: "+err.Error()))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeAPIError(w, apierr.New(apierr.InvalidInput, "No file provided"))
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		writeAPIError(w, apierr.New(apierr.InvalidInput, "Failed to read file: "+err.Error()))
		return
	}

	emailOnly := r.FormValue("input_type") == "email_only"

	jobID, err := h.jobs.Submit(fileBytes, emailOnly)
	switch err {
	case nil:
	case batch.ErrEmptyFile:
		writeAPIError(w, apierr.New(apierr.InvalidInput, "File is empty"))
		return
	case batch.ErrTooManyLines:
		writeAPIError(w, apierr.New(apierr.InvalidInput, "File contains more than 10,000 lines"))
		return
	default:
		writeAPIError(w, apierr.New(apierr.Internal, err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, batchCheckResponse{
		JobID:   jobID,
		Message: "Batch job started successfully",
	})
}

type batchStatusResponse struct {
	Summary batch.Summary  `json:"summary"`
	Results []batch.Result `json:"results"`
}

// GetBatchStatus polls a job's progress. Polling itself refreshes the job's
// heartbeat, which is how the orchestrator distinguishes a client that
// stopped checking in from one that's merely slow between polls.
func (h *Handlers) GetBatchStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	summary, results, ok := h.jobs.Status(jobID)
	if !ok {
		writeAPIError(w, apierr.New(apierr.NotFound, "Job ID "+jobID+" not found"))
		return
	}

	writeJSON(w, http.StatusOK, batchStatusResponse{Summary: summary, Results: results})
}

// DeleteBatchJob removes a job's state immediately, whether or not it has
// finished running.
func (h *Handlers) DeleteBatchJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	if !h.jobs.Delete(jobID) {
		writeAPIError(w, apierr.New(apierr.NotFound, "Job ID "+jobID+" not found"))
		return
	}

	writeJSON(w, http.StatusOK, batchCheckResponse{
		JobID:   jobID,
		Message: "Job successfully deleted",
	})
}

// Docs serves a small JSON description of the API surface in place of a
// full Swagger UI, since the core ships no static asset pipeline.
func (h *Handlers) Docs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name": "leakcheck-core",
		"routes": []map[string]string{
			{"method": "GET", "path": "/health", "description": "liveness probe"},
			{"method": "GET", "path": "/api/v1/status", "description": "process and oracle connectivity status"},
			{"method": "POST", "path": "/api/v1/check/single", "description": "check one username/password pair"},
			{"method": "POST", "path": "/api/v1/check/batch", "description": "submit a multipart credential file for async checking"},
			{"method": "GET", "path": "/api/v1/check/batch/{jobID}/status", "description": "poll a batch job's progress"},
			{"method": "DELETE", "path": "/api/v1/check/batch/{jobID}", "description": "delete a batch job"},
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeAPIError(w http.ResponseWriter, err *apierr.Error) {
	err.WriteJSON(w)
}
