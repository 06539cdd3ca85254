package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lkeld/leakcheck-core/internal/checker"
	"github.com/lkeld/leakcheck-core/internal/config"
	"github.com/lkeld/leakcheck-core/internal/oauthtoken"
	"github.com/lkeld/leakcheck-core/internal/oracle"
)

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	}))
	t.Cleanup(tokenSrv.Close)

	oracleSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		point := []byte{
			0x03,
			0x6b, 0x17, 0xd1, 0xf2, 0xe1, 0x2c, 0x42, 0x47,
			0xf8, 0xbc, 0xe6, 0xe5, 0x63, 0xa4, 0x40, 0xf2,
			0x77, 0x03, 0x7d, 0x81, 0x2d, 0xeb, 0x33, 0xa0,
			0xf4, 0xa1, 0x39, 0x45, 0xd8, 0x98, 0xc2, 0x96,
		}
		var b []byte
		b = append(b, 0x0A, byte(len(point)))
		b = append(b, point...)
		w.Write(b)
	}))
	t.Cleanup(oracleSrv.Close)

	cfg := &config.Config{
		CORSAllowedOrigins: []string{"*"},
		RateLimitSingleRPM: 60,
		RateLimitBatchRPM:  10,
	}

	tokens := oauthtoken.NewManager(oauthtoken.Config{TokenURL: tokenSrv.URL})
	oracleClient := oracle.New(oracleSrv.URL, tokens)

	svc, err := checker.New(oracleClient)
	if err != nil {
		t.Fatalf("checker.New: %v", err)
	}

	return NewHandlers(cfg, svc, tokens)
}

func TestHealthReturns200(t *testing.T) {
	h := newTestHandlers(t)
	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestStatusReportsConnected(t *testing.T) {
	h := newTestHandlers(t)
	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	var body statusResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.GoogleAPIStatus != "connected" {
		t.Fatalf("GoogleAPIStatus = %q, want connected", body.GoogleAPIStatus)
	}
}

func TestCheckSingleRejectsMissingFields(t *testing.T) {
	h := newTestHandlers(t)
	body, _ := json.Marshal(singleCheckRequest{Username: "", Password: ""})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/check/single", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.CheckSingle(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCheckSingleSucceeds(t *testing.T) {
	h := newTestHandlers(t)
	body, _ := json.Marshal(singleCheckRequest{Username: "user@example.com", Password: "password123"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/check/single", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.CheckSingle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	var resp singleCheckResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.IsLeaked {
		t.Fatal("expected not leaked with no match prefixes")
	}
}

func TestCheckBatchAndPollLifecycle(t *testing.T) {
	h := newTestHandlers(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, _ := writer.CreateFormFile("file", "creds.txt")
	part.Write([]byte("alice:hunter2\nbob:correcthorse\n"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/check/batch", &buf)
	req.Header.Set("content-type", writer.FormDataContentType())
	rec := httptest.NewRecorder()

	h.CheckBatch(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("CheckBatch status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var submitted batchCheckResponse
	if err := json.NewDecoder(rec.Body).Decode(&submitted); err != nil {
		t.Fatalf("decode: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	var status batchStatusResponse
	for time.Now().Before(deadline) {
		statusReq := httptest.NewRequest(http.MethodGet, "/api/v1/check/batch/"+submitted.JobID+"/status", nil)
		statusReq = withURLParam(statusReq, "jobID", submitted.JobID)
		statusRec := httptest.NewRecorder()
		h.GetBatchStatus(statusRec, statusReq)

		if statusRec.Code != http.StatusOK {
			t.Fatalf("GetBatchStatus status = %d", statusRec.Code)
		}
		json.NewDecoder(statusRec.Body).Decode(&status)
		if status.Summary.Completed {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !status.Summary.Completed {
		t.Fatal("job did not complete in time")
	}
	if status.Summary.TotalNotLeaked != 2 {
		t.Fatalf("TotalNotLeaked = %d, want 2", status.Summary.TotalNotLeaked)
	}

	deleteReq := httptest.NewRequest(http.MethodDelete, "/api/v1/check/batch/"+submitted.JobID, nil)
	deleteReq = withURLParam(deleteReq, "jobID", submitted.JobID)
	deleteRec := httptest.NewRecorder()
	h.DeleteBatchJob(deleteRec, deleteReq)
	if deleteRec.Code != http.StatusOK {
		t.Fatalf("DeleteBatchJob status = %d", deleteRec.Code)
	}
}

func TestGetBatchStatusNotFound(t *testing.T) {
	h := newTestHandlers(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/check/batch/missing/status", nil)
	req = withURLParam(req, "jobID", "missing")
	rec := httptest.NewRecorder()

	h.GetBatchStatus(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestDocsListsRoutes(t *testing.T) {
	h := newTestHandlers(t)
	rec := httptest.NewRecorder()
	h.Docs(rec, httptest.NewRequest(http.MethodGet, "/api/docs", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/api/v1/check/single") {
		t.Fatal("expected docs body to mention the single-check route")
	}
}
