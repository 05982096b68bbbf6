package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/scrapex-service/internal/compliance"
	"github.com/user/scrapex-service/internal/delivery/http/middleware"
	"github.com/user/scrapex-service/internal/entity"
	"github.com/user/scrapex-service/internal/repository"
	"github.com/user/scrapex-service/internal/usecase"
)

const testUser = "user-1"

type stubJobs struct {
	usecase.JobManager
	submit func(in usecase.SubmitJobInput) (*entity.ScrapingJob, error)
	get    func(id string) (*entity.ScrapingJob, error)
	list   func(status string, limit int) ([]*entity.ScrapingJob, error)
}

func (s *stubJobs) Submit(_ context.Context, _ string, in usecase.SubmitJobInput) (*entity.ScrapingJob, error) {
	return s.submit(in)
}

func (s *stubJobs) Get(_ context.Context, _ string, id string) (*entity.ScrapingJob, error) {
	return s.get(id)
}

func (s *stubJobs) List(_ context.Context, _ string, status string, limit int) ([]*entity.ScrapingJob, error) {
	return s.list(status, limit)
}

type stubCalls struct {
	usecase.CallManager
	trigger func(in usecase.TriggerCallInput) (*entity.CallRecord, error)
	retell  func(body []byte, signature string) (*entity.CallRecord, error)
}

func (s *stubCalls) Trigger(_ context.Context, _ string, in usecase.TriggerCallInput) (*entity.CallRecord, error) {
	return s.trigger(in)
}

func (s *stubCalls) HandleRetellEvent(_ context.Context, body []byte, signature string) (*entity.CallRecord, error) {
	return s.retell(body, signature)
}

type stubWebhooks struct {
	usecase.WebhookManager
	dispatched json.RawMessage
}

func (s *stubWebhooks) Dispatch(_ context.Context, _ string, event string, data any) (*usecase.DispatchSummary, error) {
	raw, ok := data.(json.RawMessage)
	if !ok {
		return nil, fmt.Errorf("unexpected data type %T", data)
	}
	s.dispatched = raw
	return &usecase.DispatchSummary{Event: event}, nil
}

type stubEmail struct {
	err error
}

func (s *stubEmail) Verify(_ context.Context, email string) (*usecase.EmailVerification, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &usecase.EmailVerification{Email: email, ValidFormat: true}, nil
}

type stubCRM struct {
	usecase.CRMSyncer
	err error
}

func (s *stubCRM) ExportRows(_ context.Context, rows []map[string]any) (*usecase.ExportResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &usecase.ExportResult{Exported: len(rows), StatusCode: http.StatusOK}, nil
}

type stubAPIKeys struct {
	usecase.APIKeyManager
	revoked []string
}

func (s *stubAPIKeys) Revoke(_ context.Context, _ string, id string) error {
	if id == "missing" {
		return usecase.ErrAPIKeyNotFound
	}
	s.revoked = append(s.revoked, id)
	return nil
}

type stubHealth struct {
	report usecase.HealthReport
}

func (s stubHealth) Check(context.Context) usecase.HealthReport { return s.report }

// newTestRouter mounts the handlers the tests exercise with a fixed
// principal in place of the auth middleware.
func newTestRouter(deps Deps) http.Handler {
	h := NewHandler(deps, zap.NewNop())
	r := chi.NewRouter()
	r.Get("/api/health", h.HandleHealthCheck)
	r.Post("/webhooks/retell", h.HandleRetellWebhook)
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(middleware.WithUserID(r.Context(), testUser)))
			})
		})
		r.Post("/jobs", h.HandleSubmitJob)
		r.Get("/jobs", h.HandleListJobs)
		r.Get("/jobs/{id}", h.HandleGetJob)
		r.Post("/calls", h.HandleTriggerCall)
		r.Post("/webhooks/trigger", h.HandleTriggerWebhook)
		r.Post("/verify-email", h.HandleVerifyEmail)
		r.Post("/export/sheets", h.HandleExportSheets)
		r.Delete("/api-keys/{id}", h.HandleRevokeAPIKey)
	})
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	msg, _ := body["error"].(string)
	return msg
}

func TestHandleSubmitJob(t *testing.T) {
	jobs := &stubJobs{submit: func(in usecase.SubmitJobInput) (*entity.ScrapingJob, error) {
		switch in.URL {
		case "https://seen.example.com":
			return nil, usecase.ErrURLRecentlyScraped
		case "not a url":
			return nil, fmt.Errorf("%w: bad url", usecase.ErrInvalidInput)
		case "https://boom.example.com":
			return nil, errors.New("connection reset by peer")
		}
		return &entity.ScrapingJob{
			ID:         "job-1",
			URL:        in.URL,
			ScrapeType: entity.ScrapeType(in.ScrapeType),
			Status:     entity.JobStatusPending,
			Schedule:   in.Schedule,
		}, nil
	}}
	router := newTestRouter(Deps{Jobs: jobs})

	t.Run("accepted", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/jobs",
			`{"url":"https://clinic.example.com","scrape_type":"audit","schedule":"0 * * * *","force":true}`)
		require.Equal(t, http.StatusAccepted, rec.Code)

		var body struct {
			Status string             `json:"status"`
			JobID  string             `json:"job_id"`
			Job    entity.ScrapingJob `json:"job"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "success", body.Status)
		assert.Equal(t, "job-1", body.JobID)
		assert.Equal(t, entity.ScrapeType("audit"), body.Job.ScrapeType)
		assert.Equal(t, "0 * * * *", body.Job.Schedule)
	})

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"recently scraped", `{"url":"https://seen.example.com"}`, http.StatusConflict, usecase.ErrURLRecentlyScraped.Error()},
		{"invalid url", `{"url":"not a url"}`, http.StatusBadRequest, "invalid input: bad url"},
		{"malformed json", `{"url":`, http.StatusBadRequest, "Invalid request body"},
		{"empty body", ``, http.StatusBadRequest, "Request body is required"},
		{"unexpected error", `{"url":"https://boom.example.com"}`, http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/jobs", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantError, errorBody(t, rec))
		})
	}
}

func TestHandleGetJob(t *testing.T) {
	jobs := &stubJobs{get: func(id string) (*entity.ScrapingJob, error) {
		if id == "job-1" {
			return &entity.ScrapingJob{ID: id, Status: entity.JobStatusCompleted}, nil
		}
		return nil, usecase.ErrJobNotFound
	}}
	router := newTestRouter(Deps{Jobs: jobs})

	rec := do(t, router, http.MethodGet, "/jobs/job-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var job entity.ScrapingJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, entity.JobStatusCompleted, job.Status)

	rec = do(t, router, http.MethodGet, "/jobs/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleListJobs(t *testing.T) {
	var gotStatus string
	var gotLimit int
	jobs := &stubJobs{list: func(status string, limit int) ([]*entity.ScrapingJob, error) {
		gotStatus, gotLimit = status, limit
		return []*entity.ScrapingJob{{ID: "a"}, {ID: "b"}}, nil
	}}
	router := newTestRouter(Deps{Jobs: jobs})

	rec := do(t, router, http.MethodGet, "/jobs?status=failed&limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "failed", gotStatus)
	assert.Equal(t, 10, gotLimit)

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)

	rec = do(t, router, http.MethodGet, "/jobs?limit=-3", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleTriggerCall_ComplianceBlocked(t *testing.T) {
	calls := &stubCalls{trigger: func(in usecase.TriggerCallInput) (*entity.CallRecord, error) {
		return nil, &usecase.ComplianceError{Result: compliance.Result{
			PhoneNumber: in.PhoneNumber,
			Reasons:     []string{compliance.ReasonSunday},
			LocalTime:   "2026-10-18T10:00:00-04:00",
			Timezone:    "America/New_York",
		}}
	}}
	router := newTestRouter(Deps{Calls: calls})

	rec := do(t, router, http.MethodPost, "/calls", `{"facility_name":"Clinic","phone_number":"(555) 123-4567"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Error            string   `json:"error"`
		ComplianceIssues []string `json:"compliance_issues"`
		Timezone         string   `json:"timezone"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Error)
	assert.Equal(t, []string{compliance.ReasonSunday}, body.ComplianceIssues)
	assert.Equal(t, "America/New_York", body.Timezone)
}

func TestHandleTriggerCall_Success(t *testing.T) {
	var got usecase.TriggerCallInput
	calls := &stubCalls{trigger: func(in usecase.TriggerCallInput) (*entity.CallRecord, error) {
		got = in
		return &entity.CallRecord{ID: "c1", Status: entity.CallStatusInitiated}, nil
	}}
	router := newTestRouter(Deps{Calls: calls})

	rec := do(t, router, http.MethodPost, "/calls",
		`{"facility_name":"Clinic","phone_number":"5551234567","timezone":"America/Chicago","metadata":{"campaign":"q4"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "America/Chicago", got.Timezone)
	assert.Equal(t, "q4", got.Metadata["campaign"])

	var body struct {
		Success bool               `json:"success"`
		Call    *entity.CallRecord `json:"call"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, entity.CallStatusInitiated, body.Call.Status)
}

func TestHandleRetellWebhook(t *testing.T) {
	payload := `{"event":"call_started","call":{"call_id":"rc_1"}}`
	var gotBody []byte
	var gotSig string
	calls := &stubCalls{retell: func(body []byte, signature string) (*entity.CallRecord, error) {
		gotBody, gotSig = body, signature
		if signature != "good" {
			return nil, usecase.ErrInvalidSignature
		}
		return &entity.CallRecord{ID: "c1", CallID: "rc_1", Status: entity.CallStatusInProgress}, nil
	}}
	router := newTestRouter(Deps{Calls: calls})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/retell", bytes.NewBufferString(payload))
	req.Header.Set("X-Retell-Signature", "good")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, payload, string(gotBody), "body must reach the usecase byte for byte")
	assert.Equal(t, "good", gotSig)

	req = httptest.NewRequest(http.MethodPost, "/webhooks/retell", bytes.NewBufferString(payload))
	req.Header.Set("X-Retell-Signature", "forged")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleTriggerWebhook_DefaultsData(t *testing.T) {
	hooks := &stubWebhooks{}
	router := newTestRouter(Deps{Webhooks: hooks})

	rec := do(t, router, http.MethodPost, "/webhooks/trigger", `{"event":"job.completed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, string(hooks.dispatched))

	rec = do(t, router, http.MethodPost, "/webhooks/trigger", `{"event":"job.completed","data":{"job_id":"j1"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"job_id":"j1"}`, string(hooks.dispatched))
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"upstream", fmt.Errorf("%w: dns lookup failed", usecase.ErrUpstream), http.StatusBadGateway},
		{"not configured", repository.ErrProviderNotConfigured, http.StatusServiceUnavailable},
		{"invalid input", fmt.Errorf("%w: email is required", usecase.ErrInvalidInput), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(Deps{Email: &stubEmail{err: tt.err}, CRM: &stubCRM{err: tt.err}})

			rec := do(t, router, http.MethodPost, "/verify-email", `{"email":"a@b.com"}`)
			assert.Equal(t, tt.wantStatus, rec.Code)

			rec = do(t, router, http.MethodPost, "/export/sheets", `{"rows":[{"a":1}]}`)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestHandleRevokeAPIKey(t *testing.T) {
	keys := &stubAPIKeys{}
	router := newTestRouter(Deps{APIKeys: keys})

	rec := do(t, router, http.MethodDelete, "/api-keys/k1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"k1"}, keys.revoked)

	rec = do(t, router, http.MethodDelete, "/api-keys/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		report     usecase.HealthReport
		wantStatus int
	}{
		{"healthy", usecase.HealthReport{Status: "ok", Checks: map[string]string{"postgres": "ok", "redis": "ok"}}, http.StatusOK},
		{"degraded", usecase.HealthReport{Status: "degraded", Checks: map[string]string{"postgres": "ok", "redis": "error: timeout"}}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(Deps{Health: stubHealth{report: tt.report}})
			rec := do(t, router, http.MethodGet, "/api/health", "")
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.report.Status, body["status"])
		})
	}
}
