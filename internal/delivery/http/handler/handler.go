package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/user/scrapex-service/internal/delivery/http/middleware"
	"github.com/user/scrapex-service/internal/delivery/http/response"
	"github.com/user/scrapex-service/internal/repository"
	"github.com/user/scrapex-service/internal/usecase"
)

const maxBodyBytes = 4 << 20

// Deps carries the usecases the HTTP layer drives.
type Deps struct {
	Jobs       usecase.JobManager
	Facilities usecase.FacilityScraper
	Leads      usecase.LeadScorer
	Calls      usecase.CallManager
	Webhooks   usecase.WebhookManager
	CRM        usecase.CRMSyncer
	Email      usecase.EmailVerifier
	Billing    usecase.BillingManager
	APIKeys    usecase.APIKeyManager
	Health     usecase.HealthChecker
}

type Handler struct {
	Deps
	logger *zap.Logger
}

func NewHandler(deps Deps, logger *zap.Logger) *Handler {
	return &Handler{Deps: deps, logger: logger}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			response.Error(w, http.StatusRequestEntityTooLarge, "Request body too large")
		case errors.Is(err, io.EOF):
			response.Error(w, http.StatusBadRequest, "Request body is required")
		default:
			response.Error(w, http.StatusBadRequest, "Invalid request body")
		}
		return false
	}
	return true
}

// writeError maps usecase errors onto status codes. Unexpected errors are
// logged and reported without detail.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var compErr *usecase.ComplianceError
	if errors.As(err, &compErr) {
		response.JSON(w, http.StatusBadRequest, response.ComplianceErrorResponse{
			Error:            "Call blocked by compliance rules",
			ComplianceIssues: compErr.Result.Reasons,
			LocalTime:        compErr.Result.LocalTime,
			Timezone:         compErr.Result.Timezone,
		})
		return
	}

	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(fmt.Sprintf("Failed to %s", op),
			zap.String("user_id", middleware.UserID(r.Context())),
			zap.Error(err),
		)
		response.Error(w, status, "Internal server error")
		return
	}
	if status >= http.StatusInternalServerError {
		h.logger.Warn(fmt.Sprintf("Failed to %s", op), zap.Error(err))
	}
	response.Error(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, usecase.ErrInvalidInput),
		errors.Is(err, usecase.ErrUnknownPlan),
		errors.Is(err, usecase.ErrUnknownProvider),
		errors.Is(err, usecase.ErrNotCompliant):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrInvalidSignature),
		errors.Is(err, usecase.ErrInvalidAPIKey):
		return http.StatusUnauthorized
	case errors.Is(err, usecase.ErrJobNotFound),
		errors.Is(err, usecase.ErrCallNotFound),
		errors.Is(err, usecase.ErrPaymentNotFound),
		errors.Is(err, usecase.ErrAPIKeyNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrURLRecentlyScraped),
		errors.Is(err, usecase.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, repository.ErrProviderNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	report := h.Health.Check(r.Context())
	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, status, response.HealthResponse{Status: report.Status, Checks: report.Checks})
}
