package response

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/user/scrapex-service/internal/entity"
	"github.com/user/scrapex-service/internal/usecase"
)

// JSON writes data with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Error("Failed to write JSON response", zap.Error(err))
	}
}

// Error writes the uniform {"error": message} body.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// ComplianceErrorResponse is returned when a call is blocked.
type ComplianceErrorResponse struct {
	Error            string   `json:"error"`
	ComplianceIssues []string `json:"compliance_issues"`
	LocalTime        string   `json:"local_time"`
	Timezone         string   `json:"timezone"`
}

type SubmitJobResponse struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	JobID   string              `json:"job_id"`
	Job     *entity.ScrapingJob `json:"job"`
}

type BulkSubmitResponse struct {
	Status string `json:"status"`
	*usecase.BulkSubmitResult
}

type JobListResponse struct {
	Jobs  []*entity.ScrapingJob `json:"jobs"`
	Count int                   `json:"count"`
}

type CallResponse struct {
	Success bool               `json:"success"`
	Call    *entity.CallRecord `json:"call"`
}

type WebhookListResponse struct {
	Webhooks []*entity.Webhook `json:"webhooks"`
}

type PaymentListResponse struct {
	Payments []*entity.Payment `json:"payments"`
}

type APIKeyListResponse struct {
	APIKeys []*entity.APIKey `json:"api_keys"`
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
