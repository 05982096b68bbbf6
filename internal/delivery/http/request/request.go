package request

import (
	"encoding/json"

	"github.com/user/scrapex-service/internal/entity"
)

type SubmitJobRequest struct {
	URL        string `json:"url"`
	ScrapeType string `json:"scrape_type"` // facility, rendered, audit or lead
	Schedule   string `json:"schedule"`    // optional five-field cron spec
	Force      bool   `json:"force"`
}

type BulkJobRequest struct {
	URLs       []string `json:"urls"`
	ScrapeType string   `json:"scrape_type"`
}

type ScrapeFacilityRequest struct {
	URL string `json:"url"`
}

// AuditRevenueRequest takes either a URL to scrape or already extracted data.
type AuditRevenueRequest struct {
	URL      string               `json:"url"`
	Facility *entity.FacilityData `json:"facility"`
}

type PredictLeadRequest struct {
	Facility *entity.FacilityData `json:"facility"`
}

type BulkPredictRequest struct {
	Facilities []*entity.FacilityData `json:"facilities"`
}

type CallScriptRequest struct {
	FacilityName string         `json:"facility_name"`
	Analysis     map[string]any `json:"analysis"`
}

type ComplianceCheckRequest struct {
	PhoneNumber string `json:"phone_number"`
	Timezone    string `json:"timezone"`
}

type TriggerCallRequest struct {
	FacilityName string            `json:"facility_name"`
	PhoneNumber  string            `json:"phone_number"`
	Timezone     string            `json:"timezone"`
	Script       string            `json:"script"`
	Analysis     map[string]any    `json:"analysis"`
	Metadata     map[string]string `json:"metadata"`
}

type CreateWebhookRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

type TriggerWebhookRequest struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type CRMSyncRequest struct {
	Leads []entity.Lead `json:"leads"`
}

type ExportSheetsRequest struct {
	Rows []map[string]any `json:"rows"`
}

type VerifyEmailRequest struct {
	Email string `json:"email"`
}

type CheckoutRequest struct {
	Plan     string `json:"plan"`
	Provider string `json:"provider"` // square or stripe; empty picks the default
}

type CreateAPIKeyRequest struct {
	Name string `json:"name"`
}
