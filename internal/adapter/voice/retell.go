// Package voice holds the outbound AI calling providers.
package voice

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/user/scrapex-service/internal/compliance"
	"github.com/user/scrapex-service/internal/entity"
	"github.com/user/scrapex-service/internal/repository"
)

const DefaultRetellBaseURL = "https://api.retellai.com"

type retellCreateCall struct {
	FromNumber       string            `json:"from_number"`
	ToNumber         string            `json:"to_number"`
	OverrideAgentID  string            `json:"override_agent_id,omitempty"`
	DynamicVariables map[string]string `json:"retell_llm_dynamic_variables,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

type retellCall struct {
	CallID     string `json:"call_id"`
	CallStatus string `json:"call_status"`
}

type retellError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Retell places calls through the Retell AI phone-call API.
type Retell struct {
	http       *resty.Client
	apiKey     string
	agentID    string
	fromNumber string
}

func NewRetell(baseURL, apiKey, agentID, fromNumber string, timeout time.Duration) *Retell {
	return &Retell{
		http:       resty.New().SetBaseURL(baseURL).SetTimeout(timeout),
		apiKey:     apiKey,
		agentID:    agentID,
		fromNumber: fromNumber,
	}
}

func (r *Retell) Name() string { return "retell" }

func (r *Retell) StartCall(ctx context.Context, req repository.CallRequest) (*repository.ProviderCall, error) {
	if r.apiKey == "" || r.fromNumber == "" {
		return nil, repository.ErrProviderNotConfigured
	}
	to, ok := compliance.NormalizePhone(req.PhoneNumber)
	if !ok {
		return nil, fmt.Errorf("retell: cannot convert %q to E.164", req.PhoneNumber)
	}

	metadata := map[string]string{"record_id": req.RecordID}
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	var out retellCall
	var apiErr retellError
	resp, err := r.http.R().
		SetContext(ctx).
		SetAuthToken(r.apiKey).
		SetBody(retellCreateCall{
			FromNumber:      r.fromNumber,
			ToNumber:        "+1" + to,
			OverrideAgentID: r.agentID,
			DynamicVariables: map[string]string{
				"facility_name": req.FacilityName,
				"call_script":   req.Script,
			},
			Metadata: metadata,
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/v2/create-phone-call")
	if err != nil {
		return nil, fmt.Errorf("retell request: %w", err)
	}
	if resp.IsError() {
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error
		}
		return nil, fmt.Errorf("retell returned %d: %s", resp.StatusCode(), msg)
	}
	if out.CallID == "" {
		return nil, fmt.Errorf("retell returned no call_id")
	}
	return &repository.ProviderCall{CallID: out.CallID, Status: entity.CallStatusInitiated}, nil
}
