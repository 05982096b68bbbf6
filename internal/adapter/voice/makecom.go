package voice

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/user/scrapex-service/internal/entity"
	"github.com/user/scrapex-service/internal/repository"
)

type makecomPayload struct {
	RecordID     string            `json:"record_id"`
	FacilityName string            `json:"facility_name"`
	PhoneNumber  string            `json:"phone_number"`
	Script       string            `json:"script"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	RequestedAt  time.Time         `json:"requested_at"`
}

type makecomReply struct {
	CallID string `json:"call_id"`
}

// Makecom hands the call to a Make.com scenario through its webhook trigger.
type Makecom struct {
	http       *resty.Client
	webhookURL string
}

func NewMakecom(webhookURL string, timeout time.Duration) *Makecom {
	return &Makecom{
		http:       resty.New().SetTimeout(timeout),
		webhookURL: webhookURL,
	}
}

func (m *Makecom) Name() string { return "makecom" }

// StartCall posts the call request. The scenario may answer with a call_id;
// otherwise the record id is used so callbacks can still be correlated.
func (m *Makecom) StartCall(ctx context.Context, req repository.CallRequest) (*repository.ProviderCall, error) {
	if m.webhookURL == "" {
		return nil, repository.ErrProviderNotConfigured
	}

	var reply makecomReply
	resp, err := m.http.R().
		SetContext(ctx).
		SetBody(makecomPayload{
			RecordID:     req.RecordID,
			FacilityName: req.FacilityName,
			PhoneNumber:  req.PhoneNumber,
			Script:       req.Script,
			Metadata:     req.Metadata,
			RequestedAt:  time.Now().UTC(),
		}).
		SetResult(&reply).
		Post(m.webhookURL)
	if err != nil {
		return nil, fmt.Errorf("make.com request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("make.com returned %d: %s", resp.StatusCode(), resp.String())
	}

	callID := reply.CallID
	if callID == "" {
		callID = req.RecordID
	}
	return &repository.ProviderCall{CallID: callID, Status: entity.CallStatusInitiated}, nil
}
