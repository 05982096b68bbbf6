package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/scrapex-service/internal/compliance"
	"github.com/user/scrapex-service/internal/entity"
	"github.com/user/scrapex-service/internal/repository"
	"github.com/user/scrapex-service/pkg/metrics"
	"github.com/user/scrapex-service/pkg/utils"
)

// ComplianceError carries the failed compliance verdict. It matches
// ErrNotCompliant with errors.Is.
type ComplianceError struct {
	Result compliance.Result
}

func (e *ComplianceError) Error() string {
	return fmt.Sprintf("%s: %s", ErrNotCompliant, strings.Join(e.Result.Reasons, "; "))
}

func (e *ComplianceError) Unwrap() error { return ErrNotCompliant }

type TriggerCallInput struct {
	FacilityName string
	PhoneNumber  string
	Timezone     string
	Script       string
	Analysis     map[string]any
	Metadata     map[string]string
}

type CallHistory struct {
	TotalCalls int                   `json:"total_calls"`
	Statistics entity.CallStatistics `json:"statistics"`
	Calls      []*entity.CallRecord  `json:"calls"`
}

// RetellEvent is the body Retell POSTs to the call webhook.
type RetellEvent struct {
	Event string `json:"event"`
	Call  struct {
		CallID              string          `json:"call_id"`
		DisconnectionReason string          `json:"disconnection_reason"`
		StartTimestamp      int64           `json:"start_timestamp"`
		EndTimestamp        int64           `json:"end_timestamp"`
		DurationMS          int64           `json:"duration_ms"`
		Transcript          string          `json:"transcript"`
		RecordingURL        string          `json:"recording_url"`
		CallAnalysis        json.RawMessage `json:"call_analysis"`
	} `json:"call"`
}

// CallManager places outbound AI calls behind the compliance gate and
// tracks their lifecycle.
type CallManager interface {
	CheckCompliance(phone, timezone string) (compliance.Result, error)
	Trigger(ctx context.Context, userID string, in TriggerCallInput) (*entity.CallRecord, error)
	HandleRetellEvent(ctx context.Context, body []byte, signature string) (*entity.CallRecord, error)
	History(ctx context.Context, userID, facilityName string) (*CallHistory, error)
	Statistics(ctx context.Context, userID string) (entity.CallStatistics, error)
}

type callUseCase struct {
	calls         repository.CallRepository
	provider      repository.VoiceProvider
	checker       *compliance.Checker
	scripts       LeadScorer
	dispatcher    EventDispatcher
	webhookSecret string
	logger        *zap.Logger
}

func NewCallManager(
	calls repository.CallRepository,
	provider repository.VoiceProvider,
	checker *compliance.Checker,
	scripts LeadScorer,
	dispatcher EventDispatcher,
	webhookSecret string,
	logger *zap.Logger,
) CallManager {
	return &callUseCase{
		calls:         calls,
		provider:      provider,
		checker:       checker,
		scripts:       scripts,
		dispatcher:    dispatcher,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

func (uc *callUseCase) CheckCompliance(phone, timezone string) (compliance.Result, error) {
	if strings.TrimSpace(phone) == "" {
		return compliance.Result{}, fmt.Errorf("%w: phone_number is required", ErrInvalidInput)
	}
	res, err := uc.checker.Evaluate(phone, timezone)
	if err != nil {
		return compliance.Result{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return res, nil
}

func (uc *callUseCase) Trigger(ctx context.Context, userID string, in TriggerCallInput) (*entity.CallRecord, error) {
	if strings.TrimSpace(in.FacilityName) == "" {
		return nil, fmt.Errorf("%w: facility_name is required", ErrInvalidInput)
	}
	verdict, err := uc.CheckCompliance(in.PhoneNumber, in.Timezone)
	if err != nil {
		return nil, err
	}
	if !verdict.CanCall {
		uc.logger.Info("Call blocked by compliance check",
			zap.String("facility_name", in.FacilityName),
			zap.Strings("reasons", verdict.Reasons),
		)
		return nil, &ComplianceError{Result: verdict}
	}

	script := strings.TrimSpace(in.Script)
	if script == "" {
		generated, err := uc.scripts.CallScript(ctx, in.FacilityName, in.Analysis)
		if err != nil {
			return nil, fmt.Errorf("failed to build call script: %w", err)
		}
		script = generated.Script
	}

	now := time.Now().UTC()
	rec := &entity.CallRecord{
		ID:           uuid.NewString(),
		UserID:       userID,
		Provider:     uc.provider.Name(),
		FacilityName: in.FacilityName,
		PhoneNumber:  in.PhoneNumber,
		Status:       entity.CallStatusPending,
		Script:       script,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.calls.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save call record: %w", err)
	}

	started, err := uc.provider.StartCall(ctx, repository.CallRequest{
		RecordID:     rec.ID,
		FacilityName: rec.FacilityName,
		PhoneNumber:  rec.PhoneNumber,
		Script:       script,
		Metadata:     in.Metadata,
	})
	if err != nil {
		metrics.CallsTotal.WithLabelValues(rec.Provider, string(entity.CallStatusFailed)).Inc()
		rec.Status = entity.CallStatusFailed
		rec.Outcome = "provider_error"
		rec.Notes, _ = json.Marshal(map[string]string{"error": err.Error()})
		rec.UpdatedAt = time.Now().UTC()
		if uerr := uc.calls.Update(ctx, rec); uerr != nil {
			uc.logger.Warn("Failed to record call failure", zap.String("call_record_id", rec.ID), zap.Error(uerr))
		}
		return nil, fmt.Errorf("failed to start %s call: %w", rec.Provider, err)
	}

	applyProviderCall(rec, started)
	if err := uc.calls.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to update call record %s: %w", rec.ID, err)
	}
	metrics.CallsTotal.WithLabelValues(rec.Provider, string(rec.Status)).Inc()
	uc.logger.Info("Call initiated",
		zap.String("call_record_id", rec.ID),
		zap.String("call_id", rec.CallID),
		zap.String("provider", rec.Provider),
		zap.String("status", string(rec.Status)),
	)

	uc.notify(ctx, userID, entity.EventCallInitiated, rec)
	return rec, nil
}

func applyProviderCall(rec *entity.CallRecord, pc *repository.ProviderCall) {
	now := time.Now().UTC()
	rec.CallID = pc.CallID
	rec.Status = pc.Status
	if rec.Status == "" {
		rec.Status = entity.CallStatusInitiated
	}
	rec.StartedAt = &now
	rec.UpdatedAt = now
	if pc.Outcome != "" {
		rec.Outcome = pc.Outcome
	}
	if pc.DurationSeconds > 0 {
		rec.DurationSeconds = pc.DurationSeconds
	}
	if pc.Transcript != "" {
		rec.Transcript = pc.Transcript
	}
	if isTerminalCall(rec.Status) {
		rec.EndedAt = &now
	}
}

func isTerminalCall(s entity.CallStatus) bool {
	switch s {
	case entity.CallStatusCompleted, entity.CallStatusFailed, entity.CallStatusNoAnswer,
		entity.CallStatusVoicemail, entity.CallStatusDeclined:
		return true
	}
	return false
}

// HandleRetellEvent applies a provider callback to the stored call. When a
// webhook secret is configured the body must carry a valid HMAC-SHA256.
func (uc *callUseCase) HandleRetellEvent(ctx context.Context, body []byte, signature string) (*entity.CallRecord, error) {
	if uc.webhookSecret != "" {
		sig := strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
		if sig == "" || !utils.VerifyHMAC(uc.webhookSecret, body, sig) {
			return nil, ErrInvalidSignature
		}
	}

	var ev RetellEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("%w: malformed event body", ErrInvalidInput)
	}
	if ev.Call.CallID == "" {
		return nil, fmt.Errorf("%w: call.call_id is required", ErrInvalidInput)
	}

	rec, err := uc.calls.GetByCallID(ctx, ev.Call.CallID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCallNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load call %s: %w", ev.Call.CallID, err)
	}

	switch ev.Event {
	case "call_started":
		rec.Status = entity.CallStatusInProgress
		if ev.Call.StartTimestamp > 0 {
			t := time.UnixMilli(ev.Call.StartTimestamp).UTC()
			rec.StartedAt = &t
		}
	case "call_ended":
		rec.Status = mapDisconnection(ev.Call.DisconnectionReason)
		rec.Outcome = ev.Call.DisconnectionReason
		if ev.Call.EndTimestamp > 0 {
			t := time.UnixMilli(ev.Call.EndTimestamp).UTC()
			rec.EndedAt = &t
		}
		if ev.Call.DurationMS > 0 {
			rec.DurationSeconds = int(ev.Call.DurationMS / 1000)
		}
		if ev.Call.Transcript != "" {
			rec.Transcript = ev.Call.Transcript
		}
		if ev.Call.RecordingURL != "" {
			rec.RecordingURL = ev.Call.RecordingURL
		}
	case "call_analyzed":
		if len(ev.Call.CallAnalysis) > 0 {
			rec.Notes = ev.Call.CallAnalysis
		}
	default:
		uc.logger.Debug("Ignoring unknown Retell event", zap.String("event", ev.Event))
		return rec, nil
	}

	rec.UpdatedAt = time.Now().UTC()
	if err := uc.calls.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to update call %s: %w", rec.CallID, err)
	}
	uc.logger.Info("Call updated from provider event",
		zap.String("call_id", rec.CallID),
		zap.String("event", ev.Event),
		zap.String("status", string(rec.Status)),
	)
	uc.notify(ctx, rec.UserID, entity.EventCallUpdated, rec)
	return rec, nil
}

// mapDisconnection turns a Retell call_ended disconnection reason into a call status.
func mapDisconnection(reason string) entity.CallStatus {
	switch reason {
	case "dial_no_answer":
		return entity.CallStatusNoAnswer
	case "voicemail_reached":
		return entity.CallStatusVoicemail
	case "dial_busy", "user_declined", "marked_as_spam":
		return entity.CallStatusDeclined
	case "dial_failed", "invalid_destination", "concurrency_limit_reached":
		return entity.CallStatusFailed
	}
	if strings.HasPrefix(reason, "error") {
		return entity.CallStatusFailed
	}
	return entity.CallStatusCompleted
}

func (uc *callUseCase) History(ctx context.Context, userID, facilityName string) (*CallHistory, error) {
	calls, err := uc.calls.List(ctx, userID, strings.TrimSpace(facilityName))
	if err != nil {
		return nil, fmt.Errorf("failed to list calls: %w", err)
	}
	if calls == nil {
		calls = []*entity.CallRecord{}
	}
	return &CallHistory{
		TotalCalls: len(calls),
		Statistics: entity.ComputeCallStatistics(calls),
		Calls:      calls,
	}, nil
}

func (uc *callUseCase) Statistics(ctx context.Context, userID string) (entity.CallStatistics, error) {
	calls, err := uc.calls.List(ctx, userID, "")
	if err != nil {
		return entity.CallStatistics{}, fmt.Errorf("failed to list calls: %w", err)
	}
	return entity.ComputeCallStatistics(calls), nil
}

func (uc *callUseCase) notify(ctx context.Context, userID, event string, rec *entity.CallRecord) {
	if uc.dispatcher == nil {
		return
	}
	if _, err := uc.dispatcher.Dispatch(ctx, userID, event, rec); err != nil {
		uc.logger.Warn("Failed to dispatch call webhook", zap.String("event", event), zap.Error(err))
	}
}
