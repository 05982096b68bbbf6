package entity

import (
	"encoding/json"
	"time"
)

type CallStatus string

const (
	CallStatusPending    CallStatus = "pending"
	CallStatusInitiated  CallStatus = "initiated"
	CallStatusRinging    CallStatus = "ringing"
	CallStatusInProgress CallStatus = "in_progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
	CallStatusNoAnswer   CallStatus = "no_answer"
	CallStatusVoicemail  CallStatus = "voicemail"
	CallStatusDeclined   CallStatus = "declined"
)

// CallRecord mirrors the `call_records` PostgreSQL table schema.
type CallRecord struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	CallID          string          `json:"call_id,omitempty"` // provider's id
	Provider        string          `json:"provider"`
	FacilityName    string          `json:"facility_name"`
	PhoneNumber     string          `json:"phone_number"`
	Status          CallStatus      `json:"status"`
	Outcome         string          `json:"outcome,omitempty"`
	DurationSeconds int             `json:"duration"`
	Notes           json.RawMessage `json:"notes,omitempty"`
	Script          string          `json:"ai_agent_script,omitempty"`
	Transcript      string          `json:"call_transcript,omitempty"`
	RecordingURL    string          `json:"call_recording_url,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	EndedAt         *time.Time      `json:"ended_at,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CallStatistics summarises a set of call records.
type CallStatistics struct {
	TotalCalls      int                `json:"total_calls"`
	CompletedCalls  int                `json:"completed_calls"`
	FailedCalls     int                `json:"failed_calls"`
	SuccessRate     float64            `json:"success_rate"`
	AverageDuration float64            `json:"average_duration"`
	ByStatus        map[CallStatus]int `json:"by_status"`
}

// ComputeCallStatistics aggregates records. Average duration only counts
// calls that lasted longer than zero seconds.
func ComputeCallStatistics(calls []*CallRecord) CallStatistics {
	stats := CallStatistics{ByStatus: make(map[CallStatus]int)}
	if len(calls) == 0 {
		return stats
	}

	var durationSum, durationCount int
	for _, c := range calls {
		stats.TotalCalls++
		stats.ByStatus[c.Status]++
		switch c.Status {
		case CallStatusCompleted:
			stats.CompletedCalls++
		case CallStatusFailed:
			stats.FailedCalls++
		}
		if c.DurationSeconds > 0 {
			durationSum += c.DurationSeconds
			durationCount++
		}
	}

	stats.SuccessRate = float64(stats.CompletedCalls) / float64(stats.TotalCalls) * 100
	if durationCount > 0 {
		stats.AverageDuration = float64(durationSum) / float64(durationCount)
	}
	return stats
}
