package entity

import "time"

// LeadPrediction is the scored view of a facility as a sales lead.
type LeadPrediction struct {
	FacilityName         string         `json:"facility_name"`
	URL                  string         `json:"url,omitempty"`
	LeadScore            int            `json:"lead_score"`
	LeadScoreReasoning   string         `json:"lead_score_reasoning,omitempty"`
	Urgency              string         `json:"urgency"`
	RevenueOpportunities []any          `json:"revenue_opportunities"`
	OperationalGaps      []any          `json:"operational_gaps"`
	RecommendedPitch     string         `json:"recommended_pitch"`
	NextSteps            []string       `json:"next_steps,omitempty"`
	Analysis             map[string]any `json:"analysis,omitempty"`
	Source               string         `json:"source"` // "ai" or "heuristic"
	Rank                 int            `json:"rank,omitempty"`
	AnalyzedAt           time.Time      `json:"analyzed_at"`
}

// Lead is the CRM-facing contact record pushed to GoHighLevel.
type Lead struct {
	FacilityName string `json:"facility_name"`
	URL          string `json:"url,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
	Address      string `json:"address,omitempty"`
	LeadScore    int    `json:"lead_score"`
	Urgency      string `json:"urgency,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// LeadSyncResult reports the delivery of one lead to the CRM.
type LeadSyncResult struct {
	FacilityName string `json:"facility_name"`
	Success      bool   `json:"success"`
	Attempts     int    `json:"attempts"`
	Error        string `json:"error,omitempty"`
}
