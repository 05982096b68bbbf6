package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/user/scrapex-service/internal/entity"
)

const (
	SourceAI        = "ai"
	SourceHeuristic = "heuristic"
	defaultUrgency  = "medium"
	unknownFacility = "Unknown"
)

// ErrNoJSONObject is returned when an LLM reply holds no JSON object.
var ErrNoJSONObject = errors.New("no JSON object in model reply")

// HeuristicLeadScore scores a facility without a model.
func HeuristicLeadScore(f *entity.FacilityData) entity.LeadPrediction {
	score := 50
	if len(f.Phones) > 0 {
		score += 10
	}
	if f.Address != "" {
		score += 10
	}
	if len(f.Services) > 0 {
		score += 15
	}
	score += int(f.WebsiteQuality.Percentage / 10)
	if score > 100 {
		score = 100
	}

	opportunities := []any{"Improved online presence", "Better contact methods"}
	gaps := []any{"Limited online booking"}
	return entity.LeadPrediction{
		FacilityName:         facilityName(f),
		URL:                  f.URL,
		LeadScore:            score,
		LeadScoreReasoning:   "Basic analysis from contact details, services and website quality",
		Urgency:              defaultUrgency,
		RevenueOpportunities: opportunities,
		OperationalGaps:      gaps,
		RecommendedPitch:     "We help healthcare facilities improve patient engagement.",
		Analysis: map[string]any{
			"revenue_opportunities": opportunities,
			"operational_gaps":      gaps,
			"lead_score":            score,
			"urgency":               defaultUrgency,
		},
		Source:     SourceHeuristic,
		AnalyzedAt: time.Now().UTC(),
	}
}

// LeadPrompt builds the analysis prompt sent to the model.
func LeadPrompt(f *entity.FacilityData) string {
	insurance, _ := json.Marshal(f.Insurance)
	contact, _ := json.Marshal(f.ContactMethods)

	var b strings.Builder
	b.WriteString("You are an expert healthcare business consultant analyzing a healthcare facility for revenue opportunities and operational gaps.\n\n")
	b.WriteString("FACILITY INFORMATION:\n")
	fmt.Fprintf(&b, "- Name: %s\n", facilityName(f))
	fmt.Fprintf(&b, "- Website: %s\n", orDefault(f.URL, "N/A"))
	fmt.Fprintf(&b, "- Phone Numbers: %s\n", joinOr(f.Phones, "Not found"))
	fmt.Fprintf(&b, "- Address: %s\n", orDefault(f.Address, "Not found"))
	fmt.Fprintf(&b, "- Services: %s\n", joinOr(f.Services, "Not specified"))
	fmt.Fprintf(&b, "- Specialties: %s\n", joinOr(f.Specialties, "Not specified"))
	fmt.Fprintf(&b, "- Website Quality Score: %.0f%%\n", f.WebsiteQuality.Percentage)
	fmt.Fprintf(&b, "- Insurance Accepted: %s\n", insurance)
	fmt.Fprintf(&b, "- Contact Methods: %s\n\n", contact)
	b.WriteString(`Respond with a single JSON object with the keys:
"revenue_opportunities" (array of {opportunity, description, potential_impact, implementation_difficulty}),
"operational_gaps" (array of {gap, description, recommendation}),
"competitive_positioning" ({strengths, weaknesses, opportunities}),
"lead_score" (integer 0-100), "lead_score_reasoning", "recommended_pitch",
"urgency" (high, medium or low), "next_steps" (array of strings).
Focus on revenue leaks, digital presence gaps, operational inefficiencies,
market opportunities and compliance gaps. Be specific and actionable.
`)
	return b.String()
}

type modelReply struct {
	LeadScore            *float64 `json:"lead_score"`
	LeadScoreReasoning   string   `json:"lead_score_reasoning"`
	Urgency              string   `json:"urgency"`
	RevenueOpportunities []any    `json:"revenue_opportunities"`
	OperationalGaps      []any    `json:"operational_gaps"`
	RecommendedPitch     string   `json:"recommended_pitch"`
	NextSteps            []string `json:"next_steps"`
}

// ParseLeadReply decodes the JSON object between the first '{' and the last
// '}' of a model reply into a prediction for f.
func ParseLeadReply(f *entity.FacilityData, reply string) (entity.LeadPrediction, error) {
	raw, err := extractJSONObject(reply)
	if err != nil {
		return entity.LeadPrediction{}, err
	}

	var parsed modelReply
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return entity.LeadPrediction{}, fmt.Errorf("decode model reply: %w", err)
	}
	var analysis map[string]any
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return entity.LeadPrediction{}, fmt.Errorf("decode model reply: %w", err)
	}
	if parsed.LeadScore == nil {
		return entity.LeadPrediction{}, errors.New("model reply has no lead_score")
	}

	urgency := strings.ToLower(strings.TrimSpace(parsed.Urgency))
	switch urgency {
	case "high", "medium", "low":
	default:
		urgency = defaultUrgency
	}

	p := entity.LeadPrediction{
		FacilityName:         facilityName(f),
		URL:                  f.URL,
		LeadScore:            ClampScore(int(*parsed.LeadScore)),
		LeadScoreReasoning:   parsed.LeadScoreReasoning,
		Urgency:              urgency,
		RevenueOpportunities: parsed.RevenueOpportunities,
		OperationalGaps:      parsed.OperationalGaps,
		RecommendedPitch:     parsed.RecommendedPitch,
		NextSteps:            parsed.NextSteps,
		Analysis:             analysis,
		Source:               SourceAI,
		AnalyzedAt:           time.Now().UTC(),
	}
	if p.RevenueOpportunities == nil {
		p.RevenueOpportunities = []any{}
	}
	if p.OperationalGaps == nil {
		p.OperationalGaps = []any{}
	}
	return p, nil
}

func extractJSONObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", ErrNoJSONObject
	}
	return s[start : end+1], nil
}

// ClampScore bounds a score to 0..100.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// RankPredictions sorts by lead score, highest first, keeping input order
// among ties, and assigns ranks starting at 1.
func RankPredictions(preds []entity.LeadPrediction) []entity.LeadPrediction {
	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].LeadScore > preds[j].LeadScore
	})
	for i := range preds {
		preds[i].Rank = i + 1
	}
	return preds
}

// CallScriptPrompt asks the model for a 30 second cold call script.
func CallScriptPrompt(facilityName string, analysis map[string]any) string {
	body, _ := json.MarshalIndent(analysis, "", "  ")
	pitch, _ := analysis["recommended_pitch"].(string)
	return fmt.Sprintf(`Based on this healthcare facility analysis, create a concise, professional 30-second cold call script.

Facility: %s
Analysis: %s
Recommended Pitch: %s

Create a script that:
1. Opens with a compelling hook about their specific opportunity
2. References a specific gap or opportunity identified
3. Proposes a brief conversation
4. Ends with a clear call-to-action

Format as a natural conversation script.
`, orDefault(facilityName, unknownFacility), body, pitch)
}

// TemplateCallScript is the script used when no model is configured.
func TemplateCallScript(facilityName string, analysis map[string]any) string {
	name := orDefault(facilityName, "your facility")
	hook := "patients who try to book outside office hours"
	if gaps, ok := analysis["operational_gaps"].([]any); ok && len(gaps) > 0 {
		if g, ok := gaps[0].(string); ok && g != "" {
			hook = strings.ToLower(g)
		}
	}
	return fmt.Sprintf("Hi, this is Alex calling about %s. We work with healthcare practices that lose revenue to %s, "+
		"and we noticed a few quick wins on your website. "+
		"Would you have ten minutes this week for a short call so we can walk you through them? "+
		"I can send a calendar invite right now if that works.", name, hook)
}

func facilityName(f *entity.FacilityData) string {
	return orDefault(f.FacilityName, unknownFacility)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func joinOr(items []string, def string) string {
	if len(items) == 0 {
		return def
	}
	return strings.Join(items, ", ")
}
