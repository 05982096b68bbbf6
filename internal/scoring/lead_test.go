package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/scrapex-service/internal/entity"
)

func TestHeuristicLeadScore(t *testing.T) {
	tests := []struct {
		name string
		f    *entity.FacilityData
		want int
	}{
		{"empty", &entity.FacilityData{}, 50},
		{"phone and address", &entity.FacilityData{Phones: []string{"x"}, Address: "a"}, 70},
		{"quality rounds down", &entity.FacilityData{WebsiteQuality: entity.WebsiteQuality{Percentage: 45}}, 54},
		{"capped", completeFacility(), 95},
		{"over cap", func() *entity.FacilityData {
			f := completeFacility()
			f.WebsiteQuality.Percentage = 190
			return f
		}(), 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := HeuristicLeadScore(tt.f)
			assert.Equal(t, tt.want, p.LeadScore)
			assert.Equal(t, "medium", p.Urgency)
			assert.Equal(t, SourceHeuristic, p.Source)
		})
	}
}

func TestHeuristicLeadScore_UnknownName(t *testing.T) {
	p := HeuristicLeadScore(&entity.FacilityData{})
	assert.Equal(t, "Unknown", p.FacilityName)
	assert.Len(t, p.RevenueOpportunities, 2)
}

func TestParseLeadReply(t *testing.T) {
	f := completeFacility()
	reply := "Here is the analysis:\n```json\n" +
		`{"lead_score": 87, "urgency": "HIGH", "recommended_pitch": "Book more patients",
		 "revenue_opportunities": [{"opportunity": "online booking"}], "next_steps": ["call"]}` +
		"\n```"

	p, err := ParseLeadReply(f, reply)
	require.NoError(t, err)
	assert.Equal(t, 87, p.LeadScore)
	assert.Equal(t, "high", p.Urgency)
	assert.Equal(t, SourceAI, p.Source)
	assert.Equal(t, "Book more patients", p.RecommendedPitch)
	assert.Len(t, p.RevenueOpportunities, 1)
	assert.NotNil(t, p.OperationalGaps)
	assert.Equal(t, []string{"call"}, p.NextSteps)
	assert.Equal(t, "Sunrise Medical", p.FacilityName)
}

func TestParseLeadReply_ClampsAndDefaults(t *testing.T) {
	p, err := ParseLeadReply(&entity.FacilityData{}, `{"lead_score": 140, "urgency": "whenever"}`)
	require.NoError(t, err)
	assert.Equal(t, 100, p.LeadScore)
	assert.Equal(t, "medium", p.Urgency)

	p, err = ParseLeadReply(&entity.FacilityData{}, `{"lead_score": -3}`)
	require.NoError(t, err)
	assert.Equal(t, 0, p.LeadScore)
}

func TestParseLeadReply_Errors(t *testing.T) {
	_, err := ParseLeadReply(&entity.FacilityData{}, "no json here")
	assert.ErrorIs(t, err, ErrNoJSONObject)

	_, err = ParseLeadReply(&entity.FacilityData{}, "{not json}")
	assert.Error(t, err)

	_, err = ParseLeadReply(&entity.FacilityData{}, `{"urgency": "low"}`)
	assert.Error(t, err)
}

func TestRankPredictions_StableDescending(t *testing.T) {
	preds := []entity.LeadPrediction{
		{FacilityName: "a", LeadScore: 60},
		{FacilityName: "b", LeadScore: 90},
		{FacilityName: "c", LeadScore: 60},
		{FacilityName: "d", LeadScore: 75},
	}
	ranked := RankPredictions(preds)

	var names []string
	for i, p := range ranked {
		names = append(names, p.FacilityName)
		assert.Equal(t, i+1, p.Rank)
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, names)
}

func TestTemplateCallScript(t *testing.T) {
	s := TemplateCallScript("Sunrise Medical", map[string]any{"operational_gaps": []any{"Limited online booking"}})
	assert.Contains(t, s, "Sunrise Medical")
	assert.Contains(t, s, "limited online booking")

	s = TemplateCallScript("", nil)
	assert.Contains(t, s, "your facility")
}

func TestLeadPrompt(t *testing.T) {
	prompt := LeadPrompt(completeFacility())
	assert.Contains(t, prompt, "- Name: Sunrise Medical")
	assert.Contains(t, prompt, "- Phone Numbers: (555) 123-4567")
	assert.Contains(t, prompt, "- Website Quality Score: 100%")
	assert.Contains(t, prompt, "lead_score")
}
