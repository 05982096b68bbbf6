// Package scoring holds the pure scoring rules: the revenue-leak audit and
// the lead score, both the heuristic and the parser for LLM replies.
package scoring

import (
	"sort"
	"time"

	"github.com/user/scrapex-service/internal/entity"
)

const (
	OpportunityHigh   = "high"
	OpportunityMedium = "medium"
	OpportunityLow    = "low"
)

type leakRule struct {
	key         string
	description string
	weight      int
	monthlyLoss int
	leaking     func(f *entity.FacilityData) bool
}

var leakRules = []leakRule{
	{"no_online_booking", "No online booking or appointment scheduling", 25, 4000,
		func(f *entity.FacilityData) bool { return !f.ContactMethods.OnlineBooking }},
	{"not_mobile_friendly", "Website is not mobile responsive", 15, 2500,
		func(f *entity.FacilityData) bool { return !f.WebsiteQuality.Checks["is_mobile_responsive"] }},
	{"no_phone_listed", "No phone number listed on the website", 10, 2000,
		func(f *entity.FacilityData) bool { return len(f.Phones) == 0 }},
	{"no_contact_form", "No contact form for inbound inquiries", 10, 1500,
		func(f *entity.FacilityData) bool { return !f.ContactMethods.ContactForm }},
	{"no_ssl", "Website is not served over HTTPS", 10, 1000,
		func(f *entity.FacilityData) bool { return !f.WebsiteQuality.Checks["has_ssl"] }},
	{"thin_services", "Fewer than three services described", 10, 1500,
		func(f *entity.FacilityData) bool { return len(f.Services) < 3 }},
	{"no_hours", "Business hours are not published", 5, 500,
		func(f *entity.FacilityData) bool { return f.Hours == nil || f.Hours.Raw == "" }},
	{"no_email", "No email address listed", 5, 500,
		func(f *entity.FacilityData) bool { return !f.ContactMethods.Email }},
	{"no_meta_description", "Missing meta description for search results", 5, 750,
		func(f *entity.FacilityData) bool { return !f.WebsiteQuality.Checks["has_meta_description"] }},
	{"no_social_presence", "No links to social media profiles", 5, 750,
		func(f *entity.FacilityData) bool { return !f.WebsiteQuality.Checks["has_social_links"] }},
}

// AuditRevenue scores a facility against the fixed leak table.
func AuditRevenue(f *entity.FacilityData) entity.RevenueAudit {
	audit := entity.RevenueAudit{
		URL:          f.URL,
		FacilityName: f.FacilityName,
		Leaks:        []entity.RevenueLeak{},
		AuditedAt:    time.Now().UTC(),
	}
	for _, r := range leakRules {
		if !r.leaking(f) {
			continue
		}
		audit.Leaks = append(audit.Leaks, entity.RevenueLeak{
			Key:                  r.key,
			Description:          r.description,
			Weight:               r.weight,
			EstimatedMonthlyLoss: r.monthlyLoss,
		})
		audit.LeakScore += r.weight
		audit.EstimatedMonthlyLoss += r.monthlyLoss
	}
	sort.SliceStable(audit.Leaks, func(i, j int) bool {
		if audit.Leaks[i].Weight != audit.Leaks[j].Weight {
			return audit.Leaks[i].Weight > audit.Leaks[j].Weight
		}
		return audit.Leaks[i].Key < audit.Leaks[j].Key
	})
	audit.Opportunity = Opportunity(audit.LeakScore)
	return audit
}

// Opportunity buckets a leak score.
func Opportunity(leakScore int) string {
	switch {
	case leakScore >= 50:
		return OpportunityHigh
	case leakScore >= 25:
		return OpportunityMedium
	default:
		return OpportunityLow
	}
}
