package entity

import "time"

// FacilityData holds everything extracted from a business website.
type FacilityData struct {
	URL             string         `json:"url"`
	ScrapedAt       time.Time      `json:"scraped_at"`
	FacilityName    string         `json:"facility_name,omitempty"`
	MetaDescription string         `json:"meta_description,omitempty"`
	Phones          []string       `json:"phone"`
	Emails          []string       `json:"emails"`
	Address         string         `json:"address,omitempty"`
	Hours           *Hours         `json:"hours,omitempty"`
	Services        []string       `json:"services"`
	Specialties     []string       `json:"specialties"`
	StaffInfo       StaffInfo      `json:"staff_info"`
	Insurance       InsuranceInfo  `json:"insurance"`
	ContactMethods  ContactMethods `json:"contact_methods"`
	SocialLinks     []string       `json:"social_links"`
	WebsiteQuality  WebsiteQuality `json:"website_quality"`
	Error           string         `json:"error,omitempty"`
}

type Hours struct {
	Raw string `json:"raw"`
}

type StaffInfo struct {
	HasStaffSection bool `json:"has_staff_section"`
	StaffCount      int  `json:"staff_count"`
}

type InsuranceInfo struct {
	AcceptsInsurance bool `json:"accepts_insurance"`
	AcceptsMedicare  bool `json:"accepts_medicare"`
	AcceptsMedicaid  bool `json:"accepts_medicaid"`
	AcceptsTricare   bool `json:"accepts_tricare"`
}

type ContactMethods struct {
	Phone         bool `json:"phone"`
	Email         bool `json:"email"`
	ContactForm   bool `json:"contact_form"`
	OnlineBooking bool `json:"online_booking"`
}

// WebsiteQuality is a ten-point checklist over the page.
type WebsiteQuality struct {
	Score      int             `json:"score"`
	MaxScore   int             `json:"max_score"`
	Percentage float64         `json:"percentage"`
	Checks     map[string]bool `json:"checks"`
}

// RevenueLeak is a single missed-revenue signal found by the audit.
type RevenueLeak struct {
	Key                  string `json:"key"`
	Description          string `json:"description"`
	Weight               int    `json:"weight"`
	EstimatedMonthlyLoss int    `json:"estimated_monthly_loss"`
}

// RevenueAudit is the outcome of scoring a facility for revenue leaks.
type RevenueAudit struct {
	URL                  string        `json:"url"`
	FacilityName         string        `json:"facility_name,omitempty"`
	LeakScore            int           `json:"leak_score"`
	EstimatedMonthlyLoss int           `json:"estimated_monthly_loss"`
	Opportunity          string        `json:"opportunity"` // high, medium, low
	Leaks                []RevenueLeak `json:"leaks"`
	AuditedAt            time.Time     `json:"audited_at"`
}

// AuditResult is what an audit job stores as its results blob.
type AuditResult struct {
	Facility *FacilityData `json:"facility"`
	Audit    RevenueAudit  `json:"audit"`
}

// LeadResult is stored by lead jobs.
type LeadResult struct {
	Facility *FacilityData  `json:"facility"`
	Lead     LeadPrediction `json:"lead"`
}
