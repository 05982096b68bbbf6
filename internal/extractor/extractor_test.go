package extractor

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/scrapex-service/internal/entity"
)

const clinicPage = `<!doctype html>
<html><head>
<title>Sunrise Medical Center</title>
<meta name="description" content="Family care in Springfield">
<meta name="viewport" content="width=device-width">
</head>
<body>
<nav><a href="/">Home</a></nav>
<h1>  Sunrise   Medical Center </h1>
<p>Call (555) 123-4567 or 555.987.6543. Again (555) 123-4567.</p>
<a href="mailto:Info@Sunrise.com?subject=hi">Email</a>
<p>Billing: billing@sunrise.com</p>
<address>100 Main St, Springfield</address>
<div class="office-hours">Mon-Fri 8am-5pm</div>
<p>We offer primary care, pediatrics and dental services. Our cardiologist is great. We accept Medicare and most insurance.</p>
<div class="team-member">Dr. A</div><div class="team-member">Dr. B</div>
<form id="contact-form"></form>
<p>Book an appointment online.</p>
<a href="https://www.facebook.com/sunrise">fb</a><a href="https://example.com">ex</a>
<script>var x = "5551112222";</script>
</body></html>`

func TestExtractFacility(t *testing.T) {
	got, err := ExtractFacility("https://sunrise.example", clinicPage)
	require.NoError(t, err)

	want := &entity.FacilityData{
		URL:             "https://sunrise.example",
		FacilityName:    "Sunrise Medical Center",
		MetaDescription: "Family care in Springfield",
		Phones:          []string{"(555) 123-4567", "(555) 987-6543"},
		Emails:          []string{"info@sunrise.com", "billing@sunrise.com"},
		Address:         "100 Main St, Springfield",
		Hours:           &entity.Hours{Raw: "Mon-Fri 8am-5pm"},
		Services:        []string{"Dental", "Pediatrics", "Primary Care"},
		Specialties:     []string{"Cardiologist"},
		StaffInfo:       entity.StaffInfo{HasStaffSection: true, StaffCount: 2},
		Insurance:       entity.InsuranceInfo{AcceptsInsurance: true, AcceptsMedicare: true},
		ContactMethods: entity.ContactMethods{
			Phone:         true,
			Email:         true,
			ContactForm:   true,
			OnlineBooking: true,
		},
		SocialLinks: []string{"https://www.facebook.com/sunrise"},
		WebsiteQuality: entity.WebsiteQuality{
			Score:      8,
			MaxScore:   10,
			Percentage: 80,
			Checks: map[string]bool{
				"has_title":            true,
				"has_meta_description": true,
				"has_contact_info":     true,
				"has_address":          true,
				"has_images":           false,
				"has_services_info":    false,
				"is_mobile_responsive": true,
				"has_ssl":              true,
				"has_social_links":     true,
				"has_navigation":       true,
			},
		},
	}

	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(entity.FacilityData{}, "ScrapedAt")); diff != "" {
		t.Errorf("ExtractFacility() mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, got.ScrapedAt.IsZero())
}

func TestExtractFacility_NameFallbacks(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"title", `<html><head><title> Lakeside Dental </title></head><body></body></html>`, "Lakeside Dental"},
		{"og title", `<html><head><meta property="og:title" content="Harbor Clinic"></head><body></body></html>`, "Harbor Clinic"},
		{"meta title", `<html><head><meta name="title" content="Pine Rehab"></head><body></body></html>`, "Pine Rehab"},
		{"none", `<html><body><p>nothing</p></body></html>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractFacility("https://x.example", tt.html)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.FacilityName)
		})
	}
}

func TestExtractFacility_Limits(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body><h1>")
	b.WriteString(strings.Repeat("N", 250))
	b.WriteString("</h1><p>")
	for i := 0; i < 8; i++ {
		b.WriteString("(555) 200-000")
		b.WriteByte(byte('0' + i))
		b.WriteString(" user")
		b.WriteByte(byte('a' + i))
		b.WriteString("@clinic.org ")
	}
	b.WriteString("</p></body></html>")

	got, err := ExtractFacility("http://clinic.org", b.String())
	require.NoError(t, err)
	assert.Len(t, []rune(got.FacilityName), 200)
	assert.Len(t, got.Phones, 5)
	assert.Equal(t, "(555) 200-0000", got.Phones[0])
	assert.Len(t, got.Emails, 5)
	assert.False(t, got.WebsiteQuality.Checks["has_ssl"])
	assert.Nil(t, got.Hours)
}

func TestExtractFacility_AddressByClass(t *testing.T) {
	page := `<html><body><div class="footer-location">  22 Elm Ave,
	Shelbyville </div><img><img><img><img><div class="services-list">x</div></body></html>`
	got, err := ExtractFacility("https://elm.example", page)
	require.NoError(t, err)
	assert.Equal(t, "22 Elm Ave, Shelbyville", got.Address)
	assert.True(t, got.WebsiteQuality.Checks["has_images"])
	assert.True(t, got.WebsiteQuality.Checks["has_services_info"])
	assert.Empty(t, got.Services)
	assert.NotNil(t, got.SocialLinks)
}
