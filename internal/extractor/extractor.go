// Package extractor turns a fetched business web page into FacilityData.
package extractor

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/user/scrapex-service/internal/entity"
)

const (
	maxNameRunes    = 200
	maxAddressRunes = 300
	maxHoursRunes   = 500
	maxPhones       = 5
	maxEmails       = 5
	maxServices     = 15
	maxSpecialties  = 10
)

var (
	phonePattern   = regexp.MustCompile(`\+?1?\s*\(?(\d{3})\)?[-.\s]?(\d{3})[-.\s]?(\d{4})`)
	emailPattern   = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	contactDigits  = regexp.MustCompile(`\d{3}[-.]?\d{3}[-.]?\d{4}`)
	bookingPattern = regexp.MustCompile(`(?i)book|appointment|schedule`)
	addressClass   = regexp.MustCompile(`(?i)address|location`)
	hoursClass     = regexp.MustCompile(`(?i)hours|schedule|operating`)
	staffClass     = regexp.MustCompile(`(?i)staff|team|provider|doctor|physician`)
	serviceClass   = regexp.MustCompile(`(?i)service|specialty`)
	socialHost     = regexp.MustCompile(`(?i)(^|\.)(facebook|twitter|x|linkedin|instagram|youtube|tiktok)\.com$`)
)

var serviceKeywords = []string{
	"emergency", "urgent care", "surgery", "cardiology", "pediatrics",
	"orthopedics", "neurology", "oncology", "radiology", "laboratory",
	"physical therapy", "mental health", "psychiatry", "dermatology",
	"primary care", "family medicine", "internal medicine", "dental",
	"vision", "pharmacy", "rehabilitation", "hospice", "home health",
}

var specialtyKeywords = []string{
	"cardiologist", "neurologist", "orthopedic", "surgeon", "pediatrician",
	"dermatologist", "psychiatrist", "oncologist", "radiologist", "urologist",
	"gastroenterologist", "rheumatologist", "endocrinologist", "nephrologist",
}

// ExtractFacility parses htmlContent fetched from pageURL.
func ExtractFacility(pageURL, htmlContent string) (*entity.FacilityData, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	// Scripts and styles carry digits and keywords that are not page content.
	doc.Find("script, style, noscript").Remove()

	text := pageText(doc)
	lower := strings.ToLower(text)

	data := &entity.FacilityData{
		URL:             pageURL,
		ScrapedAt:       time.Now().UTC(),
		FacilityName:    facilityName(doc),
		MetaDescription: metaContent(doc, `meta[name="description"]`),
		Phones:          extractPhones(text),
		Emails:          extractEmails(doc, text),
		Address:         extractAddress(doc),
		Hours:           extractHours(doc),
		Services:        matchKeywords(lower, serviceKeywords, maxServices),
		Specialties:     matchKeywords(lower, specialtyKeywords, maxSpecialties),
		StaffInfo:       extractStaff(doc),
		Insurance: entity.InsuranceInfo{
			AcceptsInsurance: strings.Contains(lower, "insurance"),
			AcceptsMedicare:  strings.Contains(lower, "medicare"),
			AcceptsMedicaid:  strings.Contains(lower, "medicaid"),
			AcceptsTricare:   strings.Contains(lower, "tricare"),
		},
		SocialLinks: extractSocialLinks(doc),
	}

	data.ContactMethods = entity.ContactMethods{
		Phone:         len(data.Phones) > 0,
		Email:         len(data.Emails) > 0,
		ContactForm:   hasContactForm(doc),
		OnlineBooking: bookingPattern.MatchString(text),
	}
	data.WebsiteQuality = assessQuality(doc, data, text, pageURL)
	return data, nil
}

// pageText joins every text node with single spaces so adjacent elements
// never glue their digits together.
func pageText(doc *goquery.Document) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}

func facilityName(doc *goquery.Document) string {
	candidates := []string{
		doc.Find("h1").First().Text(),
		doc.Find("title").First().Text(),
		metaContent(doc, `meta[property="og:title"]`),
		metaContent(doc, `meta[name="title"]`),
	}
	for _, c := range candidates {
		if c = collapseSpace(c); c != "" {
			return truncateRunes(c, maxNameRunes)
		}
	}
	return ""
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

func extractPhones(text string) []string {
	phones := []string{}
	seen := make(map[string]bool)
	for _, m := range phonePattern.FindAllStringSubmatch(text, -1) {
		phone := fmt.Sprintf("(%s) %s-%s", m[1], m[2], m[3])
		if seen[phone] {
			continue
		}
		seen[phone] = true
		phones = append(phones, phone)
		if len(phones) == maxPhones {
			break
		}
	}
	return phones
}

func extractEmails(doc *goquery.Document, text string) []string {
	emails := []string{}
	seen := make(map[string]bool)
	add := func(e string) {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || seen[e] || len(emails) == maxEmails {
			return
		}
		seen[e] = true
		emails = append(emails, e)
	}

	doc.Find(`a[href^="mailto:"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		addr := strings.TrimPrefix(href, "mailto:")
		if i := strings.IndexByte(addr, '?'); i >= 0 {
			addr = addr[:i]
		}
		if emailPattern.MatchString(addr) {
			add(addr)
		}
	})
	for _, m := range emailPattern.FindAllString(text, -1) {
		add(m)
	}
	return emails
}

func extractAddress(doc *goquery.Document) string {
	if addr := collapseSpace(doc.Find("address").First().Text()); addr != "" {
		return truncateRunes(addr, maxAddressRunes)
	}
	var found string
	doc.Find("[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		if !addressClass.MatchString(class) {
			return true
		}
		found = collapseSpace(s.Text())
		return found == ""
	})
	return truncateRunes(found, maxAddressRunes)
}

func extractHours(doc *goquery.Document) *entity.Hours {
	var hours *entity.Hours
	doc.Find("[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		if !hoursClass.MatchString(class) {
			return true
		}
		if raw := collapseSpace(s.Text()); raw != "" {
			hours = &entity.Hours{Raw: truncateRunes(raw, maxHoursRunes)}
			return false
		}
		return true
	})
	return hours
}

func matchKeywords(lowerText string, keywords []string, limit int) []string {
	found := []string{}
	for _, k := range keywords {
		if strings.Contains(lowerText, k) {
			found = append(found, titleCase(k))
		}
	}
	sort.Strings(found)
	if len(found) > limit {
		found = found[:limit]
	}
	return found
}

func extractStaff(doc *goquery.Document) entity.StaffInfo {
	count := countByClass(doc, staffClass)
	return entity.StaffInfo{HasStaffSection: count > 0, StaffCount: count}
}

func countByClass(doc *goquery.Document, pattern *regexp.Regexp) int {
	return doc.Find("[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		return pattern.MatchString(class)
	}).Length()
}

func hasContactForm(doc *goquery.Document) bool {
	return doc.Find("form").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		id, _ := s.Attr("id")
		return strings.Contains(strings.ToLower(class+" "+id), "contact")
	}).Length() > 0
}

func extractSocialLinks(doc *goquery.Document) []string {
	links := []string{}
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		u, err := url.Parse(strings.TrimSpace(href))
		if err != nil || !socialHost.MatchString(u.Hostname()) {
			return
		}
		if !seen[u.String()] {
			seen[u.String()] = true
			links = append(links, u.String())
		}
	})
	return links
}

func assessQuality(doc *goquery.Document, data *entity.FacilityData, text, pageURL string) entity.WebsiteQuality {
	checks := map[string]bool{
		"has_title":            doc.Find("title").Length() > 0,
		"has_meta_description": doc.Find(`meta[name="description"]`).Length() > 0,
		"has_contact_info":     contactDigits.MatchString(text),
		"has_address":          data.Address != "",
		"has_images":           doc.Find("img").Length() > 3,
		"has_services_info":    countByClass(doc, serviceClass) > 0,
		"is_mobile_responsive": doc.Find(`meta[name="viewport"]`).Length() > 0,
		"has_ssl":              strings.HasPrefix(strings.ToLower(pageURL), "https://"),
		"has_social_links":     len(data.SocialLinks) > 0,
		"has_navigation":       doc.Find("nav").Length() > 0,
	}
	score := 0
	for _, ok := range checks {
		if ok {
			score++
		}
	}
	return entity.WebsiteQuality{
		Score:      score,
		MaxScore:   len(checks),
		Percentage: float64(score) * 100 / float64(len(checks)),
		Checks:     checks,
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
