// Package dns resolves mail exchangers over DNS-over-HTTPS.
package dns

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/user/scrapex-service/internal/repository"
)

const (
	typeMX        = 15
	rcodeNXDomain = 3

	cacheSize = 1024
	cacheTTL  = 10 * time.Minute
)

type dohAnswer struct {
	Name string `json:"name"`
	Type int    `json:"type"`
	TTL  int    `json:"TTL"`
	Data string `json:"data"`
}

type dohResponse struct {
	Status int         `json:"Status"`
	Answer []dohAnswer `json:"Answer"`
}

// DoHResolver implements repository.MXResolver against a JSON DoH endpoint
// such as https://dns.google/resolve. Answers are cached per domain.
type DoHResolver struct {
	http     *resty.Client
	endpoint string
	cache    *expirable.LRU[string, []repository.MXRecord]
}

func NewDoHResolver(endpoint string, timeout time.Duration) *DoHResolver {
	return &DoHResolver{
		http: resty.New().
			SetTimeout(timeout).
			SetHeader("Accept", "application/dns-json"),
		endpoint: endpoint,
		cache:    expirable.NewLRU[string, []repository.MXRecord](cacheSize, nil, cacheTTL),
	}
}

// LookupMX returns the domain's exchangers ordered by preference. A domain
// without MX records yields an empty slice and no error.
func (r *DoHResolver) LookupMX(ctx context.Context, domain string) ([]repository.MXRecord, error) {
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))
	if cached, ok := r.cache.Get(domain); ok {
		return cached, nil
	}

	var out dohResponse
	resp, err := r.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"name": domain, "type": "MX"}).
		SetResult(&out).
		// Some resolvers answer application/dns-json, which resty does not
		// recognise as JSON on its own.
		ForceContentType("application/json").
		Get(r.endpoint)
	if err != nil {
		return nil, fmt.Errorf("doh lookup %s: %w", domain, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("doh lookup %s: resolver returned %d", domain, resp.StatusCode())
	}
	if out.Status != 0 && out.Status != rcodeNXDomain {
		return nil, fmt.Errorf("doh lookup %s: rcode %d", domain, out.Status)
	}

	records := parseMX(out.Answer)
	r.cache.Add(domain, records)
	return records, nil
}

func parseMX(answers []dohAnswer) []repository.MXRecord {
	records := []repository.MXRecord{}
	for _, a := range answers {
		if a.Type != typeMX {
			continue
		}
		fields := strings.Fields(a.Data)
		if len(fields) != 2 {
			continue
		}
		pref, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		host := strings.TrimSuffix(fields[1], ".")
		// A null MX ("0 .") means the domain accepts no mail.
		if host == "" {
			continue
		}
		records = append(records, repository.MXRecord{Preference: pref, Host: host})
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Preference < records[j].Preference
	})
	return records
}
