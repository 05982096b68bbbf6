package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/user/scrapex-service/internal/repository"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

const (
	reasonInvalidFormat = "Invalid email format"
	reasonNoMX          = "Domain has no MX records"
	reasonDeliverable   = "Domain accepts mail"
)

type EmailVerification struct {
	Email       string                `json:"email"`
	ValidFormat bool                  `json:"valid_format"`
	Domain      string                `json:"domain,omitempty"`
	HasMX       bool                  `json:"has_mx"`
	MXRecords   []repository.MXRecord `json:"mx_records"`
	Deliverable bool                  `json:"deliverable"`
	Reason      string                `json:"reason"`
}

type EmailVerifier interface {
	Verify(ctx context.Context, email string) (*EmailVerification, error)
}

type emailUseCase struct {
	resolver repository.MXResolver
}

func NewEmailVerifier(resolver repository.MXResolver) EmailVerifier {
	return &emailUseCase{resolver: resolver}
}

// Verify checks the address format and that its domain publishes MX records.
// A resolver failure is an error, not a negative verdict.
func (uc *emailUseCase) Verify(ctx context.Context, email string) (*EmailVerification, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	res := &EmailVerification{Email: email, MXRecords: []repository.MXRecord{}}
	if at := strings.LastIndexByte(email, '@'); at >= 0 {
		res.Domain = strings.ToLower(email[at+1:])
	}
	res.ValidFormat = emailPattern.MatchString(email)
	if !res.ValidFormat {
		res.Reason = reasonInvalidFormat
		return res, nil
	}

	records, err := uc.resolver.LookupMX(ctx, res.Domain)
	if err != nil {
		return nil, fmt.Errorf("%w: MX lookup for %s: %v", ErrUpstream, res.Domain, err)
	}
	res.MXRecords = append(res.MXRecords, records...)
	res.HasMX = len(records) > 0
	res.Deliverable = res.ValidFormat && res.HasMX
	if res.Deliverable {
		res.Reason = reasonDeliverable
	} else {
		res.Reason = reasonNoMX
	}
	return res, nil
}
