package usecase

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrJobNotFound        = errors.New("job not found")
	ErrURLRecentlyScraped = errors.New("URL has been scraped recently and force is false")
	ErrInvalidTransition  = errors.New("invalid job status transition")
	ErrNotCompliant       = errors.New("call blocked by TCPA compliance check")
	ErrCallNotFound       = errors.New("call not found")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrUnknownPlan        = errors.New("unknown plan")
	ErrUnknownProvider    = errors.New("unknown payment provider")
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrInvalidAPIKey      = errors.New("invalid or revoked API key")
	ErrAPIKeyNotFound     = errors.New("API key not found")
	ErrUpstream           = errors.New("upstream service rejected the request")
)
