package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/scrapex-service/internal/entity"
	"github.com/user/scrapex-service/internal/extractor"
	"github.com/user/scrapex-service/internal/repository"
	"github.com/user/scrapex-service/internal/scoring"
	"github.com/user/scrapex-service/pkg/metrics"
	"github.com/user/scrapex-service/pkg/utils"
)

// FacilityScraper runs the fetch and extraction pipeline synchronously.
type FacilityScraper interface {
	// Scrape never fails on fetch problems; they are reported in FacilityData.Error.
	Scrape(ctx context.Context, rawURL string) (*entity.FacilityData, error)
	// Audit scores the given facility, or scrapes rawURL first when facility is nil.
	Audit(ctx context.Context, rawURL string, facility *entity.FacilityData) (*entity.AuditResult, error)
}

type facilityUseCase struct {
	fetcher repository.PageFetcher
	logger  *zap.Logger
}

func NewFacilityScraper(fetcher repository.PageFetcher, logger *zap.Logger) FacilityScraper {
	return &facilityUseCase{fetcher: fetcher, logger: logger}
}

func (uc *facilityUseCase) Scrape(ctx context.Context, rawURL string) (*entity.FacilityData, error) {
	target, err := utils.NormalizeURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	start := time.Now()
	defer func() {
		metrics.ScrapeDuration.WithLabelValues(utils.Domain(target)).Observe(time.Since(start).Seconds())
	}()

	page, err := uc.fetcher.Fetch(ctx, target)
	if err != nil {
		metrics.ScrapesTotal.WithLabelValues("failure", classifyScrapeError(err)).Inc()
		uc.logger.Error("Failed to scrape facility", zap.String("url", target), zap.Error(err))
		return &entity.FacilityData{URL: target, ScrapedAt: time.Now().UTC(), Error: err.Error()}, nil
	}

	pageURL := page.FinalURL
	if pageURL == "" {
		pageURL = target
	}
	facility, err := extractor.ExtractFacility(pageURL, page.HTML)
	if err != nil {
		metrics.ScrapesTotal.WithLabelValues("failure", "extraction").Inc()
		uc.logger.Error("Failed to extract facility data", zap.String("url", target), zap.Error(err))
		return &entity.FacilityData{URL: target, ScrapedAt: time.Now().UTC(), Error: err.Error()}, nil
	}
	metrics.ScrapesTotal.WithLabelValues("success", "").Inc()
	return facility, nil
}

func (uc *facilityUseCase) Audit(ctx context.Context, rawURL string, facility *entity.FacilityData) (*entity.AuditResult, error) {
	if facility == nil {
		if rawURL == "" {
			return nil, fmt.Errorf("%w: url or facility is required", ErrInvalidInput)
		}
		scraped, err := uc.Scrape(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if scraped.Error != "" {
			return nil, fmt.Errorf("%w: could not scrape %s: %s", ErrUpstream, scraped.URL, scraped.Error)
		}
		facility = scraped
	}
	return &entity.AuditResult{Facility: facility, Audit: scoring.AuditRevenue(facility)}, nil
}
