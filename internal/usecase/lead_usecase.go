package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/scrapex-service/internal/entity"
	"github.com/user/scrapex-service/internal/repository"
	"github.com/user/scrapex-service/internal/scoring"
	"github.com/user/scrapex-service/pkg/metrics"
)

const (
	leadMaxTokens   = 1000
	scriptMaxTokens = 400
	bulkPredictFan  = 4
	maxBulkLeads    = 200
)

type BulkPrediction struct {
	TotalAnalyzed int                     `json:"total_analyzed"`
	Skipped       int                     `json:"skipped"`
	Leads         []entity.LeadPrediction `json:"leads"`
}

type CallScript struct {
	FacilityName string `json:"facility_name"`
	Script       string `json:"script"`
	Source       string `json:"source"`
}

// LeadScorer predicts how promising a facility is as a sales lead.
type LeadScorer interface {
	Predict(ctx context.Context, f *entity.FacilityData) (entity.LeadPrediction, error)
	BulkPredict(ctx context.Context, facilities []*entity.FacilityData) (*BulkPrediction, error)
	CallScript(ctx context.Context, facilityName string, analysis map[string]any) (*CallScript, error)
}

type leadUseCase struct {
	llm    repository.TextGenerator
	logger *zap.Logger
}

// NewLeadScorer creates a LeadScorer. llm may be nil; every prediction then
// uses the heuristic.
func NewLeadScorer(llm repository.TextGenerator, logger *zap.Logger) LeadScorer {
	return &leadUseCase{llm: llm, logger: logger}
}

// Predict asks the model first and falls back to the heuristic on any
// model or parsing error.
func (uc *leadUseCase) Predict(ctx context.Context, f *entity.FacilityData) (entity.LeadPrediction, error) {
	if f == nil {
		return entity.LeadPrediction{}, fmt.Errorf("%w: facility is required", ErrInvalidInput)
	}
	p := uc.predict(ctx, f)
	metrics.LeadScore.Observe(float64(p.LeadScore))
	return p, nil
}

func (uc *leadUseCase) predict(ctx context.Context, f *entity.FacilityData) entity.LeadPrediction {
	if uc.llm == nil {
		return scoring.HeuristicLeadScore(f)
	}
	reply, err := uc.llm.Generate(ctx, scoring.LeadPrompt(f), leadMaxTokens)
	if err != nil {
		if !errors.Is(err, repository.ErrProviderNotConfigured) {
			uc.logger.Warn("Lead model request failed, using heuristic", zap.String("url", f.URL), zap.Error(err))
		}
		return scoring.HeuristicLeadScore(f)
	}
	p, err := scoring.ParseLeadReply(f, reply)
	if err != nil {
		uc.logger.Warn("Unparsable lead model reply, using heuristic", zap.String("url", f.URL), zap.Error(err))
		return scoring.HeuristicLeadScore(f)
	}
	return p
}

// BulkPredict skips facilities that carry a scrape error, predicts the rest
// concurrently and ranks them by score.
func (uc *leadUseCase) BulkPredict(ctx context.Context, facilities []*entity.FacilityData) (*BulkPrediction, error) {
	if len(facilities) == 0 {
		return nil, fmt.Errorf("%w: facilities must not be empty", ErrInvalidInput)
	}
	if len(facilities) > maxBulkLeads {
		return nil, fmt.Errorf("%w: at most %d facilities per request", ErrInvalidInput, maxBulkLeads)
	}

	usable := make([]*entity.FacilityData, 0, len(facilities))
	for _, f := range facilities {
		if f == nil || f.Error != "" {
			continue
		}
		usable = append(usable, f)
	}

	preds := make([]entity.LeadPrediction, len(usable))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkPredictFan)
	for i, f := range usable {
		g.Go(func() error {
			preds[i] = uc.predict(gctx, f)
			metrics.LeadScore.Observe(float64(preds[i].LeadScore))
			return nil
		})
	}
	_ = g.Wait()

	return &BulkPrediction{
		TotalAnalyzed: len(preds),
		Skipped:       len(facilities) - len(usable),
		Leads:         scoring.RankPredictions(preds),
	}, nil
}

func (uc *leadUseCase) CallScript(ctx context.Context, facilityName string, analysis map[string]any) (*CallScript, error) {
	if strings.TrimSpace(facilityName) == "" {
		return nil, fmt.Errorf("%w: facility_name is required", ErrInvalidInput)
	}
	if analysis == nil {
		analysis = map[string]any{}
	}

	script := &CallScript{FacilityName: facilityName, Source: scoring.SourceHeuristic}
	if uc.llm != nil {
		reply, err := uc.llm.Generate(ctx, scoring.CallScriptPrompt(facilityName, analysis), scriptMaxTokens)
		switch {
		case err == nil && strings.TrimSpace(reply) != "":
			script.Script = strings.TrimSpace(reply)
			script.Source = scoring.SourceAI
			return script, nil
		case err != nil && !errors.Is(err, repository.ErrProviderNotConfigured):
			uc.logger.Warn("Call script model request failed, using template", zap.String("facility_name", facilityName), zap.Error(err))
		}
	}
	script.Script = scoring.TemplateCallScript(facilityName, analysis)
	return script, nil
}
