// Package llm talks to hosted generative models.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/user/scrapex-service/internal/repository"
)

const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type generateRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Gemini implements repository.TextGenerator against the generateContent API.
type Gemini struct {
	http   *resty.Client
	apiKey string
	model  string
}

func NewGemini(baseURL, apiKey, model string, timeout time.Duration) *Gemini {
	return &Gemini{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
		apiKey: apiKey,
		model:  model,
	}
}

func (g *Gemini) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if g.apiKey == "" {
		return "", repository.ErrProviderNotConfigured
	}

	var out generateResponse
	var apiErr apiError
	resp, err := g.http.R().
		SetContext(ctx).
		SetPathParam("model", g.model).
		SetQueryParam("key", g.apiKey).
		SetBody(generateRequest{
			Contents:         []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
			GenerationConfig: generationConfig{MaxOutputTokens: maxTokens, Temperature: 0.4},
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/v1beta/models/{model}:generateContent")
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("gemini returned %d: %s", resp.StatusCode(), apiErr.Error.Message)
	}

	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	var b strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("gemini returned an empty candidate (finish reason %q)", out.Candidates[0].FinishReason)
	}
	return b.String(), nil
}
