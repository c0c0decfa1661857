// Package ai wraps each vision backend behind a single analysis contract.
// Two adapter families exist: structured providers instruct a multimodal
// chat model to return strict JSON, the local LLaVA provider gets a free-text
// caption and derives tags and colors locally.
package ai

import (
	"context"

	"github.com/photomanager/api/internal/model"
)

// Provider identifiers, as stored in the ai_provider setting.
const (
	ProviderOpenAI     = "openai"
	ProviderGrok       = "grok"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
)

// Provider analyzes a single image and returns the canonical result.
// Failures are *ProviderError values. Adapters are stateless beyond their
// HTTP client: calling Analyze mutates nothing locally.
type Provider interface {
	Name() string
	Analyze(ctx context.Context, image []byte, mimeType, lang string) (*model.AnalysisResult, error)
}

// defaultQuality is the safe fallback when a provider omits the quality
// block, localized through the language's rating label.
func defaultQuality(l Lang) model.QualityAssessment {
	return model.QualityAssessment{
		Score:       75,
		Sharpness:   l.RatingGood,
		Lighting:    l.RatingGood,
		Composition: l.RatingGood,
		Overall:     l.RatingGood,
	}
}
