package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/photomanager/api/internal/client"
	"github.com/photomanager/api/internal/model"
	"github.com/photomanager/api/internal/vision"
)

// llavaQualityScore is the fixed score reported by the local path, which
// captions but does not assess quality.
const llavaQualityScore = 80

// LlavaProvider analyzes images through a local Ollama LLaVA model. The
// model only produces a free-text caption; tags are extracted from the
// caption and the color palette is computed locally from the pixels.
type LlavaProvider struct {
	ollama *client.OllamaClient
}

// NewLlavaProvider wraps ollama as a free-text adapter.
func NewLlavaProvider(ollama *client.OllamaClient) *LlavaProvider {
	return &LlavaProvider{ollama: ollama}
}

func (p *LlavaProvider) Name() string { return ProviderOllama }

func (p *LlavaProvider) Analyze(ctx context.Context, imageBytes []byte, mimeType, lang string) (*model.AnalysisResult, error) {
	l := Language(lang)

	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, &ProviderError{
			Kind:     KindMalformed,
			Provider: p.Name(),
			Message:  fmt.Sprintf("decoding image: %v", err),
		}
	}

	imageB64 := base64.StdEncoding.EncodeToString(imageBytes)
	caption, err := p.ollama.Generate(ctx, l.CaptionPrompt, imageB64)
	if err != nil {
		return nil, classifyAPIError(p.Name(), err)
	}

	return &model.AnalysisResult{
		Tags:        vision.ExtractTags(caption, l.Code),
		Description: caption,
		Atmosphere:  l.Attribution,
		Colors:      vision.DominantColors(img, l.Code),
		Quality: model.QualityAssessment{
			Score:       llavaQualityScore,
			Sharpness:   l.RatingGood,
			Lighting:    l.RatingGood,
			Composition: l.RatingGood,
			Overall:     l.RatingGood,
		},
		Model: "llava",
	}, nil
}
