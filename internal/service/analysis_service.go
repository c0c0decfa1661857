package service

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/photomanager/api/internal/ai"
	"github.com/photomanager/api/internal/config"
	"github.com/photomanager/api/internal/model"
)

// AnalysisService runs one image through the selected provider adapter and
// returns the canonical result. The provider identifier is an explicit
// parameter: selection from settings happens at enqueue time, not here.
// A provider failure is this service's failure; there is no retry and no
// fallback to another provider.
type AnalysisService struct {
	cfg *config.Config
}

func NewAnalysisService(cfg *config.Config) *AnalysisService {
	return &AnalysisService{cfg: cfg}
}

// Run reads the image at imagePath and analyzes it with providerID in the
// given language. The returned result is the adapter's output, unchanged.
func (s *AnalysisService) Run(ctx context.Context, imagePath, providerID, lang string) (*model.AnalysisResult, error) {
	provider, err := ai.NewProvider(providerID, s.cfg)
	if err != nil {
		return nil, err
	}

	imageBytes, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("reading image %s: %w", imagePath, err)
	}

	return provider.Analyze(ctx, imageBytes, mimeTypeFor(imagePath), lang)
}

func mimeTypeFor(path string) string {
	if strings.HasSuffix(strings.ToLower(path), ".png") {
		return "image/png"
	}
	return "image/jpeg"
}
