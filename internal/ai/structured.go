package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/photomanager/api/internal/client"
	"github.com/photomanager/api/internal/model"
)

// StructuredProvider analyzes images through an OpenAI-compatible multimodal
// chat model instructed to return a strict JSON object.
type StructuredProvider struct {
	name string
	chat *client.ChatClient
}

// NewStructuredProvider wraps chat as a structured-output adapter.
func NewStructuredProvider(name string, chat *client.ChatClient) *StructuredProvider {
	return &StructuredProvider{name: name, chat: chat}
}

func (p *StructuredProvider) Name() string { return p.name }

// structuredPayload is the JSON object the model is asked to return.
type structuredPayload struct {
	Tags           []string                 `json:"tags"`
	Description    string                   `json:"description"`
	Atmosphere     string                   `json:"atmosphere"`
	DominantColors []model.ColorInfo        `json:"dominant_colors"`
	Quality        *model.QualityAssessment `json:"quality"`
}

func (p *StructuredProvider) Analyze(ctx context.Context, image []byte, mimeType, lang string) (*model.AnalysisResult, error) {
	l := Language(lang)
	imageB64 := base64.StdEncoding.EncodeToString(image)

	content, err := p.chat.VisionCompletion(ctx, l.SystemPrompt, analysisPrompt(l), imageB64, mimeType)
	if err != nil {
		return nil, classifyAPIError(p.name, err)
	}

	payload, err := parseStructured(content)
	if err != nil {
		// Keep the raw content in the logs for diagnosis; the surfaced
		// message stays short.
		log.Printf("Failed to parse %s response: %v\nRaw content: %s", p.name, err, content)
		return nil, &ProviderError{
			Kind:     KindMalformed,
			Provider: p.name,
			Message:  "failed to parse AI response as JSON",
		}
	}

	colors := payload.DominantColors
	if colors == nil {
		colors = []model.ColorInfo{}
	}
	if len(colors) > 5 {
		colors = colors[:5]
	}

	quality := defaultQuality(l)
	if payload.Quality != nil {
		quality = *payload.Quality
		if quality.Score < 0 {
			quality.Score = 0
		}
		if quality.Score > 100 {
			quality.Score = 100
		}
	}

	return &model.AnalysisResult{
		Tags:        NormalizeTags(payload.Tags),
		Description: payload.Description,
		Atmosphere:  payload.Atmosphere,
		Colors:      colors,
		Quality:     quality,
		Model:       p.chat.Model(),
	}, nil
}

// parseStructured strips markdown code fences the models sometimes wrap
// around the JSON object, then unmarshals it.
func parseStructured(content string) (*structuredPayload, error) {
	cleaned := strings.TrimSpace(content)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")

	var payload structuredPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// analysisPrompt builds the user instruction requesting the strict JSON
// analysis in the target language.
func analysisPrompt(l Lang) string {
	upper := strings.ToUpper(l.Name)
	return fmt.Sprintf(`Analyze this image in extreme detail and provide a complete analysis in JSON format.

IMPORTANT:
- ALL tags must be in %[1]s
- The description must be in %[1]s
- The atmosphere must be in %[1]s
- Color names must be in %[1]s

Return a JSON object with the following structure:
{
  "tags": ["tag1", "tag2", ...],
  "description": "Detailed description of the image in %[2]s (2-3 sentences). ALWAYS start by identifying the precise TYPE OF PLACE.",
  "atmosphere": "The mood and atmosphere of the scene in %[2]s",
  "dominant_colors": [
    {"hex": "#RRGGBB", "name": "color name in %[2]s", "percentage": 40},
    {"hex": "#RRGGBB", "name": "color name in %[2]s", "percentage": 30},
    {"hex": "#RRGGBB", "name": "color name in %[2]s", "percentage": 20}
  ],
  "quality": {
    "score": 85,
    "sharpness": "excellent|good|average|poor",
    "lighting": "excellent|good|average|poor",
    "composition": "excellent|good|average|poor",
    "overall_rating": "excellent|good|average|poor"
  }
}

For TAGS (ALL IN %[1]s), include ALL these categories:
1. TYPE OF PLACE (PRIORITY): Precisely identify the type of place
2. OBJECTS: Every visible object, element (furniture, tools, appliances, etc.)
3. SUBJECTS: People, animals, main subjects (with details: age, gender, pose, expression, clothing)
4. COLORS: Dominant colors, color palettes, tones (warm/cold), specific shades
5. LIGHTING: Natural/artificial, time of day, light quality (soft/hard), shadows, brightness
6. COMPOSITION: Perspective, framing, depth of field, rule of thirds, symmetry
7. MOOD/ATMOSPHERE: Emotions, feelings, ambiance (peaceful, energetic, mysterious, etc.)
8. ACTIVITIES: Ongoing actions, suggested activities
9. STYLE: Photographic style, artistic style, aesthetic (modern, vintage, minimalist, etc.)
10. TEXTURES: Surface qualities (smooth, rough, soft, metallic, etc.)
11. PATTERNS: Stripes, dots, geometric patterns, organic patterns
12. WEATHER: If outdoor (sunny, cloudy, rainy, foggy, etc.)
13. SEASON: Indicators of spring, summer, autumn, winter
14. TECHNIQUE: Type of photo (portrait, landscape, macro, aerial, etc.)

Generate 50-100+ EXHAUSTIVE tags in %[1]s.

Return ONLY the JSON object, no other text.`, upper, l.Name)
}
