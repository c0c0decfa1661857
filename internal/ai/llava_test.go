package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photomanager/api/internal/client"
)

func redPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestLlavaProviderAnalyze(t *testing.T) {
	caption := "A bright red wall, with strong saturated color filling the frame."

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req struct {
			Model  string   `json:"model"`
			Prompt string   `json:"prompt"`
			Images []string `json:"images"`
			Stream bool     `json:"stream"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llava:7b", req.Model)
		assert.False(t, req.Stream)
		require.Len(t, req.Images, 1)
		assert.Contains(t, req.Prompt, "English")

		json.NewEncoder(w).Encode(map[string]interface{}{
			"model":    "llava:7b",
			"response": caption,
			"done":     true,
		})
	}))
	defer srv.Close()

	p := NewLlavaProvider(client.NewOllamaClient(srv.URL, "llava:7b", 5*time.Second))

	result, err := p.Analyze(context.Background(), redPNG(t), "image/png", "en")

	require.NoError(t, err)
	assert.Equal(t, caption, result.Description)
	assert.Equal(t, "Analyzed by Ollama LLaVA", result.Atmosphere)
	assert.Equal(t, "llava", result.Model)
	assert.Contains(t, result.Tags, "bright")
	assert.Contains(t, result.Tags, "saturated")
	assert.NotContains(t, result.Tags, "with", "stop words are dropped")

	require.Len(t, result.Colors, 1)
	assert.Equal(t, "red", result.Colors[0].Name)
	assert.Equal(t, 100, result.Colors[0].Percentage)

	assert.Equal(t, 80, result.Quality.Score)
	assert.Equal(t, "good", result.Quality.Sharpness)
	assert.Equal(t, "good", result.Quality.Overall)
}

func TestLlavaProviderInvalidImage(t *testing.T) {
	p := NewLlavaProvider(client.NewOllamaClient("http://localhost:1", "llava:7b", time.Second))

	_, err := p.Analyze(context.Background(), []byte("not an image"), "image/jpeg", "en")

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, KindMalformed, provErr.Kind)
	assert.Equal(t, ProviderOllama, provErr.Provider)
	assert.Contains(t, provErr.Message, "decoding image")
}

func TestLlavaProviderOllamaDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	p := NewLlavaProvider(client.NewOllamaClient(srv.URL, "llava:7b", time.Second))

	_, err := p.Analyze(context.Background(), redPNG(t), "image/png", "en")

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, KindTransport, provErr.Kind)
	assert.Equal(t, ProviderOllama, provErr.Provider)
}
