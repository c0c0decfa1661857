package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photomanager/api/internal/client"
)

func chatResponse(content string) string {
	resp := map[string]interface{}{
		"id":    "chatcmpl-test",
		"model": "gpt-4o",
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*StructuredProvider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	chat := client.NewChatClient(srv.URL, "test-key", "gpt-4o", 5*time.Second, nil)
	return NewStructuredProvider(ProviderOpenAI, chat), srv
}

func TestStructuredProviderAnalyze(t *testing.T) {
	payload := `{
		"tags": ["  Cuisine  ", "chat", "Chat", "fenêtre"],
		"description": "Une cuisine moderne.",
		"atmosphere": "Chaleureuse",
		"dominant_colors": [
			{"hex": "#ffffff", "name": "blanc", "percentage": 60},
			{"hex": "#8b4513", "name": "marron", "percentage": 40}
		],
		"quality": {
			"score": 150,
			"sharpness": "excellent",
			"lighting": "good",
			"composition": "good",
			"overall_rating": "excellent"
		}
	}`

	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req client.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)

		w.Write([]byte(chatResponse("```json\n" + payload + "\n```")))
	})

	result, err := p.Analyze(context.Background(), []byte{0xff, 0xd8}, "image/jpeg", "fr")

	require.NoError(t, err)
	assert.Equal(t, []string{"cuisine", "chat", "fenêtre"}, result.Tags)
	assert.Equal(t, "Une cuisine moderne.", result.Description)
	assert.Equal(t, "Chaleureuse", result.Atmosphere)
	require.Len(t, result.Colors, 2)
	assert.Equal(t, "blanc", result.Colors[0].Name)
	assert.Equal(t, 100, result.Quality.Score, "score above 100 is clamped")
	assert.Equal(t, "excellent", result.Quality.Sharpness)
	assert.Equal(t, "gpt-4o", result.Model)
}

func TestStructuredProviderDefaultQuality(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatResponse(`{"tags":["plage"],"description":"Une plage.","atmosphere":"Calme"}`)))
	})

	result, err := p.Analyze(context.Background(), []byte{0xff, 0xd8}, "image/jpeg", "fr")

	require.NoError(t, err)
	assert.Equal(t, 75, result.Quality.Score)
	assert.Equal(t, "bon", result.Quality.Sharpness)
	assert.Equal(t, "bon", result.Quality.Overall)
	assert.NotNil(t, result.Colors)
	assert.Empty(t, result.Colors)
}

func TestStructuredProviderColorsCappedAtFive(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatResponse(`{
			"tags": ["test"],
			"dominant_colors": [
				{"hex":"#111111","name":"a","percentage":20},
				{"hex":"#222222","name":"b","percentage":20},
				{"hex":"#333333","name":"c","percentage":20},
				{"hex":"#444444","name":"d","percentage":15},
				{"hex":"#555555","name":"e","percentage":15},
				{"hex":"#666666","name":"f","percentage":10}
			]
		}`)))
	})

	result, err := p.Analyze(context.Background(), []byte{0xff, 0xd8}, "image/jpeg", "en")

	require.NoError(t, err)
	assert.Len(t, result.Colors, 5)
}

func TestStructuredProviderErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantKind ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, KindAuth},
		{"forbidden", http.StatusForbidden, KindAuth},
		{"payment required", http.StatusPaymentRequired, KindQuota},
		{"rate limited", http.StatusTooManyRequests, KindQuota},
		{"server error", http.StatusInternalServerError, KindTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":{"message":"nope"}}`))
			})

			_, err := p.Analyze(context.Background(), []byte{0xff, 0xd8}, "image/jpeg", "en")

			var provErr *ProviderError
			require.ErrorAs(t, err, &provErr)
			assert.Equal(t, tt.wantKind, provErr.Kind)
			assert.Equal(t, ProviderOpenAI, provErr.Provider)
			assert.Contains(t, provErr.Message, "nope", "raw provider body is preserved")
		})
	}
}

func TestStructuredProviderTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	chat := client.NewChatClient(srv.URL, "test-key", "gpt-4o", time.Second, nil)
	p := NewStructuredProvider(ProviderGrok, chat)

	_, err := p.Analyze(context.Background(), []byte{0xff, 0xd8}, "image/jpeg", "en")

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, KindTransport, provErr.Kind)
}

func TestStructuredProviderMalformedResponse(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatResponse("Sure! Here is my analysis of the photo...")))
	})

	_, err := p.Analyze(context.Background(), []byte{0xff, 0xd8}, "image/jpeg", "en")

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, KindMalformed, provErr.Kind)
	assert.Equal(t, "failed to parse AI response as JSON", provErr.Message)
}

func TestClassifyAPIErrorNonAPIError(t *testing.T) {
	provErr := classifyAPIError("openai", errors.New("dial tcp: connection refused"))

	assert.Equal(t, KindTransport, provErr.Kind)
	assert.Contains(t, provErr.Message, "connection refused")
}
