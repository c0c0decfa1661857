// Package client contains thin HTTP clients for the external AI backends.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APIError is a non-2xx response from an AI backend. The status code is kept
// so callers can classify auth and quota failures.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Body)
}

// ChatClient talks to an OpenAI-compatible chat-completions endpoint.
// OpenAI, Grok and OpenRouter all share this wire format and differ only in
// base URL, credentials and model.
type ChatClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	headers    map[string]string
}

// ChatMessage represents a message in the chat completion request.
// Content is either a plain string or a list of content parts.
type ChatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

// ContentPart is one element of a multimodal user message
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

// ChatCompletionRequest represents the request body for chat completion
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatCompletionResponse represents the response from chat completion
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// NewChatClient creates a client for an OpenAI-compatible endpoint.
// Extra headers are sent on every request (OpenRouter attribution).
func NewChatClient(baseURL, apiKey, model string, timeout time.Duration, headers map[string]string) *ChatClient {
	return &ChatClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		headers:    headers,
	}
}

// Model returns the configured model identifier.
func (c *ChatClient) Model() string { return c.model }

// IsConfigured returns true if the client has an API key.
func (c *ChatClient) IsConfigured() bool { return c.apiKey != "" }

// VisionCompletion sends a system prompt plus a user message combining text
// and one inline base64 image, and returns the assistant's text content.
func (c *ChatClient) VisionCompletion(ctx context.Context, system, user, imageB64, mimeType string) (string, error) {
	messages := []ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: []ContentPart{
			{Type: "text", Text: user},
			{Type: "image_url", ImageURL: &ImageURL{
				URL: fmt.Sprintf("data:%s;base64,%s", mimeType, imageB64),
			}},
		}},
	}

	reqBody := ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   3000,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var chatResp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return chatResp.Choices[0].Message.Content, nil
}
