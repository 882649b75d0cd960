package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ByLCY/storystudio/provider"
)

const (
	// DefaultBaseURL is the public Cohere API endpoint
	DefaultBaseURL = "https://api.cohere.ai"
	// DefaultModel matches the model the story prompts were tuned on
	DefaultModel = "command-xlarge-nightly"
)

// Config configures the Cohere client
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Cohere is a text provider for the Cohere chat API
type Cohere struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

var _ provider.TextGenerator = (*Cohere)(nil)

// New returns a new Cohere provider
func New(cfg Config) (*Cohere, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("COHERE_API_KEY not set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Cohere{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Generate sends the prompt as a single chat message and returns the reply text
func (c *Cohere) Generate(ctx context.Context, req provider.TextRequest) (string, error) {
	requestBody, err := json.Marshal(map[string]interface{}{
		"model":       c.model,
		"message":     req.Prompt,
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat", bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response struct {
		Text        string `json:"text"`
		Generations []struct {
			Text string `json:"text"`
		} `json:"generations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	if text := strings.TrimSpace(response.Text); text != "" {
		return text, nil
	}
	if len(response.Generations) > 0 {
		if text := strings.TrimSpace(response.Generations[0].Text); text != "" {
			return text, nil
		}
	}
	return "", provider.ErrEmptyStory
}
