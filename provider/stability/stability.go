package stability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/ByLCY/storystudio/asset"
	"github.com/ByLCY/storystudio/provider"
)

const (
	// DefaultBaseURL is the public Stability AI endpoint
	DefaultBaseURL = "https://api.stability.ai"
	// DefaultEngine is the SDXL text-to-image engine
	DefaultEngine = "stable-diffusion-xl-1024-v1-0"
)

// Config configures the Stability client. CacheTTL > 0 enables an in-memory
// response cache keyed by prompt.
type Config struct {
	APIKey   string
	BaseURL  string
	Engine   string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Stability is an image provider for the Stability AI text-to-image API
type Stability struct {
	apiKey   string
	endpoint string
	client   *http.Client
	cache    *cache.Cache
}

var _ provider.ImageGenerator = (*Stability)(nil)

// New returns a new Stability provider
func New(cfg Config) (*Stability, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("STABILITY_API_KEY not set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Engine == "" {
		cfg.Engine = DefaultEngine
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	s := &Stability{
		apiKey:   cfg.APIKey,
		endpoint: fmt.Sprintf("%s/v1/generation/%s/text-to-image", strings.TrimRight(cfg.BaseURL, "/"), cfg.Engine),
		client:   &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.CacheTTL > 0 {
		s.cache = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return s, nil
}

type textPrompt struct {
	Text string `json:"text"`
}

type generationRequest struct {
	TextPrompts []textPrompt `json:"text_prompts"`
	CfgScale    int          `json:"cfg_scale"`
	Height      int          `json:"height"`
	Width       int          `json:"width"`
	Samples     int          `json:"samples"`
	Steps       int          `json:"steps"`
}

// Generate requests one 1024x1024 image and returns its base64 artifact
func (s *Stability) Generate(ctx context.Context, req provider.ImageRequest) (*asset.Payload, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(req.Prompt); ok {
			return cached.(*asset.Payload), nil
		}
	}

	requestBody, err := json.Marshal(generationRequest{
		TextPrompts: []textPrompt{{Text: req.Prompt}},
		CfgScale:    7,
		Height:      1024,
		Width:       1024,
		Samples:     1,
		Steps:       30,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("scene %d: received non-200 status code: %d - %s", req.SceneNumber, resp.StatusCode, string(body))
	}

	var response struct {
		Artifacts []struct {
			Base64       string `json:"base64"`
			FinishReason string `json:"finishReason"`
		} `json:"artifacts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	if len(response.Artifacts) == 0 || response.Artifacts[0].Base64 == "" {
		return nil, fmt.Errorf("scene %d: no artifacts returned from Stability", req.SceneNumber)
	}

	payload := &asset.Payload{Encoded: response.Artifacts[0].Base64}
	if s.cache != nil {
		s.cache.SetDefault(req.Prompt, payload)
	}
	return payload, nil
}
