package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/ByLCY/storystudio/provider"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-1.5-flash"

// Config configures the Gemini client
type Config struct {
	APIKey string
	Model  string
}

// Gemini is a text provider for Google Gemini
type Gemini struct {
	client *genai.Client
	model  string
}

var _ provider.TextGenerator = (*Gemini)(nil)

// New returns a new Gemini provider; the client is reused across calls and released by Close
func New(ctx context.Context, cfg Config) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}
	return &Gemini{client: client, model: cfg.Model}, nil
}

// Close releases the underlying client
func (g *Gemini) Close() error {
	return g.client.Close()
}

// Generate returns the story text for the prompt
func (g *Gemini) Generate(ctx context.Context, req provider.TextRequest) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(float32(req.Temperature))
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}

	text := strings.TrimSpace(candidateText(resp.Candidates[0]))
	if text == "" {
		return "", provider.ErrEmptyStory
	}
	return text, nil
}

func candidateText(c *genai.Candidate) string {
	if c == nil || c.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range c.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}
