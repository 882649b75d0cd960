// Package provider defines the upstream generation services the story
// pipeline depends on. Implementations live in the subpackages.
package provider

import (
	"context"
	"errors"

	"github.com/ByLCY/storystudio/asset"
)

// ErrEmptyStory is returned when the text service answers without any prose.
var ErrEmptyStory = errors.New("no story generated")

// TextRequest represents one text generation call
type TextRequest struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// TextGenerator produces story prose for a prompt
type TextGenerator interface {
	Generate(ctx context.Context, req TextRequest) (string, error)
}

// ImageRequest represents one per-scene image generation call
type ImageRequest struct {
	Prompt      string
	SceneNumber int
}

// ImageGenerator produces an image payload (binary or base64) for a prompt
type ImageGenerator interface {
	Generate(ctx context.Context, req ImageRequest) (*asset.Payload, error)
}
