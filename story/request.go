// Package story 负责故事生成请求、场景切分以及"文本 → 场景 → 插图"的编排。
package story

import (
	"strings"

	apperrors "github.com/ByLCY/storystudio/pkg/errors"
)

// 请求默认值。
const (
	DefaultGenre       = "general"
	DefaultTone        = "neutral"
	DefaultAudience    = "general"
	DefaultMaxTokens   = 300
	DefaultTemperature = 0.8
	DefaultNumScenes   = 5
	DefaultMaxScenes   = 20
)

const systemPrompt = "You are a creative story generator."

// GenerationRequest 描述一次故事生成请求，构造后不再修改。
type GenerationRequest struct {
	Prompt      string  `json:"prompt" yaml:"prompt"`
	Genre       string  `json:"genre" yaml:"genre"`
	Tone        string  `json:"tone" yaml:"tone"`
	Audience    string  `json:"audience" yaml:"audience"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	NumScenes   int     `json:"num_scenes" yaml:"num_scenes"`
}

// Option 覆盖请求的某个默认值。
type Option func(*GenerationRequest)

// WithGenre 设置题材，空字符串保留默认值。
func WithGenre(genre string) Option {
	return func(r *GenerationRequest) {
		if genre != "" {
			r.Genre = genre
		}
	}
}

// WithTone 设置基调，空字符串保留默认值。
func WithTone(tone string) Option {
	return func(r *GenerationRequest) {
		if tone != "" {
			r.Tone = tone
		}
	}
}

// WithAudience 设置目标读者，空字符串保留默认值。
func WithAudience(audience string) Option {
	return func(r *GenerationRequest) {
		if audience != "" {
			r.Audience = audience
		}
	}
}

// WithMaxTokens 设置文本生成的最大 token 数。
func WithMaxTokens(n int) Option {
	return func(r *GenerationRequest) { r.MaxTokens = n }
}

// WithTemperature 设置采样温度。
func WithTemperature(t float64) Option {
	return func(r *GenerationRequest) { r.Temperature = t }
}

// WithNumScenes 设置场景数。
func WithNumScenes(n int) Option {
	return func(r *GenerationRequest) { r.NumScenes = n }
}

// NewGenerationRequest 以默认值为基础应用 opts，并做基本校验（不限制场景上限）。
func NewGenerationRequest(prompt string, opts ...Option) (GenerationRequest, error) {
	req := GenerationRequest{
		Prompt:      prompt,
		Genre:       DefaultGenre,
		Tone:        DefaultTone,
		Audience:    DefaultAudience,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
		NumScenes:   DefaultNumScenes,
	}
	for _, opt := range opts {
		opt(&req)
	}
	if err := req.Validate(0); err != nil {
		return GenerationRequest{}, err
	}
	return req, nil
}

// Validate 校验请求；maxScenes <= 0 表示不限制场景数上限。
func (r GenerationRequest) Validate(maxScenes int) error {
	switch {
	case strings.TrimSpace(r.Prompt) == "":
		return apperrors.New(apperrors.CodeInvalidParam, "Prompt is required")
	case r.MaxTokens <= 0:
		return apperrors.Newf(apperrors.CodeInvalidParam, "max_tokens must be positive, got %d", r.MaxTokens)
	case r.Temperature < 0 || r.Temperature > 2:
		return apperrors.Newf(apperrors.CodeInvalidParam, "temperature must be within [0, 2], got %g", r.Temperature)
	case r.NumScenes <= 0:
		return apperrors.Newf(apperrors.CodeInvalidParam, "num_scenes must be positive, got %d", r.NumScenes)
	case maxScenes > 0 && r.NumScenes > maxScenes:
		return apperrors.Newf(apperrors.CodeInvalidParam, "num_scenes must not exceed %d, got %d", maxScenes, r.NumScenes)
	}
	return nil
}

// StoryPrompt 拼出发给文本模型的完整提示词。默认题材/基调/读者不写入提示词。
func (r GenerationRequest) StoryPrompt() string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\nWrite a story")
	if r.Genre != DefaultGenre {
		b.WriteString(" in the " + r.Genre + " genre")
	}
	if r.Tone != DefaultTone {
		b.WriteString(" with a " + r.Tone + " tone")
	}
	if r.Audience != DefaultAudience {
		b.WriteString(" suitable for " + r.Audience)
	}
	b.WriteString(": " + r.Prompt)
	return b.String()
}
