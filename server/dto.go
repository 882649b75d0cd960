package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/ByLCY/storystudio/pkg/errors"
	"github.com/ByLCY/storystudio/pkg/logger"
	"github.com/ByLCY/storystudio/story"
)

// StoryRequest 是 /generate-story 与 /story/generate 的请求体。
// 指针字段缺省时使用默认值。
type StoryRequest struct {
	Prompt      string   `json:"prompt"`
	Genre       *string  `json:"genre"`
	Tone        *string  `json:"tone"`
	Audience    *string  `json:"audience"`
	MaxTokens   *int     `json:"max_tokens"`
	Temperature *float64 `json:"temperature"`
	NumScenes   *int     `json:"num_scenes"`
}

// toGenerationRequest 套用默认值并做基础校验
func (r StoryRequest) toGenerationRequest() (story.GenerationRequest, error) {
	var opts []story.Option
	if r.Genre != nil {
		opts = append(opts, story.WithGenre(*r.Genre))
	}
	if r.Tone != nil {
		opts = append(opts, story.WithTone(*r.Tone))
	}
	if r.Audience != nil {
		opts = append(opts, story.WithAudience(*r.Audience))
	}
	if r.MaxTokens != nil {
		opts = append(opts, story.WithMaxTokens(*r.MaxTokens))
	}
	if r.Temperature != nil {
		opts = append(opts, story.WithTemperature(*r.Temperature))
	}
	if r.NumScenes != nil {
		opts = append(opts, story.WithNumScenes(*r.NumScenes))
	}
	return story.NewGenerationRequest(r.Prompt, opts...)
}

// TextResponse 是 /story/generate 的响应
type TextResponse struct {
	Genre    string `json:"genre"`
	Tone     string `json:"tone"`
	Audience string `json:"audience"`
	Story    string `json:"story"`
}

// ImageRequest 是 /api/generate_image 的请求体
type ImageRequest struct {
	Prompt string `json:"prompt"`
}

// ImageResponse 中 Image 为 data URI，ImageData 为裸 base64，失败时均为 null
type ImageResponse struct {
	Prompt    string  `json:"prompt"`
	Image     *string `json:"image"`
	ImageData *string `json:"image_data"`
}

// respondError 按 AppError 的状态码输出 {code, message, detail}
func respondError(c *gin.Context, err error) {
	appErr := apperrors.AsAppError(err)
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "request failed", err, "path", c.Request.URL.Path)
	} else {
		logger.Warn(c.Request.Context(), "request rejected", "path", c.Request.URL.Path, "error", err.Error())
	}
	c.AbortWithStatusJSON(status, appErr)
}

func invalidBody(err error) error {
	return apperrors.Wrap(err, apperrors.CodeInvalidParam, "invalid request body").WithDetail(err.Error())
}
