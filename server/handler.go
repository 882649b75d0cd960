package server

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ByLCY/storystudio/layout"
	apperrors "github.com/ByLCY/storystudio/pkg/errors"
	"github.com/ByLCY/storystudio/pkg/logger"
	"github.com/ByLCY/storystudio/story"
)

// Handler 处理故事相关的 HTTP 请求
type Handler struct {
	svc      *story.Service
	exporter story.Exporter
}

// NewHandler 创建处理器
func NewHandler(svc *story.Service, exporter story.Exporter) *Handler {
	return &Handler{svc: svc, exporter: exporter}
}

// GenerateStory 生成分场景的故事，插图以 data URI 内嵌
func (h *Handler) GenerateStory(c *gin.Context) {
	var body StoryRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, invalidBody(err))
		return
	}
	req, err := body.toGenerationRequest()
	if err != nil {
		respondError(c, err)
		return
	}
	st, err := h.svc.Generate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st.Manifest())
}

// GenerateText 只生成故事正文
func (h *Handler) GenerateText(c *gin.Context) {
	var body StoryRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, invalidBody(err))
		return
	}
	req, err := body.toGenerationRequest()
	if err != nil {
		respondError(c, err)
		return
	}
	text, err := h.svc.GenerateText(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, TextResponse{
		Genre:    req.Genre,
		Tone:     req.Tone,
		Audience: req.Audience,
		Story:    text,
	})
}

// GenerateImage 为单个提示词生成插图；上游失败时 image 字段为 null
func (h *Handler) GenerateImage(c *gin.Context) {
	var body ImageRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, invalidBody(err))
		return
	}
	img, err := h.svc.GenerateImage(c.Request.Context(), body.Prompt)
	if apperrors.IsCode(err, apperrors.CodeGenerationFailed) {
		c.JSON(http.StatusOK, ImageResponse{Prompt: body.Prompt})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	uri := img.DataURI()
	raw := base64.StdEncoding.EncodeToString(img.Data)
	c.JSON(http.StatusOK, ImageResponse{Prompt: body.Prompt, Image: &uri, ImageData: &raw})
}

// ExportPDF 将场景排版为 PDF 附件，场景按数组位置编号
func (h *Handler) ExportPDF(c *gin.Context) {
	var m story.Manifest
	if err := c.ShouldBindJSON(&m); err != nil {
		respondError(c, invalidBody(err))
		return
	}
	doc, pdfBytes, err := h.exporter.Export(c.Request.Context(), m.ToScenes(), layout.DocumentMeta{Subject: m.Prompt})
	if err != nil {
		respondError(c, err)
		return
	}
	logger.Info(c.Request.Context(), "PDF 已导出", "pages", len(doc.Pages), "bytes", len(pdfBytes))
	c.Header("Content-Disposition", `attachment; filename="story.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// Healthcheck 存活检查
func Healthcheck(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}
