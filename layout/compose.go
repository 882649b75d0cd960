package layout

import (
	"context"

	"github.com/ByLCY/storystudio/binding"
	apperrors "github.com/ByLCY/storystudio/pkg/errors"
	"github.com/ByLCY/storystudio/pkg/logger"
	"github.com/ByLCY/storystudio/pkg/metrics"
)

// Composer 把单个场景排到一页上：标题、折行后的正文与可选插图。
type Composer struct {
	tmpl         Template
	titleMeasure MeasureFunc
	bodyMeasure  MeasureFunc
}

// NewComposer 校验版式并准备标题/正文的测量函数。
func NewComposer(tmpl Template, ts Typesetter) (*Composer, error) {
	if ts == nil {
		return nil, apperrors.New(apperrors.CodeLayoutFailed, "缺少排版后端 Typesetter")
	}
	if err := tmpl.Geometry.Validate(); err != nil {
		return nil, err
	}
	title, err := ts.Measurer(tmpl.Title.Font, tmpl.Title.Size)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeLayoutFailed, "标题字体不可用").WithDetail(tmpl.Title.Font.Src)
	}
	body, err := ts.Measurer(tmpl.Body.Font, tmpl.Body.Size)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeLayoutFailed, "正文字体不可用").WithDetail(tmpl.Body.Font.Src)
	}
	return &Composer{tmpl: tmpl, titleMeasure: title, bodyMeasure: body}, nil
}

// Compose 在 page 上排入场景，返回排版后最低已用位置（mm）。
// 插图解码失败只记录日志，本页按无图处理。
func (c *Composer) Compose(ctx context.Context, page *Page, scene SceneInput) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	g := c.tmpl.Geometry
	page.Scene = scene.Index

	titleText := binding.Interpolate(c.tmpl.TitleText, binding.SceneVars(scene.Index, scene.Text))
	page.Texts = append(page.Texts, TextBox{
		Role:       RoleTitle,
		Content:    titleText,
		X:          g.Margin.Left,
		Y:          g.Margin.Top,
		Width:      g.TextWidth(),
		LineHeight: c.tmpl.Title.Size,
		Font:       c.tmpl.Title.Font.Name,
		FontSize:   c.tmpl.Title.Size,
		Color:      c.tmpl.Title.Color,
		Lines:      []TextLine{{Content: titleText, Width: c.titleMeasure(titleText)}},
		Height:     c.tmpl.Title.Size,
	})

	bodyTop := g.Margin.Top + g.TitleOffset
	cursor := bodyTop
	if lines := WrapLines(scene.Text, g.TextWidth(), c.bodyMeasure); len(lines) > 0 {
		height := float64(len(lines)) * g.LineHeight
		page.Texts = append(page.Texts, TextBox{
			Role:       RoleBody,
			Content:    scene.Text,
			X:          g.Margin.Left,
			Y:          bodyTop,
			Width:      g.TextWidth(),
			LineHeight: g.LineHeight,
			Font:       c.tmpl.Body.Font.Name,
			FontSize:   c.tmpl.Body.Size,
			Color:      c.tmpl.Body.Color,
			Lines:      lines,
			Height:     height,
		})
		cursor += height
	}

	if scene.Image != nil {
		img, err := scene.Image.Decode()
		if err != nil {
			metrics.ImageDecodeFailures.Inc()
			logger.Warn(ctx, "插图解码失败，本页不放图", "scene", scene.Index+1, "error", err)
		} else {
			y := cursor + g.ImageGap
			page.Images = append(page.Images, ImageBox{
				X:      (g.PageWidth - g.ImageWidth) / 2,
				Y:      y,
				Width:  g.ImageWidth,
				Height: g.ImageHeight,
				Image:  img,
			})
			cursor = y + g.ImageHeight
		}
	}

	page.Cursor = cursor
	if cursor > g.ContentBottom() {
		page.Overflow = true
		logger.Warn(ctx, "场景内容超出页面底部", "scene", scene.Index+1, "cursor_mm", cursor, "bottom_mm", g.ContentBottom())
	}
	return cursor, nil
}
