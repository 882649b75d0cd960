package layout

import (
	apperrors "github.com/ByLCY/storystudio/pkg/errors"
)

// Geometry 描述单个场景页的版式尺寸，全部以毫米为单位。
type Geometry struct {
	PageWidth   float64 `json:"pageWidth"`
	PageHeight  float64 `json:"pageHeight"`
	Margin      Margin  `json:"margin"`
	TitleOffset float64 `json:"titleOffset"` // 标题顶部到正文首行顶部的距离
	LineHeight  float64 `json:"lineHeight"`
	ImageWidth  float64 `json:"imageWidth"`
	ImageHeight float64 `json:"imageHeight"`
	ImageGap    float64 `json:"imageGap"` // 正文末行到插图顶部的间距
}

// DefaultGeometry 返回 A4 纵向、四边 50pt 边距的默认版式。
func DefaultGeometry() Geometry {
	m := Pt(50).ToMM()
	return Geometry{
		PageWidth:   210,
		PageHeight:  297,
		Margin:      Margin{Top: m, Right: m, Bottom: m, Left: m},
		TitleOffset: Pt(30).ToMM(),
		LineHeight:  Pt(15).ToMM(),
		ImageWidth:  Pt(300).ToMM(),
		ImageHeight: Pt(200).ToMM(),
		ImageGap:    Pt(20).ToMM(),
	}
}

// TextWidth 返回正文可用宽度。
func (g Geometry) TextWidth() float64 {
	return g.PageWidth - g.Margin.Left - g.Margin.Right
}

// ContentBottom 返回内容区域底部的 y 坐标。
func (g Geometry) ContentBottom() float64 {
	return g.PageHeight - g.Margin.Bottom
}

// Validate 检查版式是否可用，不可用时返回 LAYOUT_FAILED。
func (g Geometry) Validate() error {
	switch {
	case g.PageWidth <= 0 || g.PageHeight <= 0:
		return apperrors.Newf(apperrors.CodeLayoutFailed, "页面尺寸无效: %gx%gmm", g.PageWidth, g.PageHeight)
	case g.Margin.Top < 0 || g.Margin.Right < 0 || g.Margin.Bottom < 0 || g.Margin.Left < 0:
		return apperrors.New(apperrors.CodeLayoutFailed, "边距不能为负数")
	case g.TextWidth() <= 0:
		return apperrors.Newf(apperrors.CodeLayoutFailed, "边距过大，正文宽度为 %gmm", g.TextWidth())
	case g.LineHeight <= 0:
		return apperrors.Newf(apperrors.CodeLayoutFailed, "行高必须为正数: %gmm", g.LineHeight)
	case g.TitleOffset < 0:
		return apperrors.Newf(apperrors.CodeLayoutFailed, "正文偏移不能为负数: %gmm", g.TitleOffset)
	case g.ImageWidth < 0 || g.ImageHeight < 0 || g.ImageGap < 0:
		return apperrors.New(apperrors.CodeLayoutFailed, "插图尺寸与间距不能为负数")
	case g.ImageWidth > g.PageWidth:
		return apperrors.Newf(apperrors.CodeLayoutFailed, "插图宽度 %gmm 超出页面宽度 %gmm", g.ImageWidth, g.PageWidth)
	}
	return nil
}
