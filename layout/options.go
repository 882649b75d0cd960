package layout

// MeasureFunc 返回一段文本在固定字体与字号下的宽度（mm）。
type MeasureFunc func(s string) float64

// Typesetter 负责为给定字体与字号（mm）提供测量函数。
type Typesetter interface {
	Measurer(font FontResource, fontSize float64) (MeasureFunc, error)
}

// AssembleOptions 配置组装阶段所需的依赖。
type AssembleOptions struct {
	Template   Template
	Typesetter Typesetter
	// Meta 覆盖模板中的文档元信息（非空字段生效）。
	Meta DocumentMeta
}
