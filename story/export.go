package story

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ByLCY/storystudio/layout"
	apperrors "github.com/ByLCY/storystudio/pkg/errors"
	"github.com/ByLCY/storystudio/renderer"
)

// Exporter 把场景排版为文档并渲染成 PDF。
type Exporter struct {
	Template layout.Template
	Engine   renderer.Engine
}

// Layout 只做排版，返回的文档可用于调试输出。
func (e Exporter) Layout(ctx context.Context, scenes []Scene, meta layout.DocumentMeta) (*layout.Document, error) {
	if e.Engine == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "renderer not configured")
	}
	return layout.Assemble(ctx, SceneInputs(scenes), layout.AssembleOptions{
		Template:   e.Template,
		Typesetter: e.Engine,
		Meta:       meta,
	})
}

// Export 排版并渲染，返回完整的 PDF 字节。
func (e Exporter) Export(ctx context.Context, scenes []Scene, meta layout.DocumentMeta) (*layout.Document, []byte, error) {
	doc, err := e.Layout(ctx, scenes, meta)
	if err != nil {
		return nil, nil, err
	}
	var buf bytes.Buffer
	if err := e.Engine.Render(doc, &buf); err != nil {
		return doc, nil, apperrors.Wrap(fmt.Errorf("渲染 PDF 失败: %w", err), apperrors.CodeLayoutFailed, "failed to render document")
	}
	return doc, buf.Bytes(), nil
}

// Meta 以请求的提示词作为文档主题。
func (st *Story) Meta() layout.DocumentMeta {
	return layout.DocumentMeta{Subject: st.Request.Prompt}
}
