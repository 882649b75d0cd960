package renderer

import (
	"io"

	"github.com/ByLCY/storystudio/layout"
)

// Renderer 将组装好的文档输出为最终文件，例如 PDF。
// Render 把完整的文档字节写入 w；出错时 w 中的内容不可用。
type Renderer interface {
	Render(doc *layout.Document, w io.Writer) error
}

// Engine 同时负责测量与输出，排版与渲染使用同一套字体度量。
type Engine interface {
	Renderer
	layout.Typesetter
}
