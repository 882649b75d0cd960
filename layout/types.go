package layout

import (
	"image"

	"github.com/ByLCY/storystudio/asset"
)

// 该文件定义布局结果与资源描述，供布局计算、渲染与调试 JSON 共用。
// 所有坐标以毫米为单位，原点在页面左上角，y 轴向下。

// Document 是组装完成、可直接交给渲染器的故事书。
type Document struct {
	Pages    []Page                  `json:"pages"`
	Breaks   int                     `json:"breaks"`
	Meta     DocumentMeta            `json:"meta"`
	Fonts    map[string]FontResource `json:"fonts"`
	Geometry Geometry                `json:"geometry"`
}

// SceneInput 是组装阶段的单个场景：文本与可选的插图。
type SceneInput struct {
	Index int
	Text  string
	Image *asset.Image
}

// FontResource 描述字体资源，src 可以是文件路径或 embed:* 形式的内置字体。
type FontResource struct {
	Name  string `json:"name"`
	Src   string `json:"src"`
	Style string `json:"style"`
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Page 对应一个场景：标题、正文行以及可选的插图。
type Page struct {
	Scene    int        `json:"scene"`
	Width    float64    `json:"width"`
	Height   float64    `json:"height"`
	Margin   Margin     `json:"margin"`
	Texts    []TextBox  `json:"texts"`
	Images   []ImageBox `json:"images"`
	Cursor   float64    `json:"cursor"`
	Overflow bool       `json:"overflow,omitempty"`
}

// Margin 以毫米为单位。
type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// TextBox 表示一个已经排好坐标的文本块；Y 为首行顶部。
type TextBox struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	X          float64    `json:"x"`
	Y          float64    `json:"y"`
	Width      float64    `json:"width"`
	LineHeight float64    `json:"lineHeight"`
	Font       string     `json:"font"`
	FontSize   float64    `json:"fontSize"`
	Color      Color      `json:"color"`
	Lines      []TextLine `json:"lines"`
	Height     float64    `json:"height"`
}

// TextLine 表示排版后的一行文本内容及其宽度。
type TextLine struct {
	Content string  `json:"content"`
	Width   float64 `json:"width"`
}

// ImageBox 用于描述插图位置与尺寸，Image 为已解码的位图。
type ImageBox struct {
	X      float64     `json:"x"`
	Y      float64     `json:"y"`
	Width  float64     `json:"width"`
	Height float64     `json:"height"`
	Image  image.Image `json:"-"`
}

// DocumentMeta 保存 PDF 元信息。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}

// 文本块角色。
const (
	RoleTitle = "title"
	RoleBody  = "body"
)
