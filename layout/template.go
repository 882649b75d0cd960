package layout

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ByLCY/storystudio/dsl"
	apperrors "github.com/ByLCY/storystudio/pkg/errors"
)

// DefaultTemplateSource 是内置的故事书模板。
const DefaultTemplateSource = `
book Story v1 {
  meta {
    title: "Story"
    creator: "StoryStudio"
  }

  resources {
    font Body { src: "embed:Go-Regular" }
    font Heading {
      src: "embed:Go-Bold"
      style: bold
    }
    color Ink = #000000
  }

  page A4 portrait margin 50pt {
    title Heading size 16pt color Ink { "Scene ${scene.number}" }
    body Body size 12pt line-height 15pt offset 30pt color Ink
    image width 300pt height 200pt gap 20pt
  }
}
`

// TextStyle 描述标题或正文的字体、字号（mm）与颜色。
type TextStyle struct {
	Font  FontResource `json:"font"`
	Size  float64      `json:"size"`
	Color Color        `json:"color"`
}

// Template 是编译后的故事书模板。
type Template struct {
	Geometry  Geometry                `json:"geometry"`
	Title     TextStyle               `json:"title"`
	Body      TextStyle               `json:"body"`
	TitleText string                  `json:"titleText"`
	Meta      DocumentMeta            `json:"meta"`
	Fonts     map[string]FontResource `json:"fonts"`
}

var pagePresets = map[string][2]float64{
	"A4":     {210, 297},
	"A5":     {148, 210},
	"LETTER": {215.9, 279.4},
	"LEGAL":  {215.9, 355.6},
}

func builtinTemplate() Template {
	body := FontResource{Name: "Body", Src: "embed:Go-Regular"}
	heading := FontResource{Name: "Heading", Src: "embed:Go-Bold", Style: "bold"}
	return Template{
		Geometry:  DefaultGeometry(),
		Title:     TextStyle{Font: heading, Size: Pt(16).ToMM()},
		Body:      TextStyle{Font: body, Size: Pt(12).ToMM()},
		TitleText: "Scene ${scene.number}",
		Meta:      DocumentMeta{Creator: "StoryStudio"},
		Fonts:     map[string]FontResource{body.Name: body, heading.Name: heading},
	}
}

// DefaultTemplate 返回内置模板。
func DefaultTemplate() Template {
	book, err := dsl.ParseString(DefaultTemplateSource)
	if err != nil {
		panic(fmt.Sprintf("内置模板解析失败: %v", err))
	}
	tmpl, err := CompileTemplate(book)
	if err != nil {
		panic(fmt.Sprintf("内置模板编译失败: %v", err))
	}
	return tmpl
}

// LoadTemplate 从 reader 解析并编译模板。
func LoadTemplate(r io.Reader) (Template, error) {
	book, err := dsl.Parse(r)
	if err != nil {
		return Template{}, apperrors.Wrap(err, apperrors.CodeLayoutFailed, "模板解析失败")
	}
	return CompileTemplate(book)
}

// LoadTemplateFile 读取模板文件；path 为空时返回内置模板。
func LoadTemplateFile(path string) (Template, error) {
	if path == "" {
		return DefaultTemplate(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Template{}, apperrors.Wrap(err, apperrors.CodeLayoutFailed, "无法打开模板文件")
	}
	defer f.Close()
	return LoadTemplate(f)
}

// CompileTemplate 将模板 AST 转成版式参数，未声明的部分沿用内置默认值。
func CompileTemplate(book *dsl.Book) (Template, error) {
	if book == nil {
		return Template{}, apperrors.New(apperrors.CodeLayoutFailed, "模板为空")
	}
	tmpl := builtinTemplate()
	collectMeta(book, &tmpl.Meta)

	colors, err := collectResources(book, tmpl.Fonts)
	if err != nil {
		return Template{}, err
	}
	// 模板可能重定义 Body/Heading，默认样式需指向最终的字体资源
	tmpl.Title.Font = tmpl.Fonts[tmpl.Title.Font.Name]
	tmpl.Body.Font = tmpl.Fonts[tmpl.Body.Font.Name]

	if page := book.Page(); page != nil {
		if err := applyPage(page, &tmpl, colors); err != nil {
			return Template{}, err
		}
	}
	if err := tmpl.Geometry.Validate(); err != nil {
		return Template{}, err
	}
	return tmpl, nil
}

func collectMeta(book *dsl.Book, meta *DocumentMeta) {
	for _, section := range book.Sections {
		if section.Meta == nil || section.Meta.Block == nil {
			continue
		}
		for _, stmt := range section.Meta.Block.Statements {
			if stmt.Assignment == nil {
				continue
			}
			val := stmt.Assignment.Value
			switch strings.ToLower(stmt.Assignment.Key) {
			case "title":
				meta.Title = val.Text()
			case "author":
				meta.Author = val.Text()
			case "subject":
				meta.Subject = val.Text()
			case "creator":
				meta.Creator = val.Text()
			case "keywords":
				meta.Keywords = val.Strings()
			}
		}
	}
}

func collectResources(book *dsl.Book, fonts map[string]FontResource) (map[string]Color, error) {
	colors := map[string]Color{}
	for _, section := range book.Sections {
		if section.Resources == nil || section.Resources.Block == nil {
			continue
		}
		for _, stmt := range section.Resources.Block.Statements {
			if stmt.Command == nil {
				continue
			}
			switch stmt.Command.Name {
			case "font":
				font, err := parseFontResource(stmt.Command)
				if err != nil {
					return nil, err
				}
				fonts[font.Name] = font
			case "color":
				name, c, err := parseColorResource(stmt.Command)
				if err != nil {
					return nil, err
				}
				colors[name] = c
			}
		}
	}
	return colors, nil
}

func parseFontResource(cmd *dsl.Command) (FontResource, error) {
	if len(cmd.Args) == 0 {
		return FontResource{}, layoutErrorf(cmd, "font 缺少名称")
	}
	font := FontResource{Name: cmd.Args[0].Value}
	if cmd.Block != nil {
		for _, stmt := range cmd.Block.Statements {
			if stmt.Assignment == nil {
				continue
			}
			switch stmt.Assignment.Key {
			case "src":
				font.Src = stmt.Assignment.Value.Text()
			case "style":
				font.Style = stmt.Assignment.Value.Text()
			}
		}
	}
	if font.Src == "" {
		return FontResource{}, layoutErrorf(cmd, "字体 %s 缺少 src", font.Name)
	}
	return font, nil
}

// parseColorResource 支持 `color Ink = #1E1E1E` 与 `color Ink #1E1E1E` 两种写法。
func parseColorResource(cmd *dsl.Command) (string, Color, error) {
	if len(cmd.Args) < 2 {
		return "", Color{}, layoutErrorf(cmd, "color 需要名称与取值")
	}
	value := cmd.Args[len(cmd.Args)-1].Value
	c, err := parseColor(value)
	if err != nil {
		return "", Color{}, layoutErrorf(cmd, "%v", err)
	}
	return cmd.Args[0].Value, c, nil
}

func applyPage(page *dsl.PageSection, tmpl *Template, colors map[string]Color) error {
	g := &tmpl.Geometry
	base, ok := pagePresets[strings.ToUpper(page.Spec.Size)]
	if !ok {
		return apperrors.Newf(apperrors.CodeLayoutFailed, "暂不支持的纸张尺寸：%s", page.Spec.Size)
	}
	g.PageWidth, g.PageHeight = base[0], base[1]

	params := page.Spec.Params
	for i := 0; i < len(params); i++ {
		switch params[i].Value {
		case "landscape":
			g.PageWidth, g.PageHeight = base[1], base[0]
		case "portrait":
			g.PageWidth, g.PageHeight = base[0], base[1]
		case "margin":
			var vals []float64
			for j := i + 1; j < len(params) && len(vals) < 4; j++ {
				l, err := ParseLength(params[j].Value)
				if err != nil {
					break
				}
				vals = append(vals, l.ToMM())
			}
			if len(vals) == 0 {
				return apperrors.New(apperrors.CodeLayoutFailed, "margin 缺少取值")
			}
			g.Margin = marginFrom(vals)
			i += len(vals)
		}
	}

	if page.Block == nil {
		return nil
	}
	for _, stmt := range page.Block.Statements {
		cmd := stmt.Command
		if cmd == nil {
			continue
		}
		font, attrs := parseArgs(cmd.Args)
		var err error
		switch cmd.Name {
		case "title":
			err = applyTextStyle(cmd, &tmpl.Title, font, attrs, tmpl.Fonts, colors)
			if err == nil {
				if text := extractText(cmd.Block); text != "" {
					tmpl.TitleText = text
				}
				if v, ok := attrs["offset"]; ok {
					g.TitleOffset, err = lengthAttr(cmd, "offset", v)
				}
			}
		case "body":
			err = applyTextStyle(cmd, &tmpl.Body, font, attrs, tmpl.Fonts, colors)
			if err == nil {
				err = applyBodyGeometry(cmd, g, tmpl.Body.Size, attrs)
			}
		case "image":
			err = applyImageGeometry(cmd, g, attrs)
		default:
			err = layoutErrorf(cmd, "未知的页面元素 %s", cmd.Name)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// marginFrom 按 CSS 语义展开 1~4 个边距值。
func marginFrom(vals []float64) Margin {
	switch len(vals) {
	case 1:
		v := vals[0]
		return Margin{Top: v, Right: v, Bottom: v, Left: v}
	case 2:
		return Margin{Top: vals[0], Right: vals[1], Bottom: vals[0], Left: vals[1]}
	case 3:
		return Margin{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[1]}
	default:
		return Margin{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[3]}
	}
}

func applyTextStyle(cmd *dsl.Command, style *TextStyle, font string, attrs map[string]string, fonts map[string]FontResource, colors map[string]Color) error {
	if font != "" {
		f, ok := fonts[font]
		if !ok {
			return layoutErrorf(cmd, "字体 %s 未定义", font)
		}
		style.Font = f
	}
	if v, ok := attrs["size"]; ok {
		size, err := lengthAttr(cmd, "size", v)
		if err != nil {
			return err
		}
		style.Size = size
	}
	if v, ok := attrs["color"]; ok {
		c, err := resolveColor(v, colors)
		if err != nil {
			return layoutErrorf(cmd, "%v", err)
		}
		style.Color = c
	}
	return nil
}

func applyBodyGeometry(cmd *dsl.Command, g *Geometry, fontSize float64, attrs map[string]string) error {
	if v, ok := attrs["line-height"]; ok {
		spec, err := ParseLineHeight(v)
		if err != nil {
			return layoutErrorf(cmd, "%v", err)
		}
		g.LineHeight = spec.Resolve(fontSize)
	}
	if v, ok := attrs["offset"]; ok {
		off, err := lengthAttr(cmd, "offset", v)
		if err != nil {
			return err
		}
		g.TitleOffset = off
	}
	return nil
}

func applyImageGeometry(cmd *dsl.Command, g *Geometry, attrs map[string]string) error {
	for key, dst := range map[string]*float64{
		"width":  &g.ImageWidth,
		"height": &g.ImageHeight,
		"gap":    &g.ImageGap,
	} {
		v, ok := attrs[key]
		if !ok {
			continue
		}
		l, err := lengthAttr(cmd, key, v)
		if err != nil {
			return err
		}
		*dst = l
	}
	return nil
}

// parseArgs 拆出命令参数：参数个数为奇数时首个参数是字体名，其余为键值对。
func parseArgs(args []*dsl.Lexeme) (string, map[string]string) {
	attrs := map[string]string{}
	cursor := 0
	var font string
	if len(args)%2 == 1 {
		font = args[0].Value
		cursor = 1
	}
	for ; cursor+1 < len(args); cursor += 2 {
		attrs[args[cursor].Value] = args[cursor+1].Value
	}
	return font, attrs
}

func extractText(block *dsl.Block) string {
	if block == nil {
		return ""
	}
	var b strings.Builder
	for _, stmt := range block.Statements {
		if stmt.Text != nil {
			b.WriteString(string(stmt.Text.Value))
		}
	}
	return b.String()
}

func lengthAttr(cmd *dsl.Command, key, value string) (float64, error) {
	l, err := ParseLength(value)
	if err != nil {
		return 0, layoutErrorf(cmd, "%s: %v", key, err)
	}
	return l.ToMM(), nil
}

func resolveColor(value string, colors map[string]Color) (Color, error) {
	if c, ok := colors[value]; ok {
		return c, nil
	}
	if strings.HasPrefix(value, "#") {
		return parseColor(value)
	}
	return Color{}, fmt.Errorf("颜色 %s 未定义", value)
}

func parseColor(value string) (Color, error) {
	hex := strings.TrimPrefix(value, "#")
	if len(hex) == 3 {
		hex = strings.Repeat(hex[0:1], 2) + strings.Repeat(hex[1:2], 2) + strings.Repeat(hex[2:3], 2)
	}
	if len(hex) != 6 {
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
	return Color{R: int(n >> 16 & 0xff), G: int(n >> 8 & 0xff), B: int(n & 0xff)}, nil
}

func layoutErrorf(cmd *dsl.Command, format string, args ...any) error {
	err := apperrors.Newf(apperrors.CodeLayoutFailed, format, args...)
	if cmd != nil {
		err.Detail = fmt.Sprintf("%s (line %d)", cmd.Name, cmd.Pos.Line)
	}
	return err
}
