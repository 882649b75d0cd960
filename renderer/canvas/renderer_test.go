package canvasrenderer

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/ByLCY/storystudio/asset"
	"github.com/ByLCY/storystudio/layout"
)

var bodyFont = layout.FontResource{Name: "Body", Src: "embed:Go-Regular"}

func TestMeasurerMonotonic(t *testing.T) {
	r := NewRenderer(".")
	measure, err := r.Measurer(bodyFont, 12*layout.PtToMm)
	if err != nil {
		t.Fatalf("measurer: %v", err)
	}
	short, long := measure("knight"), measure("knight and dragon")
	if short <= 0 || long <= short {
		t.Fatalf("unexpected widths: %g %g", short, long)
	}
	if measure("") != 0 {
		t.Fatalf("empty string should have zero width")
	}

	bigger, err := r.Measurer(bodyFont, 24*layout.PtToMm)
	if err != nil {
		t.Fatalf("measurer: %v", err)
	}
	if bigger("knight") <= short {
		t.Fatalf("larger font should measure wider")
	}
}

// TestWrapWithRealFontWidthLimit 验证使用真实字体测量时，每行宽度不超过限制（mm）。
func TestWrapWithRealFontWidthLimit(t *testing.T) {
	r := NewRenderer(".")
	measure, err := r.Measurer(bodyFont, 12*layout.PtToMm)
	if err != nil {
		t.Fatalf("measurer: %v", err)
	}
	limit := 40.0
	lines := layout.WrapLines("longlonglong longlonglong longlonglong longlonglong longlonglong", limit, measure)
	if len(lines) < 2 {
		t.Fatalf("expected wrapping into multiple lines, got %d", len(lines))
	}
	for i, ln := range lines {
		if ln.Width-limit > 1e-6 {
			t.Fatalf("line %d width exceeds limit: width=%g limit=%g", i, ln.Width, limit)
		}
	}
}

func TestMissingFontFallsBack(t *testing.T) {
	r := NewRenderer(t.TempDir())
	measure, err := r.Measurer(layout.FontResource{Name: "Serif", Src: "missing.ttf"}, 4)
	if err != nil {
		t.Fatalf("fallback expected, got %v", err)
	}
	if measure("abc") <= 0 {
		t.Fatalf("fallback font should measure text")
	}
}

func TestRenderStoryDocument(t *testing.T) {
	r := NewRenderer(".")
	m := image.NewRGBA(image.Rect(0, 0, 32, 16))
	m.Set(3, 3, color.RGBA{B: 255, A: 255})
	data, err := asset.EncodePNG(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	img, err := asset.FromBytes(data)
	if err != nil {
		t.Fatalf("asset: %v", err)
	}

	doc, err := layout.Assemble(context.Background(), []layout.SceneInput{
		{Index: 0, Text: "A knight rode out", Image: img},
		{Index: 1, Text: "He met a dragon"},
		{Index: 2, Text: "They became friends", Image: &asset.Image{Data: []byte("junk"), Format: "png"}},
	}, layout.AssembleOptions{Template: layout.DefaultTemplate(), Typesetter: r})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	var buf bytes.Buffer
	if err := r.Render(doc, &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatalf("output is not a PDF")
	}
	if len(doc.Pages) != 3 || doc.Breaks != 2 {
		t.Fatalf("unexpected document shape: %d pages %d breaks", len(doc.Pages), doc.Breaks)
	}
	if len(doc.Pages[2].Images) != 0 || len(doc.Pages[0].Images) != 1 {
		t.Fatalf("image attachment mismatch")
	}
}

func TestRenderEmptyDocument(t *testing.T) {
	r := NewRenderer(".")
	doc, err := layout.Assemble(context.Background(), nil, layout.AssembleOptions{Template: layout.DefaultTemplate(), Typesetter: r})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	out, err := r.RenderBytes(doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) || !bytes.Contains(out, []byte("%%EOF")) {
		t.Fatalf("empty document should still be a finalized PDF")
	}
}

func TestRenderNilDocument(t *testing.T) {
	if _, err := NewRenderer(".").RenderBytes(nil); err == nil {
		t.Fatalf("expected error for nil document")
	}
}

// TestBodyMeasuredWithDrawnFont 排版测量与渲染绘制使用同一字体，绘制宽度不超过正文宽度。
func TestBodyMeasuredWithDrawnFont(t *testing.T) {
	src := `
book Bold v1 {
  resources {
    font Body { src: "embed:Go-Bold" }
  }
  page A4 {
    body size 12pt
  }
}
`
	tmpl, err := layout.LoadTemplate(strings.NewReader(src))
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	r := NewRenderer(".")
	text := strings.Repeat("The dragon and the knight shared a long breakfast by the river. ", 6)
	doc, err := layout.Assemble(context.Background(), []layout.SceneInput{{Index: 0, Text: text}}, layout.AssembleOptions{
		Template:   tmpl,
		Typesetter: r,
	})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	for _, tb := range doc.Pages[0].Texts {
		if tb.Role != layout.RoleBody {
			continue
		}
		drawn := doc.Fonts[tb.Font]
		if drawn.Src != "embed:Go-Bold" {
			t.Fatalf("body drawn with %+v", drawn)
		}
		measure, err := r.Measurer(drawn, tb.FontSize)
		if err != nil {
			t.Fatalf("measurer: %v", err)
		}
		for i, ln := range tb.Lines {
			if w := measure(ln.Content); w-tb.Width > 1e-6 {
				t.Fatalf("line %d drawn width %g exceeds text width %g", i, w, tb.Width)
			}
		}
		return
	}
	t.Fatalf("no body text box")
}
