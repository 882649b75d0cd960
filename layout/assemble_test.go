package layout

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"strings"
	"testing"

	"github.com/ByLCY/storystudio/asset"
	apperrors "github.com/ByLCY/storystudio/pkg/errors"
)

// stubTypesetter 是一个最小实现，仅用于测试，避免引入 renderer 造成循环依赖。
// 每个字符宽度为字号的一半。
type stubTypesetter struct {
	fail bool
}

func (s *stubTypesetter) Measurer(font FontResource, fontSize float64) (MeasureFunc, error) {
	if s.fail {
		return nil, errors.New("font not found")
	}
	return func(text string) float64 {
		return float64(len([]rune(text))) * fontSize / 2
	}, nil
}

func testImage(t *testing.T) *asset.Image {
	t.Helper()
	m := image.NewRGBA(image.Rect(0, 0, 8, 6))
	m.Set(2, 2, color.RGBA{G: 180, A: 255})
	data, err := asset.EncodePNG(m)
	if err != nil {
		t.Fatalf("encode png: %v", err)
	}
	img, err := asset.FromBytes(data)
	if err != nil {
		t.Fatalf("from bytes: %v", err)
	}
	return img
}

func assemble(t *testing.T, scenes []SceneInput) *Document {
	t.Helper()
	doc, err := Assemble(context.Background(), scenes, AssembleOptions{
		Template:   DefaultTemplate(),
		Typesetter: &stubTypesetter{},
	})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	return doc
}

func TestAssembleEmpty(t *testing.T) {
	doc := assemble(t, nil)
	if len(doc.Pages) != 0 || doc.Breaks != 0 {
		t.Fatalf("expected empty document, got %d pages %d breaks", len(doc.Pages), doc.Breaks)
	}
	if doc.Meta.Creator != "StoryStudio" {
		t.Fatalf("meta not carried: %+v", doc.Meta)
	}
}

func TestAssembleBreaksBetweenScenes(t *testing.T) {
	for n := 1; n <= 6; n++ {
		scenes := make([]SceneInput, n)
		for i := range scenes {
			scenes[i] = SceneInput{Index: i, Text: "scene text"}
		}
		doc := assemble(t, scenes)
		if len(doc.Pages) != n {
			t.Fatalf("n=%d: pages = %d", n, len(doc.Pages))
		}
		if doc.Breaks != n-1 {
			t.Fatalf("n=%d: breaks = %d want %d", n, doc.Breaks, n-1)
		}
		for i, p := range doc.Pages {
			if p.Scene != i {
				t.Fatalf("page %d holds scene %d", i, p.Scene)
			}
			if p.Texts[0].Content != "Scene "+string(rune('1'+i)) {
				t.Fatalf("page %d title = %q", i, p.Texts[0].Content)
			}
		}
	}
}

func TestComposeGeometry(t *testing.T) {
	text := strings.Repeat("dragon ", 60)
	doc := assemble(t, []SceneInput{{Index: 0, Text: text, Image: testImage(t)}})
	g := DefaultGeometry()
	page := doc.Pages[0]

	if len(page.Texts) != 2 {
		t.Fatalf("expected title and body, got %d boxes", len(page.Texts))
	}
	title, body := page.Texts[0], page.Texts[1]
	if title.Role != RoleTitle || title.X != g.Margin.Left || title.Y != g.Margin.Top {
		t.Fatalf("title misplaced: %+v", title)
	}
	if body.Role != RoleBody || !near(body.Y, g.Margin.Top+g.TitleOffset) {
		t.Fatalf("body misplaced: y=%g", body.Y)
	}
	if len(body.Lines) < 2 {
		t.Fatalf("expected wrapped body, got %d lines", len(body.Lines))
	}
	for _, l := range body.Lines {
		if l.Width > g.TextWidth() {
			t.Fatalf("line wider than text width: %q %g", l.Content, l.Width)
		}
	}
	textBottom := body.Y + float64(len(body.Lines))*g.LineHeight

	if len(page.Images) != 1 {
		t.Fatalf("expected one image, got %d", len(page.Images))
	}
	img := page.Images[0]
	if !near(img.X, (g.PageWidth-g.ImageWidth)/2) || !near(img.Y, textBottom+g.ImageGap) {
		t.Fatalf("image misplaced: %+v", img)
	}
	if !near(page.Cursor, img.Y+g.ImageHeight) {
		t.Fatalf("cursor = %g want %g", page.Cursor, img.Y+g.ImageHeight)
	}
	if page.Overflow {
		t.Fatalf("page should fit")
	}
}

func TestComposeDecodeFailureContinues(t *testing.T) {
	broken := &asset.Image{Data: []byte("definitely not a png"), Format: "png"}
	doc := assemble(t, []SceneInput{
		{Index: 0, Text: "A knight rode out", Image: broken},
		{Index: 1, Text: "He met a dragon", Image: testImage(t)},
	})
	if len(doc.Pages) != 2 {
		t.Fatalf("pages = %d", len(doc.Pages))
	}
	first := doc.Pages[0]
	if len(first.Images) != 0 {
		t.Fatalf("broken image should be dropped")
	}
	if len(first.Texts) != 2 || first.Texts[1].Lines[0].Content != "A knight rode out" {
		t.Fatalf("scene text missing: %+v", first.Texts)
	}
	g := DefaultGeometry()
	if !near(first.Cursor, g.Margin.Top+g.TitleOffset+g.LineHeight) {
		t.Fatalf("cursor should stay below text, got %g", first.Cursor)
	}
	if len(doc.Pages[1].Images) != 1 {
		t.Fatalf("next scene lost its image")
	}
}

func TestComposeEmptyTextWithoutImage(t *testing.T) {
	doc := assemble(t, []SceneInput{{Index: 0, Text: ""}})
	page := doc.Pages[0]
	if len(page.Texts) != 1 {
		t.Fatalf("expected title only, got %d boxes", len(page.Texts))
	}
	g := DefaultGeometry()
	if !near(page.Cursor, g.Margin.Top+g.TitleOffset) {
		t.Fatalf("cursor = %g", page.Cursor)
	}
}

func TestComposeOverflowFlagged(t *testing.T) {
	doc := assemble(t, []SceneInput{{Index: 0, Text: strings.Repeat("overflowing words ", 2000)}})
	if len(doc.Pages) != 1 || !doc.Pages[0].Overflow {
		t.Fatalf("expected single overflowing page")
	}
}

func TestAssembleLayoutErrors(t *testing.T) {
	_, err := Assemble(context.Background(), nil, AssembleOptions{
		Template:   DefaultTemplate(),
		Typesetter: &stubTypesetter{fail: true},
	})
	if !apperrors.IsCode(err, apperrors.CodeLayoutFailed) {
		t.Fatalf("expected layout error, got %v", err)
	}

	tmpl := DefaultTemplate()
	tmpl.Geometry.Margin.Left = 200
	_, err = Assemble(context.Background(), nil, AssembleOptions{Template: tmpl, Typesetter: &stubTypesetter{}})
	if !apperrors.IsCode(err, apperrors.CodeLayoutFailed) {
		t.Fatalf("expected layout error for bad geometry, got %v", err)
	}

	tmpl = DefaultTemplate()
	tmpl.Geometry.TitleOffset = -1
	_, err = Assemble(context.Background(), nil, AssembleOptions{Template: tmpl, Typesetter: &stubTypesetter{}})
	if !apperrors.IsCode(err, apperrors.CodeLayoutFailed) {
		t.Fatalf("expected layout error for negative title offset, got %v", err)
	}
}

func TestAssembleHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Assemble(ctx, []SceneInput{{Index: 0, Text: "x"}}, AssembleOptions{
		Template:   DefaultTemplate(),
		Typesetter: &stubTypesetter{},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }
