package layout

import (
	"context"

	"github.com/ByLCY/storystudio/pkg/metrics"
)

// Assemble 依次排版每个场景，非最后一个场景之后插入分页。
// 零个场景得到零页的文档。
func Assemble(ctx context.Context, scenes []SceneInput, opts AssembleOptions) (*Document, error) {
	composer, err := NewComposer(opts.Template, opts.Typesetter)
	if err != nil {
		return nil, err
	}

	pc := newPageCollector(opts.Template.Geometry)
	for i, scene := range scenes {
		if _, err := composer.Compose(ctx, pc.curr(), scene); err != nil {
			return nil, err
		}
		if i < len(scenes)-1 {
			pc.pageBreak()
		}
	}

	doc := pc.finalize(mergeMeta(opts.Template.Meta, opts.Meta), opts.Template.Fonts)
	metrics.DocumentPages.Observe(float64(len(doc.Pages)))
	return doc, nil
}

func mergeMeta(base, override DocumentMeta) DocumentMeta {
	if override.Title != "" {
		base.Title = override.Title
	}
	if override.Author != "" {
		base.Author = override.Author
	}
	if override.Subject != "" {
		base.Subject = override.Subject
	}
	if override.Creator != "" {
		base.Creator = override.Creator
	}
	if len(override.Keywords) > 0 {
		base.Keywords = override.Keywords
	}
	return base
}

// pageCollector 按需创建页面；首页在第一次 curr() 时才创建。
type pageCollector struct {
	geom    Geometry
	pages   []*Page
	current int
	breaks  int
}

func newPageCollector(geom Geometry) *pageCollector {
	return &pageCollector{geom: geom}
}

func (pc *pageCollector) newPage() *Page {
	p := &Page{
		Width:  pc.geom.PageWidth,
		Height: pc.geom.PageHeight,
		Margin: pc.geom.Margin,
	}
	pc.pages = append(pc.pages, p)
	pc.current = len(pc.pages) - 1
	return p
}

func (pc *pageCollector) curr() *Page {
	if len(pc.pages) == 0 {
		return pc.newPage()
	}
	return pc.pages[pc.current]
}

func (pc *pageCollector) pageBreak() {
	pc.newPage()
	pc.breaks++
}

func (pc *pageCollector) finalize(meta DocumentMeta, fonts map[string]FontResource) *Document {
	pages := make([]Page, len(pc.pages))
	for i, p := range pc.pages {
		pages[i] = *p
	}
	return &Document{
		Pages:    pages,
		Breaks:   pc.breaks,
		Meta:     meta,
		Fonts:    fonts,
		Geometry: pc.geom,
	}
}
