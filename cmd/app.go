package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/time/rate"

	"github.com/ByLCY/storystudio/asset"
	"github.com/ByLCY/storystudio/config"
	"github.com/ByLCY/storystudio/layout"
	"github.com/ByLCY/storystudio/pkg/logger"
	"github.com/ByLCY/storystudio/provider"
	"github.com/ByLCY/storystudio/provider/cohere"
	"github.com/ByLCY/storystudio/provider/gemini"
	"github.com/ByLCY/storystudio/provider/stability"
	canvasrenderer "github.com/ByLCY/storystudio/renderer/canvas"
	"github.com/ByLCY/storystudio/story"
)

// app 汇总一次运行所需的服务
type app struct {
	service  *story.Service
	exporter story.Exporter
	close    func() error
}

// newExporter 加载排版模板并创建 canvas 渲染器
func newExporter(cfg *config.Config) (story.Exporter, error) {
	tmpl, err := layout.LoadTemplateFile(cfg.Layout.Template)
	if err != nil {
		return story.Exporter{}, err
	}
	baseDir := ""
	if cfg.Layout.Template != "" {
		baseDir = filepath.Dir(cfg.Layout.Template)
	}
	return story.Exporter{Template: tmpl, Engine: canvasrenderer.NewRenderer(baseDir)}, nil
}

// newTextGenerator 按配置选择文本生成服务
func newTextGenerator(ctx context.Context, cfg config.TextConfig) (provider.TextGenerator, func() error, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		g, err := gemini.New(ctx, gemini.Config{APIKey: cfg.APIKey, Model: cfg.Model})
		if err != nil {
			return nil, nil, err
		}
		return g, g.Close, nil
	default:
		c, err := cohere.New(cohere.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return c, func() error { return nil }, nil
	}
}

func newImageGenerator(cfg config.ImageConfig) (provider.ImageGenerator, error) {
	s, err := stability.New(stability.Config{
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Engine:   cfg.Engine,
		Timeout:  cfg.Timeout,
		CacheTTL: cfg.CacheTTL,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// buildApp 组装故事服务；插图服务不可用时降级为无插图
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	exporter, err := newExporter(cfg)
	if err != nil {
		return nil, err
	}

	text, closeText, err := newTextGenerator(ctx, cfg.Text)
	if err != nil {
		return nil, fmt.Errorf("文本生成服务初始化失败: %w", err)
	}

	var images provider.ImageGenerator
	if gen, err := newImageGenerator(cfg.Image); err != nil {
		logger.Warn(ctx, "插图服务不可用，场景将不含插图", "error", err.Error())
	} else {
		images = gen
	}

	opts := story.Options{
		ImageConcurrency:    cfg.Image.Concurrency,
		ImagePromptTemplate: cfg.Image.PromptTemplate,
		MaxScenes:           cfg.Story.MaxScenes,
	}
	if cfg.Image.RateInterval > 0 {
		opts.Limiter = rate.NewLimiter(rate.Every(cfg.Image.RateInterval), 1)
	}
	if cfg.Image.OutputDir != "" {
		sink, err := asset.NewFileSink(cfg.Image.OutputDir)
		if err != nil {
			_ = closeText()
			return nil, err
		}
		opts.Sink = sink
	}

	return &app{
		service:  story.NewService(text, images, opts),
		exporter: exporter,
		close:    closeText,
	}, nil
}

// writeFile 创建父目录并写入文件
func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建输出目录失败: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入文件 %s 失败: %w", path, err)
	}
	return nil
}

func writeDebug(doc *layout.Document, path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(doc, path); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
