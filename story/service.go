package story

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ByLCY/storystudio/asset"
	"github.com/ByLCY/storystudio/binding"
	"github.com/ByLCY/storystudio/layout"
	apperrors "github.com/ByLCY/storystudio/pkg/errors"
	"github.com/ByLCY/storystudio/pkg/logger"
	"github.com/ByLCY/storystudio/pkg/metrics"
	"github.com/ByLCY/storystudio/provider"
)

// DefaultImagePromptTemplate 为每个场景生成插图提示词。
const DefaultImagePromptTemplate = "${scene.text} -- illustration"

// Options 配置 Service。
type Options struct {
	// Sink 非空时，每张成功的插图都会额外落盘；写入失败只记日志。
	Sink asset.Sink
	// Limiter 限制插图请求速率，nil 表示不限速。
	Limiter *rate.Limiter
	// ImageConcurrency 并行的插图请求数，<= 0 时按 1（顺序）处理。
	ImageConcurrency    int
	ImagePromptTemplate string
	MaxScenes           int
}

// Service 编排一次故事生成：文本 → 场景切分 → 每个场景的插图。
type Service struct {
	text   provider.TextGenerator
	images provider.ImageGenerator
	opts   Options
}

// Story 是一次生成的结果，Scenes 按 Index 排序。
type Story struct {
	Request GenerationRequest
	Text    string
	Scenes  []Scene
}

// NewService 创建 Service；images 为 nil 时所有场景都没有插图。
func NewService(text provider.TextGenerator, images provider.ImageGenerator, opts Options) *Service {
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(rate.Inf, 1)
	}
	if opts.ImageConcurrency <= 0 {
		opts.ImageConcurrency = 1
	}
	if opts.ImagePromptTemplate == "" {
		opts.ImagePromptTemplate = DefaultImagePromptTemplate
	}
	if opts.MaxScenes <= 0 {
		opts.MaxScenes = DefaultMaxScenes
	}
	return &Service{text: text, images: images, opts: opts}
}

// Generate 生成完整故事。校验失败与文本生成失败直接返回错误；
// 插图失败只影响对应场景。
func (s *Service) Generate(ctx context.Context, req GenerationRequest) (*Story, error) {
	if err := req.Validate(s.opts.MaxScenes); err != nil {
		metrics.StoryGenerationTotal.WithLabelValues(metrics.StatusInvalid).Inc()
		return nil, err
	}

	text, err := s.GenerateText(ctx, req)
	if err != nil {
		return nil, err
	}

	scenes := Segment(text, req.NumScenes)
	if err := s.attachImages(ctx, req, scenes); err != nil {
		metrics.StoryGenerationTotal.WithLabelValues(metrics.StatusFailed).Inc()
		return nil, err
	}

	metrics.StoryGenerationTotal.WithLabelValues(metrics.StatusSuccess).Inc()
	logger.Info(ctx, "故事生成完成", "scenes", len(scenes), "images", countImages(scenes))
	return &Story{Request: req, Text: text, Scenes: scenes}, nil
}

// GenerateText 只生成故事正文，上游失败转为 GENERATION_FAILED。
func (s *Service) GenerateText(ctx context.Context, req GenerationRequest) (string, error) {
	if s.text == nil {
		return "", apperrors.New(apperrors.CodeGenerationFailed, "文本生成服务未配置")
	}
	text, err := s.text.Generate(ctx, provider.TextRequest{
		Prompt:      req.StoryPrompt(),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err == nil && strings.TrimSpace(text) == "" {
		err = provider.ErrEmptyStory
	}
	if err != nil {
		metrics.StoryGenerationTotal.WithLabelValues(metrics.StatusFailed).Inc()
		logger.Error(ctx, "故事文本生成失败", err)
		return "", apperrors.Wrap(err, apperrors.CodeGenerationFailed, "Error generating story").WithDetail(err.Error())
	}
	return text, nil
}

// GenerateImage 为单个提示词生成一张图；失败时返回 GENERATION_FAILED。
func (s *Service) GenerateImage(ctx context.Context, prompt string) (*asset.Image, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "No prompt provided")
	}
	img, err := s.generateImage(ctx, prompt, 1)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeGenerationFailed, "Error generating image").WithDetail(err.Error())
	}
	return img, nil
}

// ImagePrompt 返回场景的插图提示词。模板中可以引用 scene.* 与
// story.prompt / story.genre / story.tone / story.audience。
func (s *Service) ImagePrompt(req GenerationRequest, scene Scene) string {
	vars := binding.SceneVars(scene.Index, scene.Text).With("story", map[string]string{
		"prompt":   req.Prompt,
		"genre":    req.Genre,
		"tone":     req.Tone,
		"audience": req.Audience,
	})
	return binding.Interpolate(s.opts.ImagePromptTemplate, vars)
}

// attachImages 并行请求插图，结果按下标写回，保证顺序与场景一致。
func (s *Service) attachImages(ctx context.Context, req GenerationRequest, scenes []Scene) error {
	if s.images == nil {
		return nil
	}
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.opts.ImageConcurrency)
	for i := range scenes {
		eg.Go(func() error {
			sceneCtx := logger.WithContext(egCtx, logger.SceneKey, scenes[i].Number())
			img, err := s.generateImage(sceneCtx, s.ImagePrompt(req, scenes[i]), scenes[i].Number())
			if err != nil {
				logger.Warn(sceneCtx, "场景插图生成失败，按无图处理", "error", err)
				return nil
			}
			scenes[i].Image = img
			return nil
		})
	}
	_ = eg.Wait()
	return ctx.Err()
}

func (s *Service) generateImage(ctx context.Context, prompt string, sceneNumber int) (*asset.Image, error) {
	if s.images == nil {
		return nil, apperrors.New(apperrors.CodeGenerationFailed, "插图生成服务未配置")
	}
	if err := s.opts.Limiter.Wait(ctx); err != nil {
		metrics.ImageGenerationTotal.WithLabelValues(metrics.StatusFailed).Inc()
		return nil, err
	}

	payload, err := s.images.Generate(ctx, provider.ImageRequest{Prompt: prompt, SceneNumber: sceneNumber})
	res := asset.Result{Payload: payload, Err: err}
	img := asset.Resolve(res)
	if img == nil {
		metrics.ImageGenerationTotal.WithLabelValues(metrics.StatusFailed).Inc()
		if err == nil {
			err = apperrors.New(apperrors.CodeDecodeFailed, "上游返回的图片无法识别")
		}
		return nil, err
	}
	metrics.ImageGenerationTotal.WithLabelValues(metrics.StatusSuccess).Inc()

	if s.opts.Sink != nil {
		path, err := s.opts.Sink.Put(sceneNumber, img)
		if err != nil {
			logger.Warn(ctx, "插图落盘失败", "error", err)
		} else {
			logger.Debug(ctx, "插图已落盘", "path", path)
		}
	}
	return img, nil
}

// ToLayout 转换为排版阶段的输入。
func (st *Story) ToLayout() []layout.SceneInput {
	return SceneInputs(st.Scenes)
}

// SceneInputs 把场景转换为排版输入，保持顺序。
func SceneInputs(scenes []Scene) []layout.SceneInput {
	out := make([]layout.SceneInput, len(scenes))
	for i, sc := range scenes {
		out[i] = layout.SceneInput{Index: sc.Index, Text: sc.Text, Image: sc.Image}
	}
	return out
}

func countImages(scenes []Scene) int {
	n := 0
	for _, sc := range scenes {
		if sc.Image != nil {
			n++
		}
	}
	return n
}
