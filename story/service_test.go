package story

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ByLCY/storystudio/asset"
	apperrors "github.com/ByLCY/storystudio/pkg/errors"
	"github.com/ByLCY/storystudio/provider"
)

type fakeText struct {
	text  string
	err   error
	calls atomic.Int32
	last  provider.TextRequest
}

func (f *fakeText) Generate(ctx context.Context, req provider.TextRequest) (string, error) {
	f.calls.Add(1)
	f.last = req
	return f.text, f.err
}

// fakeImages 按场景编号返回结果；fail 中的场景返回错误，junk 中的场景返回无法识别的字节。
type fakeImages struct {
	png     []byte
	fail    map[int]bool
	junk    map[int]bool
	delay   func(scene int) time.Duration
	mu      sync.Mutex
	prompts map[int]string
}

func (f *fakeImages) Generate(ctx context.Context, req provider.ImageRequest) (*asset.Payload, error) {
	if f.delay != nil {
		time.Sleep(f.delay(req.SceneNumber))
	}
	f.mu.Lock()
	if f.prompts == nil {
		f.prompts = map[int]string{}
	}
	f.prompts[req.SceneNumber] = req.Prompt
	f.mu.Unlock()
	switch {
	case f.fail[req.SceneNumber]:
		return nil, fmt.Errorf("upstream rejected scene %d", req.SceneNumber)
	case f.junk[req.SceneNumber]:
		return &asset.Payload{Encoded: "bm90IGFuIGltYWdl"}, nil
	}
	return &asset.Payload{Data: f.png}, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	m := image.NewRGBA(image.Rect(0, 0, 2, 2))
	m.Set(0, 0, color.RGBA{R: 255, A: 255})
	data, err := asset.EncodePNG(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}

func TestGenerateAttachesImagesPerScene(t *testing.T) {
	text := &fakeText{text: "A knight rode out. He met a dragon. They became friends."}
	images := &fakeImages{png: pngBytes(t), fail: map[int]bool{2: true}}
	svc := NewService(text, images, Options{})

	req, _ := NewGenerationRequest("knights", WithNumScenes(4))
	st, err := svc.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(st.Scenes) != 4 {
		t.Fatalf("scenes = %d", len(st.Scenes))
	}
	if st.Scenes[0].Image == nil || st.Scenes[1].Image != nil || st.Scenes[2].Image == nil {
		t.Fatalf("unexpected image attachment: %v %v %v", st.Scenes[0].Image, st.Scenes[1].Image, st.Scenes[2].Image)
	}
	if st.Scenes[1].Text != "He met a dragon" {
		t.Fatalf("failed image must keep scene text, got %q", st.Scenes[1].Text)
	}
	if st.Scenes[3].Text != FillerText(3) {
		t.Fatalf("scene 4 should be filler, got %q", st.Scenes[3].Text)
	}
	if images.prompts[1] != "A knight rode out -- illustration" {
		t.Fatalf("image prompt = %q", images.prompts[1])
	}
	if !strings.HasSuffix(text.last.Prompt, ": knights") || text.last.MaxTokens != 300 {
		t.Fatalf("text request = %+v", text.last)
	}
}

func TestGenerateUpstreamTextFailure(t *testing.T) {
	images := &fakeImages{png: pngBytes(t)}
	for _, text := range []*fakeText{{err: errors.New("quota exceeded")}, {text: "  "}} {
		svc := NewService(text, images, Options{})
		req, _ := NewGenerationRequest("p")
		_, err := svc.Generate(context.Background(), req)
		if !apperrors.IsCode(err, apperrors.CodeGenerationFailed) {
			t.Fatalf("expected GENERATION_FAILED, got %v", err)
		}
	}
	if len(images.prompts) != 0 {
		t.Fatalf("no image calls expected after text failure")
	}
}

func TestGenerateValidatesBeforeCallingUpstream(t *testing.T) {
	text := &fakeText{text: "x"}
	svc := NewService(text, nil, Options{MaxScenes: 3})
	req, _ := NewGenerationRequest("p", WithNumScenes(4))
	if _, err := svc.Generate(context.Background(), req); !apperrors.IsCode(err, apperrors.CodeInvalidParam) {
		t.Fatalf("expected INVALID_PARAM, got %v", err)
	}
	if text.calls.Load() != 0 {
		t.Fatalf("text generator must not be called for invalid requests")
	}
}

func TestGenerateKeepsOrderUnderConcurrency(t *testing.T) {
	text := &fakeText{text: "S1. S2. S3. S4. S5. S6"}
	images := &fakeImages{
		png:  pngBytes(t),
		junk: map[int]bool{5: true},
		// 编号越小越慢，完成顺序与场景顺序相反
		delay: func(scene int) time.Duration { return time.Duration(7-scene) * 5 * time.Millisecond },
	}
	svc := NewService(text, images, Options{ImageConcurrency: 6, ImagePromptTemplate: "${scene.number}: ${scene.text}"})
	req, _ := NewGenerationRequest("p", WithNumScenes(6))
	st, err := svc.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for i, sc := range st.Scenes {
		if sc.Index != i || sc.Text != fmt.Sprintf("S%d", i+1) {
			t.Fatalf("scene %d out of order: %+v", i, sc)
		}
		if (sc.Image == nil) != (i == 4) {
			t.Fatalf("scene %d image presence wrong", i+1)
		}
	}
	if images.prompts[3] != "3: S3" {
		t.Fatalf("templated prompt = %q", images.prompts[3])
	}
}

func TestImagePromptStoryVars(t *testing.T) {
	svc := NewService(nil, nil, Options{ImagePromptTemplate: "${scene.text}, ${story.genre} for ${story.audience} (${story.missing})"})
	req, _ := NewGenerationRequest("owls", WithGenre("fable"), WithAudience("children"))
	got := svc.ImagePrompt(req, Scene{Index: 0, Text: "An owl wakes"})
	if want := "An owl wakes, fable for children (${story.missing})"; got != want {
		t.Fatalf("prompt = %q want %q", got, want)
	}
}

type failingSink struct{}

func (failingSink) Put(int, *asset.Image) (string, error) { return "", errors.New("disk full") }

func TestGenerateSinkWritesAndFailuresAreIgnored(t *testing.T) {
	dir := t.TempDir()
	sink, err := asset.NewFileSink(filepath.Join(dir, "static"))
	if err != nil {
		t.Fatalf("sink: %v", err)
	}
	text := &fakeText{text: "One. Two"}
	images := &fakeImages{png: pngBytes(t)}
	req, _ := NewGenerationRequest("p", WithNumScenes(2))

	if _, err := NewService(text, images, Options{Sink: sink}).Generate(context.Background(), req); err != nil {
		t.Fatalf("generate: %v", err)
	}
	for _, n := range []int{1, 2} {
		if _, err := os.Stat(filepath.Join(dir, "static", fmt.Sprintf("scene_%d.png", n))); err != nil {
			t.Fatalf("scene %d not written: %v", n, err)
		}
	}

	st, err := NewService(text, images, Options{Sink: failingSink{}}).Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("sink failure must not fail the request: %v", err)
	}
	if st.Scenes[0].Image == nil {
		t.Fatalf("in-memory image must survive sink failure")
	}
}

func TestGenerateCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := NewService(&fakeText{text: "A. B"}, &fakeImages{png: pngBytes(t)}, Options{})
	req, _ := NewGenerationRequest("p", WithNumScenes(2))
	if _, err := svc.Generate(ctx, req); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGenerateImage(t *testing.T) {
	svc := NewService(nil, &fakeImages{png: pngBytes(t), fail: map[int]bool{}}, Options{})
	img, err := svc.GenerateImage(context.Background(), "a castle")
	if err != nil || img == nil || img.Format != "png" {
		t.Fatalf("got %+v, %v", img, err)
	}
	if _, err := svc.GenerateImage(context.Background(), ""); !apperrors.IsCode(err, apperrors.CodeInvalidParam) {
		t.Fatalf("expected INVALID_PARAM, got %v", err)
	}
	failing := NewService(nil, &fakeImages{fail: map[int]bool{1: true}}, Options{})
	if _, err := failing.GenerateImage(context.Background(), "x"); !apperrors.IsCode(err, apperrors.CodeGenerationFailed) {
		t.Fatalf("expected GENERATION_FAILED, got %v", err)
	}
}
