package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ByLCY/storystudio/asset"
	"github.com/ByLCY/storystudio/layout"
	"github.com/ByLCY/storystudio/provider"
	canvasrenderer "github.com/ByLCY/storystudio/renderer/canvas"
	"github.com/ByLCY/storystudio/story"
)

type stubText struct {
	text string
	err  error
}

func (s stubText) Generate(context.Context, provider.TextRequest) (string, error) {
	return s.text, s.err
}

type stubImages struct {
	png  []byte
	fail bool
}

func (s stubImages) Generate(context.Context, provider.ImageRequest) (*asset.Payload, error) {
	if s.fail {
		return nil, errors.New("engine overloaded")
	}
	return &asset.Payload{Data: s.png}, nil
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	m := image.NewRGBA(image.Rect(0, 0, 4, 3))
	m.Set(1, 1, color.RGBA{B: 200, A: 255})
	data, err := asset.EncodePNG(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}

func newTestRouter(t *testing.T, text stubText, images stubImages) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := story.NewService(text, images, story.Options{})
	r := New(Options{
		Service:  svc,
		Exporter: story.Exporter{Template: layout.DefaultTemplate(), Engine: canvasrenderer.NewRenderer("")},
	})
	return r.Engine()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthcheckAndRequestID(t *testing.T) {
	h := newTestRouter(t, stubText{}, stubImages{})
	rec := do(t, h, http.MethodGet, "/healthcheck", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("healthcheck = %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Fatalf("missing request id header")
	}
}

func TestGenerateStory(t *testing.T) {
	h := newTestRouter(t, stubText{text: "A fox woke. It ran far"}, stubImages{png: testPNG(t)})
	for _, path := range []string{"/generate-story", "/scene/generate-story"} {
		rec := do(t, h, http.MethodPost, path, `{"prompt":"a fox","genre":"fable","num_scenes":3}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d body=%s", path, rec.Code, rec.Body.String())
		}
		var m story.Manifest
		if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if m.Genre != "fable" || m.Tone != story.DefaultTone || m.NumScenes != 3 || len(m.Scenes) != 3 {
			t.Fatalf("manifest = %+v", m)
		}
		if m.Scenes[2].Scene != 3 || m.Scenes[2].Text != story.FillerText(2) {
			t.Fatalf("scene 3 = %+v", m.Scenes[2])
		}
		if m.Scenes[0].Image == nil || !strings.HasPrefix(*m.Scenes[0].Image, "data:image/png;base64,") {
			t.Fatalf("scene 1 image missing")
		}
	}
}

func TestGenerateStoryImageFailureKeepsScenes(t *testing.T) {
	h := newTestRouter(t, stubText{text: "One. Two"}, stubImages{fail: true})
	rec := do(t, h, http.MethodPost, "/generate-story", `{"prompt":"p","num_scenes":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"image":null`) {
		t.Fatalf("failed images must be null: %s", rec.Body.String())
	}
}

func TestGenerateStoryErrors(t *testing.T) {
	cases := []struct {
		name   string
		text   stubText
		body   string
		status int
		code   string
	}{
		{"missing prompt", stubText{text: "x"}, `{"genre":"x"}`, http.StatusBadRequest, "INVALID_PARAM"},
		{"bad json", stubText{text: "x"}, `{"prompt":`, http.StatusBadRequest, "INVALID_PARAM"},
		{"too many scenes", stubText{text: "x"}, `{"prompt":"p","num_scenes":50}`, http.StatusBadRequest, "INVALID_PARAM"},
		{"upstream", stubText{err: errors.New("401 unauthorized")}, `{"prompt":"p"}`, http.StatusBadGateway, "GENERATION_FAILED"},
	}
	for _, tc := range cases {
		h := newTestRouter(t, tc.text, stubImages{})
		rec := do(t, h, http.MethodPost, "/generate-story", tc.body)
		if rec.Code != tc.status {
			t.Fatalf("%s: status = %d want %d", tc.name, rec.Code, tc.status)
		}
		var body struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Code != tc.code || body.Message == "" {
			t.Fatalf("%s: envelope = %s", tc.name, rec.Body.String())
		}
	}
}

func TestGenerateTextOnly(t *testing.T) {
	h := newTestRouter(t, stubText{text: "Once upon a time"}, stubImages{})
	rec := do(t, h, http.MethodPost, "/story/generate", `{"prompt":"p","tone":"dark"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp TextResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := TextResponse{Genre: story.DefaultGenre, Tone: "dark", Audience: story.DefaultAudience, Story: "Once upon a time"}
	if resp != want {
		t.Fatalf("got %+v want %+v", resp, want)
	}
}

func TestGenerateImageEndpoint(t *testing.T) {
	h := newTestRouter(t, stubText{}, stubImages{png: testPNG(t)})
	rec := do(t, h, http.MethodPost, "/api/generate_image", `{"prompt":"castle"}`)
	var resp ImageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusOK || resp.Image == nil || resp.ImageData == nil || !strings.HasSuffix(*resp.Image, *resp.ImageData) {
		t.Fatalf("response = %d %s", rec.Code, rec.Body.String())
	}

	failing := newTestRouter(t, stubText{}, stubImages{fail: true})
	rec = do(t, failing, http.MethodPost, "/api/generate_image", `{"prompt":"castle"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"image":null`) || !strings.Contains(rec.Body.String(), `"image_data":null`) {
		t.Fatalf("failure response = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodPost, "/api/generate_image", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing prompt status = %d", rec.Code)
	}
}

func TestExportPDF(t *testing.T) {
	h := newTestRouter(t, stubText{}, stubImages{})
	img := asset.Image{Data: testPNG(t), Format: "png"}
	payload := map[string]any{
		"scenes": []map[string]any{
			{"scene": 4, "text": "The fox slept", "image": img.DataURI()},
			{"scene": 1, "text": "The end", "image": nil},
		},
	}
	body, _ := json.Marshal(payload)
	for _, path := range []string{"/export-pdf", "/story/export-pdf"} {
		rec := do(t, h, http.MethodPost, path, string(body))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d body=%s", path, rec.Code, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
			t.Fatalf("content type = %q", ct)
		}
		if !strings.Contains(rec.Header().Get("Content-Disposition"), "story.pdf") {
			t.Fatalf("missing attachment header")
		}
		if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
			t.Fatalf("body is not a PDF")
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t, stubText{}, stubImages{})
	do(t, h, http.MethodGet, "/healthcheck", "")
	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "storystudio_http_requests_total") {
		t.Fatalf("metrics output missing request counter")
	}
}
