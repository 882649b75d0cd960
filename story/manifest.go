package story

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ByLCY/storystudio/asset"
)

// Manifest 是故事的可交换表示：/generate-story 的响应、CLI 输出的清单文件
// 以及 export 的输入都使用这一结构。
type Manifest struct {
	Prompt    string          `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	Genre     string          `json:"genre,omitempty" yaml:"genre,omitempty"`
	Tone      string          `json:"tone,omitempty" yaml:"tone,omitempty"`
	Audience  string          `json:"audience,omitempty" yaml:"audience,omitempty"`
	NumScenes int             `json:"num_scenes,omitempty" yaml:"num_scenes,omitempty"`
	Scenes    []ManifestScene `json:"scenes" yaml:"scenes"`
}

// ManifestScene 中 Scene 从 1 开始；Image 为 data URI，ImageData 为裸 base64，二者任选其一。
type ManifestScene struct {
	Scene     int     `json:"scene" yaml:"scene"`
	Text      string  `json:"text" yaml:"text"`
	Image     *string `json:"image" yaml:"image,omitempty"`
	ImageData string  `json:"image_data,omitempty" yaml:"image_data,omitempty"`
}

// Manifest 生成故事清单，插图以 data URI 内嵌。
func (st *Story) Manifest() Manifest {
	m := Manifest{
		Prompt:    st.Request.Prompt,
		Genre:     st.Request.Genre,
		Tone:      st.Request.Tone,
		Audience:  st.Request.Audience,
		NumScenes: st.Request.NumScenes,
		Scenes:    make([]ManifestScene, len(st.Scenes)),
	}
	for i, sc := range st.Scenes {
		ms := ManifestScene{Scene: sc.Number(), Text: sc.Text}
		if sc.Image != nil {
			uri := sc.Image.DataURI()
			ms.Image = &uri
		}
		m.Scenes[i] = ms
	}
	return m
}

// ToScenes 按位置重建场景（忽略清单里的编号）；无法解析的插图视为缺失。
func (m Manifest) ToScenes() []Scene {
	scenes := make([]Scene, len(m.Scenes))
	for i, ms := range m.Scenes {
		scenes[i] = Scene{Index: i, Text: ms.Text, Image: ms.resolveImage()}
	}
	return scenes
}

func (ms ManifestScene) resolveImage() *asset.Image {
	if ms.ImageData != "" {
		if img := asset.Resolve(asset.Result{Payload: &asset.Payload{Encoded: ms.ImageData}}); img != nil {
			return img
		}
	}
	if ms.Image != nil && *ms.Image != "" {
		return asset.Resolve(asset.Result{Payload: &asset.Payload{Encoded: *ms.Image}})
	}
	return nil
}

// WriteManifest 按格式（json 或 yaml）写出清单。
func WriteManifest(w io.Writer, m Manifest, format string) error {
	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("写入 YAML 清单失败: %w", err)
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	default:
		return fmt.Errorf("不支持的清单格式 %q", format)
	}
}

// ReadManifest 读取 json 或 yaml 清单。
func ReadManifest(r io.Reader, format string) (Manifest, error) {
	var m Manifest
	switch format {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&m); err != nil {
			return Manifest{}, fmt.Errorf("解析 YAML 清单失败: %w", err)
		}
	case "json", "":
		if err := json.NewDecoder(r).Decode(&m); err != nil {
			return Manifest{}, fmt.Errorf("解析 JSON 清单失败: %w", err)
		}
	default:
		return Manifest{}, fmt.Errorf("不支持的清单格式 %q", format)
	}
	return m, nil
}

// FormatFromPath 根据扩展名推断清单格式。
func FormatFromPath(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
