// Package asset 将图片生成结果统一为可渲染的图片资源。
//
// 上游可能返回二进制数据、base64 编码（含 data URI）或失败；
// Resolve 把这三种情况归一为 *Image 或 nil（表示“无图片”）。
package asset

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Payload 是图片生成服务返回的原始载荷，二者取其一。
type Payload struct {
	Data    []byte // 二进制图片
	Encoded string // base64 或 data:<mime>;base64,<...>
}

// Result 显式区分成功载荷与失败原因。
type Result struct {
	Payload *Payload
	Err     error
}

// Failed 报告该结果是否不可用。
func (r Result) Failed() bool {
	return r.Err != nil || r.Payload == nil
}

// Image 是经过校验、可以放进页面的图片。nil 表示缺失。
type Image struct {
	Data   []byte `json:"-"`
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Resolve 将一次图片生成结果归一为 *Image；任何失败都返回 nil。
func Resolve(res Result) *Image {
	if res.Failed() {
		return nil
	}
	data := res.Payload.Data
	if len(data) == 0 && res.Payload.Encoded != "" {
		decoded, err := DecodeBase64(res.Payload.Encoded)
		if err != nil {
			return nil
		}
		data = decoded
	}
	img, err := FromBytes(data)
	if err != nil {
		return nil
	}
	return img
}

// FromBytes 校验字节内容是可识别的图片格式。
func FromBytes(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("图片数据为空")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("无法识别的图片数据: %w", err)
	}
	return &Image{
		Data:   data,
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}

// DecodeBase64 解码普通 base64 或 data URI，依次尝试标准、无填充与 URL 字母表。
func DecodeBase64(encoded string) ([]byte, error) {
	s := strings.TrimSpace(encoded)
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 || !strings.Contains(s[:comma], ";base64") {
			return nil, fmt.Errorf("不支持的 data URI")
		}
		s = s[comma+1:]
	}
	if s == "" {
		return nil, fmt.Errorf("base64 内容为空")
	}
	var lastErr error
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		data, err := enc.DecodeString(s)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("base64 解码失败: %w", lastErr)
}

// Decode 完整解码像素数据；截断或损坏的图片在这里暴露。
func (img *Image) Decode() (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("图片缺失")
	}
	decoded, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("解码 %s 图片失败: %w", img.Format, err)
	}
	return decoded, nil
}

// MIME 返回图片的媒体类型。
func (img *Image) MIME() string {
	if img == nil {
		return ""
	}
	return "image/" + img.Format
}

// DataURI 返回可直接嵌入 JSON 响应的 data URI。
func (img *Image) DataURI() string {
	if img == nil {
		return ""
	}
	return "data:" + img.MIME() + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// Extension 返回落盘时使用的扩展名。
func (img *Image) Extension() string {
	if img == nil {
		return ""
	}
	if img.Format == "jpeg" {
		return ".jpg"
	}
	return "." + img.Format
}

// EncodePNG 将像素数据编码为 PNG 字节，便于测试和本地素材构造。
func EncodePNG(m image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
