package asset

import (
	"fmt"
	"os"
	"path/filepath"
)

// Sink 把场景图片物化到外部存储，返回写入位置。
type Sink interface {
	Put(sceneNumber int, img *Image) (string, error)
}

// FileSink 将图片写入目录，文件名为 scene_{n}.{ext}。
// 同名文件会被覆盖，并发请求之间不做隔离。
type FileSink struct {
	Dir string
}

// NewFileSink 创建目录并返回 FileSink。
func NewFileSink(dir string) (*FileSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("图片输出目录不能为空")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建图片输出目录失败: %w", err)
	}
	return &FileSink{Dir: dir}, nil
}

// ScenePath 返回场景图片的落盘路径。
func (s *FileSink) ScenePath(sceneNumber int, img *Image) string {
	return filepath.Join(s.Dir, fmt.Sprintf("scene_%d%s", sceneNumber, img.Extension()))
}

// Put 实现 Sink。
func (s *FileSink) Put(sceneNumber int, img *Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("场景 %d 没有图片", sceneNumber)
	}
	path := s.ScenePath(sceneNumber, img)
	if err := os.WriteFile(path, img.Data, 0o644); err != nil {
		return "", fmt.Errorf("写入场景 %d 图片失败: %w", sceneNumber, err)
	}
	return path, nil
}
