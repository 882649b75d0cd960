package story

import (
	"fmt"
	"strings"

	"github.com/ByLCY/storystudio/asset"
)

const sentenceDelimiter = ". "

// Scene 是故事中的一个场景；Image 为 nil 表示没有插图。
type Scene struct {
	Index int
	Text  string
	Image *asset.Image
}

// Number 返回从 1 开始的场景编号。
func (s Scene) Number() int { return s.Index + 1 }

// FillerText 返回第 i 个场景（0 起）的补位文本。
func FillerText(i int) string {
	return fmt.Sprintf("(Scene %d filler) Continue the story...", i+1)
}

// Segment 按 ". " 切分正文，严格按位置映射到 numScenes 个场景，不足的用补位文本。
func Segment(storyText string, numScenes int) []Scene {
	if numScenes <= 0 {
		return []Scene{}
	}
	parts := strings.Split(storyText, sentenceDelimiter)
	scenes := make([]Scene, numScenes)
	for i := range scenes {
		text := FillerText(i)
		if i < len(parts) {
			text = strings.TrimSpace(parts[i])
		}
		scenes[i] = Scene{Index: i, Text: text}
	}
	return scenes
}
