package layout

import "strings"

// WrapLines 以贪心方式把单词装入不超过 maxWidth 的行。
// 单个超宽单词独占一行，不做拆分；空文本返回零行。
func WrapLines(content string, maxWidth float64, measure MeasureFunc) []TextLine {
	words := strings.Fields(content)
	if len(words) == 0 {
		return nil
	}

	var lines []TextLine
	current := words[0]
	width := measure(current)
	for _, word := range words[1:] {
		candidate := current + " " + word
		w := measure(candidate)
		if w > maxWidth {
			lines = append(lines, TextLine{Content: current, Width: width})
			current = word
			width = measure(word)
			continue
		}
		current, width = candidate, w
	}
	return append(lines, TextLine{Content: current, Width: width})
}
