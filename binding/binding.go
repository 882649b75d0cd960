// Package binding 负责把 ${path.to.value} 占位符替换为场景数据。
// 标题模板（"Scene ${scene.number}"）与插图提示词模板都通过这里展开。
package binding

import (
	"fmt"
	"regexp"
	"strings"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Vars 是按点号路径访问的嵌套变量表。
type Vars map[string]any

// SceneVars 构造单个场景可用的变量：scene.index（0 起）、scene.number（1 起）、scene.text。
func SceneVars(index int, text string) Vars {
	return Vars{
		"scene": map[string]any{
			"index":  index,
			"number": index + 1,
			"text":   text,
		},
	}
}

// With 返回追加了顶层变量的副本。
func (v Vars) With(key string, value any) Vars {
	out := make(Vars, len(v)+1)
	for k, val := range v {
		out[k] = val
	}
	out[key] = value
	return out
}

// Interpolate 将 text 中的占位符替换为 vars 中的值，未知路径保留原样。
func Interpolate(text string, vars Vars) string {
	if len(vars) == 0 || !strings.Contains(text, "${") {
		return text
	}
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		path := strings.TrimSpace(match[2 : len(match)-1])
		if val, ok := vars.Lookup(path); ok {
			return fmt.Sprint(val)
		}
		return match
	})
}

// Lookup 按点号路径取值。
func (v Vars) Lookup(path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var current any = map[string]any(v)
	for _, segment := range strings.Split(path, ".") {
		next, ok := descend(current, segment)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func descend(current any, key string) (any, bool) {
	switch c := current.(type) {
	case map[string]any:
		val, ok := c[key]
		return val, ok
	case Vars:
		val, ok := c[key]
		return val, ok
	case map[string]string:
		val, ok := c[key]
		return val, ok
	default:
		return nil, false
	}
}
