package catalog

import (
	"fmt"
	"strings"
)

// Registry 是 catalog 的只读注册表（按 name 索引）。
// 数量极小，用 map 保持简单即可。
type Registry struct {
	byName map[string]Catalog
	first  string
}

func NewRegistry(catalogs ...Catalog) (Registry, error) {
	byName := make(map[string]Catalog, len(catalogs))
	first := ""
	for _, c := range catalogs {
		if c == nil {
			return Registry{}, fmt.Errorf("catalog 不能为空")
		}
		name := strings.ToLower(strings.TrimSpace(c.Name()))
		if name == "" {
			return Registry{}, fmt.Errorf("catalog.Name 不能为空")
		}
		if _, ok := byName[name]; ok {
			return Registry{}, fmt.Errorf("重复的 catalog：%q", name)
		}
		if first == "" {
			first = name
		}
		byName[name] = c
	}
	return Registry{byName: byName, first: first}, nil
}

func (r Registry) Get(name string) (Catalog, bool) {
	if r.byName == nil {
		return nil, false
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = r.first
	}
	c, ok := r.byName[name]
	return c, ok
}

// Default 返回第一个注册的 catalog。
func (r Registry) Default() (Catalog, bool) {
	return r.Get("")
}
