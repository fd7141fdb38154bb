package config

import "sort"

// Load 把配置节绑定到新的 T，section 为空时绑定整个配置
func Load[T any](cfg Configuration, section string) (T, error) {
	var t T
	err := cfg.Bind(section, &t)
	return t, err
}

// LoadOrDefault 配置节不存在时返回 def，存在时在 def 的基础上覆盖
func LoadOrDefault[T any](cfg Configuration, section string, def T) (T, error) {
	if !cfg.Has(section) {
		return def, nil
	}
	err := cfg.Bind(section, &def)
	return def, err
}

// SectionNames 返回配置节下所有子节的名称，按字母排序
func SectionNames(cfg Configuration, section string) []string {
	all := cfg.GetSection(section).GetAll()
	names := make([]string, 0, len(all))
	for name, v := range all {
		if _, ok := v.(map[string]any); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
