package config

import (
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// mergeable lists the keys merged key-wise with the defaults. Every other
// recognised key replaces the default value outright.
var mergeable = map[string]struct{}{
	KeyFunctions:          {},
	KeyEnvironmentOptions: {},
	KeyExtensions:         {},
	KeyPipelinePaths:      {},
}

// IsMergeable reports whether key (case-insensitive) names a mergeable setting.
func IsMergeable(key string) bool {
	_, ok := mergeable[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// Resolve applies overrides on top of defaults. Mergeable settings are merged
// key-wise with the override winning on conflicts; other recognised settings
// are replaced. Values that cannot be decoded into the typed field, and keys
// that are not recognised, are stored verbatim in Extra. Resolve never fails
// and never mutates its inputs.
func Resolve(defaults Settings, overrides map[string]any) Settings {
	out := defaults.Clone()
	if len(overrides) == 0 {
		return out
	}

	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := overrides[key]
		if !apply(&out, strings.ToLower(strings.TrimSpace(key)), value) {
			if out.Extra == nil {
				out.Extra = make(map[string]any)
			}
			out.Extra[key] = value
		}
	}
	return out
}

func apply(s *Settings, key string, value any) bool {
	switch key {
	case KeyFunctions:
		m, ok := toAnyMap(value)
		if !ok {
			return false
		}
		s.Functions = mergeAnyMaps(s.Functions, m)
	case KeyEnvironmentOptions:
		m, ok := toAnyMap(value)
		if !ok {
			return false
		}
		s.EnvironmentOptions = mergeAnyMaps(s.EnvironmentOptions, m)
	case KeyExtensions:
		m, ok := decode[map[string]string](value)
		if !ok {
			return false
		}
		if s.Extensions == nil {
			s.Extensions = make(map[string]string, len(m))
		}
		for k, v := range m {
			s.Extensions[k] = v
		}
	case KeyPipelinePaths:
		spec, ok := decode[PathSpec](value)
		if !ok {
			return false
		}
		if s.PipelinePaths == nil {
			s.PipelinePaths = make(PathSpec, len(spec))
		}
		for name, group := range spec {
			s.PipelinePaths[name] = group.Clone()
		}
	case KeyGlobalVars:
		m, ok := toAnyMap(value)
		if !ok {
			return false
		}
		s.GlobalVars = m
	case KeyThemePath:
		return assignString(&s.ThemePath, value)
	case KeyAssetsPath:
		return assignString(&s.AssetsPath, value)
	case KeyViewPath:
		return assignString(&s.ViewPath, value)
	case KeyBaseURL:
		return assignString(&s.BaseURL, value)
	case KeyFileExtension:
		return assignString(&s.FileExtension, value)
	case KeyTheme:
		return assignString(&s.Theme, value)
	case KeyTemplate:
		return assignString(&s.Template, value)
	case KeyAutoRegister:
		b, ok := decode[bool](value)
		if !ok {
			return false
		}
		s.AutoRegister = b
	default:
		return false
	}
	return true
}

func assignString(dst *string, value any) bool {
	v, ok := decode[string](value)
	if !ok {
		return false
	}
	*dst = v
	return true
}

func decode[T any](value any) (T, bool) {
	var out T
	if value == nil {
		return out, false
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return out, false
	}
	if err := decoder.Decode(value); err != nil {
		var zero T
		return zero, false
	}
	return out, true
}

func toAnyMap(value any) (map[string]any, bool) {
	if m, ok := value.(map[string]any); ok {
		return cloneAnyMap(m), true
	}
	return decode[map[string]any](value)
}

func mergeAnyMaps(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
