package theme

import (
	"strings"

	"github.com/goliatone/go-viewkit/pkg/config"
)

// Placeholder is replaced with the active theme name in pipeline path specs.
const Placeholder = "%theme%"

// Substitute returns a copy of spec where every occurrence of Placeholder in
// every directory and prefix value is replaced with name. The input is never
// modified.
func Substitute(spec config.PathSpec, name string) config.PathSpec {
	if spec == nil {
		return nil
	}
	out := make(config.PathSpec, len(spec))
	for group, paths := range spec {
		next := config.PathGroup{}
		if paths.Directories != nil {
			next.Directories = make([]string, len(paths.Directories))
			for i, dir := range paths.Directories {
				next.Directories[i] = strings.ReplaceAll(dir, Placeholder, name)
			}
		}
		if paths.Prefixes != nil {
			next.Prefixes = make(map[string]string, len(paths.Prefixes))
			for kind, prefix := range paths.Prefixes {
				next.Prefixes[kind] = strings.ReplaceAll(prefix, Placeholder, name)
			}
		}
		out[group] = next
	}
	return out
}

// HasPlaceholder reports whether any string in spec still carries Placeholder.
func HasPlaceholder(spec config.PathSpec) bool {
	for _, group := range spec {
		for _, dir := range group.Directories {
			if strings.Contains(dir, Placeholder) {
				return true
			}
		}
		for _, prefix := range group.Prefixes {
			if strings.Contains(prefix, Placeholder) {
				return true
			}
		}
	}
	return false
}
