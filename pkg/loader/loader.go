package loader

import (
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/goliatone/go-viewkit/pkg/render"
)

// Kind names a loader implementation.
type Kind string

// Supported loader kinds.
const (
	KindFilesystem Kind = "filesystem"
	KindArray      Kind = "array"
	KindString     Kind = "string"
)

// MainNamespace is used for names that carry no "@namespace/" prefix.
const MainNamespace = "__main__"

// Loader resolves template names into sources. It satisfies the pongo2
// TemplateLoader contract so it can back a template set directly.
type Loader interface {
	Abs(base, name string) string
	Get(path string) (io.Reader, error)
	Kind() Kind
}

// ParseKind maps a kind string (case-insensitive) to a Kind. Unknown values
// fall back to KindString.
func ParseKind(kind string) Kind {
	switch Kind(strings.ToLower(strings.TrimSpace(kind))) {
	case KindFilesystem:
		return KindFilesystem
	case KindArray:
		return KindArray
	default:
		return KindString
	}
}

// Seed carries what a filesystem loader needs when built through New.
type Seed struct {
	Builtin   Root
	ThemeRoot string
	Active    string
}

// New builds a loader from a kind string. For filesystem loaders value lists
// extra theme names; for array loaders it must be a map of sources; string
// loaders ignore it.
func New(kind string, value any, seed Seed) (Loader, error) {
	switch ParseKind(kind) {
	case KindFilesystem:
		return InitFilesystem(seed.Builtin, seed.ThemeRoot, seed.Active, ThemeNames(value)), nil
	case KindArray:
		arr, err := NewArray(value)
		if err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return String{}, nil
	}
}

// NotFoundError reports a template missing from every searched root.
type NotFoundError struct {
	Name      string
	Namespace string
	Searched  []string
}

func (e *NotFoundError) Error() string {
	if len(e.Searched) == 0 {
		return fmt.Sprintf("loader: template %q not found: no paths registered for namespace %q", e.Name, e.Namespace)
	}
	return fmt.Sprintf("loader: template %q not found (looked into: %s)", e.Name, strings.Join(e.Searched, ", "))
}

// Unwrap lets callers match fs.ErrNotExist.
func (e *NotFoundError) Unwrap() error {
	return fs.ErrNotExist
}

// Array serves templates from an in-memory name to source map.
type Array struct {
	templates map[string]string
}

// NewArray builds an Array loader. value must be a map of template names to
// sources (map[string]string or map[string]any holding strings).
func NewArray(value any) (*Array, error) {
	templates := make(map[string]string)
	switch v := value.(type) {
	case map[string]string:
		for name, src := range v {
			templates[name] = src
		}
	case map[string]any:
		for name, raw := range v {
			src, ok := raw.(string)
			if !ok {
				return nil, render.ValidationError("loader.NewArray", nil, "template %q source must be a string, got %T", name, raw)
			}
			templates[name] = src
		}
	default:
		return nil, render.ValidationError("loader.NewArray", nil, "array loader needs a map of template sources, got %T", value)
	}
	return &Array{templates: templates}, nil
}

// Kind implements Loader.
func (a *Array) Kind() Kind { return KindArray }

// Abs implements Loader. Names are used verbatim.
func (a *Array) Abs(_, name string) string { return name }

// Get implements Loader.
func (a *Array) Get(path string) (io.Reader, error) {
	src, ok := a.templates[path]
	if !ok {
		return nil, &NotFoundError{Name: path, Namespace: MainNamespace, Searched: []string{"<array>"}}
	}
	return strings.NewReader(src), nil
}

// String treats the template name as the template source.
type String struct{}

// Kind implements Loader.
func (String) Kind() Kind { return KindString }

// Abs implements Loader.
func (String) Abs(_, name string) string { return name }

// Get implements Loader.
func (String) Get(path string) (io.Reader, error) { return strings.NewReader(path), nil }

// ThemeNames normalises the value passed along a filesystem loader request into
// a list of extra theme names.
func ThemeNames(value any) []string {
	var out []string
	add := func(name string) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	switch v := value.(type) {
	case string:
		add(v)
	case []string:
		for _, name := range v {
			add(name)
		}
	case []any:
		for _, raw := range v {
			if name, ok := raw.(string); ok {
				add(name)
			}
		}
	}
	return out
}
