package testsupport

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-viewkit/pkg/assets"
	"github.com/goliatone/go-viewkit/pkg/config"
	"github.com/goliatone/go-viewkit/pkg/loader"
	"github.com/goliatone/go-viewkit/pkg/render/template"
)

// BundleCall records one Bundle invocation.
type BundleCall struct {
	Kind    assets.Kind
	Spec    config.PathSpec
	Vars    map[string]any
	Options map[string]any
}

// Bundler is a recording assets.Bundler. IDs maps a kind to the identifier
// returned for it; kinds without an entry get "app.<kind>".
type Bundler struct {
	IDs map[assets.Kind]string
	Err error

	mu    sync.Mutex
	calls []BundleCall
}

var _ assets.Bundler = (*Bundler)(nil)

// Bundle implements assets.Bundler.
func (b *Bundler) Bundle(_ context.Context, kind assets.Kind, spec config.PathSpec, vars, options map[string]any) (assets.BundleRef, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, BundleCall{Kind: kind, Spec: spec.Clone(), Vars: vars, Options: options})
	if b.Err != nil {
		return assets.BundleRef{}, b.Err
	}
	if id, ok := b.IDs[kind]; ok {
		return assets.BundleRef{ID: id}, nil
	}
	return assets.BundleRef{ID: "app." + string(kind)}, nil
}

// Calls returns the recorded calls ordered by kind.
func (b *Bundler) Calls() []BundleCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := append([]BundleCall(nil), b.calls...)
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// Factory is a recording template.Factory. Every environment it creates is
// kept in Envs.
type Factory struct {
	// Err fails NewEnvironment.
	Err error
	// Output is what every template renders; "{name}" is replaced by the
	// template name.
	Output string

	Envs []*Environment
}

var _ template.Factory = (*Factory)(nil)

// NewEnvironment implements template.Factory.
func (f *Factory) NewEnvironment(l loader.Loader, options map[string]any) (template.Environment, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	env := &Environment{
		Loader:    l,
		Options:   options,
		Output:    f.Output,
		Functions: map[string]any{},
		Filters:   map[string]template.FilterFunc{},
		Globals:   map[string]any{},
	}
	f.Envs = append(f.Envs, env)
	return env, nil
}

// Last returns the most recent environment or nil.
func (f *Factory) Last() *Environment {
	if len(f.Envs) == 0 {
		return nil
	}
	return f.Envs[len(f.Envs)-1]
}

// Environment records registrations, loads and renders.
type Environment struct {
	Loader  loader.Loader
	Options map[string]any
	Output  string

	Functions  map[string]any
	Filters    map[string]template.FilterFunc
	Globals    map[string]any
	Extensions []string
	Lexer      *template.LexerConfig

	// ExtensionErr, LoadErr and RenderErr inject failures.
	ExtensionErr error
	LoadErr      error
	RenderErr    error

	Loads    []string
	Rendered []map[string]any
}

var _ template.Environment = (*Environment)(nil)

// AddFunction implements template.Environment.
func (e *Environment) AddFunction(name string, fn any) error {
	if name == "" || fn == nil {
		return fmt.Errorf("testsupport: invalid function %q", name)
	}
	e.Functions[name] = fn
	return nil
}

// AddFilter implements template.Environment.
func (e *Environment) AddFilter(name string, fn template.FilterFunc) error {
	if name == "" || fn == nil {
		return fmt.Errorf("testsupport: invalid filter %q", name)
	}
	e.Filters[name] = fn
	return nil
}

// AddGlobal implements template.Environment.
func (e *Environment) AddGlobal(name string, value any) error {
	if name == "" {
		return fmt.Errorf("testsupport: global name required")
	}
	e.Globals[name] = value
	return nil
}

// AddExtension implements template.Environment.
func (e *Environment) AddExtension(name string, _ map[string]any) error {
	if e.ExtensionErr != nil {
		return e.ExtensionErr
	}
	e.Extensions = append(e.Extensions, name)
	return nil
}

// SetLexer implements template.Environment.
func (e *Environment) SetLexer(cfg template.LexerConfig) error {
	e.Lexer = &cfg
	return nil
}

// LoadTemplate implements template.Environment.
func (e *Environment) LoadTemplate(name string) (template.Template, error) {
	e.Loads = append(e.Loads, name)
	if e.LoadErr != nil {
		return nil, e.LoadErr
	}
	return &Template{name: name, env: e}, nil
}

// Template renders Environment.Output.
type Template struct {
	name string
	env  *Environment
}

// Name implements template.Template.
func (t *Template) Name() string { return t.name }

// Render implements template.Template.
func (t *Template) Render(params map[string]any) (string, error) {
	t.env.Rendered = append(t.env.Rendered, params)
	if t.env.RenderErr != nil {
		return "", t.env.RenderErr
	}
	return strings.ReplaceAll(t.env.Output, "{name}", t.name), nil
}
