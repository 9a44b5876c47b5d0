// Package pongo adapts pongo2 to the template contracts. Template names are
// resolved through a viewkit loader, so namespaced names ("@ns/file.twig")
// work in includes and extends as well as at the top level.
package pongo

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/go-viper/mapstructure/v2"
	"go.uber.org/zap"

	"github.com/goliatone/go-viewkit/pkg/loader"
	"github.com/goliatone/go-viewkit/pkg/render/template"
)

// Option configures the Factory.
type Option func(*Factory)

// WithLogger sets the logger handed to every environment.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithRegistry replaces the extension registry.
func WithRegistry(registry *Registry) Option {
	return func(f *Factory) {
		if registry != nil {
			f.registry = registry
		}
	}
}

// Factory builds pongo2 environments.
type Factory struct {
	logger   *zap.Logger
	registry *Registry
}

var _ template.Factory = (*Factory)(nil)

// New constructs a Factory.
func New(options ...Option) *Factory {
	f := &Factory{
		logger:   zap.NewNop(),
		registry: DefaultRegistry(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(f)
	}
	registerDefaultFilters()
	return f
}

// Registry exposes the extension registry.
func (f *Factory) Registry() *Registry {
	return f.registry
}

// EnvironmentOptions are the recognised environment settings. Unknown keys are
// ignored. pongo2 renders undefined variables as empty values, so
// StrictVariables is accepted but has no effect.
type EnvironmentOptions struct {
	Charset         string `mapstructure:"charset"`
	Debug           bool   `mapstructure:"debug"`
	Cache           bool   `mapstructure:"cache"`
	AutoReload      bool   `mapstructure:"auto_reload"`
	StrictVariables bool   `mapstructure:"strict_variables"`
	Autoescape      *bool  `mapstructure:"autoescape"`
	TrimBlocks      bool   `mapstructure:"trim_blocks"`
	LStripBlocks    bool   `mapstructure:"lstrip_blocks"`
}

// DecodeOptions decodes raw environment options.
func DecodeOptions(raw map[string]any) (EnvironmentOptions, error) {
	var opts EnvironmentOptions
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return EnvironmentOptions{}, fmt.Errorf("pongo: options decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return EnvironmentOptions{}, fmt.Errorf("pongo: decode environment options: %w", err)
	}
	return opts, nil
}

// NewEnvironment implements template.Factory.
func (f *Factory) NewEnvironment(l loader.Loader, options map[string]any) (template.Environment, error) {
	if l == nil {
		return nil, errors.New("pongo: loader is required")
	}
	opts, err := DecodeOptions(options)
	if err != nil {
		return nil, err
	}

	env := &Environment{
		loader:     l,
		logger:     f.logger,
		registry:   f.registry,
		templates:  make(map[string]*pongo2.Template),
		cache:      opts.Cache && !opts.AutoReload,
		enabled:    make(map[string]bool),
		autoescape: true,
	}
	env.set = pongo2.NewSet("viewkit", &sourceLoader{env: env, inner: l})
	env.set.Debug = opts.Debug
	if env.set.Options != nil {
		env.set.Options.TrimBlocks = opts.TrimBlocks
		env.set.Options.LStripBlocks = opts.LStripBlocks
	}
	if env.set.Globals == nil {
		env.set.Globals = make(pongo2.Context)
	}
	if opts.Autoescape != nil {
		env.setAutoescape(*opts.Autoescape)
	}
	return env, nil
}

// Environment is a pongo2 template set bound to one loader.
//
// pongo2 keeps autoescape in a process-wide variable that every execution
// reads. Environments never write it: turning escaping off wraps each
// template source in an autoescape block instead, so environments with
// different settings can render concurrently.
type Environment struct {
	mu sync.RWMutex

	set        *pongo2.TemplateSet
	loader     loader.Loader
	logger     *zap.Logger
	registry   *Registry
	templates  map[string]*pongo2.Template
	enabled    map[string]bool
	lexer      *strings.Replacer
	cache      bool
	profile    bool
	autoescape bool
}

var _ template.Environment = (*Environment)(nil)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidName reports whether name can be used as a function or global name.
func ValidName(name string) bool {
	return identifier.MatchString(name)
}

func isCallable(v any) bool {
	return v != nil && reflect.TypeOf(v).Kind() == reflect.Func
}

// AddFunction exposes fn to templates as a callable global.
func (e *Environment) AddFunction(name string, fn any) error {
	name = strings.TrimSpace(name)
	if !ValidName(name) {
		return fmt.Errorf("pongo: invalid function name %q", name)
	}
	if !isCallable(fn) {
		return fmt.Errorf("pongo: function %q is not callable (got %T)", name, fn)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.set.Globals[name] = fn
	return nil
}

// AddFilter registers fn as a pongo2 filter. Filters are process-wide in
// pongo2; filters added here may be replaced by a later call with the same
// name, pongo2 built-ins may not.
func (e *Environment) AddFilter(name string, fn template.FilterFunc) error {
	name = strings.TrimSpace(name)
	if name == "" || fn == nil {
		return errors.New("pongo: filter name and function required")
	}
	return registerFilter(name, func(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		var paramVal any
		if param != nil {
			paramVal = param.Interface()
		}
		result, err := fn(in.Interface(), paramVal)
		if err != nil {
			return nil, &pongo2.Error{Sender: "filter:" + name, OrigError: err}
		}
		return pongo2.AsValue(result), nil
	})
}

// AddGlobal seeds a global value.
func (e *Environment) AddGlobal(name string, value any) error {
	name = strings.TrimSpace(name)
	if !ValidName(name) {
		return fmt.Errorf("pongo: invalid global name %q", name)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.set.Globals[name] = value
	return nil
}

// Globals returns a copy of the registered globals.
func (e *Environment) Globals() map[string]any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]any, len(e.set.Globals))
	for k, v := range e.set.Globals {
		out[k] = v
	}
	return out
}

// AddExtension applies the registered extension name with params.
func (e *Environment) AddExtension(name string, params map[string]any) error {
	ext, err := e.registry.Get(strings.TrimSpace(name))
	if err != nil {
		return err
	}
	if err := ext.Apply(e, params); err != nil {
		return err
	}
	e.mu.Lock()
	e.enabled[ext.Name()] = true
	e.mu.Unlock()
	return nil
}

// Enabled reports whether extension name was applied.
func (e *Environment) Enabled(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.enabled[name]
}

// SetLexer rewrites custom delimiters in every template source to the pongo2
// defaults before parsing. Templates compiled earlier are dropped.
func (e *Environment) SetLexer(cfg template.LexerConfig) error {
	cfg = cfg.Normalized()
	var pairs []string
	for _, p := range []struct{ custom, def template.Delimiters }{
		{cfg.Comment, template.DefaultComment},
		{cfg.Block, template.DefaultBlock},
		{cfg.Variable, template.DefaultVariable},
	} {
		if p.custom == p.def {
			continue
		}
		pairs = append(pairs, p.custom[0], p.def[0], p.custom[1], p.def[1])
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(pairs) == 0 {
		e.lexer = nil
	} else {
		e.lexer = strings.NewReplacer(pairs...)
	}
	e.templates = make(map[string]*pongo2.Template)
	e.set.CleanCache()
	return nil
}

// LoadTemplate implements template.Environment.
func (e *Environment) LoadTemplate(name string) (template.Template, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("pongo: template name is required")
	}

	e.mu.RLock()
	cached, ok := e.templates[name]
	cache := e.cache && !e.set.Debug
	e.mu.RUnlock()
	if ok && cache {
		return &Template{name: name, tpl: cached, env: e}, nil
	}

	if f, ok := e.loader.(interface {
		Find(string) (loader.Root, string, error)
	}); ok {
		if _, _, err := f.Find(name); err != nil {
			return nil, fmt.Errorf("pongo: load template %q: %w", name, err)
		}
	}

	tpl, err := e.set.FromFile(name)
	if err != nil {
		return nil, fmt.Errorf("pongo: load template %q: %w", name, err)
	}
	if cache {
		e.mu.Lock()
		e.templates[name] = tpl
		e.mu.Unlock()
	}
	return &Template{name: name, tpl: tpl, env: e}, nil
}

// Autoescape reports whether output of this environment is escaped.
func (e *Environment) Autoescape() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.autoescape
}

func (e *Environment) setAutoescape(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.autoescape == enabled {
		return
	}
	e.autoescape = enabled
	e.templates = make(map[string]*pongo2.Template)
	e.set.CleanCache()
}

func (e *Environment) sourceRules() (*strings.Replacer, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lexer, e.autoescape
}

// Template wraps a compiled pongo2 template.
type Template struct {
	name string
	tpl  *pongo2.Template
	env  *Environment
}

var _ template.Template = (*Template)(nil)

// Name returns the template name it was loaded under.
func (t *Template) Name() string {
	return t.name
}

// Render executes the template with params merged over the environment
// globals.
func (t *Template) Render(params map[string]any) (string, error) {
	ctx := make(pongo2.Context, len(params))
	for key, value := range params {
		if key = strings.TrimSpace(key); key != "" {
			ctx[key] = value
		}
	}

	t.env.mu.RLock()
	profile := t.env.profile
	t.env.mu.RUnlock()

	start := time.Now()
	var buf bytes.Buffer
	err := t.tpl.ExecuteWriter(ctx, &buf)
	if profile {
		t.env.logger.Info("template rendered",
			zap.String("template", t.name),
			zap.Duration("duration", time.Since(start)),
			zap.Bool("ok", err == nil),
		)
	}
	if err != nil {
		return "", fmt.Errorf("pongo: execute template %q: %w", t.name, err)
	}
	return buf.String(), nil
}

// sourceLoader feeds pongo2 through the viewkit loader and applies the lexer
// rewrite.
type sourceLoader struct {
	env   *Environment
	inner loader.Loader
}

func (s *sourceLoader) Abs(base, name string) string {
	return s.inner.Abs(base, name)
}

// extendsTag matches a template that inherits from a parent. Such templates
// are not wrapped: extends must stay at the top level, and their blocks run
// inside the parent, which is wrapped itself.
var extendsTag = regexp.MustCompile(`\{%-?\s*extends\s`)

func (s *sourceLoader) Get(path string) (io.Reader, error) {
	r, err := s.inner.Get(path)
	if err != nil {
		return nil, err
	}
	rep, escape := s.env.sourceRules()
	if rep == nil && escape {
		return r, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	src := string(data)
	if rep != nil {
		src = rep.Replace(src)
	}
	if !escape && !extendsTag.MatchString(src) {
		src = "{% autoescape off %}" + src + "{% endautoescape %}"
	}
	return strings.NewReader(src), nil
}
