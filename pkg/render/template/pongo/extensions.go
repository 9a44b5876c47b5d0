package pongo

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Extension toggles a capability on an Environment.
type Extension interface {
	Name() string
	Apply(env *Environment, params map[string]any) error
}

// ExtensionFunc adapts a function into a named Extension.
type ExtensionFunc struct {
	ID string
	Fn func(env *Environment, params map[string]any) error
}

// Name implements Extension.
func (e ExtensionFunc) Name() string { return e.ID }

// Apply implements Extension.
func (e ExtensionFunc) Apply(env *Environment, params map[string]any) error {
	if e.Fn == nil {
		return nil
	}
	return e.Fn(env, params)
}

// Registry stores extensions by name.
type Registry struct {
	mu         sync.RWMutex
	extensions map[string]Extension
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{extensions: make(map[string]Extension)}
}

// DefaultRegistry returns a registry holding the built-in extensions: core,
// escaper, sandbox, profiler and optimizer.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(ExtensionFunc{ID: "core", Fn: applyCore})
	r.MustRegister(ExtensionFunc{ID: "escaper", Fn: applyEscaper})
	r.MustRegister(ExtensionFunc{ID: "sandbox", Fn: applySandbox})
	r.MustRegister(ExtensionFunc{ID: "profiler", Fn: applyProfiler})
	r.MustRegister(ExtensionFunc{ID: "optimizer", Fn: applyOptimizer})
	return r
}

// Register adds an extension by its Name(). Duplicate names return an error.
func (r *Registry) Register(ext Extension) error {
	if ext == nil {
		return fmt.Errorf("pongo: extension is required")
	}
	name := strings.TrimSpace(ext.Name())
	if name == "" {
		return fmt.Errorf("pongo: extension name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.extensions[name]; exists {
		return fmt.Errorf("pongo: extension %q already registered", name)
	}
	r.extensions[name] = ext
	return nil
}

// MustRegister panics on registration failure.
func (r *Registry) MustRegister(ext Extension) {
	if err := r.Register(ext); err != nil {
		panic(err)
	}
}

// Get retrieves an extension by name.
func (r *Registry) Get(name string) (Extension, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ext, ok := r.extensions[name]
	if !ok {
		return nil, fmt.Errorf("pongo: extension %q not found (available: %s)", name, strings.Join(r.listLocked(), ", "))
	}
	return ext, nil
}

// List returns the sorted extension names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked()
}

func (r *Registry) listLocked() []string {
	names := make([]string, 0, len(r.extensions))
	for name := range r.extensions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether an extension is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.extensions[name]
	return ok
}

// core carries the default filters, which are installed with every
// environment.
func applyCore(*Environment, map[string]any) error {
	registerDefaultFilters()
	return nil
}

// escaper sets the autoescape mode of env. params["autoescape"] defaults to
// true.
func applyEscaper(env *Environment, params map[string]any) error {
	enabled := true
	if v, ok := params["autoescape"].(bool); ok {
		enabled = v
	}
	env.setAutoescape(enabled)
	return nil
}

// DefaultBannedTags are banned by the sandbox extension when no explicit list
// is given. Both read arbitrary files from disk.
var DefaultBannedTags = []string{"ssi", "import"}

// sandbox bans tags and filters. It must run before the first template is
// loaded.
func applySandbox(env *Environment, params map[string]any) error {
	tags := stringList(params["tags"])
	if _, ok := params["tags"]; !ok {
		tags = DefaultBannedTags
	}
	for _, tag := range tags {
		if err := env.set.BanTag(tag); err != nil {
			return fmt.Errorf("pongo: sandbox ban tag %q: %w", tag, err)
		}
	}
	for _, filter := range stringList(params["filters"]) {
		if err := env.set.BanFilter(filter); err != nil {
			return fmt.Errorf("pongo: sandbox ban filter %q: %w", filter, err)
		}
	}
	return nil
}

// profiler logs how long each render takes.
func applyProfiler(env *Environment, _ map[string]any) error {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.profile = true
	return nil
}

// optimizer compiles each template once per environment.
func applyOptimizer(env *Environment, _ map[string]any) error {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.cache = true
	return nil
}

func stringList(raw any) []string {
	switch v := raw.(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
