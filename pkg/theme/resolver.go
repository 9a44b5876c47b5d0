package theme

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	gotheme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-viewkit/pkg/config"
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithFallbackDir sets the directory appended last to the template pipeline
// group. It is not theme-scoped.
func WithFallbackDir(dir string) Option {
	return func(r *Resolver) {
		r.fallback = strings.TrimSpace(dir)
	}
}

// WithSelector delegates theme/variant selection to a go-theme selector.
func WithSelector(selector gotheme.ThemeSelector) Option {
	return func(r *Resolver) {
		r.selector = selector
	}
}

// WithVariant sets the variant requested when selecting a theme.
func WithVariant(variant string) Option {
	return func(r *Resolver) {
		r.variant = strings.TrimSpace(variant)
	}
}

// WithManifestFS overrides where theme manifests are read from. Paths inside
// fsys are "<theme>/theme.yaml".
func WithManifestFS(fsys fs.FS) Option {
	return func(r *Resolver) {
		r.manifestFS = fsys
	}
}

type manifestRegistry interface {
	Register(manifest *gotheme.Manifest) error
}

// Resolver tracks the active theme and derives concrete pipeline paths from a
// path spec template. The template is never modified: each theme change
// derives a fresh spec from it.
type Resolver struct {
	root       string
	template   config.PathSpec
	fallback   string
	active     string
	paths      config.PathSpec
	variant    string
	selector   gotheme.ThemeSelector
	manifestFS fs.FS

	registry   manifestRegistry
	provider   gotheme.ThemeProvider
	manifests  map[string]*gotheme.Manifest
	registered map[string]bool
}

// NewResolver builds a resolver rooted at themeRoot for the given path spec
// template.
func NewResolver(themeRoot string, spec config.PathSpec, options ...Option) *Resolver {
	reg := gotheme.NewRegistry()
	r := &Resolver{
		root:       config.WithTrailingSlash(themeRoot),
		template:   spec.Clone(),
		registry:   reg,
		provider:   reg,
		manifests:  make(map[string]*gotheme.Manifest),
		registered: make(map[string]bool),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.manifestFS == nil {
		r.manifestFS = os.DirFS(r.root)
	}
	return r
}

// Select activates name. Paths are derived only when name differs from the
// active theme or when no theme is active yet; the boolean reports whether a
// new derivation happened.
func (r *Resolver) Select(name string) (config.PathSpec, bool) {
	name = strings.TrimSpace(name)
	if r.active != "" && r.active == name && r.paths != nil {
		return r.paths.Clone(), false
	}
	r.active = name
	r.paths = r.derive(name)
	return r.paths.Clone(), true
}

// Active returns the active theme name.
func (r *Resolver) Active() string {
	return r.active
}

// Root returns the theme root with a trailing separator.
func (r *Resolver) Root() string {
	return r.root
}

// Paths returns the derived path spec for the active theme, or nil when no
// theme has been selected.
func (r *Resolver) Paths() config.PathSpec {
	return r.paths.Clone()
}

// ThemeDir returns the absolute directory of a theme.
func (r *Resolver) ThemeDir(name string) string {
	return r.root + strings.Trim(name, `/\`)
}

// Provider exposes the manifests loaded so far as a go-theme provider.
func (r *Resolver) Provider() gotheme.ThemeProvider {
	return r.provider
}

func (r *Resolver) derive(name string) config.PathSpec {
	spec := Substitute(r.template, name)
	if spec == nil {
		spec = make(config.PathSpec)
	}
	group := spec[config.GroupTemplate]
	dirs := make([]string, 0, len(group.Directories)+1)
	for _, dir := range group.Directories {
		dirs = append(dirs, r.absolute(dir))
	}
	if r.fallback != "" {
		dirs = append(dirs, config.WithTrailingSlash(r.fallback))
	}
	group.Directories = dirs
	spec[config.GroupTemplate] = group
	return spec
}

func (r *Resolver) absolute(dir string) string {
	if filepath.IsAbs(dir) {
		return config.WithTrailingSlash(dir)
	}
	return config.WithTrailingSlash(r.root + strings.TrimRight(dir, `/\`))
}

// Unthemed returns the pipeline spec used while no theme is active: template
// directories that depend on a theme are dropped, the rest are made absolute
// and the fallback directory is appended.
func (r *Resolver) Unthemed() config.PathSpec {
	spec := r.template.Clone()
	if spec == nil {
		spec = make(config.PathSpec)
	}
	group := spec[config.GroupTemplate]
	dirs := make([]string, 0, len(group.Directories)+1)
	for _, dir := range group.Directories {
		if strings.Contains(dir, Placeholder) {
			continue
		}
		dirs = append(dirs, r.absolute(dir))
	}
	if r.fallback != "" {
		dirs = append(dirs, config.WithTrailingSlash(r.fallback))
	}
	group.Directories = dirs
	spec[config.GroupTemplate] = group
	return spec
}
