package composer

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	gotheme "github.com/goliatone/go-theme"
	"go.uber.org/zap"

	"github.com/goliatone/go-viewkit/pkg/assets"
	"github.com/goliatone/go-viewkit/pkg/assets/esbuild"
	"github.com/goliatone/go-viewkit/pkg/config"
	"github.com/goliatone/go-viewkit/pkg/loader"
	"github.com/goliatone/go-viewkit/pkg/render"
	"github.com/goliatone/go-viewkit/pkg/render/template"
	"github.com/goliatone/go-viewkit/pkg/render/template/pongo"
	"github.com/goliatone/go-viewkit/pkg/theme"
	"github.com/goliatone/go-viewkit/pkg/view"
)

// ViewNamespace is the loader namespace framework views are registered under.
const ViewNamespace = "VIEWPATH"

// Option customises a Composer.
type Option func(*Composer)

// WithLogger sets the structured logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(c *Composer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithInstrumentation receives the render start and end marks.
func WithInstrumentation(sink Instrumentation) Option {
	return func(c *Composer) {
		c.instr = sink
	}
}

// WithHelpers replaces the helper functions registered on every render.
func WithHelpers(provider HelperProvider) Option {
	return func(c *Composer) {
		c.helpers = provider
	}
}

// WithTranslator registers the trans function on every render, bound to the
// language of that render.
func WithTranslator(t Translator) Option {
	return func(c *Composer) {
		c.translator = t
	}
}

// WithLang sets the language used when a render has no lang param.
func WithLang(lang string) Option {
	return func(c *Composer) {
		c.lang = strings.TrimSpace(lang)
	}
}

// WithBundler replaces the esbuild asset bundler.
func WithBundler(bundler assets.Bundler) Option {
	return func(c *Composer) {
		c.bundler = bundler
	}
}

// WithEngine replaces the pongo2 template factory.
func WithEngine(factory template.Factory) Option {
	return func(c *Composer) {
		c.factory = factory
	}
}

// WithThemeSelector delegates theme/variant resolution to a go-theme selector.
func WithThemeSelector(selector gotheme.ThemeSelector) Option {
	return func(c *Composer) {
		c.selector = selector
	}
}

// WithThemeVariant sets the variant requested from theme manifests.
func WithThemeVariant(variant string) Option {
	return func(c *Composer) {
		c.variant = strings.TrimSpace(variant)
	}
}

// WithAppRoot sets the directory relative paths are resolved against.
func WithAppRoot(dir string) Option {
	return func(c *Composer) {
		c.appRoot = strings.TrimSpace(dir)
	}
}

// WithBuiltinTemplates replaces the embedded built-in templates. The FS is
// searched first in the main namespace.
func WithBuiltinTemplates(fsys fs.FS) Option {
	return func(c *Composer) {
		c.builtin = fsys
	}
}

// WithViewFS serves framework views from fsys instead of the view_path
// directory.
func WithViewFS(fsys fs.FS) Option {
	return func(c *Composer) {
		c.viewFS = fsys
	}
}

// WithFallbackAssetsDir sets the asset directory searched after every theme
// directory. Defaults to <app root>/viewkit/dist/template/assets.
func WithFallbackAssetsDir(dir string) Option {
	return func(c *Composer) {
		c.fallback = strings.TrimSpace(dir)
	}
}

// WithPipelineOptions passes vars and options to the bundler on every render.
func WithPipelineOptions(vars, options map[string]any) Option {
	return func(c *Composer) {
		c.pipelineVars = vars
		c.pipelineOptions = options
	}
}

// Composer builds a page out of a master template, registered views and asset
// references. Configuration calls return the composer so they chain; the first
// failure is kept and reported by Err and Render. A Composer is not safe for
// concurrent use.
type Composer struct {
	settings config.Settings
	appRoot  string

	logger     *zap.Logger
	instr      Instrumentation
	helpers    HelperProvider
	translator Translator
	lang       string
	bundler    assets.Bundler
	factory    template.Factory
	selector   gotheme.ThemeSelector
	variant    string
	builtin    fs.FS
	viewFS     fs.FS
	fallback   string

	pipelineVars    map[string]any
	pipelineOptions map[string]any

	themes *theme.Resolver
	loader loader.Loader
	env    template.Environment
	views  *view.Composer

	err error
}

// New resolves settings over the defaults and prepares a Composer. The
// template loader and environment are created by SetTheme (or SetLoader and
// SetEnvironment).
func New(settings map[string]any, options ...Option) (*Composer, error) {
	c := &Composer{
		logger: zap.NewNop(),
		instr:  nopInstrumentation{},
		views:  view.New(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}

	resolved := config.Resolve(config.Defaults(), settings)
	if err := config.ValidateFileExtension(resolved.FileExtension); err != nil {
		return nil, err
	}
	c.settings = resolved.Normalize(c.appRoot)

	if c.fallback == "" {
		c.fallback = DefaultFallbackDir(c.appRoot)
	}
	if c.builtin == nil {
		c.builtin = BuiltinTemplates()
	}
	if c.helpers == nil {
		c.helpers = URLHelpers{BaseURL: c.settings.BaseURL, AssetsBase: c.settings.CacheBase()}
	}
	if c.factory == nil {
		c.factory = pongo.New(pongo.WithLogger(c.logger))
	}
	if c.bundler == nil {
		c.bundler = esbuild.New(c.settings.AssetsPath,
			esbuild.WithLogger(c.logger),
			esbuild.WithBaseDir(c.appRoot),
		)
	}

	themeOpts := []theme.Option{
		theme.WithFallbackDir(c.fallback),
		theme.WithVariant(c.variant),
	}
	if c.selector != nil {
		themeOpts = append(themeOpts, theme.WithSelector(c.selector))
	}
	c.themes = theme.NewResolver(c.settings.ThemePath, c.settings.PipelinePaths, themeOpts...)
	if name := strings.TrimSpace(c.settings.Theme); name != "" {
		c.themes.Select(name)
	}

	if len(c.settings.Extra) > 0 {
		keys := make([]string, 0, len(c.settings.Extra))
		for key := range c.settings.Extra {
			keys = append(keys, key)
		}
		c.logger.Debug("unrecognised settings kept", zap.Strings("keys", keys))
	}
	return c, nil
}

// DefaultFallbackDir is the asset directory searched after every theme
// directory when WithFallbackAssetsDir is not used.
func DefaultFallbackDir(appRoot string) string {
	return filepath.Join(appRoot, "viewkit", "dist", "template", "assets")
}

// Err returns the first error recorded by a configuration call.
func (c *Composer) Err() error {
	return c.err
}

// Settings returns a copy of the resolved settings.
func (c *Composer) Settings() config.Settings {
	return c.settings.Clone()
}

// Loader returns the active loader, or nil before one is set.
func (c *Composer) Loader() loader.Loader {
	return c.loader
}

// Environment returns the active template environment, or nil.
func (c *Composer) Environment() template.Environment {
	return c.env
}

// Theme returns the active theme name.
func (c *Composer) Theme() string {
	return c.themes.Active()
}

// PipelinePaths returns the pipeline spec handed to the bundler.
func (c *Composer) PipelinePaths() config.PathSpec {
	if paths := c.themes.Paths(); paths != nil {
		return paths
	}
	return c.themes.Unthemed()
}

// fail records err unless an earlier error is already recorded.
func (c *Composer) fail(err error) *Composer {
	if err == nil || c.err != nil {
		return c
	}
	c.err = err
	c.logger.Warn("composer call failed", zap.Error(err))
	return c
}

func (c *Composer) requireEnvironment(op string) error {
	if c.env == nil {
		return render.ConfigurationError(op, nil, "template environment is not set; call SetTheme or SetEnvironment first")
	}
	return nil
}

func (c *Composer) filesystem() (*loader.Filesystem, bool) {
	fsl, ok := c.loader.(*loader.Filesystem)
	return fsl, ok
}

func (c *Composer) absolute(dir string) string {
	if dir == "" || filepath.IsAbs(dir) || c.appRoot == "" {
		return dir
	}
	return filepath.Join(c.appRoot, dir)
}

func (c *Composer) builtinRoot() loader.Root {
	return loader.Root{Name: "builtin", FS: c.builtin}
}

func isRenderError(err error) bool {
	var re *render.Error
	return errors.As(err, &re)
}
