// Package viewkit composes themed HTML pages from a master template, view
// fragments and bundled CSS/JS assets. It re-exports the composer so the quick
// start only needs this import.
package viewkit

import (
	"context"
	"io/fs"

	theme "github.com/goliatone/go-theme"
	"go.uber.org/zap"

	"github.com/goliatone/go-viewkit/pkg/assets"
	"github.com/goliatone/go-viewkit/pkg/composer"
	"github.com/goliatone/go-viewkit/pkg/config"
	"github.com/goliatone/go-viewkit/pkg/render"
	"github.com/goliatone/go-viewkit/pkg/render/template"
)

// Composer is the page builder handle.
type Composer = composer.Composer

// Option customises a Composer.
type Option = composer.Option

// Settings is the resolved configuration.
type Settings = config.Settings

// Error is the typed error returned by composer operations.
type Error = render.Error

// Error kinds, for use with errors.Is.
var (
	ErrConfiguration     = render.ErrConfiguration
	ErrPrecondition      = render.ErrPrecondition
	ErrUnsupportedLoader = render.ErrUnsupportedLoader
	ErrRender            = render.ErrRender
	ErrValidation        = render.ErrValidation
)

// New resolves settings over the defaults and returns a Composer.
func New(settings map[string]any, options ...Option) (*Composer, error) {
	return composer.New(settings, options...)
}

// RenderPage is the one-shot path: select theme, register views in order and
// render the default master template with params.
func RenderPage(ctx context.Context, settings map[string]any, themeName string, views []string, params map[string]any, options ...Option) (string, error) {
	c, err := composer.New(settings, options...)
	if err != nil {
		return "", err
	}
	c.SetTheme(themeName, nil)
	for _, view := range views {
		c.AddView(view, nil)
	}
	return c.Render(ctx, params)
}

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return composer.WithLogger(logger)
}

// WithAppRoot sets the directory relative paths are resolved against.
func WithAppRoot(dir string) Option {
	return composer.WithAppRoot(dir)
}

// WithBundler replaces the esbuild asset bundler.
func WithBundler(bundler assets.Bundler) Option {
	return composer.WithBundler(bundler)
}

// WithEngine replaces the pongo2 template engine.
func WithEngine(factory template.Factory) Option {
	return composer.WithEngine(factory)
}

// WithViewFS serves views from fsys instead of the view_path directory.
func WithViewFS(fsys fs.FS) Option {
	return composer.WithViewFS(fsys)
}

// WithThemeSelector passes a go-theme selector through to the composer so
// theme/variant choices are resolved ahead of rendering.
func WithThemeSelector(selector theme.ThemeSelector) Option {
	return composer.WithThemeSelector(selector)
}

// WithTranslator registers the trans template function.
func WithTranslator(t composer.Translator) Option {
	return composer.WithTranslator(t)
}

// WithLang sets the page language used when a render has no lang param.
func WithLang(lang string) Option {
	return composer.WithLang(lang)
}
