// Package esbuild implements assets.Bundler on top of esbuild. A pipeline kind
// is built from an "application.<ext>" entry found under the first template
// directory that carries one, and written to the cache directory with a
// content hashed name.
package esbuild

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"go.uber.org/zap"

	"github.com/goliatone/go-viewkit/pkg/assets"
	"github.com/goliatone/go-viewkit/pkg/config"
)

// DefaultEntryName is the manifest basename looked up in every pipeline
// directory.
const DefaultEntryName = "application"

var entryExtensions = map[assets.Kind][]string{
	assets.CSS: {".css"},
	assets.JS:  {".js", ".mjs", ".ts", ".jsx", ".tsx"},
}

// Option configures a Bundler.
type Option func(*Bundler)

// WithLogger sets the logger used to report builds.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Bundler) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithEntryName overrides the manifest basename (default "application").
func WithEntryName(name string) Option {
	return func(b *Bundler) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			b.entry = trimmed
		}
	}
}

// WithBaseDir resolves relative external directories against dir.
func WithBaseDir(dir string) Option {
	return func(b *Bundler) {
		b.baseDir = strings.TrimSpace(dir)
	}
}

// Bundler builds css and js bundles into an output directory.
type Bundler struct {
	outDir  string
	entry   string
	baseDir string
	logger  *zap.Logger
}

var _ assets.Bundler = (*Bundler)(nil)

// New returns a Bundler writing into outDir.
func New(outDir string, opts ...Option) *Bundler {
	b := &Bundler{
		outDir: outDir,
		entry:  DefaultEntryName,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Bundle implements assets.Bundler. vars become esbuild defines (values are
// JSON encoded). Recognised options: "minify" and "sourcemap" (bools).
func (b *Bundler) Bundle(ctx context.Context, kind assets.Kind, spec config.PathSpec, vars, options map[string]any) (assets.BundleRef, error) {
	if err := ctx.Err(); err != nil {
		return assets.BundleRef{}, err
	}
	entry, searched := b.findEntry(kind, spec)
	if entry == "" {
		return assets.BundleRef{}, fmt.Errorf("esbuild: no %s entry %q found (looked into: %s)", kind, b.entry, strings.Join(searched, ", "))
	}

	defines, err := defineMap(vars)
	if err != nil {
		return assets.BundleRef{}, err
	}

	opts := api.BuildOptions{
		EntryPoints: []string{entry},
		Bundle:      true,
		Write:       false,
		Outdir:      b.outDir,
		EntryNames:  "[name].[hash]",
		NodePaths:   b.externalDirs(spec),
		Loader: map[string]api.Loader{
			".css":   api.LoaderCSS,
			".js":    api.LoaderJS,
			".mjs":   api.LoaderJS,
			".ts":    api.LoaderTS,
			".jsx":   api.LoaderJSX,
			".tsx":   api.LoaderTSX,
			".png":   api.LoaderFile,
			".jpg":   api.LoaderFile,
			".svg":   api.LoaderFile,
			".woff":  api.LoaderFile,
			".woff2": api.LoaderFile,
		},
		Platform: api.PlatformBrowser,
		Define:   defines,
		LogLevel: api.LogLevelSilent,
	}
	if flag(options, "minify") {
		opts.MinifyWhitespace = true
		opts.MinifyIdentifiers = true
		opts.MinifySyntax = true
	}
	if flag(options, "sourcemap") {
		opts.Sourcemap = api.SourceMapLinked
	}

	result := api.Build(opts)
	if len(result.Errors) > 0 {
		var msg strings.Builder
		for _, e := range result.Errors {
			if e.Location != nil {
				fmt.Fprintf(&msg, "%s:%d:%d: ", e.Location.File, e.Location.Line, e.Location.Column)
			}
			msg.WriteString(e.Text)
			msg.WriteString("\n")
		}
		return assets.BundleRef{}, fmt.Errorf("esbuild: build %s:\n%s", entry, msg.String())
	}

	var id string
	want := "." + string(kind)
	for _, file := range result.OutputFiles {
		if err := os.MkdirAll(filepath.Dir(file.Path), 0o755); err != nil {
			return assets.BundleRef{}, fmt.Errorf("esbuild: create output dir: %w", err)
		}
		if err := os.WriteFile(file.Path, file.Contents, 0o644); err != nil {
			return assets.BundleRef{}, fmt.Errorf("esbuild: write %s: %w", file.Path, err)
		}
		if id == "" && filepath.Ext(file.Path) == want {
			id = file.Path
		}
	}
	if id == "" {
		return assets.BundleRef{}, fmt.Errorf("esbuild: build %s produced no %s output", entry, want)
	}

	b.logger.Debug("asset bundle built",
		zap.String("kind", string(kind)),
		zap.String("entry", entry),
		zap.String("bundle", filepath.Base(id)),
	)
	return assets.BundleRef{ID: id}, nil
}

// findEntry walks the template directories in order and returns the first
// existing entry for kind, together with the directories that were searched.
func (b *Bundler) findEntry(kind assets.Kind, spec config.PathSpec) (string, []string) {
	group := spec[config.GroupTemplate]
	prefix := group.Prefixes[string(kind)]
	searched := make([]string, 0, len(group.Directories))
	for _, dir := range group.Directories {
		base := filepath.Join(dir, prefix)
		searched = append(searched, base)
		for _, ext := range entryExtensions[kind] {
			candidate := filepath.Join(base, b.entry+ext)
			info, err := os.Stat(candidate)
			if err == nil && !info.IsDir() {
				return candidate, searched
			}
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				b.logger.Warn("asset entry probe failed", zap.String("path", candidate), zap.Error(err))
			}
		}
	}
	return "", searched
}

func (b *Bundler) externalDirs(spec config.PathSpec) []string {
	dirs := spec[config.GroupExternal].Directories
	out := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		if !filepath.IsAbs(dir) && b.baseDir != "" {
			dir = filepath.Join(b.baseDir, dir)
		}
		out = append(out, dir)
	}
	return out
}

func defineMap(vars map[string]any) (map[string]string, error) {
	if len(vars) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(vars))
	for _, key := range keys {
		raw, err := json.Marshal(vars[key])
		if err != nil {
			return nil, fmt.Errorf("esbuild: encode define %q: %w", key, err)
		}
		out[key] = string(raw)
	}
	return out, nil
}

func flag(options map[string]any, key string) bool {
	v, ok := options[key].(bool)
	return ok && v
}
