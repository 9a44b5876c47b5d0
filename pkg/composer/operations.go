package composer

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-viewkit/pkg/config"
	"github.com/goliatone/go-viewkit/pkg/loader"
	"github.com/goliatone/go-viewkit/pkg/render"
	"github.com/goliatone/go-viewkit/pkg/render/template"
	"github.com/goliatone/go-viewkit/pkg/render/template/pongo"
)

// AddFunction exposes fn to templates under name. A nil fn is looked up by
// name in the helper provider.
func (c *Composer) AddFunction(name string, fn any) *Composer {
	if c.err != nil {
		return c
	}
	const op = "composer.AddFunction"
	if err := c.requireEnvironment(op); err != nil {
		return c.fail(err)
	}
	return c.fail(c.addFunction(op, name, fn))
}

// AddFunctions registers every entry of functions, in name order.
func (c *Composer) AddFunctions(functions map[string]any) *Composer {
	if c.err != nil {
		return c
	}
	const op = "composer.AddFunctions"
	if err := c.requireEnvironment(op); err != nil {
		return c.fail(err)
	}
	for _, name := range sortedKeys(functions) {
		if err := c.addFunction(op, name, functions[name]); err != nil {
			return c.fail(err)
		}
	}
	return c
}

func (c *Composer) addFunction(op, name string, fn any) error {
	resolved, err := c.resolveFunction(name, fn)
	if err != nil {
		return render.ConfigurationError(op, err, "function %q", name)
	}
	if err := c.env.AddFunction(name, resolved); err != nil {
		return render.ConfigurationError(op, err, "register function %q", name)
	}
	return nil
}

// resolveFunction maps nil and string values to helpers: nil looks up name,
// a string looks up the helper it names.
func (c *Composer) resolveFunction(name string, fn any) (any, error) {
	lookup := ""
	switch v := fn.(type) {
	case nil:
		lookup = name
	case string:
		lookup = v
	default:
		return fn, nil
	}
	if c.helpers != nil {
		if helper, ok := c.helpers.Helpers()[lookup]; ok {
			return helper, nil
		}
	}
	return nil, fmt.Errorf("no helper named %q", lookup)
}

// AddFilter registers a template filter.
func (c *Composer) AddFilter(name string, fn template.FilterFunc) *Composer {
	if c.err != nil {
		return c
	}
	const op = "composer.AddFilter"
	if err := c.requireEnvironment(op); err != nil {
		return c.fail(err)
	}
	if err := c.env.AddFilter(name, fn); err != nil {
		return c.fail(render.ConfigurationError(op, err, "register filter %q", name))
	}
	return c
}

// AddExtension enables the extension known under shortname in the extensions
// setting.
func (c *Composer) AddExtension(shortname string, params map[string]any) *Composer {
	if c.err != nil {
		return c
	}
	const op = "composer.AddExtension"
	if err := c.requireEnvironment(op); err != nil {
		return c.fail(err)
	}
	id, ok := c.settings.Extensions[shortname]
	if !ok {
		valid := make([]string, 0, len(c.settings.Extensions))
		for name := range c.settings.Extensions {
			valid = append(valid, name)
		}
		sort.Strings(valid)
		return c.fail(render.ValidationError(op, nil, "unknown extension %q (valid: %s)", shortname, strings.Join(valid, ", ")))
	}
	if err := c.env.AddExtension(id, params); err != nil {
		return c.fail(render.ConfigurationError(op, err, "apply extension %q", shortname))
	}
	return c
}

// SetFileExtension changes the suffix appended to view, layout and master
// template names.
func (c *Composer) SetFileExtension(ext string) *Composer {
	if c.err != nil {
		return c
	}
	if err := config.ValidateFileExtension(ext); err != nil {
		return c.fail(err)
	}
	c.settings.FileExtension = ext
	return c
}

// SetLoader replaces the template loader. kind is "filesystem", "array" or
// anything else for a string loader. For filesystem loaders value names extra
// theme directories; array loaders take a map of sources.
func (c *Composer) SetLoader(kind string, value any) *Composer {
	if c.err != nil {
		return c
	}
	l, err := loader.New(kind, value, loader.Seed{
		Builtin:   c.builtinRoot(),
		ThemeRoot: c.settings.ThemePath,
		Active:    c.themes.Active(),
	})
	if err != nil {
		return c.fail(err)
	}
	c.loader = l
	c.logger.Debug("template loader set", zap.String("kind", string(l.Kind())), zap.String("theme", c.themes.Active()))
	return c
}

// SetEnvironment creates the template environment over the current loader.
// options are merged over the environment_options setting.
func (c *Composer) SetEnvironment(options map[string]any) *Composer {
	if c.err != nil {
		return c
	}
	const op = "composer.SetEnvironment"
	if c.loader == nil {
		return c.fail(render.ConfigurationError(op, nil, "template loader is not set"))
	}
	merged := make(map[string]any, len(c.settings.EnvironmentOptions)+len(options))
	for k, v := range c.settings.EnvironmentOptions {
		merged[k] = v
	}
	for k, v := range options {
		merged[k] = v
	}
	env, err := c.factory.NewEnvironment(c.loader, merged)
	if err != nil {
		return c.fail(render.ConfigurationError(op, err, "create environment"))
	}
	c.env = env
	return c
}

// SetTheme activates a theme and rebuilds the filesystem loader and the
// environment. Path derivation only happens when the theme changes; loader
// and environment are rebuilt on every call.
func (c *Composer) SetTheme(name string, options map[string]any) *Composer {
	if c.err != nil {
		return c
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return c.fail(render.ValidationError("composer.SetTheme", nil, "theme name is required"))
	}
	_, changed := c.themes.Select(name)
	c.settings.Theme = name
	c.logger.Debug("theme selected", zap.String("theme", name), zap.Bool("derived", changed))
	return c.SetLoader(string(loader.KindFilesystem), nil).SetEnvironment(options)
}

// SetLayout selects layouts/<name> as the master template with params as its
// parameters.
func (c *Composer) SetLayout(name string, params map[string]any) *Composer {
	if c.err != nil {
		return c
	}
	c.views.SetLayout(name, params)
	return c
}

// SetLexer changes the template delimiters. config accepts tag_comment,
// tag_block and tag_variable pairs.
func (c *Composer) SetLexer(config map[string]any) *Composer {
	if c.err != nil {
		return c
	}
	const op = "composer.SetLexer"
	if err := c.requireEnvironment(op); err != nil {
		return c.fail(err)
	}
	cfg, err := template.LexerFromMap(config)
	if err != nil {
		return c.fail(render.ValidationError(op, err, "invalid lexer"))
	}
	if err := c.env.SetLexer(cfg); err != nil {
		return c.fail(render.ConfigurationError(op, err, "apply lexer"))
	}
	return c
}

// AddView registers a view fragment. Names without "@" live in the VIEWPATH
// namespace.
func (c *Composer) AddView(name string, params map[string]any) *Composer {
	if c.err != nil {
		return c
	}
	c.views.AddView(name, c.settings.FileExtension, params)
	return c
}

// Views lists the registered view keys.
func (c *Composer) Views() []string {
	return c.views.Keys()
}

// ResetViews drops the registered views and layout. Render keeps them, so a
// failed render can be retried after SetTheme.
func (c *Composer) ResetViews() *Composer {
	c.views.Reset()
	return c
}

// AddPath registers dir for namespace on the filesystem loader. An empty
// namespace means the main namespace.
func (c *Composer) AddPath(dir, namespace string, prepend bool) *Composer {
	if c.err != nil {
		return c
	}
	fsl, ok := c.filesystem()
	if !ok {
		return c.fail(render.ConfigurationError("composer.AddPath", nil, "loader not ready for path mutation"))
	}
	root := loader.DirRoot(c.absolute(dir))
	if prepend {
		fsl.PrependPath(root, namespace)
	} else {
		fsl.AddPath(root, namespace)
	}
	return c
}

// PrependPath is AddPath with prepend set.
func (c *Composer) PrependPath(dir, namespace string) *Composer {
	return c.AddPath(dir, namespace, true)
}

// AddGlobal exposes value to every template under name.
func (c *Composer) AddGlobal(name string, value any) *Composer {
	if c.err != nil {
		return c
	}
	const op = "composer.AddGlobal"
	if !pongo.ValidName(strings.TrimSpace(name)) {
		return c.fail(render.ValidationError(op, nil, "global name %q must be a non-empty identifier", name))
	}
	if err := c.requireEnvironment(op); err != nil {
		return c.fail(err)
	}
	if err := c.env.AddGlobal(name, value); err != nil {
		return c.fail(render.ConfigurationError(op, err, "register global %q", name))
	}
	return c
}

// AddGlobals registers every entry of globals, in name order.
func (c *Composer) AddGlobals(globals map[string]any) *Composer {
	for _, name := range sortedKeys(globals) {
		c.AddGlobal(name, globals[name])
	}
	return c
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
