package composer

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-viewkit/pkg/assets"
	"github.com/goliatone/go-viewkit/pkg/loader"
	"github.com/goliatone/go-viewkit/pkg/render"
	"github.com/goliatone/go-viewkit/pkg/theme"
)

// Render composes the page and returns it. Errors recorded by earlier
// configuration calls are returned before any work is done. Registered views
// and the layout are kept; see ResetViews.
func (c *Composer) Render(ctx context.Context, params map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := c.render(ctx, &buf, params); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderTo composes the page into w. Nothing is written unless the whole page
// rendered.
func (c *Composer) RenderTo(ctx context.Context, w io.Writer, params map[string]any) error {
	var buf bytes.Buffer
	if err := c.render(ctx, &buf, params); err != nil {
		return err
	}
	if _, err := buf.WriteTo(w); err != nil {
		return render.RenderError("composer.RenderTo", err, "write output")
	}
	return nil
}

func (c *Composer) render(ctx context.Context, out *bytes.Buffer, params map[string]any) error {
	const op = "composer.Render"
	if c.err != nil {
		return c.err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return render.RenderError(op, err, "render cancelled")
	}

	logger := c.logger.With(zap.String("render_id", uuid.NewString()))
	start := time.Now()
	c.instr.Mark(MarkRenderStart)

	if err := assets.Writable(c.settings.AssetsPath); err != nil {
		return render.PreconditionError(op, err, "assets directory %q is not writable", c.settings.AssetsPath)
	}
	if err := c.requireEnvironment(op); err != nil {
		return err
	}

	pipeline, err := assets.References(ctx, c.bundler, c.PipelinePaths(),
		c.pipelineVars, c.pipelineOptions, c.settings.CacheBase())
	if err != nil {
		if isRenderError(err) {
			return err
		}
		return render.RenderError(op, err, "build asset bundles")
	}

	lang := c.pageLang(params)
	if err := c.registerHelpers(op, lang, logger); err != nil {
		return err
	}
	if err := c.registerGlobals(op, lang, pipeline); err != nil {
		return err
	}

	fsl, ok := c.filesystem()
	if !ok {
		kind := "none"
		if c.loader != nil {
			kind = string(c.loader.Kind())
		}
		return render.UnsupportedLoaderError(op, "only filesystem-backed composition is supported (loader is %s)", kind)
	}
	root := c.viewRoot()
	if !fsl.HasPath(ViewNamespace, root.Name) {
		fsl.PrependPath(root, ViewNamespace)
	}

	master, data := c.views.Compose(c.settings.Template, c.settings.FileExtension)
	for k, v := range params {
		data[k] = v
	}

	if err := ctx.Err(); err != nil {
		return render.RenderError(op, err, "render cancelled")
	}
	tpl, err := c.env.LoadTemplate(master)
	if err != nil {
		return render.RenderError(op, err, "load master template %q", master)
	}
	body, err := tpl.Render(data)
	if err != nil {
		return render.RenderError(op, err, "render master template %q", master)
	}
	out.WriteString(body)

	c.instr.Mark(MarkRenderEnd)
	logger.Debug("page rendered",
		zap.String("template", master),
		zap.String("theme", c.themes.Active()),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func (c *Composer) registerHelpers(op, lang string, logger *zap.Logger) error {
	if c.helpers != nil {
		helpers := c.helpers.Helpers()
		for _, name := range sortedKeys(helpers) {
			if err := c.env.AddFunction(name, helpers[name]); err != nil {
				return render.ConfigurationError(op, err, "register helper %q", name)
			}
		}
	}
	for _, name := range sortedKeys(c.settings.Functions) {
		if err := c.addFunction(op, name, c.settings.Functions[name]); err != nil {
			return err
		}
	}
	if c.translator != nil {
		if err := c.env.AddFunction(TransFunc, transHelper(c.translator, lang, logger)); err != nil {
			return render.ConfigurationError(op, err, "register %s for %q", TransFunc, lang)
		}
	}
	return nil
}

func (c *Composer) registerGlobals(op, lang string, pipeline map[string]string) error {
	for _, name := range sortedKeys(c.settings.GlobalVars) {
		if err := c.env.AddGlobal(name, c.settings.GlobalVars[name]); err != nil {
			return render.ConfigurationError(op, err, "register global %q", name)
		}
	}

	if lang != "" {
		if err := c.env.AddGlobal(LangParam, lang); err != nil {
			return render.ConfigurationError(op, err, "register %s global", LangParam)
		}
	}

	refs := pipelineGlobal(c.settings.GlobalVars["pipeline"])
	for kind, ref := range pipeline {
		refs[kind] = ref
	}
	if err := c.env.AddGlobal("pipeline", refs); err != nil {
		return render.ConfigurationError(op, err, "register pipeline references")
	}

	selection, err := c.themes.Selection()
	if err != nil {
		return render.ConfigurationError(op, err, "resolve theme %q", c.themes.Active())
	}
	if err := c.env.AddGlobal("theme", theme.TemplateContext(c.themes.Active(), selection)); err != nil {
		return render.ConfigurationError(op, err, "register theme context")
	}
	return nil
}

// pipelineGlobal copies a user supplied pipeline global so the bundle
// references only replace its css and js entries.
func pipelineGlobal(existing any) map[string]any {
	out := make(map[string]any)
	switch v := existing.(type) {
	case map[string]any:
		for k, val := range v {
			out[k] = val
		}
	case map[string]string:
		for k, val := range v {
			out[k] = val
		}
	}
	return out
}

func (c *Composer) viewRoot() loader.Root {
	if c.viewFS != nil {
		return loader.Root{Name: "views", FS: c.viewFS}
	}
	return loader.DirRoot(c.absolute(c.settings.ViewPath))
}
