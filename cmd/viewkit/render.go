package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-viewkit"
)

type renderOptions struct {
	views  []string
	layout string
	params []string
	output string
}

func newRenderCmd(flags *globalFlags) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a page to stdout or a file",
		Example: `  # Render two views with the default theme settings
  viewkit render --theme default --view home --view footer

  # Render into a layout with a parameter
  viewkit render --theme default --layout admin --param title=Dashboard -o page.html`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd, flags, opts)
		},
	}

	addSettingFlags(cmd)
	cmd.Flags().StringSliceVar(&opts.views, "view", nil, "view to register (repeatable, in order)")
	cmd.Flags().StringVar(&opts.layout, "layout", "", "layout to render instead of the master template")
	cmd.Flags().StringArrayVar(&opts.params, "param", nil, "template parameter as key=value (repeatable)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	return cmd
}

func runRender(cmd *cobra.Command, flags *globalFlags, opts *renderOptions) error {
	settings, err := loadSettings(cmd, flags)
	if err != nil {
		return err
	}
	params, err := parseParams(opts.params)
	if err != nil {
		return err
	}
	logger, err := newLogger(flags)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	options, err := composerOptions(flags, logger)
	if err != nil {
		return err
	}
	c, err := viewkit.New(settings, options...)
	if err != nil {
		return err
	}

	prepare(c, "")
	if opts.layout != "" {
		c.SetLayout(opts.layout, params)
	}
	for _, view := range opts.views {
		c.AddView(view, nil)
	}

	if opts.output == "" {
		return c.RenderTo(cmd.Context(), cmd.OutOrStdout(), params)
	}
	page, err := c.Render(cmd.Context(), params)
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.output, []byte(page), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Page written to %s\n", opts.output)
	return nil
}

func parseParams(raw []string) (map[string]any, error) {
	params := make(map[string]any, len(raw))
	for _, item := range raw {
		key, value, ok := strings.Cut(item, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q, expected key=value", item)
		}
		params[key] = value
	}
	return params, nil
}
