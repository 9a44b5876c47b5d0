package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/goliatone/go-viewkit"
	"github.com/goliatone/go-viewkit/pkg/composer"
	"github.com/goliatone/go-viewkit/pkg/config"
)

var settingFlagNames = []string{
	"theme", "theme-path", "assets-path", "view-path", "base-url", "template", "file-extension",
}

// globalFlags are not settings and stay out of the koanf layers.
type globalFlags struct {
	configFile string
	appRoot    string
	verbose    bool
	install    bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "viewkit",
		Short: "Compose themed pages from views, layouts and bundled assets",
		Long: `viewkit composes HTML pages out of a master template or layout, the
registered view fragments and the CSS/JS bundles built from the active theme.

Settings are read from --config (YAML), VIEWKIT_* environment variables and
the setting flags below, in increasing order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "YAML settings file")
	root.PersistentFlags().StringVar(&flags.appRoot, "app-root", ".", "directory relative paths are resolved against")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log composer activity")
	root.PersistentFlags().BoolVar(&flags.install, "install-fallback-assets", false, "copy the default application.css/js into the fallback assets directory")

	root.AddCommand(newRenderCmd(flags), newServeCmd(flags))
	return root
}

// addSettingFlags registers flags that map onto settings keys
// (--assets-path -> assets_path).
func addSettingFlags(cmd *cobra.Command) {
	cmd.Flags().String("theme", "", "theme to activate")
	cmd.Flags().String("theme-path", "", "directory holding theme directories")
	cmd.Flags().String("assets-path", "", "directory bundles are written to")
	cmd.Flags().String("view-path", "", "directory holding view fragments")
	cmd.Flags().String("base-url", "", "base URL used by the URL helpers")
	cmd.Flags().String("template", "", "default master template name")
	cmd.Flags().String("file-extension", "", "template file suffix")
}

// loadSettings layers the settings file, environment and changed setting
// flags.
func loadSettings(cmd *cobra.Command, flags *globalFlags) (map[string]any, error) {
	settingFlags := pflag.NewFlagSet("settings", pflag.ContinueOnError)
	for _, name := range settingFlagNames {
		if f := cmd.Flags().Lookup(name); f != nil {
			settingFlags.AddFlag(f)
		}
	}
	return config.Load(
		config.WithFile(flags.configFile),
		config.WithFlags(settingFlags),
	)
}

func newLogger(flags *globalFlags) (*zap.Logger, error) {
	if !flags.verbose {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}

func composerOptions(flags *globalFlags, logger *zap.Logger) ([]viewkit.Option, error) {
	if flags.install {
		if err := viewkit.InstallFallbackAssets(composer.DefaultFallbackDir(flags.appRoot)); err != nil {
			return nil, err
		}
	}
	return []viewkit.Option{
		viewkit.WithLogger(logger),
		viewkit.WithAppRoot(flags.appRoot),
	}, nil
}

// prepare builds the loader and environment, activating theme (or the
// configured theme when empty).
func prepare(c *viewkit.Composer, theme string) {
	if theme == "" {
		theme = c.Settings().Theme
	}
	if theme != "" {
		c.SetTheme(theme, nil)
		return
	}
	c.SetLoader("filesystem", nil).SetEnvironment(nil)
}
