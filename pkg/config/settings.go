package config

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/goliatone/go-viewkit/pkg/render"
)

// Setting keys recognised by Resolve.
const (
	KeyThemePath          = "theme_path"
	KeyAssetsPath         = "assets_path"
	KeyViewPath           = "view_path"
	KeyBaseURL            = "base_url"
	KeyPipelinePaths      = "pipeline_paths"
	KeyExtensions         = "extensions"
	KeyFileExtension      = "file_extension"
	KeyEnvironmentOptions = "environment_options"
	KeyFunctions          = "functions"
	KeyGlobalVars         = "global_vars"
	KeyAutoRegister       = "auto_register"
	KeyTheme              = "theme"
	KeyTemplate           = "template"
)

// Pipeline group names and the cache directory key used by bundlers.
const (
	GroupTemplate = "template"
	GroupExternal = "external"
)

// PathGroup is one asset pipeline group: an ordered list of directories and a
// mapping from short asset kind (js, css, img, font) to a sub-directory.
type PathGroup struct {
	Directories []string          `mapstructure:"directories" yaml:"directories"`
	Prefixes    map[string]string `mapstructure:"prefixes" yaml:"prefixes"`
}

// PathSpec maps a group name to its PathGroup.
type PathSpec map[string]PathGroup

// Clone returns a deep copy of the spec.
func (p PathSpec) Clone() PathSpec {
	if p == nil {
		return nil
	}
	out := make(PathSpec, len(p))
	for name, group := range p {
		out[name] = group.Clone()
	}
	return out
}

// Clone returns a deep copy of the group.
func (g PathGroup) Clone() PathGroup {
	out := PathGroup{}
	if g.Directories != nil {
		out.Directories = append([]string(nil), g.Directories...)
	}
	if g.Prefixes != nil {
		out.Prefixes = make(map[string]string, len(g.Prefixes))
		for k, v := range g.Prefixes {
			out.Prefixes[k] = v
		}
	}
	return out
}

// Settings is the resolved configuration of a composer. Fields cover every
// recognised option; unrecognised keys are kept in Extra.
type Settings struct {
	ThemePath          string            `mapstructure:"theme_path"`
	AssetsPath         string            `mapstructure:"assets_path"`
	ViewPath           string            `mapstructure:"view_path"`
	BaseURL            string            `mapstructure:"base_url"`
	PipelinePaths      PathSpec          `mapstructure:"pipeline_paths"`
	Extensions         map[string]string `mapstructure:"extensions"`
	FileExtension      string            `mapstructure:"file_extension"`
	EnvironmentOptions map[string]any    `mapstructure:"environment_options"`
	Functions          map[string]any    `mapstructure:"functions"`
	GlobalVars         map[string]any    `mapstructure:"global_vars"`
	AutoRegister       bool              `mapstructure:"auto_register"`
	Theme              string            `mapstructure:"theme"`
	Template           string            `mapstructure:"template"`

	Extra map[string]any `mapstructure:"-"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		ViewPath:      "views",
		FileExtension: ".twig",
		Template:      "master",
		EnvironmentOptions: map[string]any{
			"charset":          "utf-8",
			"cache":            false,
			"auto_reload":      false,
			"strict_variables": false,
			"autoescape":       true,
		},
		Extensions: map[string]string{
			"core":      "core",
			"escaper":   "escaper",
			"sandbox":   "sandbox",
			"profiler":  "profiler",
			"optimizer": "optimizer",
		},
		PipelinePaths: PathSpec{
			GroupTemplate: {
				Directories: []string{"%theme%/assets/", "_shared/assets/"},
				Prefixes: map[string]string{
					"js":   "javascripts",
					"css":  "stylesheets",
					"img":  "images",
					"font": "fonts",
				},
			},
			GroupExternal: {
				Directories: []string{"vendor/bower/", "vendor/components/"},
			},
		},
		Functions:  map[string]any{},
		GlobalVars: map[string]any{},
	}
}

// Clone returns a deep copy of the settings. Map values are copied one level
// deep; nested values are shared.
func (s Settings) Clone() Settings {
	out := s
	out.PipelinePaths = s.PipelinePaths.Clone()
	out.Extensions = cloneStringMap(s.Extensions)
	out.EnvironmentOptions = cloneAnyMap(s.EnvironmentOptions)
	out.Functions = cloneAnyMap(s.Functions)
	out.GlobalVars = cloneAnyMap(s.GlobalVars)
	out.Extra = cloneAnyMap(s.Extra)
	return out
}

// Normalize fills the theme and assets roots relative to appRoot when they are
// empty and ensures both end with exactly one separator.
func (s Settings) Normalize(appRoot string) Settings {
	out := s.Clone()
	if strings.TrimSpace(out.ThemePath) == "" {
		out.ThemePath = filepath.Join(appRoot, "themes")
	}
	if strings.TrimSpace(out.AssetsPath) == "" {
		out.AssetsPath = filepath.Join(appRoot, "assets")
	}
	out.ThemePath = WithTrailingSlash(out.ThemePath)
	out.AssetsPath = WithTrailingSlash(out.AssetsPath)
	return out
}

// CacheBase returns the final path segment of the assets root.
func (s Settings) CacheBase() string {
	trimmed := strings.TrimRight(filepath.ToSlash(s.AssetsPath), "/")
	if trimmed == "" {
		return ""
	}
	return path.Base(trimmed)
}

// WithTrailingSlash trims any trailing separators and appends a single one.
func WithTrailingSlash(dir string) string {
	return strings.TrimRight(dir, `/\`) + "/"
}

var fileExtensionPattern = regexp.MustCompile(`(?i)^.*\.(twig|php|php\.twig|html|html\.twig)$`)

// ValidateFileExtension checks ext against the recognised template suffixes.
func ValidateFileExtension(ext string) error {
	if !fileExtensionPattern.MatchString(ext) {
		return render.ValidationError("config.ValidateFileExtension", nil, "extension %q is not valid", ext)
	}
	return nil
}

func cloneStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneAnyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
