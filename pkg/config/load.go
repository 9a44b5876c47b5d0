package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// DefaultEnvPrefix is the environment variable prefix read by Load.
const DefaultEnvPrefix = "VIEWKIT_"

// LoadOption customises Load.
type LoadOption func(*loadConfig)

type loadConfig struct {
	base      map[string]any
	file      string
	envPrefix string
	flags     *pflag.FlagSet
}

// WithBase seeds the lowest priority layer.
func WithBase(values map[string]any) LoadOption {
	return func(cfg *loadConfig) {
		cfg.base = values
	}
}

// WithFile reads a YAML settings file.
func WithFile(path string) LoadOption {
	return func(cfg *loadConfig) {
		cfg.file = strings.TrimSpace(path)
	}
}

// WithEnvPrefix overrides the environment prefix. An empty prefix disables the
// environment layer.
func WithEnvPrefix(prefix string) LoadOption {
	return func(cfg *loadConfig) {
		cfg.envPrefix = prefix
	}
}

// WithFlags layers explicitly changed flags on top. Flag names use kebab-case
// and map to snake_case keys (--assets-path -> assets_path).
func WithFlags(flags *pflag.FlagSet) LoadOption {
	return func(cfg *loadConfig) {
		cfg.flags = flags
	}
}

// Load collects overrides from the configured layers. Precedence (highest to
// lowest): flags > env vars > file > base. The result is meant to be passed
// to Resolve.
func Load(options ...LoadOption) (map[string]any, error) {
	cfg := &loadConfig{envPrefix: DefaultEnvPrefix}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}

	k := koanf.New(".")

	if len(cfg.base) > 0 {
		if err := k.Load(confmap.Provider(cfg.base, "."), nil); err != nil {
			return nil, fmt.Errorf("config: load base values: %w", err)
		}
	}

	if cfg.file != "" {
		if err := k.Load(file.Provider(cfg.file), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", cfg.file, err)
		}
	}

	if cfg.envPrefix != "" {
		prefix := cfg.envPrefix
		if err := k.Load(env.Provider(prefix, ".", func(s string) string {
			return strings.ToLower(strings.TrimPrefix(s, prefix))
		}), nil); err != nil {
			return nil, fmt.Errorf("config: load env vars: %w", err)
		}
	}

	if cfg.flags != nil {
		flags := cfg.flags
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("config: load flags: %w", err)
		}
	}

	return k.Raw(), nil
}
