package template

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-viewkit/pkg/loader"
)

// FilterFunc is the engine-neutral filter signature.
type FilterFunc func(input any, param any) (any, error)

// Factory creates environments bound to a loader.
type Factory interface {
	NewEnvironment(l loader.Loader, options map[string]any) (Environment, error)
}

// Environment is a configured engine instance.
type Environment interface {
	AddFunction(name string, fn any) error
	AddFilter(name string, fn FilterFunc) error
	AddGlobal(name string, value any) error
	AddExtension(name string, params map[string]any) error
	SetLexer(cfg LexerConfig) error
	LoadTemplate(name string) (Template, error)
}

// Template is a loaded template.
type Template interface {
	Name() string
	Render(params map[string]any) (string, error)
}

// Delimiters is an open/close pair.
type Delimiters [2]string

// Default delimiters.
var (
	DefaultComment  = Delimiters{"{#", "#}"}
	DefaultBlock    = Delimiters{"{%", "%}"}
	DefaultVariable = Delimiters{"{{", "}}"}
)

// LexerConfig overrides the tag delimiters used in template sources. Empty
// pairs keep the defaults.
type LexerConfig struct {
	Comment  Delimiters
	Block    Delimiters
	Variable Delimiters
}

// Normalized fills empty pairs with the defaults.
func (c LexerConfig) Normalized() LexerConfig {
	if c.Comment == (Delimiters{}) {
		c.Comment = DefaultComment
	}
	if c.Block == (Delimiters{}) {
		c.Block = DefaultBlock
	}
	if c.Variable == (Delimiters{}) {
		c.Variable = DefaultVariable
	}
	return c
}

// IsDefault reports whether c leaves every delimiter untouched.
func (c LexerConfig) IsDefault() bool {
	n := c.Normalized()
	return n.Comment == DefaultComment && n.Block == DefaultBlock && n.Variable == DefaultVariable
}

// LexerFromMap reads the tag_comment, tag_block and tag_variable keys. Each
// value must hold exactly two non-empty strings.
func LexerFromMap(in map[string]any) (LexerConfig, error) {
	var cfg LexerConfig
	for key, raw := range in {
		pair, err := delimiterPair(raw)
		if err != nil {
			return LexerConfig{}, fmt.Errorf("template: lexer %s: %w", key, err)
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "tag_comment":
			cfg.Comment = pair
		case "tag_block":
			cfg.Block = pair
		case "tag_variable":
			cfg.Variable = pair
		default:
			return LexerConfig{}, fmt.Errorf("template: unknown lexer option %q", key)
		}
	}
	return cfg.Normalized(), nil
}

func delimiterPair(raw any) (Delimiters, error) {
	var items []string
	switch v := raw.(type) {
	case []string:
		items = v
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return Delimiters{}, fmt.Errorf("delimiter must be a string, got %T", item)
			}
			items = append(items, s)
		}
	case Delimiters:
		items = v[:]
	default:
		return Delimiters{}, fmt.Errorf("expected a pair of delimiters, got %T", raw)
	}
	if len(items) != 2 || strings.TrimSpace(items[0]) == "" || strings.TrimSpace(items[1]) == "" {
		return Delimiters{}, fmt.Errorf("expected two non-empty delimiters, got %q", items)
	}
	return Delimiters{items[0], items[1]}, nil
}
