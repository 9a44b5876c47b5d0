package composer

import (
	"strings"

	"go.uber.org/zap"
)

// LangParam is the render param that selects the page language. It is also
// exposed to templates as the lang global, which layouts/base.twig puts on
// the html element.
const LangParam = "lang"

// TransFunc is the template function registered when a Translator is set.
const TransFunc = "trans"

// Translator resolves a message key for a language.
type Translator interface {
	Translate(lang, key string, args ...any) (string, error)
}

// TranslatorFunc adapts a function into a Translator.
type TranslatorFunc func(lang, key string, args ...any) (string, error)

// Translate implements Translator.
func (f TranslatorFunc) Translate(lang, key string, args ...any) (string, error) {
	return f(lang, key, args...)
}

// pageLang picks the language of one render: the lang param when it is a
// non-empty string, the WithLang default otherwise.
func (c *Composer) pageLang(params map[string]any) string {
	if v, ok := params[LangParam].(string); ok {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return c.lang
}

// transHelper binds t to lang. Keys without a translation render as the key.
func transHelper(t Translator, lang string, logger *zap.Logger) func(string, ...any) string {
	return func(key string, args ...any) string {
		key = strings.TrimSpace(key)
		if key == "" {
			return ""
		}
		msg, err := t.Translate(lang, key, args...)
		if err != nil || msg == "" {
			logger.Debug("translation missing",
				zap.String("lang", lang),
				zap.String("key", key),
				zap.Error(err),
			)
			return key
		}
		return msg
	}
}
