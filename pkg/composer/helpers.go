package composer

import (
	"strings"
)

// Instrumentation receives named marks around each render.
type Instrumentation interface {
	Mark(name string)
}

// InstrumentationFunc adapts a function into Instrumentation.
type InstrumentationFunc func(name string)

// Mark implements Instrumentation.
func (f InstrumentationFunc) Mark(name string) {
	if f != nil {
		f(name)
	}
}

type nopInstrumentation struct{}

func (nopInstrumentation) Mark(string) {}

// Render marks.
const (
	MarkRenderStart = "viewkit.render_start"
	MarkRenderEnd   = "viewkit.render_end"
)

// HelperProvider supplies the helper functions registered with every render.
type HelperProvider interface {
	Helpers() map[string]any
}

// URLHelpers provides base_url, site_url and asset_url.
type URLHelpers struct {
	BaseURL    string
	AssetsBase string
}

// Helpers implements HelperProvider.
func (h URLHelpers) Helpers() map[string]any {
	return map[string]any{
		"base_url":  h.baseURL,
		"site_url":  h.siteURL,
		"asset_url": h.assetURL,
	}
}

func (h URLHelpers) baseURL() string {
	return strings.TrimRight(h.BaseURL, "/") + "/"
}

func (h URLHelpers) siteURL(uri string) string {
	return h.baseURL() + strings.TrimLeft(uri, "/")
}

func (h URLHelpers) assetURL(file string) string {
	prefix := h.baseURL()
	if base := strings.Trim(h.AssetsBase, "/"); base != "" {
		prefix += base + "/"
	}
	return prefix + strings.TrimLeft(file, "/")
}
