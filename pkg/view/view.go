// Package view accumulates named view fragments and an optional layout, and
// composes them into the master template name plus its render parameters.
package view

import (
	"sort"
	"strings"
)

const (
	// DefaultNamespace prefixes view names that carry no namespace marker.
	DefaultNamespace = "@VIEWPATH"
	// NamespaceMarker flags a view name as already namespace qualified.
	NamespaceMarker = "@"
	// LayoutPrefix is prepended to every layout name.
	LayoutPrefix = "layouts/"
	// ViewsKey is the render parameter holding the composed views.
	ViewsKey = "views"
)

// Layout is the selected layout template and its parameters.
type Layout struct {
	Name   string
	Params map[string]any
}

// Composer collects views and the layout between renders. The zero value is
// ready to use.
type Composer struct {
	views  map[string]map[string]any
	layout *Layout
}

// New returns an empty Composer.
func New() *Composer {
	return &Composer{}
}

// Key returns the map key AddView files name under.
func Key(name, ext string) string {
	if strings.Contains(name, NamespaceMarker) {
		return name + ext
	}
	return DefaultNamespace + "/" + strings.TrimLeft(name, "/") + ext
}

// AddView registers name with params, replacing any previous entry under the
// same key. A nil params is stored as an empty map.
func (c *Composer) AddView(name, ext string, params map[string]any) string {
	if c.views == nil {
		c.views = make(map[string]map[string]any)
	}
	key := Key(name, ext)
	c.views[key] = cloneParams(params)
	return key
}

// SetLayout selects "layouts/<name>" as the master template, replacing any
// previous layout and its parameters.
func (c *Composer) SetLayout(name string, params map[string]any) {
	c.layout = &Layout{
		Name:   LayoutPrefix + strings.TrimLeft(name, "/"),
		Params: cloneParams(params),
	}
}

// Layout returns the selected layout, if any.
func (c *Composer) Layout() (Layout, bool) {
	if c.layout == nil {
		return Layout{}, false
	}
	return Layout{Name: c.layout.Name, Params: cloneParams(c.layout.Params)}, true
}

// Views returns a copy of the registered views.
func (c *Composer) Views() map[string]map[string]any {
	out := make(map[string]map[string]any, len(c.views))
	for key, params := range c.views {
		out[key] = cloneParams(params)
	}
	return out
}

// Keys lists the registered view keys in sorted order.
func (c *Composer) Keys() []string {
	keys := make([]string, 0, len(c.views))
	for key := range c.views {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Compose returns the master template file and its parameters. Without a
// layout the master is defaultTemplate+ext and the parameters only hold the
// views. With a layout the master is the layout file and its parameters are
// the layout parameters with the views injected (overwriting any "views"
// entry the caller set).
func (c *Composer) Compose(defaultTemplate, ext string) (string, map[string]any) {
	var views map[string]any
	if len(c.views) > 0 {
		views = make(map[string]any, len(c.views))
		for key, params := range c.views {
			views[key] = cloneParams(params)
		}
	} else {
		views = map[string]any{}
	}

	if c.layout == nil {
		return defaultTemplate + ext, map[string]any{ViewsKey: views}
	}
	params := cloneParams(c.layout.Params)
	params[ViewsKey] = views
	return c.layout.Name + ext, params
}

// Reset drops every view and the layout.
func (c *Composer) Reset() {
	c.views = nil
	c.layout = nil
}

func cloneParams(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
