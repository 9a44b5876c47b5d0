// Package template defines the engine-agnostic contracts the composer drives:
// a Factory builds an Environment over a loader, the Environment accepts
// functions, filters, globals, extensions and lexer settings, and loads
// Templates that render a parameter map into a string.
package template
