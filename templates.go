package viewkit

import (
	"io/fs"

	"github.com/goliatone/go-viewkit/pkg/composer"
)

// BuiltinTemplates exposes the embedded master template and base layout so
// callers can inspect or extend them without importing the composer package.
func BuiltinTemplates() fs.FS {
	return composer.BuiltinTemplates()
}
