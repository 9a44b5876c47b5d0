package composer

import (
	"embed"
	"io/fs"
)

//go:embed templates
var embeddedTemplates embed.FS

// BuiltinTemplates exposes the embedded master template and base layout. They
// are searched before theme directories in the main namespace.
func BuiltinTemplates() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return embeddedTemplates
	}
	return sub
}
