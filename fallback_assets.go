package viewkit

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed dist/template/assets/stylesheets/*.css dist/template/assets/javascripts/*.js
var embeddedFallbackAssets embed.FS

// FallbackAssetsFS exposes the default pipeline entries (application.css and
// application.js). They are bundled when no theme directory provides its own.
func FallbackAssetsFS() fs.FS {
	sub, err := fs.Sub(embeddedFallbackAssets, "dist/template/assets")
	if err != nil {
		return embeddedFallbackAssets
	}
	return sub
}

// InstallFallbackAssets copies the default pipeline entries into dir. Files
// that already exist are left untouched.
func InstallFallbackAssets(dir string) error {
	fsys := FallbackAssetsFS()
	return fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		target := filepath.Join(dir, filepath.FromSlash(name))
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if _, err := os.Stat(target); err == nil {
			return nil
		}
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("viewkit: read fallback asset %s: %w", name, err)
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return fmt.Errorf("viewkit: install fallback asset %s: %w", name, err)
		}
		return nil
	})
}
