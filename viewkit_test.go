package viewkit

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-viewkit/pkg/assets"
	"github.com/goliatone/go-viewkit/pkg/testsupport"
)

func TestFallbackAssetsFSContainsPipelineEntries(t *testing.T) {
	fsys := FallbackAssetsFS()
	for _, name := range []string{"stylesheets/application.css", "javascripts/application.js"} {
		if _, err := fs.ReadFile(fsys, name); err != nil {
			t.Fatalf("expected %s to be readable: %v", name, err)
		}
	}
}

func TestInstallFallbackAssetsKeepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	custom := filepath.Join(dir, "stylesheets", "application.css")
	if err := os.MkdirAll(filepath.Dir(custom), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(custom, []byte("custom"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := InstallFallbackAssets(dir); err != nil {
		t.Fatalf("install: %v", err)
	}

	data, err := os.ReadFile(custom)
	if err != nil || string(data) != "custom" {
		t.Fatalf("expected existing file to be kept, got %q (%v)", data, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "javascripts", "application.js")); err != nil {
		t.Fatalf("expected js entry to be installed: %v", err)
	}
}

func TestBuiltinTemplatesExposeMaster(t *testing.T) {
	for _, name := range []string{"master.twig", "layouts/base.twig"} {
		if _, err := fs.Stat(BuiltinTemplates(), name); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
}

func TestRenderPage(t *testing.T) {
	views := fstest.MapFS{
		"hello.twig": &fstest.MapFile{Data: []byte(`<p>hello {{ who }}</p>`)},
	}
	bundler := &testsupport.Bundler{IDs: map[assets.Kind]string{
		assets.CSS: "app.css",
		assets.JS:  "app.js",
	}}
	settings := map[string]any{
		"assets_path": testsupport.TempAssets(t),
		"theme_path":  t.TempDir(),
	}

	out, err := RenderPage(context.Background(), settings, "default", []string{"hello"},
		map[string]any{"who": "world"}, WithBundler(bundler), WithViewFS(views))
	if err != nil {
		t.Fatalf("render page: %v", err)
	}
	if !strings.Contains(out, "<p>hello world</p>") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	_, err = RenderPage(context.Background(), map[string]any{"file_extension": ".txt"}, "default", nil, nil)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
