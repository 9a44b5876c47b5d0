package esbuild_test

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/goliatone/go-viewkit/pkg/assets"
	"github.com/goliatone/go-viewkit/pkg/assets/esbuild"
	"github.com/goliatone/go-viewkit/pkg/config"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func pipelineSpec(dirs ...string) config.PathSpec {
	return config.PathSpec{
		config.GroupTemplate: {
			Directories: dirs,
			Prefixes:    map[string]string{"css": "stylesheets", "js": "javascripts"},
		},
	}
}

func TestBundler_BuildsHashedCSS(t *testing.T) {
	root := t.TempDir()
	theme := filepath.Join(root, "themes", "default", "assets")
	shared := filepath.Join(root, "themes", "_shared", "assets")
	writeFile(t, filepath.Join(shared, "stylesheets", "application.css"), "body { color: blue; }\n")
	out := filepath.Join(root, "cache")

	b := esbuild.New(out, esbuild.WithLogger(zaptest.NewLogger(t)))
	ref, err := b.Bundle(context.Background(), assets.CSS, pipelineSpec(theme, shared), nil, nil)
	if err != nil {
		t.Fatalf("bundle: %v", err)
	}

	name := filepath.Base(ref.ID)
	if !regexp.MustCompile(`^application\.[A-Za-z0-9]+\.css$`).MatchString(name) {
		t.Fatalf("unexpected bundle name %q", name)
	}
	data, err := os.ReadFile(ref.ID)
	if err != nil {
		t.Fatalf("bundle was not written: %v", err)
	}
	if !strings.Contains(string(data), "color: blue") {
		t.Fatalf("bundle content missing source rule:\n%s", data)
	}

	again, err := b.Bundle(context.Background(), assets.CSS, pipelineSpec(theme, shared), nil, nil)
	if err != nil {
		t.Fatalf("bundle again: %v", err)
	}
	if filepath.Base(again.ID) != name {
		t.Fatalf("unchanged sources should keep the bundle name: %q vs %q", name, filepath.Base(again.ID))
	}
}

func TestBundler_ThemeEntryWinsAndDefines(t *testing.T) {
	root := t.TempDir()
	theme := filepath.Join(root, "theme")
	shared := filepath.Join(root, "shared")
	writeFile(t, filepath.Join(theme, "javascripts", "application.js"), "console.log(__VERSION__);\n")
	writeFile(t, filepath.Join(shared, "javascripts", "application.js"), "console.log('shared');\n")

	b := esbuild.New(filepath.Join(root, "cache"))
	ref, err := b.Bundle(context.Background(), assets.JS, pipelineSpec(theme, shared), map[string]any{"__VERSION__": "1.2.3"}, map[string]any{"minify": true})
	if err != nil {
		t.Fatalf("bundle: %v", err)
	}
	data, err := os.ReadFile(ref.ID)
	if err != nil {
		t.Fatalf("read bundle: %v", err)
	}
	if !strings.Contains(string(data), `"1.2.3"`) {
		t.Fatalf("define not applied:\n%s", data)
	}
	if strings.Contains(string(data), "shared") {
		t.Fatalf("expected theme entry to win over shared entry:\n%s", data)
	}
}

func TestBundler_MissingEntry(t *testing.T) {
	root := t.TempDir()
	b := esbuild.New(filepath.Join(root, "cache"))

	_, err := b.Bundle(context.Background(), assets.CSS, pipelineSpec(filepath.Join(root, "nothing")), nil, nil)
	if err == nil {
		t.Fatalf("expected missing entry to fail")
	}
	if !strings.Contains(err.Error(), filepath.Join(root, "nothing", "stylesheets")) {
		t.Fatalf("error should list searched directories: %v", err)
	}
}

func TestBundler_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := esbuild.New(t.TempDir()).Bundle(ctx, assets.CSS, nil, nil, nil); err == nil {
		t.Fatalf("expected cancelled context to fail")
	}
}
