package assets_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/goliatone/go-viewkit/pkg/assets"
	"github.com/goliatone/go-viewkit/pkg/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fixedBundler(ids map[assets.Kind]string) assets.Bundler {
	return assets.BundlerFunc(func(_ context.Context, kind assets.Kind, _ config.PathSpec, _, _ map[string]any) (assets.BundleRef, error) {
		return assets.BundleRef{ID: ids[kind]}, nil
	})
}

func TestReference_Deterministic(t *testing.T) {
	bundler := fixedBundler(map[assets.Kind]string{assets.CSS: "app.1234.css"})
	spec := config.Defaults().PipelinePaths

	first, err := assets.Reference(context.Background(), bundler, assets.CSS, spec, map[string]any{}, map[string]any{}, "assets")
	if err != nil {
		t.Fatalf("reference: %v", err)
	}
	second, err := assets.Reference(context.Background(), bundler, assets.CSS, spec, map[string]any{}, map[string]any{}, "assets")
	if err != nil {
		t.Fatalf("reference: %v", err)
	}
	if first != "/assets/app.1234.css" || second != first {
		t.Fatalf("expected /assets/app.1234.css twice, got %q and %q", first, second)
	}
}

func TestCacheRef_UsesBasename(t *testing.T) {
	cases := map[string]string{
		"app.1234.css":                 "/assets/app.1234.css",
		"/var/www/assets/app.9f.js":    "/assets/app.9f.js",
		"nested/dir/application.AB.js": "/assets/application.AB.js",
	}
	for id, want := range cases {
		if got := assets.CacheRef("assets", id); got != want {
			t.Fatalf("CacheRef(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestReferences_BuildsEveryPipeline(t *testing.T) {
	var mu sync.Mutex
	var kinds []assets.Kind
	bundler := assets.BundlerFunc(func(_ context.Context, kind assets.Kind, _ config.PathSpec, _, _ map[string]any) (assets.BundleRef, error) {
		mu.Lock()
		kinds = append(kinds, kind)
		mu.Unlock()
		return assets.BundleRef{ID: "/cache/application.X." + string(kind)}, nil
	})

	refs, err := assets.References(context.Background(), bundler, nil, nil, nil, "static")
	if err != nil {
		t.Fatalf("references: %v", err)
	}
	want := map[string]string{
		"css": "/static/application.X.css",
		"js":  "/static/application.X.js",
	}
	if diff := cmp.Diff(want, refs); diff != "" {
		t.Fatalf("references mismatch (-want +got):\n%s", diff)
	}
	if len(kinds) != 2 {
		t.Fatalf("expected one bundle per pipeline, got %v", kinds)
	}
}

func TestReferences_PropagatesBundlerError(t *testing.T) {
	boom := errors.New("boom")
	bundler := assets.BundlerFunc(func(_ context.Context, kind assets.Kind, _ config.PathSpec, _, _ map[string]any) (assets.BundleRef, error) {
		if kind == assets.JS {
			return assets.BundleRef{}, boom
		}
		return assets.BundleRef{ID: "a.css"}, nil
	})

	if _, err := assets.References(context.Background(), bundler, nil, nil, nil, "assets"); !errors.Is(err, boom) {
		t.Fatalf("expected bundler error, got %v", err)
	}
}

func TestReference_Rejects(t *testing.T) {
	ctx := context.Background()
	if _, err := assets.Reference(ctx, nil, assets.CSS, nil, nil, nil, "assets"); err == nil {
		t.Fatalf("expected nil bundler to fail")
	}
	if _, err := assets.Reference(ctx, fixedBundler(nil), assets.Kind("img"), nil, nil, nil, "assets"); err == nil {
		t.Fatalf("expected unknown kind to fail")
	}
	if _, err := assets.Reference(ctx, fixedBundler(nil), assets.JS, nil, nil, nil, "assets"); err == nil {
		t.Fatalf("expected empty bundle id to fail")
	}
}

func TestWritable(t *testing.T) {
	dir := t.TempDir()
	if err := assets.Writable(dir); err != nil {
		t.Fatalf("temp dir should be writable: %v", err)
	}
	if err := assets.Writable(filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("expected missing dir to fail")
	}
	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := assets.Writable(file); err == nil {
		t.Fatalf("expected regular file to fail")
	}
}
