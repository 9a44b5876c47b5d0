package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"go.uber.org/zap/zaptest"

	"github.com/goliatone/go-viewkit"
	"github.com/goliatone/go-viewkit/pkg/assets"
	"github.com/goliatone/go-viewkit/pkg/testsupport"
)

func newTestRouter(t *testing.T) (http.Handler, string) {
	t.Helper()

	assetsDir := testsupport.TempAssets(t)
	views := fstest.MapFS{
		"home.twig": &fstest.MapFile{Data: []byte(`<h1>{{ greeting|default:"home" }}</h1>`)},
		"news.twig": &fstest.MapFile{Data: []byte(`<ul>news</ul>`)},
	}
	bundler := &testsupport.Bundler{IDs: map[assets.Kind]string{
		assets.CSS: "app.1234.css",
		assets.JS:  "app.5678.js",
	}}
	settings := map[string]any{
		"assets_path": assetsDir,
		"theme_path":  t.TempDir(),
		"theme":       "default",
	}
	logger := zaptest.NewLogger(t)
	options := []viewkit.Option{
		viewkit.WithLogger(logger),
		viewkit.WithBundler(bundler),
		viewkit.WithViewFS(views),
	}

	handler, err := newRouter(settings, options, logger)
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	return handler, assetsDir
}

func get(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServe_RendersViewRoute(t *testing.T) {
	handler, _ := newTestRouter(t)

	rec := get(t, handler, "/home?greeting=hi")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{"<h1>hi</h1>", `href="/assets/app.1234.css"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in body:\n%s", want, body)
		}
	}
}

func TestServe_RendersQueryViews(t *testing.T) {
	handler, _ := newTestRouter(t)

	rec := get(t, handler, "/?view=home&view=news")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<h1>home</h1>") || !strings.Contains(body, "<ul>news</ul>") {
		t.Fatalf("expected both views, got:\n%s", body)
	}
}

func TestServe_MissingLayoutIsNotFound(t *testing.T) {
	handler, _ := newTestRouter(t)

	if rec := get(t, handler, "/home?layout=missing"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestServe_ServesAssetCache(t *testing.T) {
	handler, assetsDir := newTestRouter(t)
	if err := os.WriteFile(filepath.Join(assetsDir, "app.1234.css"), []byte("body{}"), 0o644); err != nil {
		t.Fatalf("write asset: %v", err)
	}

	rec := get(t, handler, "/assets/app.1234.css")
	if rec.Code != http.StatusOK || rec.Body.String() != "body{}" {
		t.Fatalf("unexpected asset response %d %q", rec.Code, rec.Body.String())
	}
	if rec := get(t, handler, "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("expected healthz 200, got %d", rec.Code)
	}
}

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"title=Dashboard", "empty="})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if params["title"] != "Dashboard" || params["empty"] != "" {
		t.Fatalf("unexpected params %v", params)
	}
	if _, err := parseParams([]string{"novalue"}); err == nil {
		t.Fatalf("expected error for missing '='")
	}
}
