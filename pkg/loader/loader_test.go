package loader_test

import (
	"errors"
	"io"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-viewkit/pkg/loader"
	"github.com/goliatone/go-viewkit/pkg/render"
)

func mapRoot(name string, files map[string]string) loader.Root {
	fsys := fstest.MapFS{}
	for file, body := range files {
		fsys[file] = &fstest.MapFile{Data: []byte(body)}
	}
	return loader.Root{Name: name, FS: fsys}
}

func readAll(t *testing.T, l loader.Loader, name string) string {
	t.Helper()
	r, err := l.Get(l.Abs("", name))
	if err != nil {
		t.Fatalf("get %s: %v", name, err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

func TestFilesystem_SearchOrder(t *testing.T) {
	l := loader.NewFilesystem(mapRoot("a", nil), mapRoot("b", nil))
	l.AddPath(mapRoot("y", nil), "")
	l.PrependPath(mapRoot("x", nil), loader.MainNamespace)

	if diff := cmp.Diff([]string{"x", "a", "b", "y"}, l.Paths("")); diff != "" {
		t.Fatalf("search order mismatch (-want +got):\n%s", diff)
	}
}

func TestFilesystem_FirstMatchWins(t *testing.T) {
	l := loader.NewFilesystem(
		mapRoot("builtin", map[string]string{"master.twig": "builtin", "only.twig": "only builtin"}),
		mapRoot("theme", map[string]string{"master.twig": "theme"}),
	)

	if got := readAll(t, l, "master.twig"); got != "builtin" {
		t.Fatalf("expected builtin master, got %q", got)
	}
	l.PrependPath(mapRoot("override", map[string]string{"master.twig": "override"}), "")
	if got := readAll(t, l, "/master.twig"); got != "override" {
		t.Fatalf("expected prepended root to win, got %q", got)
	}
	if got := readAll(t, l, "only.twig"); got != "only builtin" {
		t.Fatalf("expected fall through to builtin, got %q", got)
	}
}

func TestFilesystem_Namespaces(t *testing.T) {
	l := loader.NewFilesystem(mapRoot("main", map[string]string{"home.twig": "main home"}))
	l.PrependPath(mapRoot("views", map[string]string{"home.twig": "view home"}), "VIEWPATH")

	if got := readAll(t, l, "@VIEWPATH/home.twig"); got != "view home" {
		t.Fatalf("namespaced lookup returned %q", got)
	}
	if got := readAll(t, l, "home.twig"); got != "main home" {
		t.Fatalf("main lookup returned %q", got)
	}
	if diff := cmp.Diff([]string{"VIEWPATH", loader.MainNamespace}, l.Namespaces()); diff != "" {
		t.Fatalf("namespaces mismatch (-want +got):\n%s", diff)
	}
	if !l.HasPath("@VIEWPATH", "views") {
		t.Fatalf("expected HasPath to accept an @-prefixed namespace")
	}
}

func TestFilesystem_NotFound(t *testing.T) {
	l := loader.NewFilesystem(mapRoot("a", nil), mapRoot("b", nil))

	_, err := l.Get("missing.twig")
	var nf *loader.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, nf.Searched); diff != "" {
		t.Fatalf("searched roots mismatch (-want +got):\n%s", diff)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist in chain")
	}

	if _, err := l.Get("@nowhere/x.twig"); !errors.As(err, &nf) || nf.Namespace != "nowhere" {
		t.Fatalf("expected missing namespace error, got %v", err)
	}
	if _, err := l.Get("@broken"); err == nil {
		t.Fatalf("expected malformed namespaced name to fail")
	}
	if _, err := l.Get("../etc/passwd"); err == nil {
		t.Fatalf("expected escaping name to fail")
	}
	if l.Exists("missing.twig") {
		t.Fatalf("Exists reported a missing template")
	}
}

func TestInitFilesystem_Order(t *testing.T) {
	builtin := mapRoot("builtin", nil)
	l := loader.InitFilesystem(builtin, "/app/themes/", "default", []string{"extra"})

	want := []string{"builtin", "/app/themes/default", "/app/themes/extra"}
	if diff := cmp.Diff(want, l.Paths("")); diff != "" {
		t.Fatalf("initial paths mismatch (-want +got):\n%s", diff)
	}
}

func TestArrayAndString(t *testing.T) {
	arr, err := loader.NewArray(map[string]any{"hello.twig": "Hello {{ name }}"})
	if err != nil {
		t.Fatalf("new array: %v", err)
	}
	if got := readAll(t, arr, "hello.twig"); got != "Hello {{ name }}" {
		t.Fatalf("array returned %q", got)
	}
	if _, err := arr.Get("nope"); err == nil {
		t.Fatalf("expected missing array template to fail")
	}

	if _, err := loader.NewArray("not a map"); !errors.Is(err, render.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := loader.NewArray(map[string]any{"x": 1}); !errors.Is(err, render.ErrValidation) {
		t.Fatalf("expected validation error for non-string source, got %v", err)
	}

	if got := readAll(t, loader.String{}, "{{ 1 }}"); got != "{{ 1 }}" {
		t.Fatalf("string loader returned %q", got)
	}
}

func TestParseKindAndThemeNames(t *testing.T) {
	cases := map[string]loader.Kind{
		"filesystem": loader.KindFilesystem,
		" Array ":    loader.KindArray,
		"string":     loader.KindString,
		"whatever":   loader.KindString,
	}
	for in, want := range cases {
		if got := loader.ParseKind(in); got != want {
			t.Fatalf("ParseKind(%q) = %q, want %q", in, got, want)
		}
	}

	if diff := cmp.Diff([]string{"a", "b"}, loader.ThemeNames([]any{"a", 3, " b ", ""})); diff != "" {
		t.Fatalf("theme names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"solo"}, loader.ThemeNames("solo")); diff != "" {
		t.Fatalf("theme names mismatch (-want +got):\n%s", diff)
	}
}

func TestNew(t *testing.T) {
	seed := loader.Seed{Builtin: mapRoot("builtin", nil), ThemeRoot: "/themes/", Active: "default"}

	l, err := loader.New("filesystem", []string{"alt"}, seed)
	if err != nil {
		t.Fatalf("new filesystem: %v", err)
	}
	fsl, ok := l.(*loader.Filesystem)
	if !ok {
		t.Fatalf("expected *loader.Filesystem, got %T", l)
	}
	if diff := cmp.Diff([]string{"builtin", "/themes/default", "/themes/alt"}, fsl.Paths("")); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}

	if l, err := loader.New("array", map[string]string{"a": "b"}, seed); err != nil || l.Kind() != loader.KindArray {
		t.Fatalf("expected array loader, got %v, %v", l, err)
	}
	if _, err := loader.New("array", 42, seed); !errors.Is(err, render.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if l, err := loader.New("bogus", nil, seed); err != nil || l.Kind() != loader.KindString {
		t.Fatalf("expected string loader fallback, got %v, %v", l, err)
	}
}
