package view_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-viewkit/pkg/view"
)

func TestAddView_OverwriteKeepsSingleEntry(t *testing.T) {
	c := view.New()
	c.AddView("home", ".twig", map[string]any{"a": 1})
	c.AddView("home", ".twig", map[string]any{"a": 2})

	want := map[string]map[string]any{
		"@VIEWPATH/home.twig": {"a": 2},
	}
	if diff := cmp.Diff(want, c.Views()); diff != "" {
		t.Fatalf("views mismatch (-want +got):\n%s", diff)
	}
}

func TestAddView_Keys(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{name: "home", want: "@VIEWPATH/home.twig"},
		{name: "/partials/nav", want: "@VIEWPATH/partials/nav.twig"},
		{name: "@admin/dashboard", want: "@admin/dashboard.twig"},
	}
	for _, tc := range cases {
		c := view.New()
		if got := c.AddView(tc.name, ".twig", nil); got != tc.want {
			t.Fatalf("AddView(%q) key = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestCompose_WithoutLayout(t *testing.T) {
	var c view.Composer
	c.AddView("home", ".twig", map[string]any{"title": "Hi"})

	master, params := c.Compose("master", ".twig")
	if master != "master.twig" {
		t.Fatalf("unexpected master %q", master)
	}
	want := map[string]any{
		"views": map[string]any{
			"@VIEWPATH/home.twig": map[string]any{"title": "Hi"},
		},
	}
	if diff := cmp.Diff(want, params); diff != "" {
		t.Fatalf("params mismatch (-want +got):\n%s", diff)
	}
}

func TestCompose_LayoutPrecedence(t *testing.T) {
	c := view.New()
	c.SetLayout("first", map[string]any{"dropped": true})
	c.SetLayout("admin", map[string]any{"title": "Admin", "views": "overwritten"})
	c.AddView("home", ".html", nil)

	master, params := c.Compose("master", ".html")
	if master != "layouts/admin.html" {
		t.Fatalf("layout should win over default template, got %q", master)
	}
	want := map[string]any{
		"title": "Admin",
		"views": map[string]any{"@VIEWPATH/home.html": map[string]any{}},
	}
	if diff := cmp.Diff(want, params); diff != "" {
		t.Fatalf("params mismatch (-want +got):\n%s", diff)
	}

	layout, ok := c.Layout()
	if !ok || layout.Name != "layouts/admin" {
		t.Fatalf("unexpected layout %+v", layout)
	}
}

func TestCompose_DoesNotAliasInputs(t *testing.T) {
	c := view.New()
	in := map[string]any{"a": 1}
	c.AddView("home", ".twig", in)
	in["a"] = 99

	_, params := c.Compose("master", ".twig")
	views := params["views"].(map[string]any)
	views["@VIEWPATH/home.twig"].(map[string]any)["a"] = 42

	if diff := cmp.Diff(map[string]any{"a": 1}, c.Views()["@VIEWPATH/home.twig"]); diff != "" {
		t.Fatalf("stored params were mutated (-want +got):\n%s", diff)
	}
}

func TestReset(t *testing.T) {
	c := view.New()
	c.AddView("home", ".twig", nil)
	c.SetLayout("base", nil)
	c.Reset()

	if len(c.Keys()) != 0 {
		t.Fatalf("expected no views after reset")
	}
	if _, ok := c.Layout(); ok {
		t.Fatalf("expected no layout after reset")
	}
	master, _ := c.Compose("master", ".twig")
	if master != "master.twig" {
		t.Fatalf("unexpected master after reset %q", master)
	}
}
