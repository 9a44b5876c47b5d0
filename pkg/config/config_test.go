package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"

	"github.com/goliatone/go-viewkit/pkg/config"
	"github.com/goliatone/go-viewkit/pkg/render"
)

func TestResolve_MergesMergeableKeys(t *testing.T) {
	got := config.Resolve(config.Defaults(), map[string]any{
		"environment_options": map[string]any{"autoescape": false, "debug": true},
		"Extensions":          map[string]string{"i18n": "i18n"},
	})

	wantEnv := map[string]any{
		"charset":          "utf-8",
		"cache":            false,
		"auto_reload":      false,
		"strict_variables": false,
		"autoescape":       false,
		"debug":            true,
	}
	if diff := cmp.Diff(wantEnv, got.EnvironmentOptions); diff != "" {
		t.Fatalf("environment options mismatch (-want +got):\n%s", diff)
	}
	if got.Extensions["i18n"] != "i18n" || got.Extensions["sandbox"] != "sandbox" {
		t.Fatalf("extensions not merged: %v", got.Extensions)
	}
}

func TestResolve_ReplacesScalarsAndGlobals(t *testing.T) {
	defaults := config.Defaults()
	defaults.GlobalVars = map[string]any{"site": "default"}

	got := config.Resolve(defaults, map[string]any{
		"theme":          "dark",
		"TEMPLATE":       "page",
		"auto_register":  "true",
		"global_vars":    map[string]any{"title": "Hi"},
		"file_extension": ".html.twig",
	})

	if got.Theme != "dark" || got.Template != "page" || !got.AutoRegister || got.FileExtension != ".html.twig" {
		t.Fatalf("unexpected scalars: %+v", got)
	}
	if diff := cmp.Diff(map[string]any{"title": "Hi"}, got.GlobalVars); diff != "" {
		t.Fatalf("global vars should be replaced (-want +got):\n%s", diff)
	}
}

func TestResolve_PipelinePathsMergeByGroup(t *testing.T) {
	got := config.Resolve(config.Defaults(), map[string]any{
		"pipeline_paths": map[string]any{
			"external": map[string]any{"directories": []any{"node_modules/"}},
		},
	})

	if diff := cmp.Diff([]string{"node_modules/"}, got.PipelinePaths["external"].Directories); diff != "" {
		t.Fatalf("external group mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(config.Defaults().PipelinePaths["template"], got.PipelinePaths["template"]); diff != "" {
		t.Fatalf("template group should be kept (-want +got):\n%s", diff)
	}
}

func TestResolve_UnknownAndUndecodableKeysPassThrough(t *testing.T) {
	got := config.Resolve(config.Defaults(), map[string]any{
		"custom_flag":         42,
		"environment_options": "not-a-map",
	})

	want := map[string]any{"custom_flag": 42, "environment_options": "not-a-map"}
	if diff := cmp.Diff(want, got.Extra); diff != "" {
		t.Fatalf("extra mismatch (-want +got):\n%s", diff)
	}
	if got.EnvironmentOptions["charset"] != "utf-8" {
		t.Fatalf("defaults should survive an undecodable override")
	}
}

func TestResolve_Idempotent(t *testing.T) {
	overrides := map[string]any{
		"functions":           map[string]any{"upper": "strings.ToUpper"},
		"environment_options": map[string]any{"debug": true},
		"pipeline_paths": map[string]any{
			"template": map[string]any{"directories": []any{"%theme%/static/"}},
		},
		"theme":   "default",
		"unknown": "value",
	}

	once := config.Resolve(config.Defaults(), overrides)
	twice := config.Resolve(once, overrides)

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("resolve is not idempotent (-once +twice):\n%s", diff)
	}
}

func TestResolve_DoesNotMutateInputs(t *testing.T) {
	defaults := config.Defaults()
	_ = config.Resolve(defaults, map[string]any{
		"environment_options": map[string]any{"debug": true},
	})
	if _, ok := defaults.EnvironmentOptions["debug"]; ok {
		t.Fatalf("defaults were mutated")
	}
}

func TestSettings_NormalizeAndCacheBase(t *testing.T) {
	s := config.Settings{AssetsPath: "/srv/public/assets//"}.Normalize("/srv/app")

	if s.ThemePath != "/srv/app/themes/" {
		t.Fatalf("unexpected theme path %q", s.ThemePath)
	}
	if s.AssetsPath != "/srv/public/assets/" {
		t.Fatalf("unexpected assets path %q", s.AssetsPath)
	}
	if got := s.CacheBase(); got != "assets" {
		t.Fatalf("unexpected cache base %q", got)
	}
}

func TestValidateFileExtension(t *testing.T) {
	for _, ext := range []string{".twig", ".php", ".php.twig", ".html", ".HTML.TWIG", "page.twig"} {
		if err := config.ValidateFileExtension(ext); err != nil {
			t.Fatalf("expected %q to be valid: %v", ext, err)
		}
	}
	for _, ext := range []string{".txt", ".tpl", ".tmpl", "twig"} {
		if err := config.ValidateFileExtension(ext); !errors.Is(err, render.ErrValidation) {
			t.Fatalf("expected validation error for %q, got %v", ext, err)
		}
	}
}

func TestLoad_LayerPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "viewkit.yaml")
	payload := []byte("theme: from-file\ntemplate: layout\nassets_path: /tmp/file-assets\n")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("VIEWKIT_TEMPLATE", "from-env")
	t.Setenv("VIEWKIT_ASSETS_PATH", "/tmp/env-assets")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("assets-path", "", "")
	flags.String("theme", "", "")
	if err := flags.Parse([]string{"--assets-path=/tmp/flag-assets"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	raw, err := config.Load(
		config.WithBase(map[string]any{"view_path": "views"}),
		config.WithFile(path),
		config.WithFlags(flags),
	)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	got := config.Resolve(config.Defaults(), raw)
	if got.Theme != "from-file" {
		t.Fatalf("theme: want from-file, got %q", got.Theme)
	}
	if got.Template != "from-env" {
		t.Fatalf("template: want from-env, got %q", got.Template)
	}
	if got.AssetsPath != "/tmp/flag-assets" {
		t.Fatalf("assets path: want flag value, got %q", got.AssetsPath)
	}
	if got.ViewPath != "views" {
		t.Fatalf("view path: want base value, got %q", got.ViewPath)
	}
}
