package theme

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	gotheme "github.com/goliatone/go-theme"
	"gopkg.in/yaml.v3"
)

// ManifestNames lists the manifest file names probed inside a theme directory,
// in priority order.
var ManifestNames = []string{"theme.yaml", "theme.yml", "theme.json"}

type manifestFile struct {
	Name      string                 `yaml:"name"`
	Version   string                 `yaml:"version"`
	Tokens    map[string]string      `yaml:"tokens"`
	Templates map[string]string      `yaml:"templates"`
	Assets    assetsFile             `yaml:"assets"`
	Variants  map[string]variantFile `yaml:"variants"`
}

type assetsFile struct {
	Prefix string            `yaml:"prefix"`
	Files  map[string]string `yaml:"files"`
}

type variantFile struct {
	Tokens    map[string]string `yaml:"tokens"`
	Templates map[string]string `yaml:"templates"`
	Assets    assetsFile        `yaml:"assets"`
}

// Manifest returns the manifest of theme name, loading and registering it on
// first use. A theme without a manifest file yields (nil, nil).
func (r *Resolver) Manifest(name string) (*gotheme.Manifest, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	if manifest, ok := r.manifests[name]; ok {
		return manifest, nil
	}

	manifest, err := loadManifest(r.manifestFS, name)
	if err != nil {
		return nil, err
	}
	r.manifests[name] = manifest
	if manifest == nil || r.registered[manifest.Name] {
		return manifest, nil
	}
	if err := r.registry.Register(manifest); err != nil {
		return nil, fmt.Errorf("theme: register manifest %q: %w", manifest.Name, err)
	}
	r.registered[manifest.Name] = true
	return manifest, nil
}

// Selection resolves the selection for the active theme. With a selector
// configured the selector decides; otherwise the manifest of the active theme
// is used directly. A nil selection means the theme carries no manifest.
func (r *Resolver) Selection() (*gotheme.Selection, error) {
	if r.active == "" {
		return nil, nil
	}
	if r.selector != nil {
		selection, err := r.selector.Select(r.active, r.variant)
		if err != nil {
			return nil, fmt.Errorf("theme: select %q: %w", r.active, err)
		}
		return selection, nil
	}
	manifest, err := r.Manifest(r.active)
	if err != nil || manifest == nil {
		return nil, err
	}
	return &gotheme.Selection{
		Theme:    r.active,
		Variant:  r.variant,
		Manifest: manifest,
	}, nil
}

// TemplateContext flattens a selection into the value exposed to templates
// under the "theme" global. Variant tokens, templates and asset files
// override the base manifest.
func TemplateContext(name string, selection *gotheme.Selection) map[string]any {
	ctx := map[string]any{"name": name}
	if selection == nil {
		return ctx
	}
	if selection.Theme != "" {
		ctx["name"] = selection.Theme
	}
	ctx["variant"] = selection.Variant

	manifest := selection.Manifest
	if manifest == nil {
		return ctx
	}

	tokens := copyStrings(manifest.Tokens)
	templates := copyStrings(manifest.Templates)
	files := copyStrings(manifest.Assets.Files)
	prefix := manifest.Assets.Prefix
	if variant, ok := manifest.Variants[selection.Variant]; ok {
		tokens = overlay(tokens, variant.Tokens)
		templates = overlay(templates, variant.Templates)
		files = overlay(files, variant.Assets.Files)
		if variant.Assets.Prefix != "" {
			prefix = variant.Assets.Prefix
		}
	}

	ctx["version"] = manifest.Version
	ctx["tokens"] = tokens
	ctx["templates"] = templates
	ctx["assets"] = assetURLs(prefix, files)
	ctx["css_vars"] = cssVars(tokens)
	return ctx
}

func loadManifest(fsys fs.FS, name string) (*gotheme.Manifest, error) {
	if fsys == nil {
		return nil, nil
	}
	for _, file := range ManifestNames {
		location := path.Join(name, file)
		data, err := fs.ReadFile(fsys, location)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("theme: read %s: %w", location, err)
		}
		doc, err := parseManifest(data, location)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(doc.Name) == "" {
			doc.Name = name
		}
		if strings.TrimSpace(doc.Version) == "" {
			doc.Version = "0.0.0"
		}
		return doc.toManifest(), nil
	}
	return nil, nil
}

func parseManifest(data []byte, source string) (manifestFile, error) {
	var doc manifestFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return manifestFile{}, fmt.Errorf("theme: manifest %s is empty", source)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return manifestFile{}, fmt.Errorf("theme: parse %s: %w", source, err)
	}
	return doc, nil
}

func (m manifestFile) toManifest() *gotheme.Manifest {
	manifest := &gotheme.Manifest{
		Name:      m.Name,
		Version:   m.Version,
		Tokens:    copyStrings(m.Tokens),
		Templates: copyStrings(m.Templates),
		Assets: gotheme.Assets{
			Prefix: m.Assets.Prefix,
			Files:  copyStrings(m.Assets.Files),
		},
	}
	if len(m.Variants) > 0 {
		manifest.Variants = make(map[string]gotheme.Variant, len(m.Variants))
		for name, variant := range m.Variants {
			manifest.Variants[name] = gotheme.Variant{
				Tokens:    copyStrings(variant.Tokens),
				Templates: copyStrings(variant.Templates),
				Assets: gotheme.Assets{
					Prefix: variant.Assets.Prefix,
					Files:  copyStrings(variant.Assets.Files),
				},
			}
		}
	}
	return manifest
}

func assetURLs(prefix string, files map[string]string) map[string]string {
	if len(files) == 0 {
		return nil
	}
	prefix = strings.TrimRight(prefix, "/")
	out := make(map[string]string, len(files))
	for key, file := range files {
		if prefix == "" || strings.HasPrefix(file, "/") || strings.Contains(file, "://") {
			out[key] = file
			continue
		}
		out[key] = prefix + "/" + strings.TrimLeft(file, "/")
	}
	return out
}

func cssVars(tokens map[string]string) string {
	if len(tokens) == 0 {
		return ""
	}
	keys := make([]string, 0, len(tokens))
	for key := range tokens {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(":root {\n")
	for _, key := range keys {
		b.WriteString("--")
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(tokens[key])
		b.WriteString(";\n")
	}
	b.WriteString("}")
	return b.String()
}

func overlay(base, extra map[string]string) map[string]string {
	if len(extra) == 0 {
		return base
	}
	if base == nil {
		base = make(map[string]string, len(extra))
	}
	for k, v := range extra {
		base[k] = v
	}
	return base
}

func copyStrings(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
