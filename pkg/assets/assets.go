package assets

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-viewkit/pkg/config"
)

// Kind identifies an asset pipeline.
type Kind string

// Supported pipelines.
const (
	CSS Kind = "css"
	JS  Kind = "js"
)

// Kinds lists the pipelines computed on every render, in a stable order.
var Kinds = []Kind{CSS, JS}

// Valid reports whether k is a known pipeline.
func (k Kind) Valid() bool {
	return k == CSS || k == JS
}

// BundleRef identifies a produced bundle. ID must end in a basename usable in
// a URL (for example "app.1234.css" or "/abs/cache/app.1234.css").
type BundleRef struct {
	ID string
}

// Bundler produces bundles for a pipeline path spec.
type Bundler interface {
	Bundle(ctx context.Context, kind Kind, spec config.PathSpec, vars, options map[string]any) (BundleRef, error)
}

// BundlerFunc adapts a function to the Bundler interface.
type BundlerFunc func(ctx context.Context, kind Kind, spec config.PathSpec, vars, options map[string]any) (BundleRef, error)

// Bundle implements Bundler.
func (f BundlerFunc) Bundle(ctx context.Context, kind Kind, spec config.PathSpec, vars, options map[string]any) (BundleRef, error) {
	return f(ctx, kind, spec, vars, options)
}

// CacheRef derives the cache relative reference of a bundle. The result only
// depends on its two arguments.
func CacheRef(cacheBase, id string) string {
	return "/" + cacheBase + "/" + path.Base(filepath.ToSlash(id))
}

// Reference asks bundler for a fresh bundle of kind and returns its cache
// relative reference.
func Reference(ctx context.Context, bundler Bundler, kind Kind, spec config.PathSpec, vars, options map[string]any, cacheBase string) (string, error) {
	if bundler == nil {
		return "", fmt.Errorf("assets: bundler is nil")
	}
	if !kind.Valid() {
		return "", fmt.Errorf("assets: unknown pipeline kind %q", kind)
	}
	ref, err := bundler.Bundle(ctx, kind, spec, vars, options)
	if err != nil {
		return "", fmt.Errorf("assets: bundle %s: %w", kind, err)
	}
	if strings.TrimSpace(ref.ID) == "" {
		return "", fmt.Errorf("assets: bundle %s: empty bundle identifier", kind)
	}
	return CacheRef(cacheBase, ref.ID), nil
}

// References computes the reference of every pipeline in Kinds. The css and
// js bundles are built concurrently.
func References(ctx context.Context, bundler Bundler, spec config.PathSpec, vars, options map[string]any, cacheBase string) (map[string]string, error) {
	refs := make([]string, len(Kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range Kinds {
		g.Go(func() error {
			ref, err := Reference(gctx, bundler, kind, spec, vars, options, cacheBase)
			if err != nil {
				return err
			}
			refs[i] = ref
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]string, len(Kinds))
	for i, kind := range Kinds {
		out[string(kind)] = refs[i]
	}
	return out, nil
}
