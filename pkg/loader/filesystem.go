package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
)

// Root is one search location. Name identifies it in listings and errors.
type Root struct {
	Name string
	FS   fs.FS
}

// DirRoot returns a Root backed by a directory on disk.
func DirRoot(dir string) Root {
	return Root{Name: dir, FS: os.DirFS(dir)}
}

// Filesystem keeps an ordered list of roots per namespace. Names shaped like
// "@ns/file" are resolved inside ns, every other name inside MainNamespace.
// Within a namespace roots are searched in order and the first match wins.
type Filesystem struct {
	namespaces map[string][]Root
}

// NewFilesystem returns a loader with roots registered in the main namespace.
func NewFilesystem(roots ...Root) *Filesystem {
	f := &Filesystem{namespaces: make(map[string][]Root)}
	for _, root := range roots {
		f.AddPath(root, MainNamespace)
	}
	return f
}

// InitFilesystem builds the initial search list: the built-in root, the active
// theme directory (when set), then one directory per extra theme name.
func InitFilesystem(builtin Root, themeRoot, active string, extra []string) *Filesystem {
	roots := []Root{builtin}
	if strings.TrimSpace(active) != "" {
		roots = append(roots, DirRoot(themeRoot+active))
	}
	for _, name := range extra {
		roots = append(roots, DirRoot(themeRoot+name))
	}
	return NewFilesystem(roots...)
}

// Kind implements Loader.
func (f *Filesystem) Kind() Kind { return KindFilesystem }

// AddPath appends root after the roots already registered for namespace.
func (f *Filesystem) AddPath(root Root, namespace string) {
	namespace = normaliseNamespace(namespace)
	f.namespaces[namespace] = append(f.namespaces[namespace], root)
}

// PrependPath inserts root before the roots already registered for namespace.
func (f *Filesystem) PrependPath(root Root, namespace string) {
	namespace = normaliseNamespace(namespace)
	current := f.namespaces[namespace]
	next := make([]Root, 0, len(current)+1)
	next = append(next, root)
	next = append(next, current...)
	f.namespaces[namespace] = next
}

// Paths lists the root names of namespace in search order.
func (f *Filesystem) Paths(namespace string) []string {
	roots := f.namespaces[normaliseNamespace(namespace)]
	out := make([]string, len(roots))
	for i, root := range roots {
		out[i] = root.Name
	}
	return out
}

// Namespaces lists the registered namespaces, sorted.
func (f *Filesystem) Namespaces() []string {
	out := make([]string, 0, len(f.namespaces))
	for ns := range f.namespaces {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// HasPath reports whether namespace already holds a root called name.
func (f *Filesystem) HasPath(namespace, name string) bool {
	for _, root := range f.namespaces[normaliseNamespace(namespace)] {
		if root.Name == name {
			return true
		}
	}
	return false
}

// Abs implements Loader. Template names are root relative, so the including
// template (base) does not influence the result.
func (f *Filesystem) Abs(_, name string) string {
	return strings.TrimLeft(strings.TrimSpace(name), "/")
}

// Get implements Loader.
func (f *Filesystem) Get(name string) (io.Reader, error) {
	root, rel, err := f.Find(name)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(root.FS, rel)
	if err != nil {
		return nil, fmt.Errorf("loader: read %s from %s: %w", rel, root.Name, err)
	}
	return bytes.NewReader(data), nil
}

// Exists reports whether name resolves to a file.
func (f *Filesystem) Exists(name string) bool {
	_, _, err := f.Find(name)
	return err == nil
}

// Find returns the first root holding name together with the path relative to
// that root.
func (f *Filesystem) Find(name string) (Root, string, error) {
	namespace, rel, err := splitName(f.Abs("", name))
	if err != nil {
		return Root{}, "", err
	}
	roots := f.namespaces[namespace]
	if len(roots) == 0 {
		return Root{}, "", &NotFoundError{Name: name, Namespace: namespace}
	}
	searched := make([]string, 0, len(roots))
	for _, root := range roots {
		searched = append(searched, root.Name)
		if root.FS == nil {
			continue
		}
		info, err := fs.Stat(root.FS, rel)
		if err == nil && !info.IsDir() {
			return root, rel, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Root{}, "", fmt.Errorf("loader: stat %s in %s: %w", rel, root.Name, err)
		}
	}
	return Root{}, "", &NotFoundError{Name: name, Namespace: namespace, Searched: searched}
}

func splitName(name string) (string, string, error) {
	namespace := MainNamespace
	rel := name
	if strings.HasPrefix(name, "@") {
		idx := strings.Index(name, "/")
		if idx < 0 {
			return "", "", fmt.Errorf("loader: malformed namespaced template name %q (expecting \"@namespace/template_name\")", name)
		}
		namespace = name[1:idx]
		rel = name[idx+1:]
	}
	rel = path.Clean(rel)
	if !fs.ValidPath(rel) || rel == "." {
		return "", "", fmt.Errorf("loader: invalid template name %q", name)
	}
	return namespace, rel, nil
}

func normaliseNamespace(namespace string) string {
	namespace = strings.TrimPrefix(strings.TrimSpace(namespace), "@")
	if namespace == "" {
		return MainNamespace
	}
	return namespace
}
