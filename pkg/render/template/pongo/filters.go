package pongo

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/flosch/pongo2/v6"
	"github.com/microcosm-cc/bluemonday"
)

// pongo2 keeps filters in a process-wide table. Names registered through this
// package may be replaced later; pongo2 built-ins may not.
var (
	filtersMu    sync.Mutex
	ownedFilters = map[string]bool{}
	defaultsOnce sync.Once
	ugcPolicy    = bluemonday.UGCPolicy()
)

func registerDefaultFilters() {
	defaultsOnce.Do(func() {
		filtersMu.Lock()
		defer filtersMu.Unlock()
		for name, fn := range map[string]pongo2.FilterFunction{
			"trim":       filterTrim,
			"lowerfirst": filterLowerFirst,
			"sanitize":   filterSanitize,
		} {
			if !pongo2.FilterExists(name) {
				_ = pongo2.RegisterFilter(name, fn)
				ownedFilters[name] = true
			}
		}
	})
}

func registerFilter(name string, fn pongo2.FilterFunction) error {
	filtersMu.Lock()
	defer filtersMu.Unlock()

	if pongo2.FilterExists(name) {
		if !ownedFilters[name] {
			return errBuiltinFilter(name)
		}
		return pongo2.ReplaceFilter(name, fn)
	}
	if err := pongo2.RegisterFilter(name, fn); err != nil {
		return err
	}
	ownedFilters[name] = true
	return nil
}

func errBuiltinFilter(name string) error {
	return fmt.Errorf("pongo: filter %q is a pongo2 built-in and cannot be replaced", name)
}

// filterTrim strips whitespace, or the characters given as parameter:
// {{ path|trim:"/" }}.
func filterTrim(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.IsNil() {
		return pongo2.AsValue(""), nil
	}
	if param != nil && !param.IsNil() && param.String() != "" {
		return pongo2.AsValue(strings.Trim(in.String(), param.String())), nil
	}
	return pongo2.AsValue(strings.TrimSpace(in.String())), nil
}

func filterLowerFirst(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.Len() <= 0 {
		return pongo2.AsValue(""), nil
	}
	t := in.String()

	for i, r := range t {
		if strings.ContainsRune(" \t\n\r", r) {
			continue
		}
		size := utf8.RuneLen(r)
		return pongo2.AsValue(t[:i] + strings.ToLower(string(r)) + t[i+size:]), nil
	}
	return pongo2.AsValue(t), nil
}

// filterSanitize strips markup outside the bluemonday UGC policy and marks the
// result safe.
func filterSanitize(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.IsNil() {
		return pongo2.AsSafeValue(""), nil
	}
	return pongo2.AsSafeValue(ugcPolicy.Sanitize(in.String())), nil
}
