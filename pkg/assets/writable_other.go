//go:build !unix

package assets

import (
	"fmt"
	"os"
)

// Writable reports an error unless dir is an existing directory the current
// process may write into. Without access(2) the probe creates and removes a
// temporary file.
func Writable(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("assets: stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("assets: %s is not a directory", dir)
	}
	probe, err := os.CreateTemp(dir, ".viewkit-probe-*")
	if err != nil {
		return fmt.Errorf("assets: %s is not writable: %w", dir, err)
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return nil
}
