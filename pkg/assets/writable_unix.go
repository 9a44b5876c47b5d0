//go:build unix

package assets

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Writable reports an error unless dir is an existing directory the current
// process may write into.
func Writable(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("assets: stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("assets: %s is not a directory", dir)
	}
	if err := unix.Access(dir, unix.W_OK); err != nil {
		return fmt.Errorf("assets: %s is not writable: %w", dir, err)
	}
	return nil
}
