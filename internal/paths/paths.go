// Package paths bootstraps the directories the application writes into.
package paths

import (
	"fmt"
	"os"

	"github.com/cjeanneret/lvs/internal/debug"
)

// Ensure creates every directory in dirs that does not exist yet, parents included.
// An existing directory is fine; an existing non-directory is an error.
func Ensure(dirs ...string) error {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		info, err := os.Stat(dir)
		switch {
		case err == nil && info.IsDir():
			continue
		case err == nil:
			return fmt.Errorf("%s exists and is not a directory", dir)
		case !os.IsNotExist(err):
			return fmt.Errorf("stat %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
		debug.Verbose("Created directory %s", dir)
	}
	return nil
}
