// Package outdir prepares simulation output directories according to an
// overwrite policy before a run starts.
package outdir

import (
	"errors"
	"fmt"
	"os"

	"github.com/levimarcus10/BerlinOriginal/internal/matsimcfg"
)

// ErrDirectoryExists is returned under FailIfDirectoryExists when the
// directory already holds files.
var ErrDirectoryExists = errors.New("output directory already exists")

// Prepare makes path ready for a new run. It must be called before the run
// starts and never concurrently with another run on the same path.
func Prepare(path string, policy matsimcfg.OverwritePolicy) error {
	if path == "" {
		return fmt.Errorf("output directory is not set")
	}

	switch policy {
	case matsimcfg.DeleteDirectoryIfExists:
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to delete output directory %s: %w", path, err)
		}
	case matsimcfg.OverwriteExistingFiles:
	case matsimcfg.FailIfDirectoryExists:
		empty, err := isEmptyDir(path)
		if err != nil {
			return err
		}
		if !empty {
			return fmt.Errorf("%w: %s", ErrDirectoryExists, path)
		}
	default:
		return fmt.Errorf("unknown overwrite policy %q", policy)
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", path, err)
	}
	return nil
}

// isEmptyDir reports whether path is missing or an empty directory.
func isEmptyDir(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to inspect output directory %s: %w", path, err)
	}
	return len(entries) == 0, nil
}
