package export

import (
	"os"
	"path/filepath"
	"slices"
)

// clutter lists files that do not keep a directory alive.
var clutter = []string{".DS_Store", "cover.jpg"}

// SafeDelete removes clutter files from dir and then dir itself if it is
// empty. It reports whether dir is gone; failures are not errors since
// the directory may still hold stray files.
func SafeDelete(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return os.IsNotExist(err)
	}
	for _, e := range entries {
		if !e.IsDir() && slices.Contains(clutter, e.Name()) {
			_ = os.Remove(filepath.Join(dir, e.Name()))
		}
	}
	return os.Remove(dir) == nil
}
