package files

import (
	"os"
	"path/filepath"
)

// FindUp searches dir and every parent of dir for a file called name,
// returning the path of the first hit, or "" when the filesystem root is
// reached without one. Directories that cannot be read are skipped.
func FindUp(name, dir string) string {
	for {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
