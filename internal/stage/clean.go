package stage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Clean removes the configured cache directories from the working directory.
// Absent directories are not an error, so a second run is a no-op.
func (s *Stages) Clean(_ context.Context) error {
	for _, name := range s.cfg.CleanDirs {
		if !filepath.IsLocal(name) || strings.ContainsRune(name, filepath.Separator) {
			return fmt.Errorf("clean: refusing to remove %q, only top-level names are allowed", name)
		}
		path := filepath.Join(s.cfg.WorkDir, name)
		if _, err := os.Lstat(path); os.IsNotExist(err) {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("clean %s: %w", path, err)
		}
		s.logger.Info("removed", "dir", path)
	}
	return nil
}
