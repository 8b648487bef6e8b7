package processor

import (
	"os"
	"path/filepath"

	"pagemotion/internal/pkg/logger"
)

// Cleanup removes per-job working directories.
type Cleanup struct {
	workRoot string
	log      *logger.Logger
}

func NewCleanup(workRoot string, log *logger.Logger) *Cleanup {
	return &Cleanup{workRoot: workRoot, log: log}
}

// Dir is the working directory of one job.
func (c *Cleanup) Dir(name string) string {
	return filepath.Join(c.workRoot, name)
}

// CleanupJob removes the working directory name. Missing directories are fine.
func (c *Cleanup) CleanupJob(name string) {
	if err := os.RemoveAll(c.Dir(name)); err != nil {
		c.log.Warn("workdir cleanup failed", "dir", name, "error", err.Error())
	}
}
