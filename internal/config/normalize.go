package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	c.Queue.Backend = strings.ToLower(strings.TrimSpace(c.Queue.Backend))
	c.Ledger.Driver = strings.ToLower(strings.TrimSpace(c.Ledger.Driver))
	c.Storage.Provider = strings.ToLower(strings.TrimSpace(c.Storage.Provider))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))

	if c.Paths.TempDir != "" {
		dir, err := expandPath(c.Paths.TempDir)
		if err != nil {
			return fmt.Errorf("temp_dir: %w", err)
		}
		c.Paths.TempDir = dir
	}

	if c.Storage.LocalRoot == "" && c.Paths.TempDir != "" {
		c.Storage.LocalRoot = filepath.Join(c.Paths.TempDir, "uploads")
	} else if c.Storage.LocalRoot != "" {
		root, err := expandPath(c.Storage.LocalRoot)
		if err != nil {
			return fmt.Errorf("storage.local_root: %w", err)
		}
		c.Storage.LocalRoot = root
	}

	if c.Ledger.Driver == LedgerSQLite && c.Ledger.DSN == "" && c.Paths.TempDir != "" {
		c.Ledger.DSN = filepath.Join(c.Paths.TempDir, "ledger.db")
	}
	if c.Queue.Prefix == "" {
		c.Queue.Prefix = "pagemotion"
	}
	return nil
}

// WorkDir is where the worker materializes inputs while a job runs.
func (c *Config) WorkDir() string {
	return filepath.Join(c.Paths.TempDir, "work")
}

// ResultsDir is where finished job artifacts wait to be polled.
func (c *Config) ResultsDir() string {
	return filepath.Join(c.Paths.TempDir, "results")
}

// ResponsesDir is where packaged poll archives are written.
func (c *Config) ResponsesDir() string {
	return filepath.Join(c.Paths.TempDir, "responses")
}

// LockPath is the lock file that keeps a single worker per temp dir.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.TempDir, "worker.lock")
}

// EnsureDirectories creates every directory the service writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.TempDir, c.WorkDir(), c.ResultsDir(), c.ResponsesDir()}
	if c.Storage.Provider == StorageLocal {
		dirs = append(dirs, c.Storage.LocalRoot)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}
