package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate reports every problem that would leave the service partially configured.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Server.APIKey) == "" {
		problems = append(problems, "server.api_key (API_KEY) is required")
	}
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		problems = append(problems, "paths.temp_dir (TEMP_DIR) is required")
	}
	if c.Server.MaxUploadMB <= 0 {
		problems = append(problems, "server.max_upload_mb must be positive")
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		problems = append(problems, "server.rate_limit and server.rate_burst must not be negative")
	}

	switch c.Queue.Backend {
	case QueueMemory:
	case QueueRedis:
		if c.Queue.RedisAddr == "" {
			problems = append(problems, "queue.redis_addr (REDIS_ADDR) is required for the redis backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("queue.backend %q is not one of memory, redis", c.Queue.Backend))
	}

	switch c.Ledger.Driver {
	case LedgerMemory:
	case LedgerPostgres, LedgerSQLite:
		if c.Ledger.DSN == "" {
			problems = append(problems, fmt.Sprintf("ledger.dsn (DATABASE_URL) is required for the %s driver", c.Ledger.Driver))
		}
	default:
		problems = append(problems, fmt.Sprintf("ledger.driver %q is not one of memory, postgres, sqlite", c.Ledger.Driver))
	}

	switch c.Storage.Provider {
	case StorageLocal:
		if c.Storage.LocalRoot == "" {
			problems = append(problems, "storage.local_root is required for localfs")
		}
	case StorageGDrive:
		if c.Storage.GDriveClientID == "" || c.Storage.GDriveClientSecret == "" || c.Storage.GDriveRefreshToken == "" {
			problems = append(problems, "gdrive storage requires client id, client secret and refresh token")
		}
	default:
		problems = append(problems, fmt.Sprintf("storage.provider %q is not one of localfs, gdrive", c.Storage.Provider))
	}

	switch c.Logging.Format {
	case "json", "text", "auto":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not one of json, text, auto", c.Logging.Format))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
