// Package config loads pagemotion configuration from a TOML file and the
// environment. Environment variables win over file values so container
// deployments can run without a file at all.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// DefaultFileName is looked up in the working directory when no path is given.
const DefaultFileName = "pagemotion.toml"

// Server contains HTTP listener and request admission settings.
type Server struct {
	Addr        string   `toml:"addr"`
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
	RateLimit   float64  `toml:"rate_limit"`
	RateBurst   int      `toml:"rate_burst"`
	MaxUploadMB int64    `toml:"max_upload_mb"`
}

// Paths contains filesystem locations.
type Paths struct {
	TempDir string `toml:"temp_dir"`
}

// Queue selects where jobs and results are exchanged between API and worker.
type Queue struct {
	Backend       string `toml:"backend"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	Prefix        string `toml:"prefix"`
}

// Ledger selects the job status store.
type Ledger struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

// Storage selects where uploads are spooled until the worker picks them up.
type Storage struct {
	Provider           string `toml:"provider"`
	LocalRoot          string `toml:"local_root"`
	GDriveClientID     string `toml:"gdrive_client_id"`
	GDriveClientSecret string `toml:"gdrive_client_secret"`
	GDriveRefreshToken string `toml:"gdrive_refresh_token"`
	GDriveFolderID     string `toml:"gdrive_folder_id"`
}

// Logging controls the structured logger.
type Logging struct {
	Level     string `toml:"level"`
	Format    string `toml:"format"`
	AddSource bool   `toml:"add_source"`
}

// Config is the full service configuration.
type Config struct {
	Server  Server  `toml:"server"`
	Paths   Paths   `toml:"paths"`
	Queue   Queue   `toml:"queue"`
	Ledger  Ledger  `toml:"ledger"`
	Storage Storage `toml:"storage"`
	Logging Logging `toml:"logging"`
}

const (
	QueueMemory = "memory"
	QueueRedis  = "redis"

	LedgerMemory   = "memory"
	LedgerPostgres = "postgres"
	LedgerSQLite   = "sqlite"

	StorageLocal  = "localfs"
	StorageGDrive = "gdrive"
)

// Default returns the configuration used before file and environment values apply.
func Default() Config {
	return Config{
		Server: Server{
			Addr:        "0.0.0.0:8080",
			RateLimit:   5,
			RateBurst:   10,
			MaxUploadMB: 512,
		},
		Queue: Queue{
			Backend:   QueueMemory,
			RedisAddr: "localhost:6379",
			Prefix:    "pagemotion",
		},
		Ledger: Ledger{
			Driver: LedgerMemory,
		},
		Storage: Storage{
			Provider: StorageLocal,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads path (or DefaultFileName when path is empty and the file exists),
// applies environment overrides, normalizes and validates. It reports the
// resolved path and whether a file was read.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := resolvePath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, "", false, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func resolvePath(path string) (string, bool, error) {
	if path == "" {
		abs, err := filepath.Abs(DefaultFileName)
		if err != nil {
			return "", false, err
		}
		path = abs
	} else {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		path = expanded
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return path, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %s is a directory", path)
	}
	return path, true, nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str("API_KEY", &c.Server.APIKey)
	str("TEMP_DIR", &c.Paths.TempDir)
	str("HTTP_ADDR", &c.Server.Addr)
	if port, ok := lookup("HTTP_PORT"); ok && strings.TrimSpace(port) != "" {
		c.Server.Addr = "0.0.0.0:" + strings.TrimSpace(port)
	}
	if origins, ok := lookup("CORS_ALLOWED_ORIGINS"); ok && strings.TrimSpace(origins) != "" {
		c.Server.CORSOrigins = splitCSV(origins)
	}
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)
	str("QUEUE_BACKEND", &c.Queue.Backend)
	str("REDIS_ADDR", &c.Queue.RedisAddr)
	str("REDIS_PASSWORD", &c.Queue.RedisPassword)
	str("LEDGER_DRIVER", &c.Ledger.Driver)
	str("DATABASE_URL", &c.Ledger.DSN)
	str("STORAGE_PROVIDER", &c.Storage.Provider)
	str("STORAGE_LOCAL_ROOT", &c.Storage.LocalRoot)
	str("GDRIVE_CLIENT_ID", &c.Storage.GDriveClientID)
	str("GDRIVE_CLIENT_SECRET", &c.Storage.GDriveClientSecret)
	str("GDRIVE_REFRESH_TOKEN", &c.Storage.GDriveRefreshToken)
	str("GDRIVE_FOLDER_ID", &c.Storage.GDriveFolderID)

	if v, ok := lookup("REDIS_DB"); ok && strings.TrimSpace(v) != "" {
		db, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		c.Queue.RedisDB = db
	}
	return nil
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
