package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	logging "github.com/ipfs/go-log/v2"
	"github.com/kirsle/configdir"
	"github.com/pelletier/go-toml"
)

var log = logging.Logger("config")

const (
	appName = "drivectl"

	// DefaultKeyFile is the service-account key read when none is configured
	DefaultKeyFile = "./googledrive.json"

	envPrefix = "DRIVECTL_"
)

// Config is the on-disk configuration of the CLI
type Config struct {
	KeyFile       string               `toml:"key_file"`
	FolderID      string               `toml:"folder_id"`
	Scopes        []string             `toml:"scopes,omitempty"`
	Drive         DriveConfig          `toml:"drive"`
	Database      DatabaseConfig       `toml:"database"`
	Notifications []NotificationConfig `toml:"notifications,omitempty"`
	Jobs          []JobConfig          `toml:"jobs,omitempty"`
}

// DriveConfig tunes Drive API calls
type DriveConfig struct {
	RateLimit float64 `toml:"rate_limit"` // requests per second, 0 disables pacing
	Burst     int     `toml:"burst"`
	PageSize  int64   `toml:"page_size"`
}

// DatabaseConfig selects the local store
type DatabaseConfig struct {
	Driver   string `toml:"driver"`
	Path     string `toml:"path,omitempty"`
	Host     string `toml:"host,omitempty"`
	Port     int    `toml:"port,omitempty"`
	User     string `toml:"user,omitempty"`
	Password string `toml:"password,omitempty"`
	Name     string `toml:"name,omitempty"`
}

// NotificationConfig declares a webhook target
type NotificationConfig struct {
	Name            string                 `toml:"name"`
	Channel         string                 `toml:"channel"`
	Enabled         bool                   `toml:"enabled"`
	NotifyOnSuccess bool                   `toml:"notify_on_success"`
	NotifyOnError   bool                   `toml:"notify_on_error"`
	Config          map[string]interface{} `toml:"config"`
}

// JobConfig declares a scheduled upload
type JobConfig struct {
	Name       string `toml:"name"`
	LocalPath  string `toml:"local_path"`
	RemoteName string `toml:"remote_name,omitempty"`
	MimeType   string `toml:"mime_type,omitempty"`
	FolderID   string `toml:"folder_id,omitempty"`
	Mode       string `toml:"mode,omitempty"`
	Schedule   string `toml:"schedule"`
	Disabled   bool   `toml:"disabled,omitempty"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// DefaultPath is the per-user config file location
func DefaultPath() string {
	return filepath.Join(configdir.LocalConfig(appName), "config.toml")
}

// DefaultDatabasePath is the per-user SQLite file location
func DefaultDatabasePath() string {
	return filepath.Join(configdir.LocalCache(appName), "drivectl.db")
}

// Load reads path, applies environment overrides and then defaults, and validates the result.
// An empty path means DefaultPath, which may be absent.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		log.Debugf("Loaded config from %s", path)
	case errors.Is(err, os.ErrNotExist) && !explicit:
		log.Debugf("No config file at %s, using defaults", path)
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// defaults depend on the driver, which the environment may change
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to path as TOML, creating parent directories
func Save(path string, cfg *Config) error {
	data, err := toml.Marshal(*cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := configdir.MakePath(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.KeyFile == "" {
		c.KeyFile = DefaultKeyFile
	}
	if c.Drive.PageSize <= 0 {
		c.Drive.PageSize = 10
	}
	if c.Drive.Burst <= 0 {
		c.Drive.Burst = 1
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = DefaultDatabasePath()
	}
	if c.Database.Driver == "mysql" && c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	for i := range c.Jobs {
		if c.Jobs[i].Mode == "" {
			c.Jobs[i].Mode = "create"
		}
	}
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + key); ok && v != "" {
			*dst = v
		}
	}

	setString("KEY_FILE", &c.KeyFile)
	setString("FOLDER_ID", &c.FolderID)
	setString("DB_DRIVER", &c.Database.Driver)
	setString("DB_PATH", &c.Database.Path)
	setString("DB_HOST", &c.Database.Host)
	setString("DB_USER", &c.Database.User)
	setString("DB_PASSWORD", &c.Database.Password)
	setString("DB_NAME", &c.Database.Name)

	if v := os.Getenv(envPrefix + "DB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sDB_PORT: %w", envPrefix, err)
		}
		c.Database.Port = port
	}

	return nil
}

// Validate checks job and notification declarations
func (c *Config) Validate() error {
	names := make(map[string]bool)
	for _, job := range c.Jobs {
		if job.Name == "" {
			return fmt.Errorf("job name is required")
		}
		if names[job.Name] {
			return fmt.Errorf("duplicate job name '%s'", job.Name)
		}
		names[job.Name] = true

		if job.LocalPath == "" {
			return fmt.Errorf("job '%s': local_path is required", job.Name)
		}
		if job.Schedule == "" {
			return fmt.Errorf("job '%s': schedule is required", job.Name)
		}
		if job.Mode != "create" && job.Mode != "update" {
			return fmt.Errorf("job '%s': unsupported mode '%s'", job.Name, job.Mode)
		}
	}

	names = make(map[string]bool)
	for _, n := range c.Notifications {
		if n.Name == "" {
			return fmt.Errorf("notification name is required")
		}
		if names[n.Name] {
			return fmt.Errorf("duplicate notification name '%s'", n.Name)
		}
		names[n.Name] = true
	}

	return nil
}
