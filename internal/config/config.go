package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"

	"github.com/sadopc/askdb/internal/logging"
)

// Config holds all application configuration. Values come from the YAML
// file first and are then overridden by environment variables. Secrets are
// only read from the environment.
type Config struct {
	Theme       string            `yaml:"theme" env:"ASKDB_THEME"`
	Database    DatabaseConfig    `yaml:"database"`
	Query       QueryConfig       `yaml:"query"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Audit       AuditConfig       `yaml:"audit"`
	History     HistoryConfig     `yaml:"history"`
	Log         logging.Config    `yaml:"log"`
	Connections []SavedConnection `yaml:"connections"`
}

// DatabaseConfig selects the database the translator introspects and
// queries. Connection names an entry of Config.Connections and is used when
// DSN is empty.
type DatabaseConfig struct {
	Adapter    string `yaml:"adapter" env:"ASKDB_ADAPTER"`
	DSN        string `yaml:"dsn" env:"ASKDB_DSN"`
	Connection string `yaml:"connection" env:"ASKDB_CONNECTION"`
	Name       string `yaml:"name" env:"ASKDB_DATABASE"`
	Schema     string `yaml:"schema" env:"ASKDB_SCHEMA"`
}

// QueryConfig holds translation and row-limit settings.
type QueryConfig struct {
	CacheCapacity   int    `yaml:"cache_capacity" env:"ASKDB_CACHE_CAPACITY"`
	CacheFile       string `yaml:"cache_file" env:"ASKDB_CACHE_FILE"`
	ListLimit       int    `yaml:"list_limit"`
	MaxColumns      int    `yaml:"max_columns"`
	LargeTableRows  int64  `yaml:"large_table_rows"`
	LargeTableLimit int    `yaml:"large_table_limit"`
}

// EmbeddingConfig configures the optional semantic-similarity fallback used
// when no table can be matched by name.
type EmbeddingConfig struct {
	Enabled       bool    `yaml:"enabled" env:"ASKDB_EMBEDDING_ENABLED"`
	Endpoint      string  `yaml:"endpoint" env:"ASKDB_EMBEDDING_ENDPOINT"`
	Model         string  `yaml:"model" env:"ASKDB_EMBEDDING_MODEL"`
	MinSimilarity float64 `yaml:"min_similarity"`
	APIKey        string  `yaml:"-" env:"ASKDB_EMBEDDING_API_KEY"`
}

// AuditConfig controls the JSON Lines audit log.
type AuditConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ASKDB_AUDIT_ENABLED"`
	Path      string `yaml:"path"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

// HistoryConfig controls the translation history store.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// SavedConnection holds parameters for a named database connection.
type SavedConnection struct {
	Name     string `yaml:"name"`
	Adapter  string `yaml:"adapter"`
	DSN      string `yaml:"dsn,omitempty"`
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	Database string `yaml:"database,omitempty"`
	File     string `yaml:"file,omitempty"`
}

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() *Config {
	return &Config{
		Theme: "default",
		Query: QueryConfig{
			CacheCapacity:   100,
			ListLimit:       10,
			MaxColumns:      10,
			LargeTableRows:  10000,
			LargeTableLimit: 100,
		},
		Embedding: EmbeddingConfig{
			Model:         "text-embedding-3-small",
			MinSimilarity: 0.3,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Log: logging.Config{
			Level:  "warn",
			Format: "console",
		},
	}
}

// ConfigDir returns the askdb configuration directory, typically
// ~/.config/askdb/.
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config dir: %w", err)
	}
	return filepath.Join(base, "askdb"), nil
}

// DefaultPath returns ConfigDir()/config.yaml.
func DefaultPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads a Config from the YAML file at path and applies environment
// overrides. A missing file yields DefaultConfig plus the environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("read env: %w", err)
		}
		return cfg, nil
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadDefault loads configuration from DefaultPath().
func LoadDefault() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Save writes the Config to the YAML file at path, creating any necessary
// parent directories.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ResolveDatabase returns the adapter name and DSN to connect with. An
// explicit DSN wins over a named connection.
func (c *Config) ResolveDatabase() (adapterName, dsn string, err error) {
	if c.Database.DSN != "" {
		return c.Database.Adapter, c.Database.DSN, nil
	}
	if c.Database.Connection == "" {
		return c.Database.Adapter, "", nil
	}
	for _, sc := range c.Connections {
		if sc.Name == c.Database.Connection {
			name := c.Database.Adapter
			if name == "" {
				name = strings.ToLower(sc.Adapter)
			}
			return name, sc.BuildDSN(), nil
		}
	}
	return "", "", fmt.Errorf("unknown connection %q", c.Database.Connection)
}

// StatePath resolves p relative to ConfigDir when it is empty or relative.
func StatePath(p, fallback string) (string, error) {
	if p == "" {
		p = fallback
	}
	if filepath.IsAbs(p) {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, p), nil
}

// BuildDSN constructs a connection string in the form the named adapter's
// driver accepts. If DSN is already set, it is returned as-is.
func (sc *SavedConnection) BuildDSN() string {
	if sc.DSN != "" {
		return sc.DSN
	}

	host := sc.Host
	if host == "" {
		host = "localhost"
	}

	switch strings.ToLower(sc.Adapter) {
	case "sqlite", "duckdb":
		if sc.File != "" {
			return sc.File
		}
		if sc.Database != "" {
			return sc.Database
		}
		return ":memory:"

	case "mysql":
		var b strings.Builder
		if sc.User != "" {
			b.WriteString(sc.User)
			if sc.Password != "" {
				b.WriteByte(':')
				b.WriteString(url.PathEscape(sc.Password))
			}
			b.WriteByte('@')
		}
		port := sc.Port
		if port == 0 {
			port = 3306
		}
		fmt.Fprintf(&b, "tcp(%s:%d)/%s", host, port, sc.Database)
		return b.String()

	default:
		u := &url.URL{Scheme: "postgres", Host: host}
		if sc.User != "" {
			if sc.Password != "" {
				u.User = url.UserPassword(sc.User, sc.Password)
			} else {
				u.User = url.User(sc.User)
			}
		}
		if sc.Port > 0 {
			u.Host = fmt.Sprintf("%s:%d", host, sc.Port)
		}
		if sc.Database != "" {
			u.Path = "/" + sc.Database
		}
		return u.String()
	}
}

// DisplayString returns a credential-free representation of the connection,
// formatted as "adapter://host:port/database" for network adapters or
// "adapter://file" for file-based adapters.
func (sc *SavedConnection) DisplayString() string {
	adapter := strings.ToLower(sc.Adapter)
	if adapter == "sqlite" || adapter == "duckdb" {
		file := sc.File
		if file == "" {
			file = sc.DSN
		}
		return fmt.Sprintf("%s://%s", sc.Adapter, file)
	}

	host := sc.Host
	if host == "" {
		host = "localhost"
	}

	location := host
	if sc.Port > 0 {
		location = fmt.Sprintf("%s:%d", host, sc.Port)
	}

	if sc.Database != "" {
		return fmt.Sprintf("%s://%s/%s", sc.Adapter, location, sc.Database)
	}
	return fmt.Sprintf("%s://%s", sc.Adapter, location)
}
