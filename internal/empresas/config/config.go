// Package config loads the service configuration from a YAML file, applies
// environment overrides (optionally from a .env file) and validates it once
// at startup.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gartstein/empresas/internal/empresas/db"
	e "github.com/gartstein/empresas/internal/empresas/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTable         = "registros_empresas"
	DefaultProfilesTable = "profiles"
	DefaultHTTPPort      = 8080
	DefaultSessionTTL    = 12 * time.Hour
	DefaultPath          = "internal/empresas/config/config.yaml"
)

// Config struct for YAML configuration
type Config struct {
	HTTPPort       int           `yaml:"HTTP_PORT"`
	ServiceURL     string        `yaml:"SERVICE_URL"`
	JWTSecret      string        `yaml:"JWT_SECRET"`
	DBDriver       string        `yaml:"DB_DRIVER"`
	DBHost         string        `yaml:"DB_HOST"`
	DBPort         int           `yaml:"DB_PORT"`
	DBUser         string        `yaml:"DB_USER"`
	DBPassword     string        `yaml:"DB_PASSWORD"`
	DBName         string        `yaml:"DB_NAME"`
	DBSSLMode      string        `yaml:"DB_SSLMODE"`
	DBPath         string        `yaml:"DB_PATH"`
	Table          string        `yaml:"TABLE"`
	ProfilesTable  string        `yaml:"PROFILES_TABLE"`
	Migrate        bool          `yaml:"MIGRATE"`
	KafkaBrokers   []string      `yaml:"KAFKA_BROKERS"`
	Topic          string        `yaml:"TOPIC"`
	AllowedOrigins []string      `yaml:"ALLOWED_ORIGINS"`
	SessionTTL     time.Duration `yaml:"SESSION_TTL"`
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", e.ErrConfig, path, err)
		}
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", e.ErrConfig, path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		if v, ok := lookup(key); ok && v != "" {
			n, err := cast.ToIntE(v)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", e.ErrConfig, key, err)
			}
			*dst = n
		}
		return nil
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = splitList(v)
		}
	}

	str("SERVICE_URL", &c.ServiceURL)
	str("JWT_SECRET", &c.JWTSecret)
	str("DB_DRIVER", &c.DBDriver)
	str("DB_HOST", &c.DBHost)
	str("DB_USER", &c.DBUser)
	str("DB_PASSWORD", &c.DBPassword)
	str("DB_NAME", &c.DBName)
	str("DB_SSLMODE", &c.DBSSLMode)
	str("DB_PATH", &c.DBPath)
	str("TABLE", &c.Table)
	str("PROFILES_TABLE", &c.ProfilesTable)
	str("TOPIC", &c.Topic)
	list("KAFKA_BROKERS", &c.KafkaBrokers)
	list("ALLOWED_ORIGINS", &c.AllowedOrigins)

	if err := num("HTTP_PORT", &c.HTTPPort); err != nil {
		return err
	}
	if err := num("DB_PORT", &c.DBPort); err != nil {
		return err
	}
	if v, ok := lookup("MIGRATE"); ok && v != "" {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return fmt.Errorf("%w: MIGRATE: %v", e.ErrConfig, err)
		}
		c.Migrate = b
	}
	if v, ok := lookup("SESSION_TTL"); ok && v != "" {
		d, err := cast.ToDurationE(v)
		if err != nil {
			return fmt.Errorf("%w: SESSION_TTL: %v", e.ErrConfig, err)
		}
		c.SessionTTL = d
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.HTTPPort == 0 {
		c.HTTPPort = DefaultHTTPPort
	}
	if c.DBDriver == "" {
		c.DBDriver = "postgres"
	}
	if c.DBPort == 0 {
		c.DBPort = 5432
	}
	if c.DBSSLMode == "" {
		c.DBSSLMode = "disable"
	}
	if c.Table == "" {
		c.Table = DefaultTable
	}
	if c.ProfilesTable == "" {
		c.ProfilesTable = DefaultProfilesTable
	}
	if c.Topic == "" {
		c.Topic = "empresas.audit"
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = DefaultSessionTTL
	}
}

// Validate reports missing or malformed settings. A missing service URL or
// JWT secret is fatal: nothing works without them.
func (c *Config) Validate() error {
	if c.ServiceURL == "" || c.JWTSecret == "" {
		return fmt.Errorf("%w: SERVICE_URL and JWT_SECRET are required", e.ErrConfig)
	}
	u, err := url.Parse(c.ServiceURL)
	if err != nil || u.Hostname() == "" {
		return fmt.Errorf("%w: SERVICE_URL %q is not an absolute URL", e.ErrConfig, c.ServiceURL)
	}
	switch c.DBDriver {
	case "postgres":
		if c.DBHost == "" || c.DBName == "" {
			return fmt.Errorf("%w: DB_HOST and DB_NAME are required for postgres", e.ErrConfig)
		}
	case "sqlite":
		if c.DBPath == "" {
			return fmt.Errorf("%w: DB_PATH is required for sqlite", e.ErrConfig)
		}
	default:
		return fmt.Errorf("%w: unsupported DB_DRIVER %q", e.ErrConfig, c.DBDriver)
	}
	return nil
}

// HostRef is the first label of the service host, e.g. "abcd" for
// https://abcd.example.co. Cookie names are derived from it.
func (c *Config) HostRef() string {
	u, err := url.Parse(c.ServiceURL)
	if err != nil {
		return ""
	}
	return strings.Split(u.Hostname(), ".")[0]
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Database returns the repository settings.
func (c *Config) Database() *db.Config {
	return &db.Config{
		Driver:        c.DBDriver,
		Host:          c.DBHost,
		Port:          c.DBPort,
		User:          c.DBUser,
		Password:      c.DBPassword,
		DBName:        c.DBName,
		SSLMode:       c.DBSSLMode,
		Path:          c.DBPath,
		Table:         c.Table,
		ProfilesTable: c.ProfilesTable,
		Migrate:       c.Migrate,
	}
}

// SecureCookies reports whether the service is served over https.
func (c *Config) SecureCookies() bool {
	u, err := url.Parse(c.ServiceURL)
	return err == nil && u.Scheme == "https"
}
