package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Port    string
	GinMode string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBTimezone string
	DBLogLevel string
	SQLitePath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTLSec   int

	JWTSecret     string
	CORSOrigins   []string
	BootstrapFile string
	FeedPageSize  int
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvi(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return def
}

func getenvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func Load() *Config {
	return &Config{
		Port:    getenv("PORT", "8080"),
		GinMode: getenv("GIN_MODE", "release"),

		DBDriver:   getenv("DB_DRIVER", DriverPostgres),
		DBHost:     getenv("DB_HOST", "localhost"),
		DBPort:     getenv("DB_PORT", "5432"),
		DBUser:     getenv("DB_USER", "postgres"),
		DBPassword: getenv("DB_PASSWORD", "postgres"),
		DBName:     getenv("DB_NAME", "devnet"),
		DBSSLMode:  getenv("DB_SSLMODE", "disable"),
		DBTimezone: getenv("DB_TIMEZONE", "UTC"),
		DBLogLevel: getenv("DB_LOG_LEVEL", "warn"),
		SQLitePath: getenv("SQLITE_PATH", "./devnet.db"),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvi("REDIS_DB", 0),
		CacheTTLSec:   getenvi("CACHE_TTL_SECONDS", 300),

		JWTSecret:     getenv("JWT_SECRET", ""),
		CORSOrigins:   getenvList("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		BootstrapFile: getenv("BOOTSTRAP_FILE", ""),
		FeedPageSize:  getenvi("FEED_PAGE_SIZE", 10),
	}
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.FeedPageSize <= 0 {
		return fmt.Errorf("FEED_PAGE_SIZE must be positive, got %d", c.FeedPageSize)
	}
	return nil
}

// Bootstrap lists identity subjects that receive capabilities at startup and
// when their profile is first created.
type Bootstrap struct {
	Admins     []string `yaml:"admins"`
	Moderators []string `yaml:"moderators"`
}

// LoadBootstrap reads the role bootstrap file. An empty path yields an empty
// Bootstrap.
func LoadBootstrap(path string) (*Bootstrap, error) {
	b := &Bootstrap{}
	if path == "" {
		return b, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read bootstrap file: %w", err)
	}
	if err := yaml.Unmarshal(data, b); err != nil {
		return nil, fmt.Errorf("config: parse bootstrap file: %w", err)
	}
	b.Admins = compact(b.Admins)
	b.Moderators = compact(b.Moderators)
	return b, nil
}

func (b *Bootstrap) IsAdmin(userID string) bool     { return b != nil && contains(b.Admins, userID) }
func (b *Bootstrap) IsModerator(userID string) bool { return b != nil && contains(b.Moderators, userID) }

func compact(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
