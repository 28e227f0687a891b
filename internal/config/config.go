package config

import (
	"bytes"
	"fmt"
	"net"
	neturl "net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort        = 3010
	defaultEnv         = "development"
	defaultDBHost      = "127.0.0.1"
	defaultDBPort      = 3306
	defaultDBUser      = "root"
	defaultDBPassword  = "password"
	defaultDBName      = "social_agent"
	defaultDBCharset   = "utf8mb4"
	defaultDBLoc       = "Local"
	defaultRedisHost   = "localhost"
	defaultRedisPort   = 6379
	defaultRedisDB     = 0
	defaultSweepSecs   = 60
	defaultAdapterSecs = 120
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int             `yaml:"port"`
	Database       DatabaseConfig  `yaml:"database"`
	Redis          RedisConfig     `yaml:"redis"`
	Env            string          `yaml:"env"` // "development" | "production"
	AllowedOrigins []string        `yaml:"allowed_origins"`
	JWTSecret      string          `yaml:"jwt_secret"`
	Timezone       string          `yaml:"timezone"`
	Scheduler      SchedulerConfig `yaml:"scheduler"`
	Platforms      PlatformsConfig `yaml:"platforms"`
}

type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Charset  string `yaml:"charset"`
	Loc      string `yaml:"loc"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SchedulerConfig controls the due-post sweep and platform call limits.
type SchedulerConfig struct {
	SweepIntervalSeconds  int `yaml:"sweep_interval_seconds"`
	AdapterTimeoutSeconds int `yaml:"adapter_timeout_seconds"`
}

func (s SchedulerConfig) SweepInterval() time.Duration {
	return time.Duration(s.SweepIntervalSeconds) * time.Second
}

func (s SchedulerConfig) AdapterTimeout() time.Duration {
	return time.Duration(s.AdapterTimeoutSeconds) * time.Second
}

// PlatformCredentials is the global fallback credential pair used when a
// client account row carries no token of its own.
type PlatformCredentials struct {
	AccessToken string `yaml:"access_token"`
	AccountID   string `yaml:"account_id"`
}

// PlatformsConfig holds per-platform fallback credentials.
type PlatformsConfig struct {
	Instagram PlatformCredentials `yaml:"instagram"`
	Facebook  PlatformCredentials `yaml:"facebook"`
	LinkedIn  PlatformCredentials `yaml:"linkedin"`
}

// ForPlatform returns the fallback credentials for a base platform name.
func (p PlatformsConfig) ForPlatform(platform string) PlatformCredentials {
	switch platform {
	case "instagram":
		return p.Instagram
	case "facebook":
		return p.Facebook
	case "linkedin":
		return p.LinkedIn
	}
	return PlatformCredentials{}
}

// Load reads and validates the YAML config file at configPath.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}

	cfg.Env = normalizeEnv(cfg.Env)
	applyEnvOverrides(&cfg)

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d in %q, expected 1-65535", cfg.Port, path)
	}
	if cfg.Database.Port < 1 || cfg.Database.Port > 65535 {
		return nil, fmt.Errorf("invalid database.port %d in %q, expected 1-65535", cfg.Database.Port, path)
	}
	if cfg.Redis.Port < 1 || cfg.Redis.Port > 65535 {
		return nil, fmt.Errorf("invalid redis.port %d in %q, expected 1-65535", cfg.Redis.Port, path)
	}
	if cfg.Scheduler.SweepIntervalSeconds < 1 {
		return nil, fmt.Errorf("invalid scheduler.sweep_interval_seconds %d in %q, expected >= 1", cfg.Scheduler.SweepIntervalSeconds, path)
	}

	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() AppConfig {
	return AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Database: DatabaseConfig{
			Host:     defaultDBHost,
			Port:     defaultDBPort,
			User:     defaultDBUser,
			Password: defaultDBPassword,
			Name:     defaultDBName,
			Charset:  defaultDBCharset,
			Loc:      defaultDBLoc,
		},
		Redis: RedisConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
			DB:   defaultRedisDB,
		},
		Scheduler: SchedulerConfig{
			SweepIntervalSeconds:  defaultSweepSecs,
			AdapterTimeoutSeconds: defaultAdapterSecs,
		},
	}
}

// applyEnvOverrides lets deployment environments inject platform tokens
// without writing them into the config file.
func applyEnvOverrides(cfg *AppConfig) {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.Platforms.Instagram.AccessToken, "INSTAGRAM_ACCESS_TOKEN")
	set(&cfg.Platforms.Instagram.AccountID, "INSTAGRAM_ACCOUNT_ID")
	set(&cfg.Platforms.Facebook.AccessToken, "FACEBOOK_ACCESS_TOKEN")
	set(&cfg.Platforms.Facebook.AccountID, "FACEBOOK_PAGE_ID")
	set(&cfg.Platforms.LinkedIn.AccessToken, "LINKEDIN_ACCESS_TOKEN")
	set(&cfg.Platforms.LinkedIn.AccountID, "LINKEDIN_ORGANIZATION_ID")
	set(&cfg.JWTSecret, "JWT_SECRET")
}

// DSNValue builds the MySQL DSN, preferring an explicit dsn entry.
func (c DatabaseConfig) DSNValue() string {
	if strings.TrimSpace(c.DSN) != "" {
		return c.DSN
	}
	params := neturl.Values{}
	params.Set("charset", c.Charset)
	params.Set("parseTime", "True")
	params.Set("loc", c.Loc)
	addr := net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?%s", c.User, c.Password, addr, c.Name, params.Encode())
}

// URLValue builds the redis:// URL, preferring an explicit url entry.
func (c RedisConfig) URLValue() string {
	if strings.TrimSpace(c.URL) != "" {
		return c.URL
	}
	u := neturl.URL{
		Scheme: "redis",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + strconv.Itoa(c.DB),
	}
	if c.Username != "" || c.Password != "" {
		u.User = neturl.UserPassword(c.Username, c.Password)
	}
	return u.String()
}

func normalizeEnv(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod":
		return "production"
	default:
		return "development"
	}
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool {
	return c.Env != "production"
}
