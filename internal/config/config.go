// Package config provides client configuration with support for command-line flags, environment variables, .env files and a YAML config file.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the client reads.
const EnvPrefix = "LEGADO_"

// Storage backends.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds the client configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Server    ServerConfig
	Storage   StorageConfig
	Sync      SyncConfig
	Companion CompanionConfig
	Session   SessionConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig describes the legado server the client talks to.
type ServerConfig struct {
	BaseURL   string
	Timeout   time.Duration // Per-request timeout (default: 15s)
	RateLimit float64       // Requests per second to the server (default: 10)
	RateBurst int           // (default: 20)
}

// StorageConfig selects where local state is kept.
type StorageConfig struct {
	Backend       string // badger, sqlite, redis or memory
	Path          string // Data directory (default: ~/.legado)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// SyncConfig tunes the reading progress synchronizer.
type SyncConfig struct {
	Debounce time.Duration
	// FlushOnClose sends a pending position when the reader closes instead
	// of dropping it.
	FlushOnClose bool
}

// CompanionConfig holds the local companion API configuration.
type CompanionConfig struct {
	Addr           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	IdleTimeout    time.Duration
}

// SessionConfig holds the session sealing configuration.
type SessionConfig struct {
	// Passphrase derives the sealing key. Empty uses a random key file in
	// the data directory.
	Passphrase string
}

// Flags are the command-line overrides. Register them on the FlagSet that
// parses the global options.
type Flags struct {
	ConfigFile string
	EnvFile    string
	Env        string
	LogLevel   string
	Server     string
	Timeout    string
	Storage    string
	DataPath   string
	Addr       string
}

// RegisterFlags defines the configuration flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.ConfigFile, "config", "", "Path to YAML config file (default: ~/.legado/config.yaml)")
	fs.StringVar(&f.EnvFile, "env-file", ".env", "Path to .env file")
	fs.StringVar(&f.Env, "env", "", "Environment (development, staging, production)")
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.Server, "server", "", "Legado server URL (default: http://localhost:8080)")
	fs.StringVar(&f.Timeout, "timeout", "", "Request timeout (default: 15s)")
	fs.StringVar(&f.Storage, "storage", "", "Storage backend: badger, sqlite, redis, memory (default: badger)")
	fs.StringVar(&f.DataPath, "data-path", "", "Data directory (default: ~/.legado)")
	fs.StringVar(&f.Addr, "addr", "", "Companion API listen address (default: 127.0.0.1:7878)")
	return f
}

// fileConfig is the YAML config file layout.
type fileConfig struct {
	App struct {
		Environment string `yaml:"environment"`
	} `yaml:"app"`
	Logger struct {
		Level string `yaml:"level"`
	} `yaml:"logger"`
	Server struct {
		BaseURL   string `yaml:"base_url"`
		Timeout   string `yaml:"timeout"`
		RateLimit string `yaml:"rate_limit"`
		RateBurst string `yaml:"rate_burst"`
	} `yaml:"server"`
	Storage struct {
		Backend   string `yaml:"backend"`
		Path      string `yaml:"path"`
		RedisAddr string `yaml:"redis_addr"`
		RedisDB   string `yaml:"redis_db"`
	} `yaml:"storage"`
	Sync struct {
		Debounce     string `yaml:"debounce"`
		FlushOnClose string `yaml:"flush_on_close"`
	} `yaml:"sync"`
	Companion struct {
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
		ReadTimeout    string   `yaml:"read_timeout"`
		IdleTimeout    string   `yaml:"idle_timeout"`
	} `yaml:"companion"`
	Session struct {
		Passphrase string `yaml:"passphrase"`
	} `yaml:"session"`
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables (LEGADO_*).
// 3. .env file.
// 4. YAML config file.
// 5. Default values (lowest priority).
func LoadConfig(flags *Flags) (*Config, error) {
	if flags == nil {
		flags = &Flags{}
	}

	// Load .env file if it exists (silently ignore if not found).
	if flags.EnvFile != "" {
		if err := loadEnvFile(flags.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	file, err := loadConfigFile(getConfigValue(flags.ConfigFile, "CONFIG", ""))
	if err != nil {
		return nil, err
	}

	origins := getConfigValue("", "ALLOWED_ORIGINS", strings.Join(file.Companion.AllowedOrigins, ","))
	if origins == "" {
		origins = "http://localhost:3000"
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(flags.Env, "ENV", or(file.App.Environment, "development")),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(flags.LogLevel, "LOG_LEVEL", or(file.Logger.Level, "info")),
		},
		Server: ServerConfig{
			BaseURL:   strings.TrimRight(getConfigValue(flags.Server, "SERVER_URL", or(file.Server.BaseURL, "http://localhost:8080")), "/"),
			RateBurst: getIntConfigValue("", "RATE_BURST", intOr(file.Server.RateBurst, 20)),
		},
		Storage: StorageConfig{
			Backend:       strings.ToLower(getConfigValue(flags.Storage, "STORAGE_BACKEND", or(file.Storage.Backend, BackendBadger))),
			Path:          getConfigValue(flags.DataPath, "DATA_PATH", file.Storage.Path),
			RedisAddr:     getConfigValue("", "REDIS_ADDR", or(file.Storage.RedisAddr, "localhost:6379")),
			RedisPassword: getConfigValue("", "REDIS_PASSWORD", ""),
			RedisDB:       getIntConfigValue("", "REDIS_DB", intOr(file.Storage.RedisDB, 0)),
		},
		Sync: SyncConfig{
			FlushOnClose: getBoolConfigValue("", "SYNC_FLUSH_ON_CLOSE", boolOr(file.Sync.FlushOnClose, false)),
		},
		Companion: CompanionConfig{
			Addr:           getConfigValue(flags.Addr, "COMPANION_ADDR", or(file.Companion.Addr, "127.0.0.1:7878")),
			AllowedOrigins: splitList(origins),
		},
		Session: SessionConfig{
			Passphrase: getConfigValue("", "SESSION_PASSPHRASE", file.Session.Passphrase),
		},
	}

	rateStr := getConfigValue("", "RATE_LIMIT", or(file.Server.RateLimit, "10"))
	rate, err := strconv.ParseFloat(rateStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", rateStr, err)
	}
	cfg.Server.RateLimit = rate

	durations := []struct {
		name  string
		value string
		dest  *time.Duration
	}{
		{"server timeout", getConfigValue(flags.Timeout, "SERVER_TIMEOUT", or(file.Server.Timeout, "15s")), &cfg.Server.Timeout},
		{"sync debounce", getConfigValue("", "SYNC_DEBOUNCE", or(file.Sync.Debounce, "5s")), &cfg.Sync.Debounce},
		{"companion read timeout", getConfigValue("", "COMPANION_READ_TIMEOUT", or(file.Companion.ReadTimeout, "15s")), &cfg.Companion.ReadTimeout},
		{"companion idle timeout", getConfigValue("", "COMPANION_IDLE_TIMEOUT", or(file.Companion.IdleTimeout, "60s")), &cfg.Companion.IdleTimeout},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.name, d.value, err)
		}
		*d.dest = parsed
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server url: %q (must be an http or https URL)", c.Server.BaseURL)
	}
	if c.Server.Timeout <= 0 {
		return errors.New("server timeout must be positive")
	}
	if c.Server.RateLimit < 0 {
		return errors.New("rate limit cannot be negative")
	}

	switch c.Storage.Backend {
	case BackendBadger, BackendSQLite, BackendMemory:
	case BackendRedis:
		if c.Storage.RedisAddr == "" {
			return errors.New("redis address is required for the redis backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %q (must be badger, sqlite, redis, or memory)", c.Storage.Backend)
	}
	if c.Storage.Path == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	if c.Sync.Debounce <= 0 {
		return errors.New("sync debounce must be positive")
	}
	if c.Companion.Addr == "" {
		return errors.New("companion address cannot be empty")
	}

	return nil
}

// IsProduction reports whether the client runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, strings.TrimPrefix(path[1:], "/"))
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// defaultDataPath is ~/.legado.
func defaultDataPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".legado"), nil
}

// expandDataPath expands ~ and makes the path absolute.
func (c *Config) expandDataPath() error {
	defaultPath, err := defaultDataPath()
	if err != nil {
		return err
	}
	expanded, err := expandPath(c.Storage.Path, defaultPath)
	if err != nil {
		return err
	}
	c.Storage.Path = expanded
	return nil
}

// loadConfigFile reads the YAML config file. An explicit path must exist;
// the default path is optional.
func loadConfigFile(path string) (fileConfig, error) {
	var file fileConfig

	explicit := path != ""
	if !explicit {
		dataPath, err := defaultDataPath()
		if err != nil {
			return file, nil //nolint:nilerr // no home directory means no default file
		}
		path = filepath.Join(dataPath, "config.yaml")
	}

	path, err := expandPath(path, "")
	if err != nil {
		return file, fmt.Errorf("invalid config file path: %w", err)
	}

	data, err := os.ReadFile(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return file, nil
		}
		return file, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return file, nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(EnvPrefix + envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	return parseBool(strValue)
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strings.TrimSpace(strValue))
	if err != nil {
		return defaultValue
	}
	return result
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes"
}

func or(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func intOr(value string, fallback int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		return n
	}
	return fallback
}

func boolOr(value string, fallback bool) bool {
	if value == "" {
		return fallback
	}
	return parseBool(value)
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
