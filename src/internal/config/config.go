package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"novelmeta/src/internal/httpx"
)

const (
	DefaultConcurrency = 5
	MinConcurrency     = 1
	MaxConcurrency     = 20

	envPrefix = "NOVELMETA_"
)

type Config struct {
	Concurrency      int           `yaml:"concurrency"`
	DelayEnabled     bool          `yaml:"delay_enable"`
	LoginCookie      string        `yaml:"login_cookie"`
	SearchWithAuthor bool          `yaml:"search_with_author"`
	PreferAppAPI     bool          `yaml:"prefer_app_api"`
	SearchTimeout    time.Duration `yaml:"search_timeout"`
	DetailTimeout    time.Duration `yaml:"detail_timeout"`
	PageTimeout      time.Duration `yaml:"page_timeout"`
	Log              LogConfig     `yaml:"log"`
	Server           ServerConfig  `yaml:"server"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// Default returns the documented defaults.
func Default() Config {
	return Config{
		Concurrency:   DefaultConcurrency,
		DelayEnabled:  true,
		PreferAppAPI:  true,
		SearchTimeout: 15 * time.Second,
		DetailTimeout: 15 * time.Second,
		PageTimeout:   10 * time.Second,
		Log:           LogConfig{Level: "info"},
		Server:        ServerConfig{Listen: ":8080"},
	}
}

// Load builds the configuration from defaults, the YAML file at path (when
// path is not empty), its sibling <name>.local.<ext> override, and finally
// NOVELMETA_* environment variables, after loading .env if present.
//
// The .local file is merged over the main file and cannot reset a field to
// its zero value; use the environment for that.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		if err := readFile(path, &cfg, true); err != nil {
			return Config{}, err
		}
		var local Config
		if err := readFile(localPath(path), &local, false); err != nil {
			return Config{}, err
		}
		if err := mergo.Merge(&cfg, local, mergo.WithOverride); err != nil {
			return Config{}, fmt.Errorf("merge local config: %w", err)
		}
	}
	applyEnv(&cfg)
	cfg.Concurrency = ClampConcurrency(cfg.Concurrency)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func readFile(path string, into *Config, required bool) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, into); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// localPath maps dir/name.ext to dir/name.local.ext.
func localPath(path string) string {
	dir, base := filepath.Split(path)
	ext := filepath.Ext(base)
	return filepath.Join(dir, strings.TrimSuffix(base, ext)+".local"+ext)
}

func applyEnv(c *Config) {
	c.Concurrency = getEnvInt("CONCURRENCY", c.Concurrency)
	c.DelayEnabled = getEnvBool("DELAY_ENABLE", c.DelayEnabled)
	c.LoginCookie = getEnv("LOGIN_COOKIE", c.LoginCookie)
	c.SearchWithAuthor = getEnvBool("SEARCH_WITH_AUTHOR", c.SearchWithAuthor)
	c.PreferAppAPI = getEnvBool("PREFER_APP_API", c.PreferAppAPI)
	c.SearchTimeout = getEnvDuration("SEARCH_TIMEOUT", c.SearchTimeout)
	c.DetailTimeout = getEnvDuration("DETAIL_TIMEOUT", c.DetailTimeout)
	c.PageTimeout = getEnvDuration("PAGE_TIMEOUT", c.PageTimeout)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnv("LOG_FILE", c.Log.File)
	c.Server.Listen = getEnv("LISTEN", c.Server.Listen)
}

func (c Config) Validate() error {
	for name, d := range map[string]time.Duration{
		"search_timeout": c.SearchTimeout,
		"detail_timeout": c.DetailTimeout,
		"page_timeout":   c.PageTimeout,
	} {
		if d < time.Second || d > time.Minute {
			return fmt.Errorf("%s must be between 1s and 60s, got %s", name, d)
		}
	}
	if strings.TrimSpace(c.Server.Listen) == "" {
		return fmt.Errorf("server.listen is required")
	}
	return nil
}

// ClampConcurrency bounds n to [MinConcurrency, MaxConcurrency].
func ClampConcurrency(n int) int {
	if n < MinConcurrency {
		return MinConcurrency
	}
	if n > MaxConcurrency {
		return MaxConcurrency
	}
	return n
}

// SessionID is the app session id carried by LoginCookie, or "".
func (c Config) SessionID() string { return httpx.SessionID(c.LoginCookie) }

// DelayRange is the politeness delay window before each detail fetch.
func (c Config) DelayRange() (time.Duration, time.Duration) {
	if c.PreferAppAPI {
		return 200 * time.Millisecond, 800 * time.Millisecond
	}
	return 500 * time.Millisecond, 1800 * time.Millisecond
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(envPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(envPrefix + key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(envPrefix + key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("15s") and bare seconds ("15").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envPrefix + key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
