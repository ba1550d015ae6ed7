// Package config handles the global doibib configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// GlobalConfig represents configuration stored in ~/.config/doibib/config.yml.
type GlobalConfig struct {
	Mailto    string  `yaml:"mailto,omitempty"`
	Delay     string  `yaml:"delay,omitempty"` // Go duration, e.g. "1s" or "500ms"
	KeyPrefix string  `yaml:"key_prefix,omitempty"`
	BaseURL   string  `yaml:"base_url,omitempty"`
	RateLimit float64 `yaml:"rate_limit,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "doibib"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
)

// Keys lists the configuration keys accepted by GetValue and SetValue.
var Keys = []string{"mailto", "delay", "key-prefix", "base-url", "rate-limit"}

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/doibib/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	path := GlobalConfigPath()
	if path == "" {
		return &GlobalConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GlobalConfig{}, nil
		}
		return nil, fmt.Errorf("reading global config: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing global config: %w", err)
	}

	globalConfigCache = &cfg
	return &cfg, nil
}

// SaveGlobalConfig writes cfg to the global config file, creating its
// directory if needed, and refreshes the cache.
func SaveGlobalConfig(cfg *GlobalConfig) error {
	path := GlobalConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding global config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing global config: %w", err)
	}

	globalConfigCache = cfg
	return nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// NormalizeKey converts key formats (key_prefix, Key-Prefix) to key-prefix.
func NormalizeKey(key string) string {
	key = strings.ToLower(key)
	return strings.ReplaceAll(key, "_", "-")
}

// GetValue returns the configured value for key as a string.
func (c *GlobalConfig) GetValue(key string) (string, error) {
	switch NormalizeKey(key) {
	case "mailto":
		return c.Mailto, nil
	case "delay":
		return c.Delay, nil
	case "key-prefix":
		return c.KeyPrefix, nil
	case "base-url":
		return c.BaseURL, nil
	case "rate-limit":
		if c.RateLimit == 0 {
			return "", nil
		}
		return strconv.FormatFloat(c.RateLimit, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s (valid: %s)", key, strings.Join(Keys, ", "))
	}
}

// SetValue validates value and stores it under key.
func (c *GlobalConfig) SetValue(key, value string) error {
	switch NormalizeKey(key) {
	case "mailto":
		c.Mailto = strings.TrimSpace(value)
	case "delay":
		if _, err := ParseDelay(value); err != nil {
			return err
		}
		c.Delay = value
	case "key-prefix":
		c.KeyPrefix = value
	case "base-url":
		if err := ValidateBaseURL(value); err != nil {
			return err
		}
		c.BaseURL = value
	case "rate-limit":
		limit, err := strconv.ParseFloat(value, 64)
		if err != nil || limit < 0 {
			return fmt.Errorf("invalid rate_limit: %q (want a non-negative number)", value)
		}
		c.RateLimit = limit
	default:
		return fmt.Errorf("unknown configuration key: %s (valid: %s)", key, strings.Join(Keys, ", "))
	}
	return nil
}

// ParseDelay parses a non-negative delay. Plain numbers are seconds,
// anything else must be a Go duration.
func ParseDelay(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("invalid delay: %q (must not be negative)", s)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid delay: %q (want seconds or a duration like 500ms)", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid delay: %q (must not be negative)", s)
	}
	return d, nil
}
