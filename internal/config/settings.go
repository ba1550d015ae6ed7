package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/matsen/doibib/internal/convert"
	"github.com/matsen/doibib/internal/crossref"
)

// Default settings.
const (
	DefaultDelay     = convert.DefaultDelay
	DefaultKeyPrefix = convert.DefaultKeyPrefix
	DefaultBaseURL   = crossref.DefaultBaseURL
	DefaultRateLimit = crossref.DefaultRateLimit
)

// Environment variables read by Resolve.
const (
	EnvMailto         = "DOIBIB_MAILTO"
	EnvCrossrefMailto = "CROSSREF_MAILTO"
	EnvDelay          = "DOIBIB_DELAY"
	EnvBaseURL        = "DOIBIB_BASE_URL"
)

// Settings are the effective options for a conversion run.
type Settings struct {
	Mailto    string
	Delay     time.Duration
	KeyPrefix string
	BaseURL   string
	RateLimit float64
}

// Overrides carries command-line values; nil fields were not given.
type Overrides struct {
	Mailto    *string
	Delay     *time.Duration
	KeyPrefix *string
}

// Resolve merges defaults, the global config, the environment and flag
// overrides, in increasing order of precedence.
func Resolve(cfg *GlobalConfig, o Overrides) (Settings, error) {
	s := Settings{
		Delay:     DefaultDelay,
		KeyPrefix: DefaultKeyPrefix,
		BaseURL:   DefaultBaseURL,
		RateLimit: DefaultRateLimit,
	}

	if cfg != nil {
		if cfg.Mailto != "" {
			s.Mailto = cfg.Mailto
		}
		if cfg.Delay != "" {
			d, err := ParseDelay(cfg.Delay)
			if err != nil {
				return Settings{}, fmt.Errorf("global config: %w", err)
			}
			s.Delay = d
		}
		if cfg.KeyPrefix != "" {
			s.KeyPrefix = cfg.KeyPrefix
		}
		if cfg.BaseURL != "" {
			s.BaseURL = cfg.BaseURL
		}
		if cfg.RateLimit < 0 {
			return Settings{}, fmt.Errorf("global config: invalid rate_limit %v", cfg.RateLimit)
		}
		if cfg.RateLimit > 0 {
			s.RateLimit = cfg.RateLimit
		}
	}

	if v := os.Getenv(EnvCrossrefMailto); v != "" {
		s.Mailto = v
	}
	if v := os.Getenv(EnvMailto); v != "" {
		s.Mailto = v
	}
	if v := os.Getenv(EnvDelay); v != "" {
		d, err := ParseDelay(v)
		if err != nil {
			return Settings{}, fmt.Errorf("%s: %w", EnvDelay, err)
		}
		s.Delay = d
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		s.BaseURL = v
	}

	if o.Mailto != nil {
		s.Mailto = *o.Mailto
	}
	if o.Delay != nil {
		if *o.Delay < 0 {
			return Settings{}, fmt.Errorf("invalid delay: %v (must not be negative)", *o.Delay)
		}
		s.Delay = *o.Delay
	}
	if o.KeyPrefix != nil {
		s.KeyPrefix = *o.KeyPrefix
	}

	if err := ValidateBaseURL(s.BaseURL); err != nil {
		return Settings{}, err
	}

	return s, nil
}

// ValidateBaseURL checks that u is an absolute http(s) URL.
func ValidateBaseURL(u string) error {
	parsed, err := url.Parse(u)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("invalid base_url: %q (want an absolute http or https URL)", u)
	}
	return nil
}
