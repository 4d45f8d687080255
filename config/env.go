package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvString returns the value of an environment variable and whether it was set.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses an integer environment variable.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, true, nil
}

// EnvBool parses a boolean environment variable. Accepts the usual
// true/1/yes/on spellings, case-insensitively.
func EnvBool(key string) (bool, bool) {
	value, ok := EnvString(key)
	if !ok {
		return false, false
	}
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true, true
	default:
		return false, true
	}
}

// EnvDuration parses a duration environment variable.
func EnvDuration(key string) (time.Duration, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, true, nil
}

// FromEnv overlays AMZ_* environment variables onto cfg. Unset variables
// leave the existing value untouched; malformed values are an error so a
// typo does not silently fall back to the default.
func FromEnv(cfg *Config) error {
	if value, ok := EnvString("AMZ_BASE_URL"); ok {
		cfg.BaseURL = value
	}
	if value, ok := EnvString("AMZ_MARKETPLACE"); ok {
		cfg.Marketplace = value
	}
	if value, ok := EnvString("AMZ_USER_AGENT"); ok {
		cfg.UserAgent = value
	}
	if value, ok, err := EnvDuration("AMZ_HTTP_TIMEOUT"); err != nil {
		return err
	} else if ok {
		cfg.Timeout = value
	}
	if value, ok, err := EnvInt("AMZ_HTTP_MAX_RETRIES"); err != nil {
		return err
	} else if ok {
		cfg.MaxRetries = value
	}
	if value, ok, err := EnvInt("AMZ_RATE_LIMIT_PER_MINUTE"); err != nil {
		return err
	} else if ok {
		cfg.RequestsPerMinute = value
	}
	if value, ok := EnvBool("AMZ_CACHE_ENABLED"); ok {
		cfg.CacheEnabled = value
	}
	if value, ok, err := EnvInt("AMZ_DEFAULT_PAGES"); err != nil {
		return err
	} else if ok {
		cfg.DefaultPages = value
	}
	if value, ok, err := EnvInt("AMZ_MAX_PAGES"); err != nil {
		return err
	} else if ok {
		cfg.MaxPages = value
	}
	if value, ok := EnvBool("AMZ_DEDUPLICATE"); ok {
		cfg.Deduplicate = value
	}
	if value, ok := EnvString("AMZ_EMPTY_STATE_MARKER"); ok {
		cfg.EmptyStateMarker = value
	}
	if value, ok := EnvString("AMZ_OUTPUT_FILE"); ok {
		cfg.OutputFile = value
	}
	return nil
}
