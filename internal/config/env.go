package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/weblisk-dev/weblisk/internal/errors"
)

// LoadEnvFile loads variables from a dotenv file into the process
// environment. Variables already set in the environment win. Pass ""
// for the conventional ".env".
//
// Dotenv loading is an explicit opt-in; nothing reads .env unless the
// caller asks for it.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Newf(errors.CategoryConfig, "env file %s: %v", path, err)
	}
	return nil
}

// ApplyEnv overlays WEBLISK_* environment variables onto the config.
// Variables beat weblisk.json, which beats built-in defaults.
//
// Recognized variables:
//
//	WEBLISK_HOST               bind host
//	WEBLISK_PORT               listen port
//	WEBLISK_ENDPOINT           WebSocket upgrade path
//	WEBLISK_DEV_MODE           true/false
//	WEBLISK_ALLOWED_ORIGINS    comma-separated origin list
//	WEBLISK_SESSION_SECURE     true/false
//	WEBLISK_SESSION_SAME_SITE  lax, strict or none
//	WEBLISK_STATIC_DIR         static files directory
//	WEBLISK_RATE_LIMIT         true/false
//	WEBLISK_LOG_LEVEL          debug, info, warn or error
//	WEBLISK_LOG_FORMAT         text or json
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.Getenv)
}

// applyEnv is ApplyEnv against an arbitrary lookup.
func (c *Config) applyEnv(get func(string) string) error {
	if v := get("WEBLISK_HOST"); v != "" {
		c.Server.Host = v
	}

	if v := get("WEBLISK_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("E103").
				WithDetailf("WEBLISK_PORT %q is not a number", v)
		}
		c.Server.Port = port
	}

	if v := get("WEBLISK_ENDPOINT"); v != "" {
		c.Server.Endpoint = v
	}

	if v := get("WEBLISK_DEV_MODE"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Newf(errors.CategoryConfig, "WEBLISK_DEV_MODE %q is not a boolean", v)
		}
		c.Server.DevMode = enabled
	}

	if v := get("WEBLISK_ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}

	if v := get("WEBLISK_SESSION_SECURE"); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Newf(errors.CategoryConfig, "WEBLISK_SESSION_SECURE %q is not a boolean", v)
		}
		c.Session.Secure = secure
	}

	if v := get("WEBLISK_SESSION_SAME_SITE"); v != "" {
		c.Session.SameSite = strings.ToLower(v)
	}

	if v := get("WEBLISK_STATIC_DIR"); v != "" {
		c.Static.Dir = v
	}

	if v := get("WEBLISK_RATE_LIMIT"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Newf(errors.CategoryConfig, "WEBLISK_RATE_LIMIT %q is not a boolean", v)
		}
		c.RateLimit.Enabled = enabled
	}

	if v := get("WEBLISK_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}

	if v := get("WEBLISK_LOG_FORMAT"); v != "" {
		c.Log.Format = strings.ToLower(v)
	}

	return nil
}

// splitList splits a comma-separated list, trimming whitespace and
// dropping empty entries.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
