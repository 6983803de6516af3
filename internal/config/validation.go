package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.validateDatabase(); err != nil {
		return fmt.Errorf("database config: %w", err)
	}

	if err := c.validateOIDC(); err != nil {
		return fmt.Errorf("oidc config: %w", err)
	}

	if err := c.validateCache(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}

	if err := c.validateSweep(); err != nil {
		return fmt.Errorf("sweep config: %w", err)
	}

	if err := c.validateLogging(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Server.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}

	parsed, err := url.Parse(c.Server.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("base_url must be absolute: %s", c.Server.BaseURL)
	}

	if c.Server.SessionTTL < time.Minute {
		return fmt.Errorf("session_ttl must be at least 1 minute")
	}

	if c.Server.MaxBodyBytes < 1 {
		return fmt.Errorf("max_body_bytes must be positive")
	}

	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.URL == "" {
		return fmt.Errorf("url is required (or set DATABASE_URL)")
	}

	if c.Database.MaxConns < 1 {
		return fmt.Errorf("max_conns must be positive")
	}

	return nil
}

func (c *Config) validateOIDC() error {
	if c.OIDC.Issuer == "" {
		return fmt.Errorf("issuer is required")
	}

	if _, err := url.Parse(c.OIDC.Issuer); err != nil {
		return fmt.Errorf("invalid issuer URL: %w", err)
	}

	if c.OIDC.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}

	if c.OIDC.ClientSecret == "" {
		return fmt.Errorf("client_secret is required (or set OIDC_CLIENT_SECRET)")
	}

	hasOpenID := false
	for _, scope := range c.OIDC.Scopes {
		if scope == "openid" {
			hasOpenID = true
			break
		}
	}
	if !hasOpenID {
		return fmt.Errorf("'openid' scope is required")
	}

	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.Type != "memory" && c.Cache.Type != "redis" {
		return fmt.Errorf("invalid type: %s (must be memory or redis)", c.Cache.Type)
	}

	if c.Cache.Type == "redis" {
		if c.Cache.Redis == nil {
			return fmt.Errorf("redis config is required when type is redis")
		}
		if c.Cache.Redis.Address == "" {
			return fmt.Errorf("redis address is required")
		}
	}

	if c.Cache.TTL < 0 {
		return fmt.Errorf("ttl must not be negative")
	}

	return nil
}

func (c *Config) validateSweep() error {
	if c.Sweep.Interval < time.Second {
		return fmt.Errorf("interval must be at least 1 second")
	}

	if c.Sweep.LoginTTL < time.Minute {
		return fmt.Errorf("login_ttl must be at least 1 minute")
	}

	return nil
}

func (c *Config) validateLogging() error {
	level := strings.ToLower(c.Logging.Level)
	if level != "debug" && level != "info" && level != "warn" && level != "error" {
		return fmt.Errorf("invalid level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	format := strings.ToLower(c.Logging.Format)
	if format != "json" && format != "text" {
		return fmt.Errorf("invalid format: %s (must be json or text)", c.Logging.Format)
	}

	return nil
}
