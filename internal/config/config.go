// Package config loads runtime settings from the environment (JOE_ prefix)
// and an optional joe-pages.yaml file.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// MinSecretLength is the shortest accepted HS256 signing secret, in bytes.
const MinSecretLength = 32

type Config struct {
	HTTP struct {
		Addr            string
		PublicURL       string
		ShutdownTimeout time.Duration
	}
	DB struct {
		Driver string
		DSN    string
	}
	Auth struct {
		JWTSecret     string
		TokenLifetime time.Duration
		// CookieSecure is one of auto, true, false.
		CookieSecure string
	}
	OIDC struct {
		Issuer       string
		ClientID     string
		ClientSecret string
		RedirectURL  string
	}
	RateLimit struct {
		ProbePerMinute int
		ProbeBurst     int
	}
	Log struct {
		Level       string
		Development bool
	}
}

// OIDCEnabled reports whether federated sign-in is configured.
func (c *Config) OIDCEnabled() bool {
	return c.OIDC.Issuer != ""
}

// Load reads configuration. When file is empty, joe-pages.yaml is looked up
// in the working directory and is optional.
func Load(file string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("JOE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.public_url", "")
	v.SetDefault("http.shutdown_timeout", "10s")
	v.SetDefault("db.driver", "")
	v.SetDefault("db.dsn", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_lifetime", "720h")
	v.SetDefault("auth.cookie_secure", "auto")
	v.SetDefault("oidc.issuer", "")
	v.SetDefault("oidc.client_id", "")
	v.SetDefault("oidc.client_secret", "")
	v.SetDefault("oidc.redirect_url", "")
	v.SetDefault("ratelimit.probe_per_minute", 60)
	v.SetDefault("ratelimit.probe_burst", 20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("joe-pages")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	cfg.HTTP.Addr = v.GetString("http.addr")
	cfg.HTTP.PublicURL = strings.TrimRight(v.GetString("http.public_url"), "/")
	cfg.DB.Driver = v.GetString("db.driver")
	cfg.DB.DSN = v.GetString("db.dsn")
	cfg.Auth.JWTSecret = v.GetString("auth.jwt_secret")
	cfg.Auth.CookieSecure = strings.ToLower(v.GetString("auth.cookie_secure"))
	cfg.OIDC.Issuer = v.GetString("oidc.issuer")
	cfg.OIDC.ClientID = v.GetString("oidc.client_id")
	cfg.OIDC.ClientSecret = v.GetString("oidc.client_secret")
	cfg.OIDC.RedirectURL = v.GetString("oidc.redirect_url")
	cfg.RateLimit.ProbePerMinute = v.GetInt("ratelimit.probe_per_minute")
	cfg.RateLimit.ProbeBurst = v.GetInt("ratelimit.probe_burst")
	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.Development = v.GetBool("log.development")

	var err error
	if cfg.Auth.TokenLifetime, err = time.ParseDuration(v.GetString("auth.token_lifetime")); err != nil {
		return nil, fmt.Errorf("invalid JOE_AUTH_TOKEN_LIFETIME: %w", err)
	}
	if cfg.HTTP.ShutdownTimeout, err = time.ParseDuration(v.GetString("http.shutdown_timeout")); err != nil {
		return nil, fmt.Errorf("invalid JOE_HTTP_SHUTDOWN_TIMEOUT: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DB.Driver == "" {
		return fmt.Errorf("JOE_DB_DRIVER is required (sqlite3, mysql, postgres)")
	}
	if !slices.Contains([]string{"sqlite3", "mysql", "postgres"}, c.DB.Driver) {
		return fmt.Errorf("JOE_DB_DRIVER %q is not one of sqlite3, mysql, postgres", c.DB.Driver)
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("JOE_DB_DSN is required")
	}
	if len(c.Auth.JWTSecret) < MinSecretLength {
		return fmt.Errorf("JOE_AUTH_JWT_SECRET must be at least %d bytes", MinSecretLength)
	}
	if c.Auth.TokenLifetime <= 0 {
		return fmt.Errorf("JOE_AUTH_TOKEN_LIFETIME must be positive")
	}
	switch c.Auth.CookieSecure {
	case "auto", "true", "false":
	default:
		return fmt.Errorf("JOE_AUTH_COOKIE_SECURE must be auto, true or false, got %q", c.Auth.CookieSecure)
	}
	if c.RateLimit.ProbePerMinute <= 0 || c.RateLimit.ProbeBurst <= 0 {
		return fmt.Errorf("JOE_RATELIMIT_PROBE_PER_MINUTE and JOE_RATELIMIT_PROBE_BURST must be positive")
	}

	oidc := []string{c.OIDC.Issuer, c.OIDC.ClientID, c.OIDC.ClientSecret, c.OIDC.RedirectURL}
	set := 0
	for _, s := range oidc {
		if s != "" {
			set++
		}
	}
	if set != 0 && set != len(oidc) {
		return fmt.Errorf("JOE_OIDC_ISSUER, JOE_OIDC_CLIENT_ID, JOE_OIDC_CLIENT_SECRET and JOE_OIDC_REDIRECT_URL must be set together")
	}
	return nil
}
