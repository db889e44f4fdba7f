// Package config handles configuration for the server component:
// defaults, an optional JSON or YAML file, environment variables and
// command-line flags, applied in that order.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// Storage providers understood by StorageEndpoint and the storage gateway.
const (
	ProviderDOSpaces = "do-spaces"
	ProviderGeneric  = "generic"
)

// Config holds runtime settings for the duplofs server.
//
// The database is addressed either by DatabaseDSN or, when that is empty,
// by the DB* parts. Object storage uses the S3* fields; S3Provider selects
// between DigitalOcean Spaces URL conventions and a generic S3 endpoint.
type Config struct {
	HTTPAddr       string
	MaxUploadBytes int64
	CookieSecure   bool

	DatabaseDSN string
	DBUser      string
	DBPassword  string
	DBHost      string
	DBPort      string
	DBName      string
	DBSSLMode   string

	SecretKey              string
	SessionTTL             time.Duration
	PasswordHashIterations int

	S3AccessKey     string
	S3SecretKey     string
	S3Region        string
	S3Bucket        string
	S3Endpoint      string
	S3Provider      string
	S3PublicBaseURL string

	LogFormat string

	TracingEnabled     bool
	TracingEndpoint    string
	TracingProtocol    string
	TracingSampleRatio float64
}

// LoadDefaults populates Config with development defaults. Secrets and
// connection targets are intentionally left empty so Validate catches them.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = "0.0.0.0:5000"
	c.MaxUploadBytes = 100 << 20
	c.DBPort = "25060"
	c.DBName = "defaultdb"
	c.DBSSLMode = "prefer"
	c.SessionTTL = 31 * 24 * time.Hour
	c.PasswordHashIterations = 600000
	c.S3Provider = ProviderDOSpaces
	c.LogFormat = "json"
	c.TracingProtocol = "grpc"
	c.TracingSampleRatio = 1.0
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file, the environment and finally from
// command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}

// DSN returns the pgx connection string.
func (c *Config) DSN() string {
	if c.DatabaseDSN != "" {
		return c.DatabaseDSN
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DBUser, c.DBPassword),
		Host:   net.JoinHostPort(c.DBHost, c.DBPort),
		Path:   "/" + c.DBName,
	}
	if c.DBSSLMode != "" {
		q := url.Values{}
		q.Set("sslmode", c.DBSSLMode)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// StorageEndpoint returns the S3 API endpoint. For DigitalOcean Spaces it is
// derived from the region unless set explicitly.
func (c *Config) StorageEndpoint() string {
	if c.S3Endpoint != "" {
		return strings.TrimRight(c.S3Endpoint, "/")
	}
	if c.S3Provider == ProviderDOSpaces && c.S3Region != "" {
		return fmt.Sprintf("https://%s.digitaloceanspaces.com", c.S3Region)
	}
	return ""
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	missing := func(name string) {
		errs = append(errs, fmt.Errorf("%s is required", name))
	}

	if c.HTTPAddr == "" {
		missing("http address")
	}
	if c.SecretKey == "" {
		missing("secret key")
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}
	if c.DatabaseDSN == "" && c.DBHost == "" {
		missing("database dsn or database host")
	}
	if c.S3Bucket == "" {
		missing("storage bucket")
	}

	switch c.S3Provider {
	case ProviderDOSpaces:
		if c.S3Region == "" {
			missing("storage region")
		}
	case ProviderGeneric:
		if c.S3Endpoint == "" {
			missing("storage endpoint")
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage provider %q", c.S3Provider))
	}

	if c.TracingSampleRatio < 0 || c.TracingSampleRatio > 1 {
		errs = append(errs, errors.New("tracing sample ratio must be within [0, 1]"))
	}

	return errors.Join(errs...)
}
