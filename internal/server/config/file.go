package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/duplofs/internal/flagx"
	"github.com/dmitrijs2005/duplofs/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk representation of Config. Zero values and
// absent keys leave the corresponding Config field untouched; booleans are
// pointers so that an explicit false can be told apart from "not set".
type FileConfig struct {
	HTTPAddr       string `json:"http_addr" yaml:"http_addr"`
	MaxUploadBytes int64  `json:"max_upload_bytes" yaml:"max_upload_bytes"`
	CookieSecure   *bool  `json:"cookie_secure" yaml:"cookie_secure"`

	DatabaseDSN string `json:"database_dsn" yaml:"database_dsn"`
	DBUser      string `json:"db_user" yaml:"db_user"`
	DBPassword  string `json:"db_password" yaml:"db_password"`
	DBHost      string `json:"db_host" yaml:"db_host"`
	DBPort      string `json:"db_port" yaml:"db_port"`
	DBName      string `json:"db_name" yaml:"db_name"`
	DBSSLMode   string `json:"db_sslmode" yaml:"db_sslmode"`

	SecretKey              string         `json:"secret_key" yaml:"secret_key"`
	SessionTTL             timex.Duration `json:"session_ttl" yaml:"session_ttl"`
	PasswordHashIterations int            `json:"password_hash_iterations" yaml:"password_hash_iterations"`

	S3AccessKey     string `json:"s3_access_key" yaml:"s3_access_key"`
	S3SecretKey     string `json:"s3_secret_key" yaml:"s3_secret_key"`
	S3Region        string `json:"s3_region" yaml:"s3_region"`
	S3Bucket        string `json:"s3_bucket" yaml:"s3_bucket"`
	S3Endpoint      string `json:"s3_endpoint" yaml:"s3_endpoint"`
	S3Provider      string `json:"s3_provider" yaml:"s3_provider"`
	S3PublicBaseURL string `json:"s3_public_base_url" yaml:"s3_public_base_url"`

	LogFormat string `json:"log_format" yaml:"log_format"`

	TracingEnabled     *bool    `json:"tracing_enabled" yaml:"tracing_enabled"`
	TracingEndpoint    string   `json:"tracing_endpoint" yaml:"tracing_endpoint"`
	TracingProtocol    string   `json:"tracing_protocol" yaml:"tracing_protocol"`
	TracingSampleRatio *float64 `json:"tracing_sample_ratio" yaml:"tracing_sample_ratio"`
}

// parseFile loads the file named by -c/-config into config. Files ending in
// .yaml or .yml are decoded as YAML, anything else as JSON. A missing flag is
// a no-op; an unreadable or malformed file panics.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlags()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		panic(err)
	}

	fc.apply(config)
}

func (fc *FileConfig) apply(config *Config) {
	setString(&config.HTTPAddr, fc.HTTPAddr)
	if fc.MaxUploadBytes > 0 {
		config.MaxUploadBytes = fc.MaxUploadBytes
	}
	if fc.CookieSecure != nil {
		config.CookieSecure = *fc.CookieSecure
	}

	setString(&config.DatabaseDSN, fc.DatabaseDSN)
	setString(&config.DBUser, fc.DBUser)
	setString(&config.DBPassword, fc.DBPassword)
	setString(&config.DBHost, fc.DBHost)
	setString(&config.DBPort, fc.DBPort)
	setString(&config.DBName, fc.DBName)
	setString(&config.DBSSLMode, fc.DBSSLMode)

	setString(&config.SecretKey, fc.SecretKey)
	if fc.SessionTTL.Duration > 0 {
		config.SessionTTL = fc.SessionTTL.Duration
	}
	if fc.PasswordHashIterations > 0 {
		config.PasswordHashIterations = fc.PasswordHashIterations
	}

	setString(&config.S3AccessKey, fc.S3AccessKey)
	setString(&config.S3SecretKey, fc.S3SecretKey)
	setString(&config.S3Region, fc.S3Region)
	setString(&config.S3Bucket, fc.S3Bucket)
	setString(&config.S3Endpoint, fc.S3Endpoint)
	setString(&config.S3Provider, fc.S3Provider)
	setString(&config.S3PublicBaseURL, fc.S3PublicBaseURL)

	setString(&config.LogFormat, fc.LogFormat)

	if fc.TracingEnabled != nil {
		config.TracingEnabled = *fc.TracingEnabled
	}
	setString(&config.TracingEndpoint, fc.TracingEndpoint)
	setString(&config.TracingProtocol, fc.TracingProtocol)
	if fc.TracingSampleRatio != nil {
		config.TracingSampleRatio = *fc.TracingSampleRatio
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
