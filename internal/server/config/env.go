package config

import "github.com/spf13/viper"

// envBindings maps config keys to the environment variables that set them.
// The unprefixed names are the ones existing deployments already export.
var envBindings = map[string]string{
	"http_addr":                "HTTP_ADDR",
	"max_upload_bytes":         "MAX_UPLOAD_BYTES",
	"cookie_secure":            "COOKIE_SECURE",
	"database_dsn":             "DATABASE_DSN",
	"db_user":                  "POSTGRES_USER",
	"db_password":              "POSTGRES_PASSWORD",
	"db_host":                  "POSTGRES_URL",
	"db_port":                  "POSTGRES_PORT",
	"db_name":                  "POSTGRES_DB",
	"db_sslmode":               "POSTGRES_SSLMODE",
	"secret_key":               "APP_SECRET_KEY",
	"session_ttl":              "SESSION_TTL",
	"password_hash_iterations": "PASSWORD_HASH_ITERATIONS",
	"s3_access_key":            "DO_SPACES_KEY",
	"s3_secret_key":            "DO_SPACES_SECRET",
	"s3_region":                "DO_SPACES_REGION",
	"s3_bucket":                "DO_SPACES_BUCKET",
	"s3_endpoint":              "DO_SPACES_ENDPOINT",
	"s3_provider":              "STORAGE_PROVIDER",
	"s3_public_base_url":       "STORAGE_PUBLIC_BASE_URL",
	"log_format":               "LOG_FORMAT",
	"tracing_enabled":          "TRACING_ENABLED",
	"tracing_endpoint":         "TRACING_ENDPOINT",
	"tracing_protocol":         "TRACING_PROTOCOL",
	"tracing_sample_ratio":     "TRACING_SAMPLE_RATIO",
}

// parseEnv overlays config with values from the environment. Unset and
// empty variables are ignored.
func parseEnv(config *Config) {
	v := viper.New()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			panic(err)
		}
	}

	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	str("http_addr", &config.HTTPAddr)
	if v.IsSet("max_upload_bytes") {
		config.MaxUploadBytes = v.GetInt64("max_upload_bytes")
	}
	if v.IsSet("cookie_secure") {
		config.CookieSecure = v.GetBool("cookie_secure")
	}

	str("database_dsn", &config.DatabaseDSN)
	str("db_user", &config.DBUser)
	str("db_password", &config.DBPassword)
	str("db_host", &config.DBHost)
	str("db_port", &config.DBPort)
	str("db_name", &config.DBName)
	str("db_sslmode", &config.DBSSLMode)

	str("secret_key", &config.SecretKey)
	if v.IsSet("session_ttl") {
		config.SessionTTL = v.GetDuration("session_ttl")
	}
	if v.IsSet("password_hash_iterations") {
		config.PasswordHashIterations = v.GetInt("password_hash_iterations")
	}

	str("s3_access_key", &config.S3AccessKey)
	str("s3_secret_key", &config.S3SecretKey)
	str("s3_region", &config.S3Region)
	str("s3_bucket", &config.S3Bucket)
	str("s3_endpoint", &config.S3Endpoint)
	str("s3_provider", &config.S3Provider)
	str("s3_public_base_url", &config.S3PublicBaseURL)

	str("log_format", &config.LogFormat)

	if v.IsSet("tracing_enabled") {
		config.TracingEnabled = v.GetBool("tracing_enabled")
	}
	str("tracing_endpoint", &config.TracingEndpoint)
	str("tracing_protocol", &config.TracingProtocol)
	if v.IsSet("tracing_sample_ratio") {
		config.TracingSampleRatio = v.GetFloat64("tracing_sample_ratio")
	}
}
