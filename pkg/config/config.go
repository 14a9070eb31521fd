package config

import (
	"context"
	"time"
)

// Config represents the complete configuration for the backend.
// It provides type-safe access to all configuration values with validation.
type Config struct {
	Server     ServerConfig     `koanf:"server"     validate:"required"`
	Runtime    RuntimeConfig    `koanf:"runtime"    validate:"required"`
	Celery     CeleryConfig     `koanf:"celery"`
	Redis      RedisConfig      `koanf:"redis"`
	Monitoring MonitoringConfig `koanf:"monitoring"`
	Auth       AuthConfig       `koanf:"auth"`
	Version    VersionConfig    `koanf:"version"`
	CLI        CLIConfig        `koanf:"cli"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host      string `koanf:"host"       validate:"required"        env:"SPIFFWORKFLOW_BACKEND_HOST"`
	Port      int    `koanf:"port"       validate:"min=1,max=65535" env:"SPIFFWORKFLOW_BACKEND_PORT"`
	APIPrefix string `koanf:"api_prefix" validate:"url_path"        env:"SPIFFWORKFLOW_BACKEND_API_PREFIX"`
	// RootPath is the mount prefix a reverse proxy strips before forwarding.
	RootPath              string        `koanf:"root_path"               env:"SPIFFWORKFLOW_BACKEND_ROOT_PATH"`
	TrustForwardedHeaders bool          `koanf:"trust_forwarded_headers" env:"SPIFFWORKFLOW_BACKEND_TRUST_FORWARDED_HEADERS"`
	ReadTimeout           time.Duration `koanf:"read_timeout"            env:"SPIFFWORKFLOW_BACKEND_READ_TIMEOUT"`
	WriteTimeout          time.Duration `koanf:"write_timeout"           env:"SPIFFWORKFLOW_BACKEND_WRITE_TIMEOUT"`
	IdleTimeout           time.Duration `koanf:"idle_timeout"            env:"SPIFFWORKFLOW_BACKEND_IDLE_TIMEOUT"`
	ShutdownTimeout       time.Duration `koanf:"shutdown_timeout"        env:"SPIFFWORKFLOW_BACKEND_SHUTDOWN_TIMEOUT"`
	CORSEnabled           bool          `koanf:"cors_enabled"            env:"SPIFFWORKFLOW_BACKEND_CORS_ENABLED"`
	CORS                  CORSConfig    `koanf:"cors"`
}

// CORSConfig contains CORS configuration.
type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"   env:"SPIFFWORKFLOW_BACKEND_CORS_ALLOW_ORIGINS"`
	AllowCredentials bool     `koanf:"allow_credentials" env:"SPIFFWORKFLOW_BACKEND_CORS_ALLOW_CREDENTIALS"`
	MaxAge           int      `koanf:"max_age"           env:"SPIFFWORKFLOW_BACKEND_CORS_MAX_AGE"`
}

// RuntimeConfig contains runtime behavior configuration.
type RuntimeConfig struct {
	Environment string `koanf:"environment" validate:"oneof=local_development development staging production unit_testing" env:"SPIFFWORKFLOW_BACKEND_ENV"`
	LogLevel    string `koanf:"log_level"   validate:"oneof=debug info warn error"                                          env:"SPIFFWORKFLOW_BACKEND_LOG_LEVEL"`
	LogJSON     bool   `koanf:"log_json"                                                                                    env:"SPIFFWORKFLOW_BACKEND_LOG_TO_JSON"`
	LogSource   bool   `koanf:"log_source"                                                                                  env:"SPIFFWORKFLOW_BACKEND_LOG_SOURCE"`
}

// CeleryConfig points at the result backend the Celery workers write task results to.
type CeleryConfig struct {
	ResultBackend   SensitiveString `koanf:"result_backend"    env:"SPIFFWORKFLOW_BACKEND_CELERY_RESULT_BACKEND"   sensitive:"true"`
	ResultS3Bucket  string          `koanf:"result_s3_bucket"  env:"SPIFFWORKFLOW_BACKEND_CELERY_RESULT_S3_BUCKET"`
	KeyPrefix       string          `koanf:"key_prefix"        env:"SPIFFWORKFLOW_BACKEND_CELERY_RESULT_KEY_PREFIX" validate:"required"`
	MaxRedisEntries int             `koanf:"max_redis_entries" env:"SPIFFWORKFLOW_BACKEND_CELERY_MAX_REDIS_ENTRIES" validate:"min=1"`
	S3EndpointURL   string          `koanf:"s3_endpoint_url"   env:"SPIFFWORKFLOW_BACKEND_CELERY_RESULT_S3_ENDPOINT_URL"`
	S3Region        string          `koanf:"s3_region"         env:"SPIFFWORKFLOW_BACKEND_CELERY_RESULT_S3_REGION"`
	Timeout         time.Duration   `koanf:"timeout"           env:"SPIFFWORKFLOW_BACKEND_CELERY_RESULT_TIMEOUT"`
}

// RedisConfig tunes the client used against a redis:// result backend.
type RedisConfig struct {
	PoolSize     int           `koanf:"pool_size"     env:"SPIFFWORKFLOW_BACKEND_REDIS_POOL_SIZE"     validate:"min=1"`
	DialTimeout  time.Duration `koanf:"dial_timeout"  env:"SPIFFWORKFLOW_BACKEND_REDIS_DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `koanf:"read_timeout"  env:"SPIFFWORKFLOW_BACKEND_REDIS_READ_TIMEOUT"`
	WriteTimeout time.Duration `koanf:"write_timeout" env:"SPIFFWORKFLOW_BACKEND_REDIS_WRITE_TIMEOUT"`
	PingTimeout  time.Duration `koanf:"ping_timeout"  env:"SPIFFWORKFLOW_BACKEND_REDIS_PING_TIMEOUT"`
	MaxRetries   int           `koanf:"max_retries"   env:"SPIFFWORKFLOW_BACKEND_REDIS_MAX_RETRIES"`
	ScanCount    int64         `koanf:"scan_count"    env:"SPIFFWORKFLOW_BACKEND_REDIS_SCAN_COUNT"    validate:"min=1"`
}

// MonitoringConfig controls the Prometheus endpoint.
type MonitoringConfig struct {
	Enabled bool   `koanf:"enabled" env:"SPIFFWORKFLOW_BACKEND_MONITORING_ENABLED"`
	Path    string `koanf:"path"    env:"SPIFFWORKFLOW_BACKEND_MONITORING_PATH"    validate:"url_path"`
}

// AuthConfig describes the OpenID provider whose endpoints are cached.
type AuthConfig struct {
	OpenIDServerURL  string        `koanf:"open_id_server_url" env:"SPIFFWORKFLOW_BACKEND_OPEN_ID_SERVER_URL"`
	Identifier       string        `koanf:"identifier"         env:"SPIFFWORKFLOW_BACKEND_AUTH_IDENTIFIER"    validate:"required"`
	DiscoveryTimeout time.Duration `koanf:"discovery_timeout"  env:"SPIFFWORKFLOW_BACKEND_OPEN_ID_DISCOVERY_TIMEOUT"`
	CacheTTL         time.Duration `koanf:"cache_ttl"          env:"SPIFFWORKFLOW_BACKEND_OPEN_ID_CACHE_TTL"`
}

// VersionConfig locates the version file produced by the image build.
type VersionConfig struct {
	InfoFile string `koanf:"info_file" env:"SPIFFWORKFLOW_BACKEND_VERSION_INFO_FILE"`
}

// CLIConfig contains CLI-specific configuration.
type CLIConfig struct {
	ConfigFile string `koanf:"config_file" env:"SPIFFWORKFLOW_BACKEND_CONFIG_FILE"`
	EnvFile    string `koanf:"env_file"    env:"SPIFFWORKFLOW_BACKEND_ENV_FILE"`
}

// Service defines the configuration management service interface.
type Service interface {
	// Load loads configuration from the specified sources with precedence order.
	Load(ctx context.Context, sources ...Source) (*Config, error)
	// Validate checks if the configuration meets all validation requirements.
	Validate(config *Config) error
	// GetSource returns the source type for a specific configuration key.
	GetSource(key string) SourceType
}

// Source defines the interface for configuration sources.
type Source interface {
	// Load reads configuration from the source.
	Load() (map[string]any, error)
	// Type returns the source type identifier.
	Type() SourceType
	// Close releases any resources held by the source.
	Close() error
}

// SourceType identifies the type of configuration source.
type SourceType string

const (
	SourceCLI     SourceType = "cli"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Metadata contains metadata about configuration sources.
type Metadata struct {
	Sources  map[string]SourceType `json:"sources"`
	LoadedAt time.Time             `json:"loaded_at"`
}

// Load loads configuration using the default service.
func Load() (*Config, error) {
	service := NewService()
	return service.Load(context.Background())
}

// Default returns a Config with default values for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            7000,
			APIPrefix:       "/v1.0",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			CORS: CORSConfig{
				AllowedOrigins: []string{},
				MaxAge:         86400,
			},
		},
		Runtime: RuntimeConfig{
			Environment: "local_development",
			LogLevel:    "info",
		},
		Celery: CeleryConfig{
			KeyPrefix:       "celery-task-meta-",
			MaxRedisEntries: 1000,
			Timeout:         30 * time.Second,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			PingTimeout:  2 * time.Second,
			MaxRetries:   1,
			ScanCount:    500,
		},
		Monitoring: MonitoringConfig{
			Enabled: false,
			Path:    "/metrics",
		},
		Auth: AuthConfig{
			Identifier:       "default",
			DiscoveryTimeout: 5 * time.Second,
			CacheTTL:         time.Hour,
		},
		Version: VersionConfig{
			InfoFile: "version_info.json",
		},
	}
}
