package cache

import (
	"crypto/tls"
	"time"

	"github.com/spiffworkflow/backend/pkg/config"
)

type Config struct {
	URL      string `json:"url,omitempty"       yaml:"url,omitempty"       mapstructure:"url"`
	PoolSize int    `json:"pool_size,omitempty" yaml:"pool_size,omitempty" mapstructure:"pool_size"`
	// TLSConfig overrides the TLS settings derived from a rediss:// URL.
	TLSConfig *tls.Config `json:"-" yaml:"-" mapstructure:"-"`
	// Timeout Configuration
	DialTimeout  time.Duration `json:"dial_timeout,omitempty"  yaml:"dial_timeout,omitempty"  mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout,omitempty"  yaml:"read_timeout,omitempty"  mapstructure:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout,omitempty" yaml:"write_timeout,omitempty" mapstructure:"write_timeout"`
	PingTimeout  time.Duration `json:"ping_timeout,omitempty"  yaml:"ping_timeout,omitempty"  mapstructure:"ping_timeout"`
	MaxRetries   int           `json:"max_retries,omitempty"   yaml:"max_retries,omitempty"   mapstructure:"max_retries"`
	// ScanCount is the COUNT hint passed to every SCAN call.
	ScanCount int64 `json:"scan_count,omitempty" yaml:"scan_count,omitempty" mapstructure:"scan_count"`
}

// FromAppConfig builds a client configuration for the given URL using the
// pool settings of the application configuration.
func FromAppConfig(url string, appConfig *config.Config) *Config {
	rc := appConfig.Redis
	return &Config{
		URL:          url,
		PoolSize:     rc.PoolSize,
		DialTimeout:  rc.DialTimeout,
		ReadTimeout:  rc.ReadTimeout,
		WriteTimeout: rc.WriteTimeout,
		PingTimeout:  rc.PingTimeout,
		MaxRetries:   rc.MaxRetries,
		ScanCount:    rc.ScanCount,
	}
}
