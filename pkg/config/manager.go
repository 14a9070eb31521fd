package config

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/spiffworkflow/backend/pkg/logger"
)

// Manager holds the loaded configuration and the sources it came from.
type Manager struct {
	Service   Service
	current   atomic.Value // stores *Config
	sources   []Source
	sourcesMu sync.Mutex
	closeOnce sync.Once
}

// NewManager creates a new configuration manager.
func NewManager(service Service) *Manager {
	if service == nil {
		service = NewService()
	}
	return &Manager{Service: service}
}

// Load loads configuration from sources and stores it atomically.
func (m *Manager) Load(ctx context.Context, sources ...Source) (*Config, error) {
	cfg, err := m.Service.Load(ctx, sources...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	m.sourcesMu.Lock()
	m.sources = append([]Source(nil), sources...)
	m.sourcesMu.Unlock()
	m.current.Store(cfg)
	return cfg, nil
}

// Get returns the current configuration atomically.
func (m *Manager) Get() *Config {
	cfg, ok := m.current.Load().(*Config)
	if !ok {
		return nil
	}
	return cfg
}

// Close releases every source.
func (m *Manager) Close(ctx context.Context) error {
	m.closeOnce.Do(func() {
		m.sourcesMu.Lock()
		sources := append([]Source(nil), m.sources...)
		m.sourcesMu.Unlock()
		for _, source := range sources {
			if source == nil {
				continue
			}
			if err := source.Close(); err != nil {
				logger.FromContext(ctx).Error("failed to close configuration source", "error", err)
			}
		}
	})
	return nil
}
