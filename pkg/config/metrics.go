package config

import (
	"errors"
	"strings"
)

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is "host:port" or ":port".
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`
	Path          string `yaml:"path"           json:"path"           toml:"path"`
}

// ApplyDefaults fills the unset metrics fields.
func (m *MetricsConfig) ApplyDefaults() {
	if m.ListenAddress == "" {
		m.ListenAddress = ":9090"
	}
	if m.Path == "" {
		m.Path = "/metrics"
	}
}

// Validate checks the endpoint of enabled metrics.
func (m *MetricsConfig) Validate() error {
	if !m.Enabled {
		return nil
	}

	switch {
	case m.ListenAddress == "":
		return errors.New("listen_address is required when metrics are enabled")
	case !strings.HasPrefix(m.Path, "/"):
		return errors.New("path must start with '/'")
	}
	return nil
}
