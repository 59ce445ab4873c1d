package config

import (
	"errors"
	"fmt"

	"github.com/goran-ethernal/CurateIndexor/internal/common"
	"github.com/goran-ethernal/CurateIndexor/internal/logger"
)

const defaultLogLevel = "info"

var _ logger.LoggingConfig = (*LoggingConfig)(nil)

// LoggingConfig sets a default log level and optional per-component overrides.
// Component names are those of common.AllComponents, e.g. "log-fetcher" or "curate-projector".
type LoggingConfig struct {
	DefaultLevel    string            `yaml:"default_level"              json:"default_level"              toml:"default_level"`
	Development     bool              `yaml:"development"                json:"development"                toml:"development"`
	ComponentLevels map[string]string `yaml:"component_levels,omitempty" json:"component_levels,omitempty" toml:"component_levels,omitempty"` //nolint:lll
}

// ApplyDefaults fills the unset logging fields.
func (l *LoggingConfig) ApplyDefaults() {
	if l.DefaultLevel == "" {
		l.DefaultLevel = defaultLogLevel
	}
	if l.ComponentLevels == nil {
		l.ComponentLevels = make(map[string]string)
	}
}

// Validate checks the levels and the component names.
func (l *LoggingConfig) Validate() error {
	var errs []error

	if l.DefaultLevel != "" && !validLevel(l.DefaultLevel) {
		errs = append(errs, fmt.Errorf("default_level: unknown level '%s'", l.DefaultLevel))
	}
	for component, level := range l.ComponentLevels {
		if _, ok := common.AllComponents[common.Normalize(component)]; !ok {
			errs = append(errs, fmt.Errorf("component_levels: unknown component '%s'", component))
			continue
		}
		if !validLevel(level) {
			errs = append(errs, fmt.Errorf("component_levels[%s]: unknown level '%s'", component, level))
		}
	}

	return errors.Join(errs...)
}

func validLevel(level string) bool {
	_, ok := logger.ValidLogLevels[common.Normalize(level)]
	return ok
}

// GetComponentLevel returns the level of component, or the default level.
func (l *LoggingConfig) GetComponentLevel(component string) string {
	if l == nil {
		return defaultLogLevel
	}
	if level, ok := l.ComponentLevels[component]; ok {
		return common.Normalize(level)
	}
	return l.GetDefaultLevel()
}

func (l *LoggingConfig) GetDefaultLevel() string {
	if l == nil || l.DefaultLevel == "" {
		return defaultLogLevel
	}
	return common.Normalize(l.DefaultLevel)
}

func (l *LoggingConfig) IsDevelopment() bool {
	return l != nil && l.Development
}
