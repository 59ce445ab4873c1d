// Package config holds the configuration model of the curate indexer: the shared log
// downloader, the indexers fed by it and the logging and metrics settings.
package config

import (
	"errors"
	"fmt"
)

// Config is the root of a configuration file.
type Config struct {
	Downloader DownloaderConfig `yaml:"downloader" json:"downloader" toml:"downloader"`
	Indexers   []IndexerConfig  `yaml:"indexers"   json:"indexers"   toml:"indexers"`

	Logging *LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty" toml:"logging,omitempty"`
	Metrics *MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty" toml:"metrics,omitempty"`
}

// ApplyDefaults fills every unset optional field, including those of nested sections.
func (c *Config) ApplyDefaults() {
	c.Downloader.ApplyDefaults()
	for i := range c.Indexers {
		c.Indexers[i].ApplyDefaults()
	}
	if c.Logging != nil {
		c.Logging.ApplyDefaults()
	}
	if c.Metrics != nil {
		c.Metrics.ApplyDefaults()
	}
}

// Validate reports every problem of the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Downloader.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("downloader: %w", err))
	}
	if c.Logging != nil {
		if err := c.Logging.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("logging: %w", err))
		}
	}
	if c.Metrics != nil {
		if err := c.Metrics.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("metrics: %w", err))
		}
	}

	if len(c.Indexers) == 0 {
		errs = append(errs, errors.New("at least one indexer must be configured"))
	}
	names := make(map[string]int, len(c.Indexers))
	for i, idx := range c.Indexers {
		if first, dup := names[idx.Name]; dup && idx.Name != "" {
			errs = append(errs, fmt.Errorf("indexers[%d]: name '%s' already used by indexers[%d]", i, idx.Name, first))
		}
		names[idx.Name] = i

		if err := idx.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("indexers[%d] (%s): %w", i, idx.Name, err))
		}
	}

	return errors.Join(errs...)
}
