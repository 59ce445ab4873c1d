package config

import (
	"errors"
	"fmt"

	gethcommon "github.com/ethereum/go-ethereum/common"
)

const defaultHeaderBatchSize = 100

// IndexerConfig configures one indexer fed by the downloader.
type IndexerConfig struct {
	Name string `yaml:"name" json:"name" toml:"name"`

	// Type names a registered indexer factory, see the "list" command.
	Type       string         `yaml:"type"        json:"type"        toml:"type"`
	StartBlock uint64         `yaml:"start_block" json:"start_block" toml:"start_block"`
	DB         DatabaseConfig `yaml:"db"          json:"db"          toml:"db"`

	Curate *CurateConfig `yaml:"curate,omitempty" json:"curate,omitempty" toml:"curate,omitempty"`
}

// ApplyDefaults fills the unset indexer fields and those of its sections.
func (i *IndexerConfig) ApplyDefaults() {
	i.DB.ApplyDefaults()
	if i.Curate != nil {
		i.Curate.ApplyDefaults()
	}
}

// Validate checks the indexer section.
func (i *IndexerConfig) Validate() error {
	var errs []error

	if i.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if i.Type == "" {
		errs = append(errs, errors.New("type is required"))
	}
	if err := i.DB.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("db: %w", err))
	}
	if i.Curate != nil {
		if err := i.Curate.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("curate: %w", err))
		}
	}

	return errors.Join(errs...)
}

// CurateConfig configures a "curate" indexer.
type CurateConfig struct {
	// Factories deploy the registries that are followed from their creation on.
	Factories []string `yaml:"factories" json:"factories" toml:"factories"`

	// Registries deployed outside a configured factory. They are read at the indexer
	// start block and followed from there.
	Registries []string `yaml:"registries,omitempty" json:"registries,omitempty" toml:"registries,omitempty"`

	// HeaderBatchSize bounds the headers requested per batch to timestamp events.
	HeaderBatchSize int `yaml:"header_batch_size" json:"header_batch_size" toml:"header_batch_size"`
}

// ApplyDefaults fills the unset curate fields.
func (c *CurateConfig) ApplyDefaults() {
	if c.HeaderBatchSize == 0 {
		c.HeaderBatchSize = defaultHeaderBatchSize
	}
}

// Validate checks the contract addresses and the batch size.
func (c *CurateConfig) Validate() error {
	if len(c.Factories) == 0 && len(c.Registries) == 0 {
		return errors.New("at least one factory or registry address must be configured")
	}

	var errs []error
	for _, list := range [][]string{c.Factories, c.Registries} {
		for _, addr := range list {
			if !gethcommon.IsHexAddress(addr) {
				errs = append(errs, fmt.Errorf("invalid address '%s'", addr))
			}
		}
	}
	if c.HeaderBatchSize < 0 {
		errs = append(errs, errors.New("header_batch_size must not be negative"))
	}

	return errors.Join(errs...)
}
