package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/goran-ethernal/CurateIndexor/internal/common"
	"github.com/goran-ethernal/CurateIndexor/pkg/fetcher"
)

const (
	defaultChunkSize    = 5000
	defaultPollInterval = 12 * time.Second

	defaultRetryAttempts   = 5
	defaultInitialBackoff  = time.Second
	defaultMaxBackoff      = 30 * time.Second
	defaultBackoffExponent = 2.0
)

// DownloaderConfig configures the shared log downloader.
type DownloaderConfig struct {
	// RPCURL can be overridden with the CURATEINDEXOR_RPC_URL environment variable.
	RPCURL string `yaml:"rpc_url" json:"rpc_url" toml:"rpc_url"`

	// ChunkSize is the widest block range requested in a single eth_getLogs call.
	ChunkSize uint64 `yaml:"chunk_size" json:"chunk_size" toml:"chunk_size"`

	// Finality is one of "finalized", "safe" or "latest".
	Finality string `yaml:"finality" json:"finality" toml:"finality"`

	// FinalizedLag is subtracted from the head when Finality is "latest".
	FinalizedLag uint64 `yaml:"finalized_lag" json:"finalized_lag" toml:"finalized_lag"`

	PollInterval common.Duration    `yaml:"poll_interval"         json:"poll_interval"         toml:"poll_interval"`
	Retry        *RetryConfig       `yaml:"retry,omitempty"       json:"retry,omitempty"       toml:"retry,omitempty"`
	DB           DatabaseConfig     `yaml:"db"                    json:"db"                    toml:"db"`
	Maintenance  *MaintenanceConfig `yaml:"maintenance,omitempty" json:"maintenance,omitempty" toml:"maintenance,omitempty"`
}

// ApplyDefaults fills the unset downloader fields and those of its sections.
func (d *DownloaderConfig) ApplyDefaults() {
	if d.ChunkSize == 0 {
		d.ChunkSize = defaultChunkSize
	}
	if d.Finality == "" {
		d.Finality = string(fetcher.FinalityFinalized)
	}
	if d.PollInterval.Duration == 0 {
		d.PollInterval = common.NewDuration(defaultPollInterval)
	}

	d.DB.ApplyDefaults()
	if d.Retry != nil {
		d.Retry.ApplyDefaults()
	}
	if d.Maintenance != nil {
		d.Maintenance.ApplyDefaults()
	}
}

// Validate checks the downloader section.
func (d *DownloaderConfig) Validate() error {
	var errs []error

	if d.RPCURL == "" {
		errs = append(errs, errors.New("rpc_url is required"))
	}
	if _, err := fetcher.ParseFinality(d.Finality); err != nil {
		errs = append(errs, fmt.Errorf("finality: %w", err))
	}
	if err := d.DB.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("db: %w", err))
	}
	if d.Retry != nil {
		if err := d.Retry.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("retry: %w", err))
		}
	}
	if d.Maintenance != nil {
		if err := d.Maintenance.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("maintenance: %w", err))
		}
	}

	return errors.Join(errs...)
}

// RetryConfig configures exponential backoff of failed RPC calls.
type RetryConfig struct {
	// MaxAttempts counts the initial request.
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts" toml:"max_attempts"`

	InitialBackoff    common.Duration `yaml:"initial_backoff"    json:"initial_backoff"    toml:"initial_backoff"`
	MaxBackoff        common.Duration `yaml:"max_backoff"        json:"max_backoff"        toml:"max_backoff"`
	BackoffMultiplier float64         `yaml:"backoff_multiplier" json:"backoff_multiplier" toml:"backoff_multiplier"`
}

// ApplyDefaults fills the unset retry fields.
func (r *RetryConfig) ApplyDefaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = defaultRetryAttempts
	}
	if r.InitialBackoff.Duration == 0 {
		r.InitialBackoff = common.NewDuration(defaultInitialBackoff)
	}
	if r.MaxBackoff.Duration == 0 {
		r.MaxBackoff = common.NewDuration(defaultMaxBackoff)
	}
	if r.BackoffMultiplier == 0 {
		r.BackoffMultiplier = defaultBackoffExponent
	}
}

// Validate checks the retry section.
func (r *RetryConfig) Validate() error {
	switch {
	case r.MaxAttempts < 1:
		return errors.New("max_attempts must be at least 1")
	case r.BackoffMultiplier < 1:
		return errors.New("backoff_multiplier must be at least 1")
	case r.MaxBackoff.Duration < r.InitialBackoff.Duration:
		return fmt.Errorf("max_backoff %s is shorter than initial_backoff %s", r.MaxBackoff, r.InitialBackoff)
	}
	return nil
}
