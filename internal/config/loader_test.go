package config

import (
	"testing"
	"time"

	"github.com/goran-ethernal/CurateIndexor/internal/common"
	"github.com/goran-ethernal/CurateIndexor/pkg/config"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFile(t *testing.T) {
	for _, path := range []string{
		"../../config.example.yaml",
		"../../config.example.json",
		"../../config.example.toml",
	} {
		t.Run(path, func(t *testing.T) {
			cfg, err := LoadFromFile(path)
			require.NoError(t, err)

			validateConfig(t, cfg, path)
		})
	}
}

func TestLoadFromFile_UnsupportedFormat(t *testing.T) {
	_, err := LoadFromFile("config.txt")
	require.ErrorContains(t, err, "unsupported config file format")

	_, err = LoadFromFile("missing.yaml")
	require.ErrorContains(t, err, "failed to read config file")
}

func TestFormatOf(t *testing.T) {
	for path, want := range map[string]Format{
		"a.yaml":      FormatYAML,
		"a.YML":       FormatYAML,
		"dir/a.json":  FormatJSON,
		"a.conf.toml": FormatTOML,
	} {
		got, err := FormatOf(path)
		require.NoError(t, err)
		require.Equal(t, want, got, path)
	}
}

const minimalYAML = `
downloader:
  rpc_url: "http://localhost:8545"
  db:
    path: "./downloader.db"
indexers:
  - name: "curate"
    type: "curate"
    start_block: 100
    db:
      path: "./curate.db"
    curate:
      registries:
        - "0x4e7d3b9a3c9702d1e9d36a2d4d3fdc0a8c4e5d94"
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML), FormatYAML)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8545", cfg.Downloader.RPCURL)
	require.Equal(t, uint64(100), cfg.Indexers[0].StartBlock)
	require.Equal(t, 100, cfg.Indexers[0].Curate.HeaderBatchSize)

	_, err = Parse([]byte("downloader: ["), FormatYAML)
	require.ErrorContains(t, err, "failed to parse YAML config")

	_, err = Parse([]byte(`{"downloader": {}}`), FormatJSON)
	require.ErrorContains(t, err, "invalid configuration")
}

func TestParse_RPCURLFromEnvironment(t *testing.T) {
	t.Setenv(EnvRPCURL, "https://mainnet.example/v3/secret")

	cfg, err := Parse([]byte(minimalYAML), FormatYAML)
	require.NoError(t, err)
	require.Equal(t, "https://mainnet.example/v3/secret", cfg.Downloader.RPCURL)
}

// validateConfig checks that the loaded config has expected values
func validateConfig(t *testing.T, cfg *config.Config, format string) {
	t.Helper()

	// Test downloader config
	require.NotEmpty(t, cfg.Downloader.RPCURL, "[%s] downloader.rpc_url should not be empty", format)

	// Test defaults applied
	require.NotZero(t, cfg.Downloader.ChunkSize, "[%s] downloader.chunk_size should not be zero")
	require.NotEmpty(t, cfg.Downloader.Finality, "[%s] finality should have default value applied", format)

	// Test database config
	require.NotEmpty(t, cfg.Downloader.DB.Path, "[%s] db.path should not be empty", format)

	// Check defaults were applied
	require.NotEmpty(t, cfg.Downloader.DB.JournalMode, "[%s] db.journal_mode should have default value", format)
	require.NotEmpty(t, cfg.Downloader.DB.Synchronous, "[%s] db.synchronous should have default value", format)

	// Test indexers
	require.NotEmpty(t, cfg.Indexers, "[%s] there should be at least one indexer configured", format)

	for i, indexer := range cfg.Indexers {
		require.NotEmpty(t, indexer.Name, "[%s] indexer[%d].name should not be empty", format, i)
		require.NotEmpty(t, indexer.DB.Path, "[%s] indexer[%d].db.path should not be empty", format, i)
		require.Equal(t, "curate", indexer.Type, "[%s] indexer[%d].type should be curate", format, i)
		require.NotNil(t, indexer.Curate, "[%s] indexer[%d] should have a curate section", format, i)

		// Check indexer DB defaults were applied
		require.NotEmpty(t, indexer.DB.JournalMode, "[%s] indexer[%d].db.journal_mode should have default value", format, i)
		require.NotEmpty(t, indexer.DB.Synchronous, "[%s] indexer[%d].db.synchronous should have default value", format, i)
		require.NotEmpty(t, indexer.Curate.Factories, "[%s] indexer[%d] should follow at least one factory", format, i)
		require.Equal(t, 100, indexer.Curate.HeaderBatchSize, "[%s] indexer[%d].curate.header_batch_size", format, i)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := &config.Config{
		Downloader: config.DownloaderConfig{
			RPCURL: "https://test.com",
			DB: config.DatabaseConfig{
				Path: "./test.db",
			},
		},
		Indexers: []config.IndexerConfig{
			{
				Name: "test",
				DB: config.DatabaseConfig{
					Path: "./test-indexer.db",
				},
				Type: "curate",
				Curate: &config.CurateConfig{
					Factories: []string{"0x4e7d3b9a3c9702d1e9d36a2d4d3fdc0a8c4e5d94"},
				},
			},
		},
	}

	// Apply defaults
	cfg.ApplyDefaults()

	// Check defaults were applied
	if cfg.Downloader.ChunkSize != 5000 {
		t.Errorf("expected default chunk_size=5000, got %d", cfg.Downloader.ChunkSize)
	}

	if cfg.Downloader.Finality != "finalized" {
		t.Errorf("expected default finality=finalized, got %s", cfg.Downloader.Finality)
	}

	if cfg.Downloader.DB.JournalMode != "WAL" {
		t.Errorf("expected default journal_mode=WAL, got %s", cfg.Downloader.DB.JournalMode)
	}

	if cfg.Downloader.DB.Synchronous != "NORMAL" {
		t.Errorf("expected default synchronous=NORMAL, got %s", cfg.Downloader.DB.Synchronous)
	}

	if cfg.Downloader.DB.BusyTimeout != 5000 {
		t.Errorf("expected default busy_timeout=5000, got %d", cfg.Downloader.DB.BusyTimeout)
	}

	if cfg.Downloader.DB.MaxOpenConnections != 25 {
		t.Errorf("expected default max_open_connections=25, got %d", cfg.Downloader.DB.MaxOpenConnections)
	}

	// Check indexer DB defaults were applied
	if len(cfg.Indexers) > 0 {
		if cfg.Indexers[0].DB.JournalMode != "WAL" {
			t.Errorf("expected default indexer journal_mode=WAL, got %s", cfg.Indexers[0].DB.JournalMode)
		}

		if cfg.Indexers[0].DB.Synchronous != "NORMAL" {
			t.Errorf("expected default indexer synchronous=NORMAL, got %s", cfg.Indexers[0].DB.Synchronous)
		}

		if cfg.Indexers[0].DB.BusyTimeout != 5000 {
			t.Errorf("expected default indexer busy_timeout=5000, got %d", cfg.Indexers[0].DB.BusyTimeout)
		}

		if cfg.Indexers[0].DB.MaxOpenConnections != 25 {
			t.Errorf("expected default indexer max_open_connections=25, got %d", cfg.Indexers[0].DB.MaxOpenConnections)
		}

		if cfg.Indexers[0].Curate.HeaderBatchSize != 100 {
			t.Errorf("expected default curate header_batch_size=100, got %d", cfg.Indexers[0].Curate.HeaderBatchSize)
		}
	}
}

func validConfig() *config.Config {
	return &config.Config{
		Downloader: config.DownloaderConfig{
			RPCURL:   "https://test.com",
			Finality: "finalized",
			DB:       config.DatabaseConfig{Path: "./downloader.db"},
		},
		Indexers: []config.IndexerConfig{{
			Name: "test",
			Type: "curate",
			DB:   config.DatabaseConfig{Path: "./test.db"},
			Curate: &config.CurateConfig{
				Factories: []string{"0x4e7d3b9a3c9702d1e9d36a2d4d3fdc0a8c4e5d94"},
			},
		}},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr []string
	}{
		{
			name:   "valid config",
			mutate: func(*config.Config) {},
		},
		{
			name:    "missing rpc_url",
			mutate:  func(c *config.Config) { c.Downloader.RPCURL = "" },
			wantErr: []string{"downloader: rpc_url is required"},
		},
		{
			name:    "invalid finality",
			mutate:  func(c *config.Config) { c.Downloader.Finality = "invalid" },
			wantErr: []string{"downloader: finality: invalid block finality"},
		},
		{
			name:    "invalid journal mode",
			mutate:  func(c *config.Config) { c.Indexers[0].DB.JournalMode = "fast" },
			wantErr: []string{"indexers[0] (test): db: journal_mode must be one of"},
		},
		{
			name: "invalid retry",
			mutate: func(c *config.Config) {
				c.Downloader.Retry = &config.RetryConfig{
					InitialBackoff: common.NewDuration(time.Minute),
					MaxBackoff:     common.NewDuration(time.Second),
				}
			},
			wantErr: []string{"downloader: retry: max_backoff 1s is shorter than initial_backoff 1m0s"},
		},
		{
			name:    "invalid factory address",
			mutate:  func(c *config.Config) { c.Indexers[0].Curate.Factories = []string{"0x1234"} },
			wantErr: []string{"curate: invalid address '0x1234'"},
		},
		{
			name: "missing indexer type and db path",
			mutate: func(c *config.Config) {
				c.Indexers[0].Type = ""
				c.Indexers[0].DB.Path = ""
			},
			wantErr: []string{"type is required", "db: path is required"},
		},
		{
			name:    "duplicate indexer name",
			mutate:  func(c *config.Config) { c.Indexers = append(c.Indexers, c.Indexers[0]) },
			wantErr: []string{"indexers[1]: name 'test' already used by indexers[0]"},
		},
		{
			name:    "unknown log component",
			mutate:  func(c *config.Config) { c.Logging = &config.LoggingConfig{ComponentLevels: map[string]string{"nope": "debug"}} },
			wantErr: []string{"logging: component_levels: unknown component 'nope'"},
		},
		{
			name:    "metrics path",
			mutate:  func(c *config.Config) { c.Metrics = &config.MetricsConfig{Enabled: true, Path: "metrics"} },
			wantErr: []string{"metrics: path must start with '/'"},
		},
		{
			name:    "no indexers",
			mutate:  func(c *config.Config) { c.Indexers = nil },
			wantErr: []string{"at least one indexer must be configured"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			cfg.ApplyDefaults()

			err := cfg.Validate()
			if len(tt.wantErr) == 0 {
				require.NoError(t, err)
				return
			}
			for _, want := range tt.wantErr {
				require.ErrorContains(t, err, want)
			}
		})
	}
}
