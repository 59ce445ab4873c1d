package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	pkgconfig "github.com/goran-ethernal/CurateIndexor/pkg/config"
	"gopkg.in/yaml.v3"
)

// EnvRPCURL overrides downloader.rpc_url when set. RPC endpoints often embed an API key.
const EnvRPCURL = "CURATEINDEXOR_RPC_URL"

// Format is a configuration file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

var extensions = map[string]Format{
	".yaml": FormatYAML,
	".yml":  FormatYAML,
	".json": FormatJSON,
	".toml": FormatTOML,
}

// FormatOf detects the configuration format from the file extension.
func FormatOf(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	format, ok := extensions[ext]
	if !ok {
		return "", fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml, .json, .toml)", ext)
	}
	return format, nil
}

// LoadFromFile loads, completes and validates the configuration at path.
func LoadFromFile(path string) (*pkgconfig.Config, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data, format)
}

// Parse decodes data in the given format, applies environment overrides and defaults, then validates.
func Parse(data []byte, format Format) (*pkgconfig.Config, error) {
	var (
		cfg pkgconfig.Config
		err error
	)

	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &cfg)
	case FormatJSON:
		err = json.Unmarshal(data, &cfg)
	case FormatTOML:
		_, err = toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s config: %w", strings.ToUpper(string(format)), err)
	}

	if url, ok := os.LookupEnv(EnvRPCURL); ok && url != "" {
		cfg.Downloader.RPCURL = url
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
