// Package contracts exposes the ABIs of the curated registry, its arbitrator and the registry factory.
package contracts

import (
	"bytes"
	"embed"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

//go:embed abi/*.json
var abiFS embed.FS

var (
	// Registry is the light curated registry ABI, events and views.
	Registry = mustLoad("registry")
	// Arbitrator is the subset of the arbitrator ABI the projection talks to.
	Arbitrator = mustLoad("arbitrator")
	// Factory is the registry factory ABI.
	Factory = mustLoad("factory")
)

// Load parses an embedded ABI by name.
func Load(name string) (abi.ABI, error) {
	raw, err := abiFS.ReadFile("abi/" + name + ".json")
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to read %s ABI: %w", name, err)
	}

	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse %s ABI: %w", name, err)
	}

	return parsed, nil
}

func mustLoad(name string) abi.ABI {
	parsed, err := Load(name)
	if err != nil {
		panic(err)
	}
	return parsed
}
