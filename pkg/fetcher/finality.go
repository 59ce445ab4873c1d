package fetcher

import (
	"fmt"
	"strings"
)

// Finality selects the block a range has to reach before its logs are fetched.
type Finality string

const (
	// FinalityFinalized follows the "finalized" block tag.
	FinalityFinalized Finality = "finalized"
	// FinalitySafe follows the "safe" block tag.
	FinalitySafe Finality = "safe"
	// FinalityLatest follows the head, minus the configured lag.
	FinalityLatest Finality = "latest"
)

func (f Finality) String() string {
	return string(f)
}

// ParseFinality parses a case-insensitive finality name.
func ParseFinality(s string) (Finality, error) {
	switch f := Finality(strings.ToLower(strings.TrimSpace(s))); f {
	case FinalityFinalized, FinalitySafe, FinalityLatest:
		return f, nil
	default:
		return "", fmt.Errorf("invalid block finality %q (must be one of: finalized, safe, latest)", s)
	}
}
