package reorg

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
)

// Detector verifies fetched block ranges against the canonical chain and
// keeps the hashes of non-finalized blocks needed for later verification.
type Detector interface {
	// VerifyAndRecordBlocks checks stored non-finalized blocks and the new range for
	// consistency and records the new headers. It returns the recorded headers
	// (only blocks above the finalized block) or a *ReorgDetectedError.
	VerifyAndRecordBlocks(ctx context.Context, logs []types.Log, fromBlock, toBlock uint64) ([]*types.Header, error)

	// Rollback forgets every recorded block at or above fromBlock.
	Rollback(fromBlock uint64) error

	// Close releases the detector resources.
	Close() error
}

// ReorgDetectedError is returned when a blockchain reorganization is detected.
type ReorgDetectedError struct {
	FirstReorgBlock uint64
	Details         string
}

func (e *ReorgDetectedError) Error() string {
	return fmt.Sprintf("reorg detected at block %d: %s", e.FirstReorgBlock, e.Details)
}

// NewReorgError creates a new ReorgDetectedError.
func NewReorgError(firstReorgBlock uint64, details string) error {
	return &ReorgDetectedError{
		FirstReorgBlock: firstReorgBlock,
		Details:         details,
	}
}

// AsReorgError unwraps err into a *ReorgDetectedError if it carries one.
func AsReorgError(err error) (*ReorgDetectedError, bool) {
	var reorgErr *ReorgDetectedError
	if errors.As(err, &reorgErr) {
		return reorgErr, true
	}
	return nil, false
}
