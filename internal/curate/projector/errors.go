package projector

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/goran-ethernal/CurateIndexor/internal/curate/ledger"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/status"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/store"
)

var (
	// ErrUnsupportedEvent is returned for event types the projector has no handler for.
	ErrUnsupportedEvent = errors.New("unsupported event")

	// ErrUnknownDispute is returned when a registry maps a dispute to no item.
	ErrUnknownDispute = errors.New("dispute is not linked to an item")

	// ErrAlreadyChallenged is returned when a dispute arrives for a request that has one already.
	ErrAlreadyChallenged = errors.New("request is already challenged")

	// ErrDisputeMismatch is returned when an arbitrator callback names another dispute than the latest request.
	ErrDisputeMismatch = errors.New("dispute does not belong to the latest request")

	// ErrRulingMismatch is returned when the registry resolves a request with another ruling than the executed one.
	ErrRulingMismatch = errors.New("final ruling differs from the executed ruling")

	// ErrNoRequest is returned when an item has no request to act on.
	ErrNoRequest = errors.New("item has no request")
)

// IntegrityError reports that the projection is inconsistent with the event being applied:
// an entity that must exist is missing, a counter would underflow or a code does not decode.
// The event is not applied and nothing it touched is persisted.
type IntegrityError struct {
	Kind string
	Key  string
	Err  error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity failure on %s %s: %v", e.Kind, e.Key, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// integrity classifies a store or ledger failure. Missing entities, counter underflows and
// decode failures become an IntegrityError, anything else is wrapped as is.
func integrity(kind, key string, err error) error {
	var decodeErr *status.DecodeError
	if errors.Is(err, store.ErrNotFound) ||
		errors.Is(err, ledger.ErrCounterUnderflow) ||
		errors.As(err, &decodeErr) {
		return &IntegrityError{Kind: kind, Key: key, Err: err}
	}
	return fmt.Errorf("failed on %s %s: %w", kind, key, err)
}

// uint64Index converts an on-chain index to uint64.
func uint64Index(kind, key string, v *big.Int) (uint64, error) {
	if v == nil || v.Sign() < 0 || !v.IsUint64() {
		return 0, &IntegrityError{Kind: kind, Key: key, Err: fmt.Errorf("index %v out of range", v)}
	}
	return v.Uint64(), nil
}

// decodeRuling decodes a ruling code returned by an arbitrator or a registry.
func decodeRuling(kind, key string, code *big.Int) (status.Ruling, error) {
	if code == nil || !code.IsUint64() {
		return 0, &IntegrityError{Kind: kind, Key: key,
			Err: &status.DecodeError{Kind: "ruling code", Value: fmt.Sprintf("%v", code)}}
	}
	ruling, err := status.DecodeRuling(code.Uint64())
	if err != nil {
		return 0, integrity(kind, key, err)
	}
	return ruling, nil
}
