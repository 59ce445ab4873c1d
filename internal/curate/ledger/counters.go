package ledger

import (
	"errors"
	"fmt"

	"github.com/goran-ethernal/CurateIndexor/internal/curate/model"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/status"
)

// ErrCounterUnderflow is returned when a transition would decrement an empty bucket.
var ErrCounterUnderflow = errors.New("registry counter underflow")

// ApplyDelta moves one item from the previous bucket to the next one.
// A nil previous means the item was not counted yet and only the next bucket grows.
func ApplyDelta(registry *model.Registry, previous *status.ExtendedStatus, next status.ExtendedStatus) error {
	if previous != nil && *previous == next {
		return nil
	}

	if previous != nil {
		from := bucket(registry, *previous)
		if *from == 0 {
			return fmt.Errorf("%w: %s bucket of registry %s is empty",
				ErrCounterUnderflow, previous, registry.Address.Hex())
		}
		*from--
	}

	*bucket(registry, next)++

	return nil
}

func bucket(registry *model.Registry, e status.ExtendedStatus) *uint64 {
	switch e {
	case status.ExtendedRegistered:
		return &registry.NumberOfRegistered
	case status.ExtendedRegistrationRequested:
		return &registry.NumberOfRegistrationRequested
	case status.ExtendedClearingRequested:
		return &registry.NumberOfClearingRequested
	case status.ChallengedRegistration:
		return &registry.NumberOfChallengedRegistrations
	case status.ChallengedClearing:
		return &registry.NumberOfChallengedClearing
	default:
		return &registry.NumberOfAbsent
	}
}

// Count returns the number of items in a bucket.
func Count(registry *model.Registry, e status.ExtendedStatus) uint64 {
	return *bucket(registry, e)
}
