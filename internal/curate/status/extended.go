package status

import "fmt"

// ExtendedStatus folds the disputed flag of an item into its status.
// It selects the registry counter bucket the item belongs to.
type ExtendedStatus uint8

const (
	ExtendedAbsent ExtendedStatus = iota
	ExtendedRegistered
	ExtendedRegistrationRequested
	ExtendedClearingRequested
	ChallengedRegistration
	ChallengedClearing
)

// ExtendedStatuses lists every bucket in code order.
var ExtendedStatuses = []ExtendedStatus{
	ExtendedAbsent,
	ExtendedRegistered,
	ExtendedRegistrationRequested,
	ExtendedClearingRequested,
	ChallengedRegistration,
	ChallengedClearing,
}

// Extend computes the extended status of an item.
// A disputed item is a challenged registration when a registration is pending
// and a challenged clearing otherwise.
func Extend(disputed bool, st Status) ExtendedStatus {
	if disputed {
		if st == RegistrationRequested {
			return ChallengedRegistration
		}
		return ChallengedClearing
	}

	switch st {
	case Registered:
		return ExtendedRegistered
	case RegistrationRequested:
		return ExtendedRegistrationRequested
	case ClearingRequested:
		return ExtendedClearingRequested
	default:
		return ExtendedAbsent
	}
}

func (e ExtendedStatus) String() string {
	switch e {
	case ExtendedAbsent:
		return "Absent"
	case ExtendedRegistered:
		return "Registered"
	case ExtendedRegistrationRequested:
		return "RegistrationRequested"
	case ExtendedClearingRequested:
		return "ClearingRequested"
	case ChallengedRegistration:
		return "ChallengedRegistration"
	case ChallengedClearing:
		return "ChallengedClearing"
	default:
		return fmt.Sprintf("ExtendedStatus(%d)", uint8(e))
	}
}
