// Package status maps the compact numeric codes of the curated registry contract
// to closed Go enumerations.
//
// Every type stores as its name through database/sql and decodes from its
// on-chain code. Unknown codes and names produce a *DecodeError.
package status

import (
	"database/sql/driver"
	"fmt"
)

// DecodeError reports a code or name outside of a known enumeration.
type DecodeError struct {
	Kind  string
	Value string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid %s %s", e.Kind, e.Value)
}

func codeError(kind string, code uint64) error {
	return &DecodeError{Kind: kind + " code", Value: fmt.Sprintf("%d", code)}
}

func nameError(kind string, name string) error {
	return &DecodeError{Kind: kind + " name", Value: fmt.Sprintf("%q", name)}
}

// Status is the item status kept by the registry contract.
type Status uint8

const (
	Absent Status = iota
	Registered
	RegistrationRequested
	ClearingRequested
)

var statuses = []Status{Absent, Registered, RegistrationRequested, ClearingRequested}

// DecodeStatus converts a contract status code.
func DecodeStatus(code uint8) (Status, error) {
	switch s := Status(code); s {
	case Absent, Registered, RegistrationRequested, ClearingRequested:
		return s, nil
	default:
		return 0, codeError("status", uint64(code))
	}
}

func (s Status) String() string {
	switch s {
	case Absent:
		return "Absent"
	case Registered:
		return "Registered"
	case RegistrationRequested:
		return "RegistrationRequested"
	case ClearingRequested:
		return "ClearingRequested"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// IsRequested tells whether a request is pending for an item with this status.
func (s Status) IsRequested() bool {
	return s == RegistrationRequested || s == ClearingRequested
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(name string) (Status, error) {
	for _, s := range statuses {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, nameError("status", name)
}

func (s Status) Value() (driver.Value, error) {
	if _, err := DecodeStatus(uint8(s)); err != nil {
		return nil, err
	}
	return s.String(), nil
}

func (s *Status) Scan(src any) error {
	name, err := scanName(src)
	if err != nil {
		return err
	}
	parsed, err := ParseStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Ruling is the arbitrator ruling for a request.
type Ruling uint8

const (
	// None means the arbitrator refused to rule or there was no dispute.
	None Ruling = iota
	Accept
	Reject
)

var rulings = []Ruling{None, Accept, Reject}

// DecodeRuling converts an arbitrator ruling code.
func DecodeRuling(code uint64) (Ruling, error) {
	switch code {
	case uint64(None), uint64(Accept), uint64(Reject):
		return Ruling(code), nil
	default:
		return 0, codeError("ruling", code)
	}
}

func (r Ruling) String() string {
	switch r {
	case None:
		return "None"
	case Accept:
		return "Accept"
	case Reject:
		return "Reject"
	default:
		return fmt.Sprintf("Ruling(%d)", uint8(r))
	}
}

// Winner returns the side favoured by the ruling. It is false for None.
func (r Ruling) Winner() (Side, bool) {
	switch r {
	case Accept:
		return Requester, true
	case Reject:
		return Challenger, true
	default:
		return 0, false
	}
}

// ParseRuling is the inverse of Ruling.String.
func ParseRuling(name string) (Ruling, error) {
	for _, r := range rulings {
		if r.String() == name {
			return r, nil
		}
	}
	return 0, nameError("ruling", name)
}

func (r Ruling) Value() (driver.Value, error) {
	if _, err := DecodeRuling(uint64(r)); err != nil {
		return nil, err
	}
	return r.String(), nil
}

func (r *Ruling) Scan(src any) error {
	name, err := scanName(src)
	if err != nil {
		return err
	}
	parsed, err := ParseRuling(name)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Side is a party of a request. The contract reserves code 0 for "no side".
type Side uint8

const (
	Requester Side = iota + 1
	Challenger
)

// DecodeSide converts a contract party code. Code 0 is rejected.
func DecodeSide(code uint8) (Side, error) {
	switch s := Side(code); s {
	case Requester, Challenger:
		return s, nil
	default:
		return 0, codeError("side", uint64(code))
	}
}

func (s Side) String() string {
	switch s {
	case Requester:
		return "Requester"
	case Challenger:
		return "Challenger"
	default:
		return fmt.Sprintf("Side(%d)", uint8(s))
	}
}

// ParseSide is the inverse of Side.String.
func ParseSide(name string) (Side, error) {
	for _, s := range []Side{Requester, Challenger} {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, nameError("side", name)
}

func (s Side) Value() (driver.Value, error) {
	if _, err := DecodeSide(uint8(s)); err != nil {
		return nil, err
	}
	return s.String(), nil
}

func (s *Side) Scan(src any) error {
	name, err := scanName(src)
	if err != nil {
		return err
	}
	parsed, err := ParseSide(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// RequestType tells whether a request registers or clears an item.
type RequestType uint8

const (
	Registration RequestType = iota
	Clearing
)

// RequestTypeOf returns the type of a request that put the item in st.
func RequestTypeOf(st Status) (RequestType, error) {
	switch st {
	case RegistrationRequested:
		return Registration, nil
	case ClearingRequested:
		return Clearing, nil
	default:
		return 0, &DecodeError{Kind: "request status", Value: st.String()}
	}
}

func (t RequestType) String() string {
	switch t {
	case Registration:
		return "Registration"
	case Clearing:
		return "Clearing"
	default:
		return fmt.Sprintf("RequestType(%d)", uint8(t))
	}
}

// ParseRequestType is the inverse of RequestType.String.
func ParseRequestType(name string) (RequestType, error) {
	for _, t := range []RequestType{Registration, Clearing} {
		if t.String() == name {
			return t, nil
		}
	}
	return 0, nameError("request type", name)
}

func (t RequestType) Value() (driver.Value, error) {
	if t != Registration && t != Clearing {
		return nil, codeError("request type", uint64(t))
	}
	return t.String(), nil
}

func (t *RequestType) Scan(src any) error {
	name, err := scanName(src)
	if err != nil {
		return err
	}
	parsed, err := ParseRequestType(name)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func scanName(src any) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("cannot scan %T into an enumeration", src)
	}
}
