package db

import (
	"database/sql"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"
)

func init() {
	meddler.Register("address", hexMeddler[common.Address]{parse: common.HexToAddress, format: common.Address.Hex})
	meddler.Register("hash", hexMeddler[common.Hash]{parse: common.HexToHash, format: common.Hash.Hex})
	meddler.Register("bigint", BigIntMeddler{})
}

// hexMeddler stores hex encoded go-ethereum values (addresses, hashes) as TEXT.
// Both value and pointer fields are supported, a nil pointer maps to NULL.
type hexMeddler[T any] struct {
	parse  func(string) T
	format func(T) string
}

func (m hexMeddler[T]) PreRead(fieldAddr any) (scanTarget any, err error) {
	return new(sql.NullString), nil
}

func (m hexMeddler[T]) PostRead(fieldAddr, scanTarget any) error {
	ns, ok := scanTarget.(*sql.NullString)
	if !ok {
		return fmt.Errorf("expected *sql.NullString, got %T", scanTarget)
	}

	switch ptr := fieldAddr.(type) {
	case **T:
		if !ns.Valid {
			*ptr = nil
			return nil
		}
		v := m.parse(ns.String)
		*ptr = &v
	case *T:
		if !ns.Valid {
			var zero T
			*ptr = zero
			return nil
		}
		*ptr = m.parse(ns.String)
	default:
		return fmt.Errorf("unsupported field type %T", fieldAddr)
	}

	return nil
}

func (m hexMeddler[T]) PreWrite(field any) (saveValue any, err error) {
	switch v := field.(type) {
	case *T:
		if v == nil {
			return nil, nil
		}
		return m.format(*v), nil
	case T:
		return m.format(v), nil
	default:
		return nil, fmt.Errorf("unsupported field type %T", field)
	}
}

// BigIntMeddler stores *big.Int values as base 10 TEXT so that amounts above 2^63 survive.
type BigIntMeddler struct{}

func (b BigIntMeddler) PreRead(fieldAddr any) (scanTarget any, err error) {
	return new(sql.NullString), nil
}

func (b BigIntMeddler) PostRead(fieldAddr, scanTarget any) error {
	ns, ok := scanTarget.(*sql.NullString)
	if !ok {
		return fmt.Errorf("expected *sql.NullString, got %T", scanTarget)
	}

	ptr, ok := fieldAddr.(**big.Int)
	if !ok {
		return fmt.Errorf("expected **big.Int, got %T", fieldAddr)
	}

	if !ns.Valid {
		*ptr = nil
		return nil
	}

	v, ok := new(big.Int).SetString(ns.String, 10) //nolint:mnd
	if !ok {
		return fmt.Errorf("invalid integer value %q", ns.String)
	}
	*ptr = v

	return nil
}

func (b BigIntMeddler) PreWrite(field any) (saveValue any, err error) {
	v, ok := field.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("expected *big.Int, got %T", field)
	}
	if v == nil {
		return nil, nil
	}

	return v.String(), nil
}
