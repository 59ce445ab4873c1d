package status

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStatus(t *testing.T) {
	tests := []struct {
		code    uint8
		want    Status
		wantErr bool
	}{
		{code: 0, want: Absent},
		{code: 1, want: Registered},
		{code: 2, want: RegistrationRequested},
		{code: 3, want: ClearingRequested},
		{code: 4, wantErr: true},
		{code: 255, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			// decoding the same code twice gives the same value
			for range 2 {
				got, err := DecodeStatus(tt.code)
				if tt.wantErr {
					var decodeErr *DecodeError
					require.True(t, errors.As(err, &decodeErr))
					require.Equal(t, "status code", decodeErr.Kind)
					continue
				}
				require.NoError(t, err)
				require.Equal(t, tt.want, got)
			}
		})
	}
}

func TestDecodeRuling(t *testing.T) {
	for code, want := range map[uint64]Ruling{0: None, 1: Accept, 2: Reject} {
		got, err := DecodeRuling(code)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := DecodeRuling(3)
	require.ErrorContains(t, err, "invalid ruling code 3")
}

func TestDecodeSide(t *testing.T) {
	side, err := DecodeSide(1)
	require.NoError(t, err)
	require.Equal(t, Requester, side)

	side, err = DecodeSide(2)
	require.NoError(t, err)
	require.Equal(t, Challenger, side)

	for _, code := range []uint8{0, 3} {
		_, err := DecodeSide(code)
		require.Error(t, err)
	}
}

func TestRulingWinner(t *testing.T) {
	side, ok := Accept.Winner()
	require.True(t, ok)
	require.Equal(t, Requester, side)

	side, ok = Reject.Winner()
	require.True(t, ok)
	require.Equal(t, Challenger, side)

	_, ok = None.Winner()
	require.False(t, ok)
}

func TestExtend(t *testing.T) {
	tests := []struct {
		disputed bool
		status   Status
		want     ExtendedStatus
	}{
		{false, Absent, ExtendedAbsent},
		{false, Registered, ExtendedRegistered},
		{false, RegistrationRequested, ExtendedRegistrationRequested},
		{false, ClearingRequested, ExtendedClearingRequested},
		{true, RegistrationRequested, ChallengedRegistration},
		{true, ClearingRequested, ChallengedClearing},
		{true, Registered, ChallengedClearing},
		{true, Absent, ChallengedClearing},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Extend(tt.disputed, tt.status), "disputed=%v status=%s", tt.disputed, tt.status)
	}
}

func TestNamesRoundTrip(t *testing.T) {
	for _, s := range statuses {
		parsed, err := ParseStatus(s.String())
		require.NoError(t, err)
		require.Equal(t, s, parsed)

		value, err := s.Value()
		require.NoError(t, err)

		var scanned Status
		require.NoError(t, scanned.Scan(value))
		require.Equal(t, s, scanned)
	}

	for _, r := range rulings {
		parsed, err := ParseRuling(r.String())
		require.NoError(t, err)
		require.Equal(t, r, parsed)

		var scanned Ruling
		require.NoError(t, scanned.Scan([]byte(r.String())))
		require.Equal(t, r, scanned)
	}

	for _, side := range []Side{Requester, Challenger} {
		parsed, err := ParseSide(side.String())
		require.NoError(t, err)
		require.Equal(t, side, parsed)
	}

	for _, rt := range []RequestType{Registration, Clearing} {
		var scanned RequestType
		require.NoError(t, scanned.Scan(rt.String()))
		require.Equal(t, rt, scanned)
	}
}

func TestParseErrors(t *testing.T) {
	_, err := ParseStatus("Error")
	require.ErrorContains(t, err, `invalid status name "Error"`)

	_, err = ParseRuling("")
	require.Error(t, err)

	var s Status
	require.Error(t, s.Scan(int64(1)))

	_, err = Status(9).Value()
	require.Error(t, err)

	_, err = Side(0).Value()
	require.Error(t, err)
}

func TestRequestTypeOf(t *testing.T) {
	rt, err := RequestTypeOf(RegistrationRequested)
	require.NoError(t, err)
	require.Equal(t, Registration, rt)

	rt, err = RequestTypeOf(ClearingRequested)
	require.NoError(t, err)
	require.Equal(t, Clearing, rt)

	_, err = RequestTypeOf(Registered)
	require.Error(t, err)
}
