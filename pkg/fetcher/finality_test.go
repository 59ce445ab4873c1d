package fetcher

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFinality(t *testing.T) {
	tests := []struct {
		input   string
		want    Finality
		wantErr bool
	}{
		{input: "finalized", want: FinalityFinalized},
		{input: "safe", want: FinalitySafe},
		{input: "latest", want: FinalityLatest},
		{input: " Finalized ", want: FinalityFinalized},
		{input: "pending", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFinality(tt.input)
			if tt.wantErr {
				require.ErrorContains(t, err, "invalid block finality")
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Equal(t, string(tt.want), got.String())
		})
	}
}
