package contracts

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestABIs(t *testing.T) {
	for _, name := range []string{
		"NewItem", "RequestSubmitted", "Contribution", "ItemStatusChange", "RewardWithdrawn",
		"ConnectedTCRSet", "Dispute", "Evidence", "MetaEvidence", "Ruling",
	} {
		_, ok := Registry.Events[name]
		require.True(t, ok, "registry event %s", name)
	}

	for _, name := range []string{
		"getItemInfo", "getRequestInfo", "getRoundInfo", "arbitratorDisputeIDToItemID", "arbitrator",
		"arbitratorExtraData", "challengePeriodDuration", "submissionBaseDeposit", "removalBaseDeposit",
		"submissionChallengeBaseDeposit", "removalChallengeBaseDeposit",
	} {
		_, ok := Registry.Methods[name]
		require.True(t, ok, "registry method %s", name)
	}

	require.Contains(t, Arbitrator.Events, "AppealPossible")
	require.Contains(t, Arbitrator.Events, "AppealDecision")
	require.Contains(t, Arbitrator.Methods, "appealPeriod")
	require.Contains(t, Factory.Events, "NewGTCR")
}

func TestLoadUnknown(t *testing.T) {
	_, err := Load("missing")
	require.Error(t, err)
}
