package ledger

import "github.com/goran-ethernal/CurateIndexor/internal/curate/status"

// Withdrawable decides whether a contribution made in an appeal round can be reclaimed
// once the request resolved. Every contribution is reclaimable when the arbitrator refused
// to rule. Otherwise winners are, and so are the losers of the last round which never
// got fully funded.
func Withdrawable(ruling status.Ruling, side status.Side, roundIndex, lastRoundIndex uint64) bool {
	winner, ok := ruling.Winner()
	if !ok {
		return true
	}
	return side == winner || roundIndex == lastRoundIndex
}
