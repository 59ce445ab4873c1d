package rpc

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	tooManyResultsRe = regexp.MustCompile(`Query returned more than \d+ results`)
	suggestedRangeRe = regexp.MustCompile(`\[(0x[0-9a-fA-F]+),\s*(0x[0-9a-fA-F]+)\]`)
)

// RangeLimit describes an eth_getLogs rejection caused by a result cap on the node.
type RangeLimit struct {
	// Suggested is set when the node proposed a narrower range.
	Suggested bool
	From      uint64
	To        uint64
}

// AsRangeLimit reports whether err is a "query returned more than N results" rejection.
// Nodes attach the message to the error data, together with an optional
// "[0xfrom, 0xto]" range that is known to fit.
func AsRangeLimit(err error) (RangeLimit, bool) {
	var dataErr rpc.DataError
	if err == nil || !errors.As(err, &dataErr) {
		return RangeLimit{}, false
	}

	data := fmt.Sprint(dataErr.ErrorData())
	if !tooManyResultsRe.MatchString(data) {
		return RangeLimit{}, false
	}

	return parseSuggestedRange(data), true
}

func parseSuggestedRange(msg string) RangeLimit {
	matches := suggestedRangeRe.FindStringSubmatch(msg)
	if len(matches) != 3 {
		return RangeLimit{}
	}

	from, err := hexutil.DecodeUint64(matches[1])
	if err != nil {
		return RangeLimit{}
	}
	to, err := hexutil.DecodeUint64(matches[2])
	if err != nil {
		return RangeLimit{}
	}

	return RangeLimit{Suggested: true, From: from, To: to}
}
