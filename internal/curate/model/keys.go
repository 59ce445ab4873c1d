package model

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// AddressKey is the lower case hex form of an address used inside entity keys.
func AddressKey(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

// ItemKey identifies an item as <item id>@<registry>.
func ItemKey(itemID common.Hash, registry common.Address) string {
	return itemID.Hex() + "@" + AddressKey(registry)
}

func RequestKey(itemKey string, requestIndex uint64) string {
	return fmt.Sprintf("%s-%d", itemKey, requestIndex)
}

func RoundKey(requestKey string, roundIndex uint64) string {
	return fmt.Sprintf("%s-%d", requestKey, roundIndex)
}

func ContributionKey(roundKey string, contributionIndex uint64) string {
	return fmt.Sprintf("%s-%d", roundKey, contributionIndex)
}

// MetaEvidenceKey identifies the n-th meta evidence of a registry, counting from 1.
func MetaEvidenceKey(registry common.Address, n uint64) string {
	return fmt.Sprintf("%s-%d", AddressKey(registry), n)
}

// EvidenceGroupKey identifies an evidence group as <decimal group id>@<registry>.
func EvidenceGroupKey(groupID *big.Int, registry common.Address) string {
	return groupID.String() + "@" + AddressKey(registry)
}

func EvidenceKey(groupKey string, n uint64) string {
	return fmt.Sprintf("%s-%d", groupKey, n)
}

var contentPrefixes = []string{"ipfs/", "/ipfs/", "/", "ipfs::/"}

// ContentPath strips the ipfs style prefix of a document URI.
// Only the first matching prefix is removed.
func ContentPath(uri string) string {
	for _, prefix := range contentPrefixes {
		if strings.HasPrefix(uri, prefix) {
			return strings.TrimPrefix(uri, prefix)
		}
	}
	return uri
}

// MetadataPointer links an entity to the off-chain document it refers to.
func MetadataPointer(uri, entityKey string) string {
	return ContentPath(uri) + "-" + entityKey
}
