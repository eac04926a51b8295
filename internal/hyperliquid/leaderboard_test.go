package hyperliquid

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/whale-scanner/internal/types"
)

func TestExtractLeaderboardAddresses_TopLevelArray(t *testing.T) {
	raw := json.RawMessage(`[
		{"ethAddress": "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", "accountValue": "1000"},
		{"ethAddress": "0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB", "accountValue": "900"}
	]`)

	addrs := ExtractLeaderboardAddresses(raw, 200)
	assert.Equal(t, []types.Address{
		"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
	}, addrs)
}

func TestExtractLeaderboardAddresses_KnownObjectKeys(t *testing.T) {
	for _, key := range []string{"leaderboardRows", "leaderboard", "data", "traders", "users", "result"} {
		t.Run(key, func(t *testing.T) {
			raw := json.RawMessage(`{"` + key + `": [{"ethAddress": "0xCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC"}]}`)
			addrs := ExtractLeaderboardAddresses(raw, 10)
			assert.Equal(t, []types.Address{"0xcccccccccccccccccccccccccccccccccccccccc"}, addrs)
		})
	}
}

func TestExtractLeaderboardAddresses_FirstArrayValueFallback(t *testing.T) {
	raw := json.RawMessage(`{"rows": ["0xDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDD"]}`)
	addrs := ExtractLeaderboardAddresses(raw, 10)
	assert.Equal(t, []types.Address{"0xdddddddddddddddddddddddddddddddddddddddd"}, addrs)
}

func TestExtractLeaderboardAddresses_FallbackUsesDocumentOrder(t *testing.T) {
	// Two unknown array-valued keys: the earlier member must win every
	// time, regardless of map iteration order
	raw := json.RawMessage(`{
		"rows": ["0xDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDD"],
		"alt":  ["0xEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEE"]
	}`)
	for i := 0; i < 20; i++ {
		addrs := ExtractLeaderboardAddresses(raw, 10)
		assert.Equal(t, []types.Address{"0xdddddddddddddddddddddddddddddddddddddddd"}, addrs)
	}
}

func TestExtractLeaderboardAddresses_AlternateEntryKeys(t *testing.T) {
	raw := json.RawMessage(`[
		{"address": "0x1111111111111111111111111111111111111111"},
		{"user": "0x2222222222222222222222222222222222222222"},
		{"wallet": "0x3333333333333333333333333333333333333333"}
	]`)
	addrs := ExtractLeaderboardAddresses(raw, 10)
	assert.Len(t, addrs, 3)
}

func TestExtractLeaderboardAddresses_SkipsInvalidAndDeduplicates(t *testing.T) {
	raw := json.RawMessage(`[
		{"ethAddress": "0xAaAaAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"},
		{"ethAddress": "not-an-address"},
		{"other": "0x9999999999999999999999999999999999999999"},
		{"ethAddress": "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}
	]`)
	addrs := ExtractLeaderboardAddresses(raw, 10)
	assert.Equal(t, []types.Address{"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}, addrs)
}

func TestExtractLeaderboardAddresses_TopNCap(t *testing.T) {
	raw := json.RawMessage(`[
		{"ethAddress": "0x1111111111111111111111111111111111111111"},
		{"ethAddress": "0x2222222222222222222222222222222222222222"},
		{"ethAddress": "0x3333333333333333333333333333333333333333"}
	]`)
	addrs := ExtractLeaderboardAddresses(raw, 2)
	assert.Equal(t, []types.Address{
		"0x1111111111111111111111111111111111111111",
		"0x2222222222222222222222222222222222222222",
	}, addrs)
}

func TestExtractLeaderboardAddresses_UnusableShapes(t *testing.T) {
	assert.Nil(t, ExtractLeaderboardAddresses(json.RawMessage(`"just a string"`), 10))
	assert.Nil(t, ExtractLeaderboardAddresses(json.RawMessage(`{"count": 5}`), 10))
	assert.Empty(t, ExtractLeaderboardAddresses(json.RawMessage(`[]`), 10))
}
