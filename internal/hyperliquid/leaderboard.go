package hyperliquid

import (
	"bytes"
	"encoding/json"

	"github.com/whale-scanner/internal/types"
)

// The leaderboard endpoint has shipped several response shapes over
// time. Extraction runs an ordered list of strategies, each returning a
// definite hit or a miss, and the first hit wins.

// entryKeys are the object keys an address may live under in one
// leaderboard entry, in preference order.
var entryKeys = []string{"ethAddress", "address", "user", "wallet"}

// listKeys are the object keys the entry list may live under, in
// preference order.
var listKeys = []string{"leaderboardRows", "leaderboard", "data", "traders", "users", "result"}

// ExtractLeaderboardAddresses pulls up to topN validated addresses from
// a raw leaderboard document, deduplicated in first-seen order.
func ExtractLeaderboardAddresses(raw json.RawMessage, topN int) []types.Address {
	entries := extractEntryList(raw)
	if entries == nil {
		return nil
	}
	if topN > 0 && len(entries) > topN {
		entries = entries[:topN]
	}

	var out []types.Address
	for _, entry := range entries {
		addr, ok := extractEntryAddress(entry)
		if !ok {
			continue
		}
		out = append(out, addr)
	}
	return types.DedupeAddresses(out)
}

// extractEntryList finds the entry array in any of the known shapes.
func extractEntryList(raw json.RawMessage) []json.RawMessage {
	// Shape 1: top-level array
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}

	// Shape 2: object with a known list key
	for _, key := range listKeys {
		if inner, ok := obj[key]; ok {
			if err := json.Unmarshal(inner, &list); err == nil {
				return list
			}
		}
	}

	// Shape 3: the first array-valued member in document order
	dec := json.NewDecoder(bytes.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil
	}
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil
		}
		var inner json.RawMessage
		if err := dec.Decode(&inner); err != nil {
			return nil
		}
		if err := json.Unmarshal(inner, &list); err == nil {
			return list
		}
	}

	return nil
}

// extractEntryAddress pulls a validated address out of one entry, which
// may be a bare string or an object keyed by any of entryKeys.
func extractEntryAddress(entry json.RawMessage) (types.Address, bool) {
	var s string
	if err := json.Unmarshal(entry, &s); err == nil {
		return types.NormalizeAddress(s)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(entry, &obj); err != nil {
		return "", false
	}
	for _, key := range entryKeys {
		inner, ok := obj[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(inner, &s); err == nil {
			if addr, valid := types.NormalizeAddress(s); valid {
				return addr, true
			}
		}
	}
	return "", false
}
