// Package types defines shared domain primitives for the whale scanner.
package types

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Address is a validated account address: 0x-prefixed, 40 hex digits,
// normalized to lowercase.
type Address string

// String returns the address as a plain string.
func (a Address) String() string {
	return string(a)
}

// IsValidAddress reports whether s is a well-formed 20-byte hex address.
func IsValidAddress(s string) bool {
	return common.IsHexAddress(strings.TrimSpace(s))
}

// NormalizeAddress validates and normalizes an address string.
// Returns the lowercase form and true, or "" and false if malformed.
func NormalizeAddress(s string) (Address, bool) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return "", false
	}
	return Address(strings.ToLower(common.HexToAddress(s).Hex())), true
}

// DedupeAddresses removes duplicates while preserving first-seen order.
func DedupeAddresses(addrs []Address) []Address {
	seen := make(map[Address]struct{}, len(addrs))
	out := make([]Address, 0, len(addrs))
	for _, a := range addrs {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

// ClientTier identifies an API consumer tier for inbound rate limiting.
type ClientTier string

const (
	// TierFree is the default tier for unauthenticated clients
	TierFree ClientTier = "free"
	// TierPremium is the tier for clients with elevated limits
	TierPremium ClientTier = "premium"
)

// ServiceError represents a structured error returned by service operations
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return e.Code + ": " + e.Message
}
