package hyperliquid

import (
	"strconv"
	"strings"
)

// Wire types for the Hyperliquid /info API. Numeric fields arrive as
// JSON strings; lenient parse helpers substitute zero for malformed
// values so one bad field never discards the surrounding record.

// MarginSummary is the account-level equity block of a clearinghouse state.
type MarginSummary struct {
	AccountValue    string `json:"accountValue"`
	TotalNtlPos     string `json:"totalNtlPos"`
	TotalMarginUsed string `json:"totalMarginUsed"`
}

// Leverage describes the leverage setting of one position.
type Leverage struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

// RawPosition is one perp position as reported by the venue.
type RawPosition struct {
	Coin           string    `json:"coin"`
	Szi            string    `json:"szi"`
	EntryPx        string    `json:"entryPx"`
	PositionValue  string    `json:"positionValue"`
	UnrealizedPnl  string    `json:"unrealizedPnl"`
	ReturnOnEquity *string   `json:"returnOnEquity"`
	Leverage       *Leverage `json:"leverage"`
	LiquidationPx  *string   `json:"liquidationPx"`
	MarginUsed     string    `json:"marginUsed"`
}

// AssetPosition wraps a position with its mode tag.
type AssetPosition struct {
	Type     string       `json:"type"`
	Position *RawPosition `json:"position"`
}

// ClearinghouseState is the full account state for one address.
type ClearinghouseState struct {
	MarginSummary  MarginSummary   `json:"marginSummary"`
	AssetPositions []AssetPosition `json:"assetPositions"`
}

// Fill is one executed trade from the userFills endpoint.
type Fill struct {
	Coin          string `json:"coin"`
	Px            string `json:"px"`
	Sz            string `json:"sz"`
	Side          string `json:"side"` // "B" buy, "A" sell
	TimeMs        int64  `json:"time"`
	StartPosition string `json:"startPosition"`
}

// ParseFloat leniently parses a string-encoded number, returning def
// for empty or malformed input.
func ParseFloat(s string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}
	return v
}

// ParseOptFloat parses an optional string-encoded number. Absent or
// empty input yields nil; malformed non-empty input yields zero, the
// same safe default ParseFloat uses.
func ParseOptFloat(s *string) *float64 {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := ParseFloat(*s, 0)
	return &v
}
