package hyperliquid

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePortfolioWindows_PairList(t *testing.T) {
	raw := json.RawMessage(`[
		["month", {
			"accountValueHistory": [[1700000000000, "100.5"], [1700086400000, "110.25"]],
			"pnlHistory": [[1700000000000, "0"], [1700086400000, "9.75"]],
			"vlm": "123456.78"
		}],
		["week", {
			"accountValueHistory": [],
			"pnlHistory": [],
			"vlm": "0"
		}]
	]`)

	windows := ParsePortfolioWindows(raw)
	require.Contains(t, windows, "month")
	require.Contains(t, windows, "week")

	month := windows["month"]
	require.Len(t, month.AccountValues, 2)
	assert.Equal(t, int64(1700000000000), month.AccountValues[0].TimeMs)
	assert.InDelta(t, 100.5, month.AccountValues[0].Value, 1e-9)
	assert.InDelta(t, 9.75, month.Pnls[1].Value, 1e-9)
	assert.InDelta(t, 123456.78, month.Volume, 1e-9)

	assert.Empty(t, windows["week"].AccountValues)
}

func TestParsePortfolioWindows_ObjectShape(t *testing.T) {
	raw := json.RawMessage(`{
		"week": {
			"accountValueHistory": [[1700000000000, "50"]],
			"pnlHistory": [[1700000000000, "1"]],
			"vlm": "42"
		}
	}`)

	windows := ParsePortfolioWindows(raw)
	require.Contains(t, windows, "week")
	assert.InDelta(t, 50, windows["week"].AccountValues[0].Value, 1e-9)
	assert.InDelta(t, 42, windows["week"].Volume, 1e-9)
}

func TestParsePortfolioWindows_PerpAllTimeAlias(t *testing.T) {
	raw := json.RawMessage(`[
		["perpAllTime", {
			"accountValueHistory": [[1700000000000, "77"]],
			"pnlHistory": [],
			"vlm": "5"
		}]
	]`)

	windows := ParsePortfolioWindows(raw)
	require.Contains(t, windows, "allTime")
	assert.InDelta(t, 77, windows["allTime"].AccountValues[0].Value, 1e-9)
}

func TestParsePortfolioWindows_AllTimeNotOverwritten(t *testing.T) {
	raw := json.RawMessage(`[
		["allTime", {"accountValueHistory": [[1, "10"]], "pnlHistory": [], "vlm": "1"}],
		["perpAllTime", {"accountValueHistory": [[1, "20"]], "pnlHistory": [], "vlm": "2"}]
	]`)

	windows := ParsePortfolioWindows(raw)
	assert.InDelta(t, 10, windows["allTime"].AccountValues[0].Value, 1e-9)
}

func TestParsePortfolioWindows_MalformedEntriesDropped(t *testing.T) {
	raw := json.RawMessage(`[
		["month", {
			"accountValueHistory": [[1700000000000, "100"], ["bad"], [1700086400000, "110"], [1700172800000, {"no": 1}]],
			"pnlHistory": null,
			"vlm": "garbage"
		}],
		["short"],
		[42, {"vlm": "1"}]
	]`)

	windows := ParsePortfolioWindows(raw)
	require.Contains(t, windows, "month")
	month := windows["month"]
	require.Len(t, month.AccountValues, 2)
	assert.Nil(t, month.Pnls)
	assert.Zero(t, month.Volume)
	assert.Len(t, windows, 1)
}

func TestParsePortfolioWindows_NumericValuesAccepted(t *testing.T) {
	raw := json.RawMessage(`{
		"month": {"accountValueHistory": [[1700000000000, 99.5]], "pnlHistory": [], "vlm": "0"}
	}`)

	windows := ParsePortfolioWindows(raw)
	require.Len(t, windows["month"].AccountValues, 1)
	assert.InDelta(t, 99.5, windows["month"].AccountValues[0].Value, 1e-9)
}

func TestParsePortfolioWindows_Unusable(t *testing.T) {
	assert.Nil(t, ParsePortfolioWindows(json.RawMessage(`"nope"`)))

	windows := ParsePortfolioWindows(json.RawMessage(`[]`))
	assert.Empty(t, windows)
}
