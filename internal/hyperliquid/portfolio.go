package hyperliquid

import (
	"encoding/json"

	"github.com/whale-scanner/internal/models"
)

// rawWindow mirrors the per-window payload inside a portfolio
// response. Histories arrive as [[timeMs, "value"], ...] pairs and the
// volume as a decimal string.
type rawWindow struct {
	AccountValueHistory []json.RawMessage `json:"accountValueHistory"`
	PnlHistory          []json.RawMessage `json:"pnlHistory"`
	Vlm                 string            `json:"vlm"`
}

// ParsePortfolioWindows converts a raw portfolio document into named
// windows. The endpoint returns either a list of [name, window] pairs
// or an object keyed by window name; both are handled. The perp-only
// all-time window is aliased onto "allTime" when the spot-inclusive one
// is absent.
func ParsePortfolioWindows(raw json.RawMessage) map[string]models.PortfolioWindow {
	named := map[string]json.RawMessage{}

	var pairs [][]json.RawMessage
	if err := json.Unmarshal(raw, &pairs); err == nil {
		for _, pair := range pairs {
			if len(pair) != 2 {
				continue
			}
			var name string
			if err := json.Unmarshal(pair[0], &name); err != nil {
				continue
			}
			named[name] = pair[1]
		}
	} else if err := json.Unmarshal(raw, &named); err != nil {
		return nil
	}

	out := make(map[string]models.PortfolioWindow, len(named))
	for name, body := range named {
		var rw rawWindow
		if err := json.Unmarshal(body, &rw); err != nil {
			continue
		}
		out[name] = models.PortfolioWindow{
			AccountValues: parseTimePoints(rw.AccountValueHistory),
			Pnls:          parseTimePoints(rw.PnlHistory),
			Volume:        ParseFloat(rw.Vlm, 0),
		}
	}

	if _, ok := out["allTime"]; !ok {
		if w, ok := out["perpAllTime"]; ok {
			out["allTime"] = w
		}
	}
	return out
}

// parseTimePoints decodes [[timeMs, "value"], ...] entries, dropping
// malformed pairs rather than failing the whole history.
func parseTimePoints(raw []json.RawMessage) []models.TimePoint {
	if len(raw) == 0 {
		return nil
	}
	out := make([]models.TimePoint, 0, len(raw))
	for _, item := range raw {
		var pair []json.RawMessage
		if err := json.Unmarshal(item, &pair); err != nil || len(pair) != 2 {
			continue
		}
		var ts int64
		if err := json.Unmarshal(pair[0], &ts); err != nil {
			continue
		}
		var val float64
		if err := json.Unmarshal(pair[1], &val); err != nil {
			var s string
			if err := json.Unmarshal(pair[1], &s); err != nil {
				continue
			}
			val = ParseFloat(s, 0)
		}
		out = append(out, models.TimePoint{TimeMs: ts, Value: val})
	}
	return out
}
