package service

import (
	"math"
	"sort"
	"time"

	"github.com/whale-scanner/internal/hyperliquid"
	"github.com/whale-scanner/internal/models"
)

// fillFlatEps is the threshold below which a fill's start or end
// position counts as flat.
const fillFlatEps = 1e-10

// LastTradeTime returns the timestamp of the most recent fill, or nil
// when there are none. Fills are not assumed to be sorted.
func LastTradeTime(fills []hyperliquid.Fill) *time.Time {
	var best int64 = -1
	for _, f := range fills {
		if f.TimeMs > best {
			best = f.TimeMs
		}
	}
	if best < 0 {
		return nil
	}
	t := time.UnixMilli(best).UTC()
	return &t
}

// InferPositionAges estimates, per coin, how long each currently open
// position has been held, by replaying the fill history.
//
// Walking a coin's fills in time order: a fill that takes the position
// from flat to non-flat opens it, one that returns it to flat closes
// it, and one that flips the sign restarts the clock. If a position is
// open now but no opening fill was seen (history truncation), the
// earliest fill stands in. Coins whose current size is flat get no age.
func InferPositionAges(fills []hyperliquid.Fill, positions []*models.Position, now time.Time) map[string]float64 {
	curSize := make(map[string]float64, len(positions))
	for _, p := range positions {
		curSize[p.Coin] = p.Size
	}

	byCoin := make(map[string][]hyperliquid.Fill)
	for _, f := range fills {
		if _, needed := curSize[f.Coin]; needed {
			byCoin[f.Coin] = append(byCoin[f.Coin], f)
		}
	}

	ages := make(map[string]float64)
	for coin, fs := range byCoin {
		sort.Slice(fs, func(i, j int) bool { return fs[i].TimeMs < fs[j].TimeMs })

		var openAt *time.Time
		for _, f := range fs {
			ts := time.UnixMilli(f.TimeMs).UTC()

			start := hyperliquid.ParseFloat(f.StartPosition, 0)
			delta := hyperliquid.ParseFloat(f.Sz, 0)
			if f.Side != "B" {
				delta = -delta
			}
			end := start + delta

			if math.Abs(start) < fillFlatEps && math.Abs(end) > fillFlatEps {
				openAt = &ts
			}
			if math.Abs(end) < fillFlatEps {
				openAt = nil
			}
			if start*end < 0 {
				openAt = &ts
			}
		}

		if math.Abs(curSize[coin]) < fillFlatEps {
			continue
		}
		if openAt == nil && len(fs) > 0 {
			first := time.UnixMilli(fs[0].TimeMs).UTC()
			openAt = &first
		}
		if openAt != nil {
			ages[coin] = now.Sub(*openAt).Seconds() / 86400
		}
	}
	return ages
}

// ApplyPositionAges writes inferred ages onto the matching positions.
func ApplyPositionAges(positions []*models.Position, ages map[string]float64) {
	for _, p := range positions {
		if age, ok := ages[p.Coin]; ok {
			a := age
			p.AgeDays = &a
		}
	}
}
