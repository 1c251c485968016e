// Package rotation computes cross-symbol dominance and directional flow
// share from windowed flow sums. The engine is stateless per call; windowed
// sums come from a WindowSummer (the live collector in production, a fake in
// tests).
package rotation

import (
	"math"
	"sort"

	"vdelta-screener/internal/domain"
)

// WindowSummer provides per-symbol signed notional sums over a trailing
// window, one entry per tracked symbol (0 for symbols with no activity),
// plus the reference time used.
type WindowSummer interface {
	WindowSums(windowSeconds int64, asOf ...int64) (map[string]float64, int64)
}

// DominanceTable computes one DominanceRow per entry of the fixed timeframe
// menu. A timeframe whose window holds zero total absolute flow yields an
// Insufficient row, never a fabricated 0%/0% result.
func DominanceTable(summer WindowSummer, asOf ...int64) []domain.DominanceRow {
	rows := make([]domain.DominanceRow, 0, len(domain.Timeframes))
	for _, tf := range domain.Timeframes {
		row := domain.DominanceRow{Timeframe: tf.Label, Insufficient: true}

		sums, _ := summer.WindowSums(tf.Seconds, asOf...)
		if bull, bullShare, bear, bearShare, ok := bullBear(sums); ok {
			row = domain.DominanceRow{
				Timeframe:  tf.Label,
				BullSymbol: bull,
				BullShare:  bullShare,
				BearSymbol: bear,
				BearShare:  bearShare,
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// bullBear normalizes per-symbol sums by total absolute flow and picks the
// extremes. Ties go to the lexically first symbol. ok is false when there is
// no flow at all.
func bullBear(sums map[string]float64) (bull string, bullShare float64, bear string, bearShare float64, ok bool) {
	var totalAbs float64
	for _, sum := range sums {
		totalAbs += math.Abs(sum)
	}
	if totalAbs == 0 {
		return "", 0, "", 0, false
	}

	symbols := sortedKeys(sums)
	for _, sym := range symbols {
		share := sums[sym] / totalAbs
		if bull == "" || share > bullShare {
			bull, bullShare = sym, share
		}
		if bear == "" || share < bearShare {
			bear, bearShare = sym, share
		}
	}
	return bull, bullShare, bear, bearShare, true
}

// FlowShareMap computes every tracked symbol's signed share of total absolute
// flow in the selected window. Symbols with no activity carry an explicit 0,
// so the consumer always has a fixed symbol axis; when the window holds no
// flow at all, every share is 0.
func FlowShareMap(summer WindowSummer, windowSeconds int64, asOf ...int64) domain.FlowShare {
	sums, _ := summer.WindowSums(windowSeconds, asOf...)

	var totalAbs float64
	for _, sum := range sums {
		totalAbs += math.Abs(sum)
	}

	shares := make(map[string]float64, len(sums))
	for sym, sum := range sums {
		if totalAbs == 0 {
			shares[sym] = 0
			continue
		}
		shares[sym] = sum / totalAbs
	}

	return domain.FlowShare{
		WindowSeconds: windowSeconds,
		Symbols:       sortedKeys(sums),
		Shares:        shares,
	}
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
