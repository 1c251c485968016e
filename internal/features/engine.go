// Package features derives per-symbol flow features from snapshots and
// historical bars. All functions are pure: they take a batch, return a new
// batch, and keep no state across calls.
//
// Two distinct "no value" conventions coexist here on purpose. Normalization
// and z-scoring use a nil sentinel for undefined results (missing market
// cap, zero variance, non-finite division). ComputeVolDelta instead defines
// the first bar of a symbol as delta 0, a "no signal yet" baseline carried
// over for compatibility with the historical-bar consumers. Do not unify the
// two without consulting the downstream dominance math.
package features

import (
	"math"
	"sort"

	"vdelta-screener/internal/domain"
	"vdelta-screener/internal/mcap"
)

// NormalizeByMcap fills McapUSD and VDeltaNorm on every row that has a
// symbol: VDeltaNorm = VDeltaQty / market cap. The result is nil (undefined)
// when the cap is missing, zero, or the quotient is non-finite; other rows
// are unaffected. Rows without a symbol pass through untouched.
func NormalizeByMcap(rows []domain.FeatureRow, provider mcap.Provider) []domain.FeatureRow {
	out := make([]domain.FeatureRow, len(rows))
	copy(out, rows)

	for i := range out {
		if out[i].Symbol == "" {
			continue
		}
		cap, ok := provider.Lookup(out[i].Symbol)
		if !ok {
			out[i].McapUSD = nil
			out[i].VDeltaNorm = nil
			continue
		}
		capVal := cap
		out[i].McapUSD = &capVal
		out[i].VDeltaNorm = safeDiv(out[i].VDeltaQty, cap)
	}
	return out
}

// CrossSectionalZScore fills VDeltaZ with the z-score of VDeltaNorm relative
// to the current batch only (population statistics, no historical
// smoothing). Rows with an undefined VDeltaNorm stay undefined and are
// excluded from the statistics. When fewer than 2 rows have a defined value,
// or the variance is zero, every output is nil rather than a divide-by-zero
// artifact.
func CrossSectionalZScore(rows []domain.FeatureRow) []domain.FeatureRow {
	out := make([]domain.FeatureRow, len(rows))
	copy(out, rows)

	var values []float64
	for i := range out {
		out[i].VDeltaZ = nil
		if out[i].VDeltaNorm != nil {
			values = append(values, *out[i].VDeltaNorm)
		}
	}

	mean, std, ok := populationStats(values)
	if !ok {
		return out
	}

	for i := range out {
		if out[i].VDeltaNorm == nil {
			continue
		}
		z := (*out[i].VDeltaNorm - mean) / std
		out[i].VDeltaZ = &z
	}
	return out
}

// ComputeVolDelta computes, per symbol, the percent change of traded volume
// between consecutive bars ordered by time. The first bar of a symbol gets
// delta 0 (no prior bar), and a non-finite percent change (prior volume 0)
// also collapses to 0.
func ComputeVolDelta(bars []domain.Bar) []domain.BarRow {
	sorted := make([]domain.Bar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Symbol != sorted[j].Symbol {
			return sorted[i].Symbol < sorted[j].Symbol
		}
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	prevVolume := make(map[string]float64)
	hasPrev := make(map[string]bool)

	out := make([]domain.BarRow, len(sorted))
	for i, bar := range sorted {
		row := domain.BarRow{Bar: bar}
		if hasPrev[bar.Symbol] {
			prev := prevVolume[bar.Symbol]
			delta := (bar.Volume - prev) / prev
			if !math.IsInf(delta, 0) && !math.IsNaN(delta) {
				row.VolDelta = delta
			}
		}
		prevVolume[bar.Symbol] = bar.Volume
		hasPrev[bar.Symbol] = true
		out[i] = row
	}
	return out
}

// NormalizeBarsByMcap fills McapUSD and VolDeltaNorm on historical bar rows,
// with the same nil-sentinel rules as NormalizeByMcap.
func NormalizeBarsByMcap(rows []domain.BarRow, provider mcap.Provider) []domain.BarRow {
	out := make([]domain.BarRow, len(rows))
	copy(out, rows)

	for i := range out {
		if out[i].Symbol == "" {
			continue
		}
		cap, ok := provider.Lookup(out[i].Symbol)
		if !ok {
			out[i].McapUSD = nil
			out[i].VolDeltaNorm = nil
			continue
		}
		capVal := cap
		out[i].McapUSD = &capVal
		out[i].VolDeltaNorm = safeDiv(out[i].VolDelta, cap)
	}
	return out
}

// ZScoreBars fills VolDeltaZ across the batch, mirroring CrossSectionalZScore.
func ZScoreBars(rows []domain.BarRow) []domain.BarRow {
	out := make([]domain.BarRow, len(rows))
	copy(out, rows)

	var values []float64
	for i := range out {
		out[i].VolDeltaZ = nil
		if out[i].VolDeltaNorm != nil {
			values = append(values, *out[i].VolDeltaNorm)
		}
	}

	mean, std, ok := populationStats(values)
	if !ok {
		return out
	}

	for i := range out {
		if out[i].VolDeltaNorm == nil {
			continue
		}
		z := (*out[i].VolDeltaNorm - mean) / std
		out[i].VolDeltaZ = &z
	}
	return out
}

// safeDiv divides and returns nil on a non-finite result or zero divisor.
func safeDiv(num, den float64) *float64 {
	if den == 0 {
		return nil
	}
	q := num / den
	if math.IsInf(q, 0) || math.IsNaN(q) {
		return nil
	}
	return &q
}

// populationStats returns the population mean and standard deviation, with
// ok false when fewer than 2 values exist or the variance is zero.
func populationStats(values []float64) (mean, std float64, ok bool) {
	if len(values) < 2 {
		return 0, 0, false
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	if variance == 0 {
		return 0, 0, false
	}
	return mean, math.Sqrt(variance), true
}
