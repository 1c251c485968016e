// Package mcap provides reference market-capitalization data. The provider
// is injectable so the static table can be swapped for a live pricing
// service without touching the feature engine.
package mcap

import "strings"

// Provider looks up the USD market cap for a canonical symbol. Absence is a
// normal outcome, not an error; callers must handle ok == false.
type Provider interface {
	Lookup(symbol string) (float64, bool)
}

// staticCaps is a placeholder table keyed by USDT pair.
var staticCaps = map[string]float64{
	"BTCUSDT":   1_300_000_000_000,
	"ETHUSDT":   450_000_000_000,
	"SOLUSDT":   90_000_000_000,
	"ASTERUSDT": 2_000_000_000,
	"HYPEUSDT":  800_000_000,
	"PUMPUSDT":  500_000_000,
}

// Static is an in-memory Provider backed by a fixed map.
type Static struct {
	caps map[string]float64
}

// NewStatic returns a provider seeded with the built-in placeholder table.
func NewStatic() *Static {
	return NewStaticFromMap(staticCaps)
}

// NewStaticFromMap returns a provider over a copy of the given table.
// Symbols are normalized to their USDT pair form.
func NewStaticFromMap(caps map[string]float64) *Static {
	m := make(map[string]float64, len(caps))
	for sym, cap := range caps {
		m[SymbolToUSDT(sym)] = cap
	}
	return &Static{caps: m}
}

// Lookup returns the market cap for the symbol's USDT pair.
func (s *Static) Lookup(symbol string) (float64, bool) {
	cap, ok := s.caps[SymbolToUSDT(symbol)]
	return cap, ok
}

// SymbolToUSDT normalizes a symbol to its USDT pair:
// "btc" -> "BTCUSDT", "ETHUSDT" -> "ETHUSDT".
func SymbolToUSDT(sym string) string {
	s := strings.ToUpper(strings.TrimSpace(sym))
	if strings.HasSuffix(s, "USDT") {
		return s
	}
	return s + "USDT"
}

var _ Provider = (*Static)(nil)
