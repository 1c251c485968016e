package domain

// Bar is one historical OHLCV bar, reduced to the fields the screener uses.
// Historical-bar mode is a stub data source; the live feed never produces Bars.
type Bar struct {
	Symbol    string  // canonical uppercase
	Timestamp int64   // bar open time, Unix milliseconds
	Close     float64
	Volume    float64
}

// BarRow is a Bar with derived per-bar features. VolDelta is the percent
// change of volume against the previous bar of the same symbol; the first bar
// of a symbol gets 0, a deliberate "no signal yet" baseline distinct from the
// nil undefined sentinel used on the normalized fields.
type BarRow struct {
	Bar
	VolDelta     float64  `json:"vol_delta"`
	McapUSD      *float64 `json:"mcap_usd"`
	VolDeltaNorm *float64 `json:"vol_delta_norm"`
	VolDeltaZ    *float64 `json:"vol_delta_z"`
}
