package domain

// Timeframe is one entry of the fixed dominance lookback menu.
type Timeframe struct {
	Label   string
	Seconds int64
}

// Timeframes is the fixed menu of dominance lookback windows, in display order.
var Timeframes = []Timeframe{
	{Label: "5m", Seconds: 5 * 60},
	{Label: "15m", Seconds: 15 * 60},
	{Label: "30m", Seconds: 30 * 60},
	{Label: "1h", Seconds: 60 * 60},
	{Label: "4h", Seconds: 4 * 60 * 60},
	{Label: "1D", Seconds: 24 * 60 * 60},
}

// DominanceRow reports the strongest net-long and net-short symbol for one
// timeframe. Insufficient is set when the window holds no flow at all; the
// other fields are zero values in that case and must not be rendered as a
// real 0%/0% result.
type DominanceRow struct {
	Timeframe    string  `json:"tf"`
	BullSymbol   string  `json:"bull_symbol"`
	BullShare    float64 `json:"bull_share"` // signed share in [-1, 1]
	BearSymbol   string  `json:"bear_symbol"`
	BearShare    float64 `json:"bear_share"`
	Insufficient bool    `json:"insufficient"`
}

// FlowShare maps every tracked symbol to its signed share of total absolute
// flow in one window. Symbols with no activity carry an explicit 0 so the
// consumer can render a fixed symbol axis. Symbols is the axis in sorted
// order.
type FlowShare struct {
	WindowSeconds int64              `json:"window_seconds"`
	Symbols       []string           `json:"symbols"`
	Shares        map[string]float64 `json:"shares"`
}
