package domain

// FlowEvent represents one normalized trade print from the exchange feed.
// The sign of SignedQty encodes the taker side: positive when the taker
// bought, negative when the taker sold.
type FlowEvent struct {
	Symbol         string  // canonical uppercase pair, e.g. "BTCUSDT"
	EventTime      int64   // trade time, Unix milliseconds
	Price          float64 // trade price, always > 0
	SignedQty      float64 // base-asset quantity, taker-signed
	SignedNotional float64 // SignedQty * Price, same sign as SignedQty
}

// SymbolFlow is one snapshot row: net signed flow for a symbol over the
// collector's window at the snapshot's reference time.
type SymbolFlow struct {
	Symbol         string   `json:"symbol"`
	VDeltaQty      float64  `json:"vdelta_qty"`
	VDeltaNotional float64  `json:"vdelta_notional"`
	LastPrice      *float64 `json:"last_price"`      // nil if no trade priced the symbol yet
	LastEventTime  int64    `json:"last_event_time"` // ms, 0 if no events in window
}

// FeatureRow extends SymbolFlow with derived features. Nil pointers mean
// "undefined" (missing market cap, zero variance, non-finite division),
// which is distinct from a computed zero.
type FeatureRow struct {
	SymbolFlow
	McapUSD    *float64 `json:"mcap_usd"`
	VDeltaNorm *float64 `json:"vdelta_norm"` // VDeltaQty / McapUSD
	VDeltaZ    *float64 `json:"vdelta_z"`    // cross-sectional z-score of VDeltaNorm
}
