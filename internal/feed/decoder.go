package feed

import (
	"encoding/json"
	"strconv"
	"strings"

	"vdelta-screener/internal/domain"
)

// DiscardReason explains why a frame did not produce a flow event. The feed
// interleaves control frames, subscription acks and partial fragments with
// trade frames, so a discard is an expected outcome, not an error.
type DiscardReason int

const (
	// DiscardNone means the frame decoded into a valid flow event.
	DiscardNone DiscardReason = iota
	// DiscardNotJSON means the frame was not parseable JSON.
	DiscardNotJSON
	// DiscardNotTrade means the frame carried no trade payload (control
	// frame, heartbeat, subscription ack).
	DiscardNotTrade
	// DiscardBadStream means no symbol could be recovered from the stream name.
	DiscardBadStream
	// DiscardBadTimestamp means the trade time was missing or invalid.
	DiscardBadTimestamp
	// DiscardBadPrice means the price was missing, unparseable or not positive.
	DiscardBadPrice
	// DiscardBadQuantity means the quantity was missing, unparseable or not positive.
	DiscardBadQuantity
)

// String returns the metric label for the reason.
func (r DiscardReason) String() string {
	switch r {
	case DiscardNone:
		return "none"
	case DiscardNotJSON:
		return "not_json"
	case DiscardNotTrade:
		return "not_trade"
	case DiscardBadStream:
		return "bad_stream"
	case DiscardBadTimestamp:
		return "bad_timestamp"
	case DiscardBadPrice:
		return "bad_price"
	case DiscardBadQuantity:
		return "bad_quantity"
	default:
		return "unknown"
	}
}

// combinedFrame mirrors one message of the combined trade stream. Numeric
// price and quantity arrive as strings; pointers distinguish absent fields
// from zero values so control frames are detected, not misdecoded.
type combinedFrame struct {
	Stream string        `json:"stream"`
	Data   *tradePayload `json:"data"`
}

type tradePayload struct {
	TradeTime    *int64  `json:"T"` // trade time, ms
	EventTime    *int64  `json:"E"` // event time, ms (fallback)
	Price        *string `json:"p"`
	Quantity     *string `json:"q"`
	BuyerIsMaker *bool   `json:"m"`
}

// Decode parses one raw feed frame into a FlowEvent. It never panics and
// never returns an error: malformed or non-trade frames come back with a
// non-zero DiscardReason and a zero event.
//
// Sign rule: buyer-is-maker means the taker was the seller, so the quantity
// is negated; otherwise the taker was the buyer and the quantity stays
// positive.
func Decode(raw []byte) (domain.FlowEvent, DiscardReason) {
	var frame combinedFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return domain.FlowEvent{}, DiscardNotJSON
	}

	d := frame.Data
	if d == nil || d.Price == nil || d.Quantity == nil || d.BuyerIsMaker == nil {
		return domain.FlowEvent{}, DiscardNotTrade
	}

	// Symbol comes from the stream name ("btcusdt@trade"), not the payload.
	symbol := strings.ToUpper(strings.SplitN(frame.Stream, "@", 2)[0])
	if symbol == "" {
		return domain.FlowEvent{}, DiscardBadStream
	}

	ts := d.TradeTime
	if ts == nil {
		ts = d.EventTime
	}
	if ts == nil || *ts <= 0 {
		return domain.FlowEvent{}, DiscardBadTimestamp
	}

	price, err := strconv.ParseFloat(*d.Price, 64)
	if err != nil || price <= 0 {
		return domain.FlowEvent{}, DiscardBadPrice
	}

	qty, err := strconv.ParseFloat(*d.Quantity, 64)
	if err != nil || qty <= 0 {
		return domain.FlowEvent{}, DiscardBadQuantity
	}

	signedQty := qty
	if *d.BuyerIsMaker {
		signedQty = -qty
	}

	return domain.FlowEvent{
		Symbol:         symbol,
		EventTime:      *ts,
		Price:          price,
		SignedQty:      signedQty,
		SignedNotional: signedQty * price,
	}, DiscardNone
}
