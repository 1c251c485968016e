package feed

import "testing"

func TestDecode_TakerBuy(t *testing.T) {
	raw := []byte(`{"stream":"btcusdt@trade","data":{"e":"trade","E":1700000000100,"s":"BTCUSDT","t":42,"p":"50000.5","q":"0.25","T":1700000000000,"m":false}}`)

	ev, reason := Decode(raw)
	if reason != DiscardNone {
		t.Fatalf("expected DiscardNone, got %v", reason)
	}
	if ev.Symbol != "BTCUSDT" {
		t.Errorf("expected symbol BTCUSDT, got %s", ev.Symbol)
	}
	if ev.EventTime != 1700000000000 {
		t.Errorf("expected trade time 1700000000000, got %d", ev.EventTime)
	}
	// m=false: taker was the buyer, quantity stays positive.
	if ev.SignedQty != 0.25 {
		t.Errorf("expected signed qty +0.25, got %f", ev.SignedQty)
	}
	if ev.SignedNotional != 0.25*50000.5 {
		t.Errorf("expected notional %f, got %f", 0.25*50000.5, ev.SignedNotional)
	}
}

func TestDecode_TakerSell(t *testing.T) {
	raw := []byte(`{"stream":"ethusdt@trade","data":{"p":"3000","q":"2","T":1700000000000,"m":true}}`)

	ev, reason := Decode(raw)
	if reason != DiscardNone {
		t.Fatalf("expected DiscardNone, got %v", reason)
	}
	// m=true: buyer was the maker, so the taker sold.
	if ev.SignedQty != -2 {
		t.Errorf("expected signed qty -2, got %f", ev.SignedQty)
	}
	if ev.SignedNotional != -6000 {
		t.Errorf("expected notional -6000, got %f", ev.SignedNotional)
	}
	if ev.SignedQty*ev.SignedNotional < 0 {
		t.Error("signed notional must carry the same sign as signed qty")
	}
}

func TestDecode_EventTimeFallback(t *testing.T) {
	// No T field; E is accepted as the trade time.
	raw := []byte(`{"stream":"btcusdt@trade","data":{"E":1700000000500,"p":"100","q":"1","m":false}}`)

	ev, reason := Decode(raw)
	if reason != DiscardNone {
		t.Fatalf("expected DiscardNone, got %v", reason)
	}
	if ev.EventTime != 1700000000500 {
		t.Errorf("expected 1700000000500, got %d", ev.EventTime)
	}
}

func TestDecode_Discards(t *testing.T) {
	cases := []struct {
		name   string
		raw    string
		reason DiscardReason
	}{
		{"not json", `{"stream": truncated`, DiscardNotJSON},
		{"control frame", `{"result":null,"id":1}`, DiscardNotTrade},
		{"heartbeat", `{"stream":"btcusdt@trade"}`, DiscardNotTrade},
		{"missing maker flag", `{"stream":"btcusdt@trade","data":{"p":"1","q":"1","T":1}}`, DiscardNotTrade},
		{"no symbol in stream", `{"stream":"","data":{"p":"1","q":"1","T":1,"m":false}}`, DiscardBadStream},
		{"missing timestamp", `{"stream":"btcusdt@trade","data":{"p":"1","q":"1","m":false}}`, DiscardBadTimestamp},
		{"zero timestamp", `{"stream":"btcusdt@trade","data":{"p":"1","q":"1","T":0,"m":false}}`, DiscardBadTimestamp},
		{"unparseable price", `{"stream":"btcusdt@trade","data":{"p":"abc","q":"1","T":1,"m":false}}`, DiscardBadPrice},
		{"negative price", `{"stream":"btcusdt@trade","data":{"p":"-1","q":"1","T":1,"m":false}}`, DiscardBadPrice},
		{"unparseable qty", `{"stream":"btcusdt@trade","data":{"p":"1","q":"x","T":1,"m":false}}`, DiscardBadQuantity},
		{"zero qty", `{"stream":"btcusdt@trade","data":{"p":"1","q":"0","T":1,"m":false}}`, DiscardBadQuantity},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, reason := Decode([]byte(tc.raw))
			if reason != tc.reason {
				t.Errorf("expected %v, got %v", tc.reason, reason)
			}
		})
	}
}

func TestDiscardReason_Labels(t *testing.T) {
	seen := make(map[string]bool)
	for r := DiscardNone; r <= DiscardBadQuantity; r++ {
		label := r.String()
		if label == "unknown" {
			t.Errorf("reason %d has no label", r)
		}
		if seen[label] {
			t.Errorf("duplicate label %q", label)
		}
		seen[label] = true
	}
}
