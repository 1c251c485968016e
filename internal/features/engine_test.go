package features

import (
	"testing"

	"vdelta-screener/internal/domain"
	"vdelta-screener/internal/mcap"
)

func flowRow(symbol string, qty float64) domain.FeatureRow {
	return domain.FeatureRow{SymbolFlow: domain.SymbolFlow{Symbol: symbol, VDeltaQty: qty}}
}

func TestNormalizeByMcap_Basic(t *testing.T) {
	provider := mcap.NewStaticFromMap(map[string]float64{"BTCUSDT": 1000})
	rows := NormalizeByMcap([]domain.FeatureRow{flowRow("BTCUSDT", 50)}, provider)

	if rows[0].VDeltaNorm == nil {
		t.Fatal("expected a defined normalized value")
	}
	if *rows[0].VDeltaNorm != 0.05 {
		t.Errorf("expected 0.05, got %f", *rows[0].VDeltaNorm)
	}
	if rows[0].McapUSD == nil || *rows[0].McapUSD != 1000 {
		t.Error("expected mcap_usd to be filled")
	}
}

func TestNormalizeByMcap_MissingAndZeroCap(t *testing.T) {
	provider := mcap.NewStaticFromMap(map[string]float64{
		"BTCUSDT":  1000,
		"ZEROUSDT": 0,
	})
	rows := NormalizeByMcap([]domain.FeatureRow{
		flowRow("BTCUSDT", 50),
		flowRow("MISSINGUSDT", 50),
		flowRow("ZEROUSDT", 50),
	}, provider)

	if rows[0].VDeltaNorm == nil || *rows[0].VDeltaNorm != 0.05 {
		t.Error("a missing cap elsewhere must not affect defined symbols")
	}
	if rows[1].VDeltaNorm != nil {
		t.Error("missing market cap must yield the undefined sentinel")
	}
	if rows[2].VDeltaNorm != nil {
		t.Error("zero market cap must yield the undefined sentinel, not infinity")
	}
}

func TestNormalizeByMcap_InputUnchanged(t *testing.T) {
	provider := mcap.NewStaticFromMap(map[string]float64{"BTCUSDT": 1000})
	in := []domain.FeatureRow{flowRow("BTCUSDT", 50)}
	NormalizeByMcap(in, provider)

	if in[0].VDeltaNorm != nil {
		t.Error("input batch must not be mutated")
	}
}

func TestCrossSectionalZScore_Basic(t *testing.T) {
	n1, n2 := 1.0, 3.0
	rows := []domain.FeatureRow{flowRow("A", 0), flowRow("B", 0)}
	rows[0].VDeltaNorm = &n1
	rows[1].VDeltaNorm = &n2

	out := CrossSectionalZScore(rows)
	// mean 2, population std 1.
	if out[0].VDeltaZ == nil || *out[0].VDeltaZ != -1 {
		t.Errorf("expected z=-1, got %v", out[0].VDeltaZ)
	}
	if out[1].VDeltaZ == nil || *out[1].VDeltaZ != 1 {
		t.Errorf("expected z=+1, got %v", out[1].VDeltaZ)
	}
}

func TestCrossSectionalZScore_ZeroVariance(t *testing.T) {
	v := 2.5
	rows := []domain.FeatureRow{flowRow("A", 0), flowRow("B", 0), flowRow("C", 0)}
	for i := range rows {
		val := v
		rows[i].VDeltaNorm = &val
	}

	out := CrossSectionalZScore(rows)
	for _, r := range out {
		if r.VDeltaZ != nil {
			t.Errorf("%s: all-equal batch must yield the undefined sentinel, got %v", r.Symbol, *r.VDeltaZ)
		}
	}
}

func TestCrossSectionalZScore_FewerThanTwoDefined(t *testing.T) {
	v := 1.0
	rows := []domain.FeatureRow{flowRow("A", 0), flowRow("B", 0)}
	rows[0].VDeltaNorm = &v
	// B stays undefined.

	out := CrossSectionalZScore(rows)
	if out[0].VDeltaZ != nil || out[1].VDeltaZ != nil {
		t.Error("a single defined value cannot be z-scored")
	}
}

func TestCrossSectionalZScore_UndefinedExcludedFromStats(t *testing.T) {
	n1, n2 := 1.0, 3.0
	rows := []domain.FeatureRow{flowRow("A", 0), flowRow("B", 0), flowRow("C", 0)}
	rows[0].VDeltaNorm = &n1
	rows[1].VDeltaNorm = &n2
	// C undefined: excluded from mean/std, stays undefined in the output.

	out := CrossSectionalZScore(rows)
	if out[0].VDeltaZ == nil || *out[0].VDeltaZ != -1 {
		t.Errorf("expected z=-1, got %v", out[0].VDeltaZ)
	}
	if out[2].VDeltaZ != nil {
		t.Error("undefined input must stay undefined")
	}
}

func TestComputeVolDelta_FirstBarIsZero(t *testing.T) {
	rows := ComputeVolDelta([]domain.Bar{
		{Symbol: "BTC", Timestamp: 1000, Volume: 100},
		{Symbol: "BTC", Timestamp: 2000, Volume: 150},
		{Symbol: "ETH", Timestamp: 1500, Volume: 80},
	})

	if rows[0].Symbol != "BTC" || rows[0].VolDelta != 0 {
		t.Errorf("first BTC bar must have delta 0, got %f", rows[0].VolDelta)
	}
	if rows[1].VolDelta != 0.5 {
		t.Errorf("expected 50%% volume growth, got %f", rows[1].VolDelta)
	}
	// ETH's only bar is its first: 0, not undefined.
	if rows[2].Symbol != "ETH" || rows[2].VolDelta != 0 {
		t.Errorf("first ETH bar must have delta 0, got %f", rows[2].VolDelta)
	}
}

func TestComputeVolDelta_OrdersByTime(t *testing.T) {
	// Bars arrive out of order; the pct change must follow time order.
	rows := ComputeVolDelta([]domain.Bar{
		{Symbol: "BTC", Timestamp: 2000, Volume: 200},
		{Symbol: "BTC", Timestamp: 1000, Volume: 100},
	})

	if rows[0].Timestamp != 1000 || rows[0].VolDelta != 0 {
		t.Errorf("expected earliest bar first with delta 0, got ts=%d delta=%f", rows[0].Timestamp, rows[0].VolDelta)
	}
	if rows[1].VolDelta != 1.0 {
		t.Errorf("expected delta 1.0, got %f", rows[1].VolDelta)
	}
}

func TestComputeVolDelta_ZeroPriorVolume(t *testing.T) {
	rows := ComputeVolDelta([]domain.Bar{
		{Symbol: "BTC", Timestamp: 1000, Volume: 0},
		{Symbol: "BTC", Timestamp: 2000, Volume: 50},
	})

	// 50/0 is infinite; the convention collapses it to 0.
	if rows[1].VolDelta != 0 {
		t.Errorf("non-finite pct change must collapse to 0, got %f", rows[1].VolDelta)
	}
}

func TestZScoreBars_MirrorsRowBehavior(t *testing.T) {
	provider := mcap.NewStaticFromMap(map[string]float64{"AUSDT": 10, "BUSDT": 10})
	rows := NormalizeBarsByMcap([]domain.BarRow{
		{Bar: domain.Bar{Symbol: "AUSDT"}, VolDelta: 1},
		{Bar: domain.Bar{Symbol: "BUSDT"}, VolDelta: 3},
	}, provider)
	rows = ZScoreBars(rows)

	if rows[0].VolDeltaZ == nil || *rows[0].VolDeltaZ != -1 {
		t.Errorf("expected z=-1, got %v", rows[0].VolDeltaZ)
	}
	if rows[1].VolDeltaZ == nil || *rows[1].VolDeltaZ != 1 {
		t.Errorf("expected z=+1, got %v", rows[1].VolDeltaZ)
	}
}
