// Package main runs the historical-bar screening mode: load bars from a CSV
// file or the exchange klines endpoint, derive the volume-delta proxy,
// normalize by market cap, z-score across symbols, and print a CSV table.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"vdelta-screener/internal/bars"
	"vdelta-screener/internal/domain"
	"vdelta-screener/internal/features"
	"vdelta-screener/internal/mcap"
)

func main() {
	csvPath := flag.String("csv", "", "Path to a CSV file with columns timestamp,symbol,close,volume")
	live := flag.Bool("live", false, "Fetch recent klines from the exchange instead of reading a CSV")
	symbols := flag.String("symbols", "BTCUSDT,ETHUSDT,SOLUSDT", "Comma-separated symbols for -live mode")
	interval := flag.String("interval", "1m", "Kline interval for -live mode")
	limit := flag.Int("limit", 20, "Bars per symbol for -live mode")
	flag.Parse()

	logger := log.New(os.Stderr, "[bars] ", log.LstdFlags)

	loaded, err := loadBars(*csvPath, *live, *symbols, *interval, *limit)
	if err != nil {
		logger.Fatalf("load bars: %v", err)
	}
	if len(loaded) == 0 {
		logger.Fatal("no bars loaded")
	}

	rows := features.ComputeVolDelta(loaded)
	rows = features.NormalizeBarsByMcap(rows, mcap.NewStatic())
	rows = features.ZScoreBars(rows)

	render(latestPerSymbol(rows))
}

func loadBars(csvPath string, live bool, symbols, interval string, limit int) ([]domain.Bar, error) {
	switch {
	case live:
		var list []string
		for _, s := range strings.Split(symbols, ",") {
			if s = strings.TrimSpace(s); s != "" {
				list = append(list, mcap.SymbolToUSDT(s))
			}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return bars.NewClient("").FetchAll(ctx, list, interval, limit)
	case csvPath != "":
		f, err := os.Open(csvPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return bars.LoadCSV(f)
	default:
		return nil, fmt.Errorf("either -csv or -live is required")
	}
}

// latestPerSymbol keeps the newest row per symbol, ranked by |vol_delta|
// descending.
func latestPerSymbol(rows []domain.BarRow) []domain.BarRow {
	latest := make(map[string]domain.BarRow, len(rows))
	for _, row := range rows {
		if prev, ok := latest[row.Symbol]; !ok || row.Timestamp > prev.Timestamp {
			latest[row.Symbol] = row
		}
	}

	out := make([]domain.BarRow, 0, len(latest))
	for _, row := range latest {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := math.Abs(out[i].VolDelta), math.Abs(out[j].VolDelta)
		if ai != aj {
			return ai > aj
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

func render(rows []domain.BarRow) {
	var sb strings.Builder
	sb.WriteString("symbol,timestamp,close,volume,vol_delta,vol_delta_norm,vol_delta_z\n")
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("%s,%d,%.8f,%.8f,%.6f,%s,%s\n",
			row.Symbol,
			row.Timestamp,
			row.Close,
			row.Volume,
			row.VolDelta,
			formatNullable(row.VolDeltaNorm),
			formatNullable(row.VolDeltaZ),
		))
	}
	fmt.Print(sb.String())
}

// formatNullable renders an undefined value as an empty field, keeping it
// distinguishable from a computed zero.
func formatNullable(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.6g", *v)
}
