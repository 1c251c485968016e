// Package bars provides the historical-bar stub data sources: local CSV
// files and the exchange klines REST endpoint. Historical-bar mode feeds the
// feature engine's ComputeVolDelta path; the live trade feed never goes
// through this package.
package bars

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"vdelta-screener/internal/domain"
)

// LoadCSV reads bars from CSV with columns timestamp, symbol, close, volume
// (header required, any column order). Timestamps may be RFC3339 or Unix
// milliseconds. Rows that fail to parse are dropped, not fatal: a partially
// bad file still yields the good rows.
func LoadCSV(r io.Reader) ([]domain.Bar, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"timestamp", "symbol", "close", "volume"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var out []domain.Bar
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // malformed row, drop
		}

		bar, ok := parseRow(record, col)
		if !ok {
			continue
		}
		out = append(out, bar)
	}
	return out, nil
}

func parseRow(record []string, col map[string]int) (domain.Bar, bool) {
	field := func(name string) (string, bool) {
		i := col[name]
		if i >= len(record) {
			return "", false
		}
		return strings.TrimSpace(record[i]), true
	}

	tsRaw, ok := field("timestamp")
	if !ok {
		return domain.Bar{}, false
	}
	ts, ok := parseTimestamp(tsRaw)
	if !ok {
		return domain.Bar{}, false
	}

	symbol, ok := field("symbol")
	if !ok || symbol == "" {
		return domain.Bar{}, false
	}

	closeRaw, ok := field("close")
	if !ok {
		return domain.Bar{}, false
	}
	closePrice, err := strconv.ParseFloat(closeRaw, 64)
	if err != nil {
		return domain.Bar{}, false
	}

	volumeRaw, ok := field("volume")
	if !ok {
		return domain.Bar{}, false
	}
	volume, err := strconv.ParseFloat(volumeRaw, 64)
	if err != nil {
		return domain.Bar{}, false
	}

	return domain.Bar{
		Symbol:    strings.ToUpper(symbol),
		Timestamp: ts,
		Close:     closePrice,
		Volume:    volume,
	}, true
}

// parseTimestamp accepts RFC3339 or Unix milliseconds.
func parseTimestamp(raw string) (int64, bool) {
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ms, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UnixMilli(), true
	}
	return 0, false
}
