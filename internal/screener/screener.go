// Package screener composes the collector, feed session, feature engine and
// rotation engine into one lifecycle-managed service. A Screener is created
// once per process and passed by handle to every caller; there is no
// process-wide singleton.
package screener

import (
	"log"

	"vdelta-screener/internal/collector"
	"vdelta-screener/internal/domain"
	"vdelta-screener/internal/features"
	"vdelta-screener/internal/feed"
	"vdelta-screener/internal/mcap"
	"vdelta-screener/internal/rotation"
)

// Options configures a Screener.
type Options struct {
	// WindowSeconds is the collector retention window. Required.
	WindowSeconds int64
	// MaxEventsPerSymbol overrides the defensive burst cap when > 0.
	MaxEventsPerSymbol int
	// Feed configures the trade-stream session. Zero values take defaults.
	Feed feed.Config
	// Provider supplies market caps; nil falls back to the static table.
	Provider mcap.Provider
	// Logger receives session lifecycle logs; nil uses the default logger.
	Logger *log.Logger
}

// Screener is the live screening service. Its public surface is the whole
// core boundary: Start, Stop, Snapshot, DominanceTable, FlowShare.
type Screener struct {
	collector *collector.Collector
	session   *feed.Session
	provider  mcap.Provider
}

// New creates an idle screener.
func New(opts Options) *Screener {
	colOpts := []collector.Option{}
	if opts.MaxEventsPerSymbol > 0 {
		colOpts = append(colOpts, collector.WithMaxEventsPerSymbol(opts.MaxEventsPerSymbol))
	}
	col := collector.New(opts.WindowSeconds, colOpts...)

	provider := opts.Provider
	if provider == nil {
		provider = mcap.NewStatic()
	}

	return &Screener{
		collector: col,
		session:   feed.NewSession(opts.Feed, col, opts.Logger),
		provider:  provider,
	}
}

// Start begins streaming trades for the given symbol set. The collector's
// tracked set is replaced first, so the flow-share axis matches the
// subscription even before the first trade arrives. Idempotent on an
// identical running set; an empty set is rejected before any network
// activity.
func (s *Screener) Start(symbols []string) error {
	if err := s.session.Start(symbols); err != nil {
		return err
	}
	s.collector.Reset(s.session.Symbols())
	return nil
}

// Stop terminates the feed session. Idempotent.
func (s *Screener) Stop() {
	s.session.Stop()
}

// State returns the feed session state.
func (s *Screener) State() feed.State {
	return s.session.State()
}

// TrackedSymbols returns the tracked symbol set in sorted order.
func (s *Screener) TrackedSymbols() []string {
	return s.collector.TrackedSymbols()
}

// WindowSeconds returns the collector retention window.
func (s *Screener) WindowSeconds() int64 {
	return s.collector.WindowSeconds()
}

// Snapshot returns the current per-symbol flow rows extended with market-cap
// normalization and the cross-sectional z-score. Recomputed fresh on every
// call.
func (s *Screener) Snapshot() []domain.FeatureRow {
	flows := s.collector.Snapshot()

	rows := make([]domain.FeatureRow, len(flows))
	for i, f := range flows {
		rows[i] = domain.FeatureRow{SymbolFlow: f}
	}
	rows = features.NormalizeByMcap(rows, s.provider)
	return features.CrossSectionalZScore(rows)
}

// DominanceTable computes the fixed multi-timeframe dominance rows.
func (s *Screener) DominanceTable() []domain.DominanceRow {
	return rotation.DominanceTable(s.collector)
}

// FlowShare computes every tracked symbol's signed share of total absolute
// flow over the selected window.
func (s *Screener) FlowShare(windowSeconds int64) domain.FlowShare {
	return rotation.FlowShareMap(s.collector, windowSeconds)
}
