// Package collector owns the per-symbol windowed flow buffers. It is the only
// state shared between the feed session's ingestion goroutine and reader
// threads; a single mutex per instance guards all mutation and read-time
// pruning.
package collector

import (
	"math"
	"sort"
	"sync"
	"time"

	"vdelta-screener/internal/domain"
	"vdelta-screener/internal/observability"
)

// DefaultMaxEventsPerSymbol caps a symbol's window against pathological burst
// rates. Oldest events drop first, same order as window pruning.
const DefaultMaxEventsPerSymbol = 200000

// symbolWindow is a slice-backed deque of flow events for one symbol.
// Events are in arrival order; event times are monotonic within a symbol, so
// pruning pops strictly-oldest-first from the head.
type symbolWindow struct {
	events []domain.FlowEvent
	head   int
}

func (w *symbolWindow) retained() []domain.FlowEvent {
	return w.events[w.head:]
}

func (w *symbolWindow) size() int {
	return len(w.events) - w.head
}

// dropOldest advances the head past events older than cutoff (inclusive
// lower bound: an event at exactly the cutoff is retained) and compacts the
// backing slice once the dead prefix dominates it.
func (w *symbolWindow) dropOldest(cutoffMs int64) {
	for w.head < len(w.events) && w.events[w.head].EventTime < cutoffMs {
		w.head++
	}
	w.compact()
}

// dropToSize evicts oldest events until at most max remain.
func (w *symbolWindow) dropToSize(max int) {
	if excess := w.size() - max; excess > 0 {
		w.head += excess
	}
	w.compact()
}

func (w *symbolWindow) compact() {
	if w.head > len(w.events)/2 && w.head > 64 {
		w.events = append(w.events[:0], w.events[w.head:]...)
		w.head = 0
	}
}

// Collector maintains time-bounded flow windows per symbol and serves
// point-in-time snapshots. Appends come from the feed session's single
// ingestion goroutine; snapshots may come from any number of readers.
type Collector struct {
	mu sync.Mutex

	windowSeconds int64
	maxPerSymbol  int

	windows      map[string]*symbolWindow
	lastPrice    map[string]float64
	maxEventTime int64 // latest event time observed across all symbols

	nowMs func() int64 // injectable clock, wall time in tests only when no events exist
}

// Option configures a Collector.
type Option func(*Collector)

// WithMaxEventsPerSymbol overrides the defensive per-symbol event cap.
func WithMaxEventsPerSymbol(max int) Option {
	return func(c *Collector) {
		if max > 0 {
			c.maxPerSymbol = max
		}
	}
}

// WithClock overrides the wall clock used when no events have been observed.
func WithClock(nowMs func() int64) Option {
	return func(c *Collector) { c.nowMs = nowMs }
}

// New creates a collector retaining windowSeconds worth of events per symbol.
func New(windowSeconds int64, opts ...Option) *Collector {
	c := &Collector{
		windowSeconds: windowSeconds,
		maxPerSymbol:  DefaultMaxEventsPerSymbol,
		windows:       make(map[string]*symbolWindow),
		lastPrice:     make(map[string]float64),
		nowMs:         func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WindowSeconds returns the retention window.
func (c *Collector) WindowSeconds() int64 {
	return c.windowSeconds
}

// Append inserts one event into its symbol's window, updates the last-price
// cache and prunes that symbol against the event's own timestamp. Amortized
// O(1). A symbol not seen before starts a fresh window.
func (c *Collector) Append(ev domain.FlowEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := c.windows[ev.Symbol]
	if w == nil {
		w = &symbolWindow{}
		c.windows[ev.Symbol] = w
	}

	w.events = append(w.events, ev)
	c.lastPrice[ev.Symbol] = ev.Price
	if ev.EventTime > c.maxEventTime {
		c.maxEventTime = ev.EventTime
	}

	w.dropOldest(ev.EventTime - c.windowSeconds*1000)
	w.dropToSize(c.maxPerSymbol)
}

// refTime resolves the snapshot reference time: explicit as-of if given, else
// the latest event time observed, else wall clock. Lock held by caller.
func (c *Collector) refTime(asOf []int64) int64 {
	if len(asOf) > 0 {
		return asOf[0]
	}
	if c.maxEventTime > 0 {
		return c.maxEventTime
	}
	return c.nowMs()
}

// Snapshot computes one row per symbol with at least one retained event,
// pruning each window against the reference time first. Rows are ordered by
// |VDeltaNotional| descending, ties by symbol, rows without a last price
// last. The result is recomputed fresh on every call and shares no memory
// with the collector.
func (c *Collector) Snapshot(asOf ...int64) []domain.SymbolFlow {
	start := time.Now()

	c.mu.Lock()
	ref := c.refTime(asOf)
	cutoff := ref - c.windowSeconds*1000

	rows := make([]domain.SymbolFlow, 0, len(c.windows))
	retained := 0
	for sym, w := range c.windows {
		w.dropOldest(cutoff)
		events := w.retained()
		retained += len(events)
		if len(events) == 0 {
			continue
		}

		var vq, vn float64
		for _, ev := range events {
			vq += ev.SignedQty
			vn += ev.SignedNotional
		}

		row := domain.SymbolFlow{
			Symbol:         sym,
			VDeltaQty:      vq,
			VDeltaNotional: vn,
			LastEventTime:  events[len(events)-1].EventTime,
		}
		if p, ok := c.lastPrice[sym]; ok {
			price := p
			row.LastPrice = &price
		}
		rows = append(rows, row)
	}
	c.mu.Unlock()

	sort.Slice(rows, func(i, j int) bool {
		pi, pj := rows[i].LastPrice != nil, rows[j].LastPrice != nil
		if pi != pj {
			return pi
		}
		ai, aj := math.Abs(rows[i].VDeltaNotional), math.Abs(rows[j].VDeltaNotional)
		if ai != aj {
			return ai > aj
		}
		return rows[i].Symbol < rows[j].Symbol
	})

	observability.RetainedEvents.Set(float64(retained))
	observability.SnapshotDuration.Observe(time.Since(start).Seconds())
	return rows
}

// WindowSums returns per-symbol signed notional sums over the trailing
// sub-window, for every tracked symbol (inactive symbols report 0). The
// sub-window is clipped by the collector's own retention: events older than
// WindowSeconds are gone regardless of the requested span. Also returns the
// reference time used.
func (c *Collector) WindowSums(windowSeconds int64, asOf ...int64) (map[string]float64, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ref := c.refTime(asOf)
	retainCutoff := ref - c.windowSeconds*1000
	cutoff := ref - windowSeconds*1000

	sums := make(map[string]float64, len(c.windows))
	for sym, w := range c.windows {
		w.dropOldest(retainCutoff)
		var sum float64
		for _, ev := range w.retained() {
			if ev.EventTime >= cutoff {
				sum += ev.SignedNotional
			}
		}
		sums[sym] = sum
	}
	return sums, ref
}

// Reset replaces the tracked symbol set. Windows for symbols no longer
// tracked are dropped along with their price cache; previously untracked
// symbols start with empty windows.
func (c *Collector) Reset(symbols []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keep := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		keep[s] = struct{}{}
	}

	for sym := range c.windows {
		if _, ok := keep[sym]; !ok {
			delete(c.windows, sym)
			delete(c.lastPrice, sym)
		}
	}
	for sym := range keep {
		if _, ok := c.windows[sym]; !ok {
			c.windows[sym] = &symbolWindow{}
		}
	}
}

// TrackedSymbols returns the tracked set in sorted order.
func (c *Collector) TrackedSymbols() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	symbols := make([]string, 0, len(c.windows))
	for sym := range c.windows {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}
