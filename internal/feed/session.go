// Package feed owns the exchange trade-stream connection: decoding raw
// frames into flow events and the connection lifecycle around them.
package feed

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"vdelta-screener/internal/collector"
	"vdelta-screener/internal/observability"
)

// ErrNoSymbols is returned by Start when the symbol set is empty after
// normalization. Rejected synchronously, before any network activity.
var ErrNoSymbols = errors.New("symbol set must be non-empty")

// DefaultEndpoint is the exchange combined-stream base URL.
const DefaultEndpoint = "wss://stream.binance.com:9443"

// State is the session lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateStreaming
	StateReconnecting
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateStreaming:
		return "STREAMING"
	case StateReconnecting:
		return "RECONNECTING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Config configures session behavior.
type Config struct {
	// Endpoint is the stream base URL; the subscription path is appended.
	Endpoint string
	// ReconnectDelay is the initial backoff before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the backoff between reconnect attempts.
	MaxReconnectDelay time.Duration
	// HandshakeTimeout bounds the websocket dial.
	HandshakeTimeout time.Duration
	// ReadTimeout bounds each blocking read.
	ReadTimeout time.Duration
	// StopTimeout bounds joining the worker on Stop.
	StopTimeout time.Duration
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		Endpoint:          DefaultEndpoint,
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		ReadTimeout:       60 * time.Second,
		StopTimeout:       2 * time.Second,
	}
}

// Session owns one trade-stream connection and its background worker. All
// collector mutation happens on the worker's single ingestion path; no other
// component writes into the collector.
type Session struct {
	cfg       Config
	collector *collector.Collector
	logger    *log.Logger

	mu      sync.Mutex
	state   State
	symbols []string // sorted
	conn    *websocket.Conn
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSession creates an idle session that appends decoded events into col.
func NewSession(cfg Config, col *collector.Collector, logger *log.Logger) *Session {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = 1 * time.Second
	}
	if cfg.MaxReconnectDelay == 0 {
		cfg.MaxReconnectDelay = 30 * time.Second
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	if cfg.StopTimeout == 0 {
		cfg.StopTimeout = 2 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Session{
		cfg:       cfg,
		collector: col,
		logger:    logger,
		state:     StateIdle,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Symbols returns the subscribed symbol set in sorted order.
func (s *Session) Symbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out
}

// normalizeSymbols trims, upper-cases and sorts, dropping empty entries.
func normalizeSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// streamURL builds the combined-stream subscription URL. The exchange wants
// lowercase pairs joined by literal slashes: btcusdt@trade/ethusdt@trade.
func streamURL(endpoint string, symbols []string) string {
	streams := make([]string, len(symbols))
	for i, sym := range symbols {
		streams[i] = strings.ToLower(sym) + "@trade"
	}
	return fmt.Sprintf("%s/stream?streams=%s", endpoint, strings.Join(streams, "/"))
}

// Start subscribes to the trade channels of the given symbols. Idempotent:
// already running on an identical set is a no-op; a different set tears the
// session down and restarts it. An empty set is rejected before any dial.
func (s *Session) Start(symbols []string) error {
	normalized := normalizeSymbols(symbols)
	if len(normalized) == 0 {
		return ErrNoSymbols
	}

	s.mu.Lock()
	running := s.stopCh != nil
	if running && sameSet(normalized, s.symbols) {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if running {
		s.Stop()
	}

	s.mu.Lock()
	s.symbols = normalized
	s.state = StateConnecting
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	go s.run(normalized, stopCh, doneCh)
	return nil
}

// Stop terminates the connection and joins the worker within the configured
// bound. Safe to call from any goroutine; calling it twice or on a stopped
// session is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	stopCh, doneCh := s.stopCh, s.doneCh
	conn := s.conn
	s.stopCh, s.doneCh, s.conn = nil, nil, nil
	s.state = StateStopped
	s.mu.Unlock()

	if stopCh == nil {
		return
	}

	close(stopCh)
	if conn != nil {
		conn.Close() // unblock the worker's read
	}

	select {
	case <-doneCh:
	case <-time.After(s.cfg.StopTimeout):
		s.logger.Printf("worker did not exit within %v", s.cfg.StopTimeout)
	}
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// stopped reports whether this run's stop channel is closed.
func stopped(stopCh chan struct{}) bool {
	select {
	case <-stopCh:
		return true
	default:
		return false
	}
}

// run is the background worker: dial, stream, reconnect with bounded
// exponential backoff and full jitter until stopped.
func (s *Session) run(symbols []string, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	defer observability.SessionStreaming.Set(0)

	target := streamURL(s.cfg.Endpoint, symbols)
	delay := s.cfg.ReconnectDelay
	attempt := 0

	for !stopped(stopCh) {
		if attempt > 0 {
			s.setState(StateReconnecting)
			observability.Reconnects.Inc()
			// Full jitter keeps a fleet of clients from hammering the
			// exchange in lockstep after an outage.
			sleep := time.Duration(rand.Int63n(int64(delay) + 1))
			select {
			case <-stopCh:
				return
			case <-time.After(sleep):
			}
			delay *= 2
			if delay > s.cfg.MaxReconnectDelay {
				delay = s.cfg.MaxReconnectDelay
			}
		}
		attempt++

		dialer := websocket.Dialer{HandshakeTimeout: s.cfg.HandshakeTimeout}
		conn, _, err := dialer.Dial(target, nil)
		if err != nil {
			if stopped(stopCh) {
				return
			}
			s.logger.Printf("dial %s: %v", s.cfg.Endpoint, err)
			continue
		}

		s.mu.Lock()
		if stopped(stopCh) {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conn = conn
		s.state = StateStreaming
		s.mu.Unlock()

		observability.SessionStreaming.Set(1)
		s.logger.Printf("streaming %d symbols", len(symbols))
		delay = s.cfg.ReconnectDelay

		s.readLoop(conn, stopCh)
		observability.SessionStreaming.Set(0)

		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
		}
		s.mu.Unlock()
	}
}

// readLoop dispatches inbound frames until the connection dies or the
// session stops. The stop path closes the connection, so every blocking read
// doubles as a cancellation point.
func (s *Session) readLoop(conn *websocket.Conn, stopCh chan struct{}) {
	defer conn.Close()

	for {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !stopped(stopCh) {
				s.logger.Printf("read: %v", err)
			}
			return
		}

		observability.FramesReceived.Inc()
		ev, reason := Decode(raw)
		if reason != DiscardNone {
			observability.FramesDiscarded.WithLabelValues(reason.String()).Inc()
			continue
		}
		observability.TradesDecoded.Inc()
		s.collector.Append(ev)
	}
}
