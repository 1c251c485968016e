package screener

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vdelta-screener/internal/feed"
	"vdelta-screener/internal/mcap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func tradeFrame(symbol string, ts int64, price, qty string, maker bool) string {
	return fmt.Sprintf(`{"stream":"%s@trade","data":{"p":"%s","q":"%s","T":%d,"m":%v}}`,
		strings.ToLower(symbol), price, qty, ts, maker)
}

// newFeedServer streams the given frames to every connection, then holds it
// open.
func newFeedServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for _, frame := range frames {
			conn.WriteMessage(websocket.TextMessage, []byte(frame))
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func newTestScreener(serverURL string, provider mcap.Provider) *Screener {
	return New(Options{
		WindowSeconds: 300,
		Provider:      provider,
		Feed: feed.Config{
			Endpoint:          "ws" + strings.TrimPrefix(serverURL, "http"),
			ReconnectDelay:    10 * time.Millisecond,
			MaxReconnectDelay: 50 * time.Millisecond,
			HandshakeTimeout:  2 * time.Second,
			ReadTimeout:       2 * time.Second,
			StopTimeout:       2 * time.Second,
		},
	})
}

func TestScreener_StartRejectsEmptySet(t *testing.T) {
	scr := New(Options{WindowSeconds: 300})
	require.ErrorIs(t, scr.Start(nil), feed.ErrNoSymbols)
}

func TestScreener_EndToEndSnapshot(t *testing.T) {
	server := newFeedServer(t, []string{
		tradeFrame("BTCUSDT", 1000, "100", "2", false), // taker buy +2
		tradeFrame("BTCUSDT", 2000, "100", "1", true),  // taker sell -1
		tradeFrame("ETHUSDT", 2000, "10", "4", false),  // taker buy +4
	})
	defer server.Close()

	provider := mcap.NewStaticFromMap(map[string]float64{
		"BTCUSDT": 100,
		"ETHUSDT": 50,
	})
	scr := newTestScreener(server.URL, provider)
	require.NoError(t, scr.Start([]string{"BTCUSDT", "ETHUSDT"}))
	defer scr.Stop()

	require.Eventually(t, func() bool {
		return len(scr.Snapshot()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	rows := scr.Snapshot()
	// BTC |notional| 300 > ETH |notional| 40.
	require.Equal(t, "BTCUSDT", rows[0].Symbol)
	assert.Equal(t, 1.0, rows[0].VDeltaQty)
	require.NotNil(t, rows[0].VDeltaNorm)
	assert.InDelta(t, 0.01, *rows[0].VDeltaNorm, 1e-12) // 1 / 100

	require.Equal(t, "ETHUSDT", rows[1].Symbol)
	require.NotNil(t, rows[1].VDeltaNorm)
	assert.InDelta(t, 0.08, *rows[1].VDeltaNorm, 1e-12) // 4 / 50

	// Two distinct normalized values: the z-scores are defined and opposite.
	require.NotNil(t, rows[0].VDeltaZ)
	require.NotNil(t, rows[1].VDeltaZ)
	assert.InDelta(t, -(*rows[1].VDeltaZ), *rows[0].VDeltaZ, 1e-12)
}

func TestScreener_FlowShareKeepsFixedAxis(t *testing.T) {
	server := newFeedServer(t, []string{
		tradeFrame("BTCUSDT", 1000, "100", "1", false),
	})
	defer server.Close()

	scr := newTestScreener(server.URL, nil)
	require.NoError(t, scr.Start([]string{"BTCUSDT", "ETHUSDT"}))
	defer scr.Stop()

	require.Eventually(t, func() bool {
		return len(scr.Snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	fs := scr.FlowShare(60)
	require.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, fs.Symbols)
	assert.Equal(t, 1.0, fs.Shares["BTCUSDT"])
	assert.Equal(t, 0.0, fs.Shares["ETHUSDT"], "idle tracked symbol must report explicit 0")
}

func TestScreener_DominanceTableOnIdleFeed(t *testing.T) {
	server := newFeedServer(t, nil)
	defer server.Close()

	scr := newTestScreener(server.URL, nil)
	require.NoError(t, scr.Start([]string{"BTCUSDT"}))
	defer scr.Stop()

	for _, row := range scr.DominanceTable() {
		assert.True(t, row.Insufficient, "timeframe %s must be insufficient with no flow", row.Timeframe)
	}
}

func TestScreener_StopIsIdempotent(t *testing.T) {
	server := newFeedServer(t, nil)
	defer server.Close()

	scr := newTestScreener(server.URL, nil)
	require.NoError(t, scr.Start([]string{"BTCUSDT"}))

	scr.Stop()
	scr.Stop()
	assert.Equal(t, feed.StateStopped, scr.State())
}
