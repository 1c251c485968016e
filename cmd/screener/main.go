// Package main runs the live rotation screener: it ingests the exchange
// trade stream, maintains windowed flow per symbol, and serves snapshots,
// dominance and flow-share analytics over HTTP for the presentation layer.
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"vdelta-screener/internal/config"
	"vdelta-screener/internal/feed"
	"vdelta-screener/internal/observability"
	"vdelta-screener/internal/rotation"
	"vdelta-screener/internal/screener"
)

// defaultShareWindowSeconds is the short window sampled into the trailing
// flow-share history.
const defaultShareWindowSeconds = 60

func main() {
	logger := log.New(os.Stdout, "[screener] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	scr := screener.New(screener.Options{
		WindowSeconds:      cfg.WindowSeconds,
		MaxEventsPerSymbol: cfg.MaxEventsPerSymbol,
		Feed:               feed.Config{Endpoint: cfg.FeedURL},
		Logger:             log.New(os.Stdout, "[feed] ", log.LstdFlags),
	})

	if err := scr.Start(cfg.Symbols); err != nil {
		logger.Fatalf("start: %v", err)
	}
	logger.Printf("tracking %v over a %ds window", scr.TrackedSymbols(), cfg.WindowSeconds)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The flow-share history belongs to this presentation layer, not the
	// core: sample the short window on a fixed cadence for trend display.
	history := rotation.NewHistory(cfg.HistoryLen)
	go sampleFlowShare(ctx, scr, history)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: newMux(scr, history, time.Now()),
	}

	go func() {
		logger.Printf("HTTP listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("HTTP server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Printf("received %v, shutting down", sig)

	// A second signal forces immediate exit.
	go func() {
		sig := <-sigCh
		logger.Printf("received second %v, forcing exit", sig)
		os.Exit(1)
	}()

	cancel()
	scr.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP shutdown: %v", err)
	}
	logger.Println("shutdown complete")
}

// sampleFlowShare pushes a flow-share observation into the history every
// five seconds while the context lives.
func sampleFlowShare(ctx context.Context, scr *screener.Screener, history *rotation.History) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			history.Push(scr.FlowShare(defaultShareWindowSeconds))
		}
	}
}

type statusResponse struct {
	State         string   `json:"state"`
	Uptime        string   `json:"uptime"`
	Symbols       []string `json:"symbols"`
	WindowSeconds int64    `json:"window_seconds"`
}

func newMux(scr *screener.Screener, history *rotation.History, started time.Time) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, statusResponse{
			State:         scr.State().String(),
			Uptime:        time.Since(started).String(),
			Symbols:       scr.TrackedSymbols(),
			WindowSeconds: scr.WindowSeconds(),
		})
	})

	mux.HandleFunc("/snapshot", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, scr.Snapshot())
	})

	mux.HandleFunc("/dominance", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, scr.DominanceTable())
	})

	mux.HandleFunc("/flowshare", func(w http.ResponseWriter, r *http.Request) {
		window := int64(defaultShareWindowSeconds)
		if raw := r.URL.Query().Get("window"); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || parsed <= 0 {
				http.Error(w, "window must be a positive integer of seconds", http.StatusBadRequest)
				return
			}
			window = parsed
		}
		writeJSON(w, scr.FlowShare(window))
	})

	mux.HandleFunc("/flowshare/history", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, history.Entries())
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
