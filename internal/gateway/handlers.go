package gateway

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"signal-servicev1/internal/model"
	"signal-servicev1/internal/state"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// signalResponse is the wire shape for a published signal.
type signalResponse struct {
	Symbol   string  `json:"symbol"`
	Trend    string  `json:"trend"`
	RSI      float64 `json:"rsi"`
	Decision string  `json:"decision"`
}

func signalDTO(symbol string, sig model.Signal) signalResponse {
	return signalResponse{
		Symbol:   symbol,
		Trend:    string(sig.Trend),
		RSI:      sig.RSI,
		Decision: string(sig.Decision),
	}
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	json.NewEncoder(w).Encode(v)
}

// RegisterRoutes registers all HTTP routes on the provided mux.
func RegisterRoutes(mux *http.ServeMux, hub *Hub) {
	// REST: latest signal for one symbol
	mux.HandleFunc("/signal", func(w http.ResponseWriter, r *http.Request) {
		symbol := strings.ToUpper(r.URL.Query().Get("symbol"))
		if symbol == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "symbol is required"})
			return
		}
		sig, err := hub.Store.Get(symbol)
		if err != nil {
			if errors.Is(err, state.ErrSymbolNotFound) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown symbol"})
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, signalDTO(symbol, sig))
	})

	// WS: signal change stream for one symbol
	mux.HandleFunc("/ws/signal/", func(w http.ResponseWriter, r *http.Request) {
		symbol := strings.ToUpper(strings.TrimPrefix(r.URL.Path, "/ws/signal/"))

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[gateway] ws upgrade error: %v", err)
			return
		}

		sub, err := hub.Store.Subscribe(symbol)
		if err != nil {
			msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown symbol")
			conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			conn.Close()
			return
		}

		hub.HandleWSConn(conn, symbol, sub)
	})

	// REST: tracked symbols
	mux.HandleFunc("/api/symbols", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"symbols": hub.Store.Symbols(),
		})
	})

	// REST: latest signal for every tracked symbol
	mux.HandleFunc("/api/signals", func(w http.ResponseWriter, r *http.Request) {
		symbols := hub.Store.Symbols()
		out := make([]signalResponse, 0, len(symbols))
		for _, sym := range symbols {
			sig, err := hub.Store.Get(sym)
			if err != nil {
				continue
			}
			out = append(out, signalDTO(sym, sig))
		}
		writeJSON(w, http.StatusOK, out)
	})

	// REST: recent decision transitions from the journal
	mux.HandleFunc("/api/transitions", func(w http.ResponseWriter, r *http.Request) {
		if hub.Transitions == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "journal disabled"})
			return
		}
		symbol := strings.ToUpper(r.URL.Query().Get("symbol"))
		if symbol == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "symbol is required"})
			return
		}
		limit := 50
		if s := r.URL.Query().Get("limit"); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}
		events, err := hub.Transitions.Recent(symbol, limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if events == nil {
			events = []model.SignalEvent{}
		}
		writeJSON(w, http.StatusOK, events)
	})

	// REST: serving stats
	mux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		type symbolStat struct {
			Symbol      string `json:"symbol"`
			WindowLen   int    `json:"window_len"`
			Subscribers int    `json:"subscribers"`
		}

		symbols := hub.Store.Symbols()
		stats := make([]symbolStat, 0, len(symbols))
		for _, sym := range symbols {
			s := hub.Store.State(sym)
			if s == nil {
				continue
			}
			stats = append(stats, symbolStat{
				Symbol:      sym,
				WindowLen:   s.WindowLen(),
				Subscribers: s.SubscriberCount(),
			})
		}

		p50, p95, p99 := hub.Latency.Percentiles()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"uptime_sec":     int64(hub.Uptime().Seconds()),
			"ws_clients":     hub.ClientCount(),
			"symbols":        stats,
			"latency_p50_ms": p50,
			"latency_p95_ms": p95,
			"latency_p99_ms": p99,
			"ts":             time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
