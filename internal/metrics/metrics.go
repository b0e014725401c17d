package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the signal service.
type Metrics struct {
	TicksTotal   prometheus.Counter
	DroppedTicks prometheus.Counter // untracked symbol

	// Ring buffer overflow (feed reader → update loop)
	RingBufOverflow prometheus.Counter

	// Signal engine
	SignalUpdatesTotal   prometheus.Counter
	DecisionChangesTotal *prometheus.CounterVec // labels: decision
	UpdateDur            prometheus.Histogram   // window push + recompute + publish
	E2ELatency           prometheus.Histogram   // tick receipt → signal publish

	// Transition fan-out backpressure
	FanoutDropsTotal     *prometheus.CounterVec // labels: subscriber
	EventQueueDrops      prometheus.Counter     // store transitions channel full
	ChannelSaturationPct *prometheus.GaugeVec   // labels: channel_name

	// Persistence / outbound
	JournalCommitDur prometheus.Histogram
	RedisPublishDur  prometheus.Histogram
	AlertsSent       prometheus.Counter
	AlertErrors      prometheus.Counter

	// Serving
	WSClients prometheus.Gauge
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigserver_ticks_total",
			Help: "Total ticks received from the feed",
		}),
		DroppedTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigserver_dropped_ticks_total",
			Help: "Ticks dropped (untracked symbol)",
		}),
		RingBufOverflow: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigserver_ringbuf_overflow_total",
			Help: "Ring buffer push overflows (dropped ticks)",
		}),
		SignalUpdatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigserver_signal_updates_total",
			Help: "Total signal update transactions",
		}),
		DecisionChangesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigserver_decision_changes_total",
			Help: "Decision transitions (by new decision)",
		}, []string{"decision"}),
		UpdateDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigserver_update_duration_seconds",
			Help:    "Signal update transaction latency per tick",
			Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001},
		}),
		E2ELatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigserver_e2e_latency_seconds",
			Help:    "End-to-end latency from tick receipt to signal publish",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		FanoutDropsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigserver_fanout_drops_total",
			Help: "Transition events dropped by FanOut per subscriber",
		}, []string{"subscriber"}),
		EventQueueDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigserver_event_queue_drops_total",
			Help: "Transition events dropped because the store event queue was full",
		}),
		ChannelSaturationPct: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sigserver_channel_saturation_pct",
			Help: "Channel fill percentage (len/cap * 100)",
		}, []string{"channel_name"}),
		JournalCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigserver_journal_commit_duration_seconds",
			Help:    "SQLite transition journal batch commit latency",
			Buckets: prometheus.DefBuckets,
		}),
		RedisPublishDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigserver_redis_publish_duration_seconds",
			Help:    "Redis signal publish latency",
			Buckets: prometheus.DefBuckets,
		}),
		AlertsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigserver_alerts_sent_total",
			Help: "BUY/SELL alerts delivered to notifiers",
		}),
		AlertErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigserver_alert_errors_total",
			Help: "Alert delivery failures",
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sigserver_ws_clients",
			Help: "Connected signal stream WebSocket clients",
		}),
	}

	prometheus.MustRegister(
		m.TicksTotal,
		m.DroppedTicks,
		m.RingBufOverflow,
		m.SignalUpdatesTotal,
		m.DecisionChangesTotal,
		m.UpdateDur,
		m.E2ELatency,
		m.FanoutDropsTotal,
		m.EventQueueDrops,
		m.ChannelSaturationPct,
		m.JournalCommitDur,
		m.RedisPublishDur,
		m.AlertsSent,
		m.AlertErrors,
		m.WSClients,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	FeedConnected  bool      `json:"feed_connected"`
	LastTickTime   time.Time `json:"last_tick_time"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	Symbols        []string  `json:"symbols"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetFeedConnected(v bool) {
	h.mu.Lock()
	h.FeedConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastTickTime(t time.Time) {
	h.mu.Lock()
	h.LastTickTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSymbols(symbols []string) {
	h.mu.Lock()
	h.Symbols = symbols
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// The feed is the only hard dependency; redis/sqlite degrade gracefully.
	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !h.FeedConnected {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	tickAge := ""
	if !h.LastTickTime.IsZero() {
		tickAge = time.Since(h.LastTickTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string   `json:"status"`
		Uptime          string   `json:"uptime"`
		FeedConnected   bool     `json:"feed_connected"`
		LastTickTime    string   `json:"last_tick_time"`
		TickAge         string   `json:"tick_age"`
		RedisConnected  bool     `json:"redis_connected"`
		RedisLatencyMs  float64  `json:"redis_latency_ms"`
		SQLiteOK        bool     `json:"sqlite_ok"`
		SQLiteLatencyMs float64  `json:"sqlite_latency_ms"`
		Symbols         []string `json:"symbols"`
		LastCheckAt     string   `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		FeedConnected:   h.FeedConnected,
		LastTickTime:    h.LastTickTime.Format(time.RFC3339),
		TickAge:         tickAge,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		Symbols:         h.Symbols,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
