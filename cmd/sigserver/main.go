// cmd/sigserver — the trading signal service.
//
// Pipeline: [tick WS feed] → [ring buffer] → [per-symbol update] →
// [signal store] → fan-out → [SQLite journal | Redis publish | alerts],
// with a REST + WebSocket API serving the latest signals.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"signal-servicev1/config"
	"signal-servicev1/internal/bus"
	"signal-servicev1/internal/gateway"
	"signal-servicev1/internal/logger"
	"signal-servicev1/internal/marketdata/wssim"
	"signal-servicev1/internal/metrics"
	"signal-servicev1/internal/model"
	"signal-servicev1/internal/notification"
	"signal-servicev1/internal/ringbuf"
	"signal-servicev1/internal/state"
	redisstore "signal-servicev1/internal/store/redis"
	sqlitestore "signal-servicev1/internal/store/sqlite"
)

const ringCapacity = 8192

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[sigserver] starting...")

	// ---- Load config from env ----
	cfg := config.Load()
	symbols := cfg.ParseSymbols()
	if len(symbols) == 0 {
		log.Fatal("[sigserver] no symbols configured via SYMBOLS")
	}
	logger.Init("sigserver", slog.LevelInfo)
	log.Printf("[sigserver] tracking %d symbols: %v (window=%d)", len(symbols), symbols, cfg.WindowSize)

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	health.SetSymbols(symbols)
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Context for graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Signal store ----
	store := state.NewStore(symbols, cfg.WindowSize)
	store.OnEventDrop = func() { prom.EventQueueDrops.Inc() }

	// ---- SQLite transition journal (off hot path) ----
	os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755)
	sqlWriter, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[sigserver] sqlite init failed: %v", err)
	}
	defer sqlWriter.Close()
	sqlWriter.OnCommit = func(n int, d time.Duration) {
		prom.JournalCommitDur.Observe(d.Seconds())
	}
	health.SetSQLiteOK(true)
	log.Println("[sigserver] sqlite journal ready")

	// ---- Redis transition publisher (optional) ----
	var redisPub *redisstore.Publisher
	if cfg.RedisAddr != "" {
		redisPub, err = redisstore.New(redisstore.PublisherConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			log.Printf("[sigserver] WARNING: redis init failed: %v (continuing without redis)", err)
			health.SetRedisConnected(false)
			redisPub = nil
		} else {
			redisPub.OnPublish = func(d time.Duration) {
				prom.RedisPublishDur.Observe(d.Seconds())
			}
			health.SetRedisConnected(true)
			log.Println("[sigserver] redis publisher ready")
		}
	}

	// ---- Periodic liveness checks ----
	if redisPub != nil {
		health.StartLivenessChecker(ctx, redisPub.Client(), sqlWriter.DB(), 10*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, sqlWriter.DB(), 10*time.Second)
	}

	// ---- Fan out decision transitions (SQLite + Redis + alerts) ----
	fanout := bus.New(1024)
	fanout.OnDrop = func(subscriberIdx int) {
		prom.FanoutDropsTotal.WithLabelValues(strconv.Itoa(subscriberIdx)).Inc()
	}

	journalCh := fanout.Subscribe()
	alertCh := fanout.Subscribe()
	counterCh := fanout.Subscribe()
	var redisCh <-chan model.SignalEvent
	if redisPub != nil {
		redisCh = fanout.Subscribe()
	}

	go fanout.Run(ctx, store.Events())
	go sqlWriter.Run(ctx, journalCh)
	if redisPub != nil {
		go redisPub.Run(ctx, redisCh)
	}

	// ---- Alert delivery ----
	notifiers := []notification.Notifier{notification.NewLogNotifier()}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notification.NewWebhookNotifier(cfg.WebhookURL))
		log.Printf("[sigserver] webhook alerts enabled: %s", cfg.WebhookURL)
	}
	dispatcher := notification.NewDispatcher(notifiers...)
	dispatcher.OnSent = func() { prom.AlertsSent.Inc() }
	dispatcher.OnError = func() { prom.AlertErrors.Inc() }
	go dispatcher.Run(ctx, alertCh)

	// ---- Transition counters ----
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-counterCh:
				if !ok {
					return
				}
				prom.DecisionChangesTotal.WithLabelValues(string(ev.Signal.Decision)).Inc()
			}
		}
	}()

	// ---- Serving layer ----
	hub := gateway.NewHub(store, sqlWriter)
	hub.OnClientCount = func(n int) { prom.WSClients.Set(float64(n)) }

	mux := http.NewServeMux()
	gateway.RegisterRoutes(mux, hub)
	apiSrv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		log.Printf("[sigserver] API listening on %s", cfg.ListenAddr)
		if err := apiSrv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[sigserver] API server error: %v", err)
		}
	}()

	// ---- Tick feed (WS → ring buffer, single producer) ----
	ring := ringbuf.New(ringCapacity)
	ingest, err := wssim.New(wssim.Config{URL: cfg.TickWSURL})
	if err != nil {
		log.Fatalf("[sigserver] feed init failed: %v", err)
	}
	ingest.OnConnect = func() { health.SetFeedConnected(true) }
	ingest.OnReconnect = func() { health.SetFeedConnected(false) }
	ingest.OnTick = func(model.Tick) {
		prom.TicksTotal.Inc()
		health.SetLastTickTime(time.Now())
	}
	go func() {
		if err := ingest.Start(ctx, ring); err != nil {
			log.Printf("[sigserver] feed error: %v", err)
		}
	}()

	// ---- Update loop (ring buffer → store, single consumer) ----
	go func() {
		for {
			tick, ok := ring.Pop()
			if !ok {
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Millisecond):
				}
				continue
			}

			start := time.Now()
			ingested := store.Ingest(tick)
			prom.UpdateDur.Observe(time.Since(start).Seconds())

			if !ingested {
				prom.DroppedTicks.Inc()
				continue
			}
			prom.SignalUpdatesTotal.Inc()

			if tick.TS > 0 {
				e2e := time.Since(time.Unix(0, int64(tick.TS*float64(time.Second))))
				if e2e > 0 {
					prom.E2ELatency.Observe(e2e.Seconds())
					hub.Latency.Record(e2e)
				}
			}
		}
	}()

	// ---- Channel saturation + overflow reporter ----
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		var lastOverflow uint64
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for i, s := range fanout.ChannelStats() {
					if s.Cap > 0 {
						pct := float64(s.Len) / float64(s.Cap) * 100
						prom.ChannelSaturationPct.WithLabelValues("fanout_" + strconv.Itoa(i)).Set(pct)
					}
				}
				if cur := ring.Overflow(); cur > lastOverflow {
					prom.RingBufOverflow.Add(float64(cur - lastOverflow))
					lastOverflow = cur
				}
			}
		}
	}()

	log.Println("[sigserver] ╔══════════════════════════════════════════════════════════╗")
	log.Println("[sigserver] ║  Signal Service                                          ║")
	log.Println("[sigserver] ║                                                          ║")
	log.Println("[sigserver] ║  [Tick WS] → [SMA/RSI update] → [journal/redis/alerts]   ║")
	log.Printf("[sigserver] ║  Feed: %-49s ║", cfg.TickWSURL)
	log.Printf("[sigserver] ║  API:  %-49s ║", cfg.ListenAddr)
	log.Println("[sigserver] ╚══════════════════════════════════════════════════════════╝")

	// ---- Wait for shutdown signal ----
	<-sigCh
	log.Println("[sigserver] shutdown signal received, cleaning up...")
	cancel()

	// Give goroutines time to flush buffers
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	apiSrv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)

	if redisPub != nil {
		redisPub.Close()
	}

	log.Println("[sigserver] shutdown complete.")
}
