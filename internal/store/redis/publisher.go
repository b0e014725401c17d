// Package redis publishes decision transitions to Redis for external
// consumers. Each transition is published on "pub:signal:<symbol>" and the
// latest signal is mirrored into a TTL'd key so late joiners can read it
// without subscribing.
package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"signal-servicev1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const defaultLatestTTL = 30 * time.Minute

// PublisherConfig configures the Redis publisher.
type PublisherConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Publisher writes decision transitions to Redis.
type Publisher struct {
	client *goredis.Client

	// OnPublish is called after each publish with its duration.
	// Optional; wired to metrics.
	OnPublish func(d time.Duration)
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// New creates a new Publisher and pings the server.
func New(cfg PublisherConfig) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Publisher{client: client}, nil
}

// Run reads transition events and publishes them to Redis.
// Blocks until ctx is cancelled or eventCh is closed.
func (p *Publisher) Run(ctx context.Context, eventCh <-chan model.SignalEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-eventCh:
			if !ok {
				return
			}
			p.publish(ctx, ev)
		}
	}
}

func (p *Publisher) publish(ctx context.Context, ev model.SignalEvent) {
	start := time.Now()
	payload := ev.JSON()

	channel := "pub:signal:" + ev.Symbol
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		log.Printf("[redis] publish %s error: %v", channel, err)
		return
	}

	latestKey := "latest:signal:" + ev.Symbol
	if err := p.client.Set(ctx, latestKey, payload, defaultLatestTTL).Err(); err != nil {
		log.Printf("[redis] set %s error: %v", latestKey, err)
	}

	if p.OnPublish != nil {
		p.OnPublish(time.Since(start))
	}
}

// Close closes the underlying client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
