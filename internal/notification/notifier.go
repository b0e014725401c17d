// Package notification delivers BUY/SELL decision alerts to external
// channels (webhooks, logs).
package notification

import (
	"context"
	"fmt"
	"log"

	"signal-servicev1/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier is a simple notifier that logs alerts (useful for development).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

// FromEvent converts a decision transition into an Alert.
// Returns false for transitions into HOLD — only actionable decisions
// (BUY/SELL) are alertable.
func FromEvent(ev model.SignalEvent) (Alert, bool) {
	switch ev.Signal.Decision {
	case model.DecisionBuy:
		return Alert{
			Level:   AlertInfo,
			Title:   fmt.Sprintf("BUY %s", ev.Symbol),
			Message: fmt.Sprintf("%s %s→BUY trend=%s rsi=%.1f", ev.Symbol, ev.Prev, ev.Signal.Trend, ev.Signal.RSI),
		}, true
	case model.DecisionSell:
		return Alert{
			Level:   AlertWarning,
			Title:   fmt.Sprintf("SELL %s", ev.Symbol),
			Message: fmt.Sprintf("%s %s→SELL trend=%s rsi=%.1f", ev.Symbol, ev.Prev, ev.Signal.Trend, ev.Signal.RSI),
		}, true
	default:
		return Alert{}, false
	}
}
