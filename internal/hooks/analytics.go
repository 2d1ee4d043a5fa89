package hooks

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/campaign-engine/internal/domain"
	"github.com/ignite/campaign-engine/internal/events"
)

// Analytics event types emitted by the default subscribers.
const (
	TypeEmailSent  = "email_sent"
	TypeEmailOpen  = "email_open"
	TypeEmailClick = "email_click"
)

// AnalyticsEvent is the record forwarded to an analytics sink.
type AnalyticsEvent struct {
	Type     string `json:"type"`
	Campaign string `json:"campaign"`
}

// AnalyticsSink receives lifecycle events for a shop.
type AnalyticsSink interface {
	TrackEvent(ctx context.Context, shop string, e AnalyticsEvent) error
}

// NewBusWithAnalytics builds a bus whose default subscribers forward
// every lifecycle event to the sink as email_sent/email_open/email_click.
func NewBusWithAnalytics(sink AnalyticsSink) *Bus {
	b := NewBus()
	b.OnSend(forward(sink, TypeEmailSent))
	b.OnOpen(forward(sink, TypeEmailOpen))
	b.OnClick(forward(sink, TypeEmailClick))
	return b
}

func forward(sink AnalyticsSink, eventType string) Listener {
	return func(ctx context.Context, shop string, p Payload) error {
		return sink.TrackEvent(ctx, shop, AnalyticsEvent{Type: eventType, Campaign: p.Campaign})
	}
}

// RedisSink appends analytics events to a per-shop Redis stream
// (analytics:<shop>), capped to keep memory bounded.
type RedisSink struct {
	client *redis.Client
	maxLen int64
}

// NewRedisSink creates a stream sink on the given client.
func NewRedisSink(client *redis.Client) *RedisSink {
	return &RedisSink{client: client, maxLen: 100_000}
}

// TrackEvent XAdds the event to the shop's stream.
func (s *RedisSink) TrackEvent(ctx context.Context, shop string, e AnalyticsEvent) error {
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: "analytics:" + shop,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"type":      e.Type,
			"campaign":  e.Campaign,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	}).Err()
}

// LogSink records analytics events into the shop's own event log, the
// same stream segment filters read, so opens and clicks become segment
// material without extra infrastructure.
type LogSink struct {
	log events.Appender
}

// NewLogSink creates an event-log-backed sink.
func NewLogSink(log events.Appender) *LogSink {
	return &LogSink{log: log}
}

// TrackEvent appends {type, campaign} to the shop's event log.
func (s *LogSink) TrackEvent(ctx context.Context, shop string, e AnalyticsEvent) error {
	return s.log.Append(ctx, shop, domain.Event{"type": e.Type, "campaign": e.Campaign})
}
