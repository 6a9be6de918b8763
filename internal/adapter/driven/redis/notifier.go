package redis

import (
	"context"
	"encoding/json"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ericfisherdev/infraconfig/internal/domain/port/driven"
	"github.com/ericfisherdev/infraconfig/internal/metrics"
)

var (
	_ driven.ConfigNotifier = (*Notifier)(nil)
	_ driven.ConfigNotifier = (*LogNotifier)(nil)
)

// Notifier publishes config updates as JSON on the Redis channel named by the topic.
type Notifier struct {
	rdb    *goredis.Client
	logger *slog.Logger
}

// NewNotifier creates a Notifier on the given client.
func NewNotifier(rdb *goredis.Client, logger *slog.Logger) *Notifier {
	return &Notifier{rdb: rdb, logger: logger}
}

// Publish sends update on topic. Failures are logged and counted; the write
// that triggered the event has already committed.
func (n *Notifier) Publish(ctx context.Context, topic string, update driven.ConfigUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(metrics.StatusError).Inc()
		n.logger.Error("encode config update", "topic", topic, "error", err)
		return
	}

	if err := n.rdb.Publish(ctx, topic, payload).Err(); err != nil {
		metrics.NotificationsTotal.WithLabelValues(metrics.StatusError).Inc()
		n.logger.Warn("publish config update", "topic", topic, "error", err)
		return
	}

	metrics.NotificationsTotal.WithLabelValues(metrics.StatusSuccess).Inc()
	n.logger.Debug("config update published", "topic", topic)
}

// LogNotifier records config updates in the log. It stands in for Notifier
// when no Redis URL is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Publish logs the update at info level.
func (n *LogNotifier) Publish(_ context.Context, topic string, update driven.ConfigUpdate) {
	metrics.NotificationsTotal.WithLabelValues(metrics.StatusSuccess).Inc()
	n.logger.Info("config updated", "topic", topic, "name", update.Name, "encrypted", update.Encrypted)
}
