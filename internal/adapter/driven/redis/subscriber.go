package redis

import (
	"context"
	"encoding/json"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ericfisherdev/infraconfig/internal/domain/port/driven"
)

// updatePattern matches every per-name update topic.
const updatePattern = "infra_config/*/updated"

// UpdateHandler is called for each update received by a Subscriber.
type UpdateHandler func(ctx context.Context, topic string, update driven.ConfigUpdate)

// Subscriber listens for config updates published by any instance.
type Subscriber struct {
	rdb     *goredis.Client
	handler UpdateHandler
	logger  *slog.Logger
}

// NewSubscriber creates a Subscriber that forwards decoded updates to handler.
func NewSubscriber(rdb *goredis.Client, handler UpdateHandler, logger *slog.Logger) *Subscriber {
	return &Subscriber{rdb: rdb, handler: handler, logger: logger}
}

// Start blocks, dispatching updates until ctx is cancelled or the
// subscription channel closes.
func (s *Subscriber) Start(ctx context.Context) {
	pubsub := s.rdb.PSubscribe(ctx, updatePattern)
	defer func() { _ = pubsub.Close() }()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok || msg == nil {
				return
			}
			s.handleMessage(ctx, msg.Channel, msg.Payload)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Subscriber) handleMessage(ctx context.Context, topic, payload string) {
	if payload == "" {
		s.logger.Warn("empty config update message", "topic", topic)
		return
	}

	var update driven.ConfigUpdate
	if err := json.Unmarshal([]byte(payload), &update); err != nil {
		s.logger.Warn("decode config update", "topic", topic, "error", err)
		return
	}

	s.handler(ctx, topic, update)
}
