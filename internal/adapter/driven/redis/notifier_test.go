package redis

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/infraconfig/internal/domain/model"
	"github.com/ericfisherdev/infraconfig/internal/domain/port/driven"
)

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(context.Background(), "not-a-redis-url")
	assert.ErrorContains(t, err, "parse redis URL")
}

func TestLogNotifier_Publish(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))

	n.Publish(context.Background(), model.ConfigRateLimitMax.Topic(), driven.ConfigUpdate{
		Name:  string(model.ConfigRateLimitMax),
		Value: "250",
	})

	out := buf.String()
	assert.Contains(t, out, "topic=infra_config/RATE_LIMIT_MAX/updated")
	assert.Contains(t, out, "name=RATE_LIMIT_MAX")
	assert.NotContains(t, out, "250", "values stay out of the log")
}

func TestSubscriber_HandleMessage(t *testing.T) {
	var got []driven.ConfigUpdate
	sub := NewSubscriber(nil, func(_ context.Context, _ string, u driven.ConfigUpdate) {
		got = append(got, u)
	}, slog.Default())

	sub.handleMessage(context.Background(), "infra_config/JWT_SECRET/updated", `{"name":"JWT_SECRET","encrypted":true}`)
	sub.handleMessage(context.Background(), "infra_config/JWT_SECRET/updated", "")
	sub.handleMessage(context.Background(), "infra_config/JWT_SECRET/updated", "{not json")

	require.Len(t, got, 1)
	assert.Equal(t, "JWT_SECRET", got[0].Name)
	assert.True(t, got[0].Encrypted)
	assert.Empty(t, got[0].Value)
}

func TestNotifier_PublishReachesSubscriber(t *testing.T) {
	client := setupTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var (
		mu     sync.Mutex
		topics []string
		got    []driven.ConfigUpdate
	)
	received := make(chan struct{}, 1)
	sub := NewSubscriber(client, func(_ context.Context, topic string, u driven.ConfigUpdate) {
		mu.Lock()
		topics = append(topics, topic)
		got = append(got, u)
		mu.Unlock()
		select {
		case received <- struct{}{}:
		default:
		}
	}, slog.Default())

	subCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		sub.Start(subCtx)
		close(done)
	}()
	defer func() {
		stop()
		<-done
	}()

	n := NewNotifier(client, slog.Default())
	topic := model.ConfigMailerSMTPHost.Topic()

	// PSubscribe is asynchronous; publish until the subscription is live.
	require.Eventually(t, func() bool {
		n.Publish(ctx, topic, driven.ConfigUpdate{Name: string(model.ConfigMailerSMTPHost), Value: "smtp.example.com"})
		select {
		case <-received:
			return true
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, topic, topics[0])
	assert.Equal(t, "smtp.example.com", got[0].Value)
}
