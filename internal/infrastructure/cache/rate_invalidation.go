package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultRateChannel  = "astra:rates:invalidate"
	defaultCloseTimeout = 5 * time.Second
)

// rateInvalidation is the Pub/Sub message sent after a rate upsert
type rateInvalidation struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	Origin    string    `json:"origin"`
	Timestamp int64     `json:"timestamp"`
}

// RedisRateInvalidator broadcasts rate table invalidations between
// instances over Redis Pub/Sub
type RedisRateInvalidator struct {
	client  redis.UniversalClient
	channel string
	origin  string
	logger  *zap.Logger

	mu       sync.Mutex
	running  bool
	cancelFn context.CancelFunc
	doneCh   chan struct{}
}

// NewRedisRateInvalidator creates an invalidator on the default channel.
// origin identifies this instance so it can ignore its own messages.
func NewRedisRateInvalidator(client redis.UniversalClient, origin string, logger *zap.Logger) *RedisRateInvalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if origin == "" {
		origin = uuid.NewString()
	}
	return &RedisRateInvalidator{
		client:  client,
		channel: defaultRateChannel,
		origin:  origin,
		logger:  logger,
	}
}

// Publish announces that tenantID's rate table changed
func (i *RedisRateInvalidator) Publish(ctx context.Context, tenantID uuid.UUID) error {
	data, err := json.Marshal(rateInvalidation{
		TenantID:  tenantID,
		Origin:    i.origin,
		Timestamp: time.Now().UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal invalidation: %w", err)
	}
	if err := i.client.Publish(ctx, i.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}
	return nil
}

// Subscribe blocks, calling onInvalidate for every message sent by another
// instance, until ctx is cancelled or Close is called
func (i *RedisRateInvalidator) Subscribe(ctx context.Context, onInvalidate func(tenantID uuid.UUID)) error {
	i.mu.Lock()
	if i.running {
		i.mu.Unlock()
		return errors.New("subscription already running")
	}
	subCtx, cancel := context.WithCancel(ctx)
	i.running = true
	i.cancelFn = cancel
	i.doneCh = make(chan struct{})
	done := i.doneCh
	i.mu.Unlock()

	defer func() {
		cancel()
		i.mu.Lock()
		i.running = false
		i.mu.Unlock()
		close(done)
	}()

	pubsub := i.client.Subscribe(subCtx, i.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(subCtx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", i.channel, err)
	}
	i.logger.Info("subscribed to rate invalidation channel", zap.String("channel", i.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-subCtx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				i.logger.Warn("rate invalidation channel closed")
				return nil
			}
			var inv rateInvalidation
			if err := json.Unmarshal([]byte(msg.Payload), &inv); err != nil {
				i.logger.Error("malformed rate invalidation", zap.String("payload", msg.Payload), zap.Error(err))
				continue
			}
			if inv.Origin == i.origin {
				continue
			}
			i.dispatch(onInvalidate, inv.TenantID)
		}
	}
}

func (i *RedisRateInvalidator) dispatch(fn func(uuid.UUID), tenantID uuid.UUID) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("rate invalidation callback panicked", zap.Any("panic", r))
		}
	}()
	fn(tenantID)
}

// Close stops a running subscription and waits briefly for it to exit
func (i *RedisRateInvalidator) Close() error {
	i.mu.Lock()
	cancel, done := i.cancelFn, i.doneCh
	i.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
	case <-time.After(defaultCloseTimeout):
		i.logger.Warn("timed out waiting for rate invalidation subscription to stop")
	}
	return nil
}
