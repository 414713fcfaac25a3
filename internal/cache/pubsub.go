// ============================================================================
// cache/pubsub.go - Redis Pub/Sub Wrapper
// ============================================================================
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aman-zulfiqar/constant-product-amm/internal/constants"
	"github.com/aman-zulfiqar/constant-product-amm/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type PubSubManager struct {
	client redis.UniversalClient
	logger *logrus.Logger
}

func NewPubSubManager(client redis.UniversalClient, logger *logrus.Logger) *PubSubManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &PubSubManager{client: client, logger: logger}
}

// EventChannels lists every channel an event is published to
func EventChannels(event *models.PoolEvent) []string {
	return []string{
		constants.PubSubChannelEvents,                          // All events
		constants.PubSubChannelKindPrefix + string(event.Kind), // Kind-specific
		constants.PubSubChannelAccountPrefix + event.Account,   // Account-specific
	}
}

// PublishEvent publishes an event to all of its channels in one round trip
func (p *PubSubManager) PublishEvent(ctx context.Context, event *models.PoolEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pipe := p.client.Pipeline()
	for _, channel := range EventChannels(event) {
		pipe.Publish(ctx, channel, data)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe to a channel until ctx is cancelled
func (p *PubSubManager) Subscribe(ctx context.Context, channel string, handler func(*models.PoolEvent)) error {
	pubsub := p.client.Subscribe(ctx, channel)
	defer pubsub.Close()

	p.logger.WithField("channel", channel).Info("subscribed")
	return p.consume(ctx, pubsub, handler)
}

// PSubscribe to a pattern (e.g. "amm:events:kind:*") until ctx is cancelled
func (p *PubSubManager) PSubscribe(ctx context.Context, pattern string, handler func(*models.PoolEvent)) error {
	pubsub := p.client.PSubscribe(ctx, pattern)
	defer pubsub.Close()

	p.logger.WithField("pattern", pattern).Info("subscribed to pattern")
	return p.consume(ctx, pubsub, handler)
}

// SubscribeEvents streams the all-events channel. The returned channel is
// closed when ctx is cancelled.
func (p *PubSubManager) SubscribeEvents(ctx context.Context) (<-chan *models.PoolEvent, error) {
	pubsub := p.client.Subscribe(ctx, constants.PubSubChannelEvents)
	// wait for the subscription confirmation so no event is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe events: %w", err)
	}

	out := make(chan *models.PoolEvent, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()
		_ = p.consume(ctx, pubsub, func(ev *models.PoolEvent) {
			select {
			case out <- ev:
			case <-ctx.Done():
			}
		})
	}()
	return out, nil
}

func (p *PubSubManager) consume(ctx context.Context, pubsub *redis.PubSub, handler func(*models.PoolEvent)) error {
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event models.PoolEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				p.logger.WithError(err).WithField("channel", msg.Channel).Warn("error unmarshaling event")
				continue
			}
			handler(&event)
		}
	}
}
