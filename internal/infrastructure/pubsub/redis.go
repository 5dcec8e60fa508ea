package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"vendorchat/internal/usecase"
	"vendorchat/pkg/logger"
)

// Deliverer hands an encoded frame to locally connected recipients.
type Deliverer interface {
	Deliver(recipients []string, frame []byte)
}

// Encoder renders an event as the frame clients receive.
type Encoder func(usecase.Event) ([]byte, error)

type envelope struct {
	Recipients []string        `json:"recipients"`
	Frame      json.RawMessage `json:"frame"`
}

// RedisPublisher fans events out to every instance through a Redis channel.
// Each instance relays what it receives to its own connections.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	encode  Encoder
}

// NewRedisClient parses url and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	c := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return c, nil
}

func NewRedisPublisher(client *redis.Client, channel string, encode Encoder) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel, encode: encode}
}

var _ usecase.Publisher = (*RedisPublisher)(nil)

func (p *RedisPublisher) Publish(ctx context.Context, event usecase.Event) error {
	frame, err := p.encode(event)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(envelope{Recipients: event.Recipients, Frame: frame})
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, payload).Err()
}

// Relay subscribes to the channel and delivers every envelope locally until
// ctx is done.
func (p *RedisPublisher) Relay(ctx context.Context, local Deliverer) error {
	sub := p.client.Subscribe(ctx, p.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis: subscribe %s: %w", p.channel, err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				relay(local, msg.Payload)
			}
		}
	}()
	return nil
}

func relay(local Deliverer, payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		logger.Warn("pubsub: dropping malformed envelope: %v", err)
		return
	}
	local.Deliver(env.Recipients, env.Frame)
}
