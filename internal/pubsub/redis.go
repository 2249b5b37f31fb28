package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultChannelPrefix = "collab:session:"

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	ChannelPrefix string
}

// RedisPublisher publishes hub events on one Redis channel per session,
// so notification and analytics services can follow a session without
// holding a socket.
type RedisPublisher struct {
	client *redis.Client
	prefix string
}

// NewRedisPublisher connects and pings Redis
func NewRedisPublisher(cfg RedisConfig) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return newRedisPublisher(client, cfg.ChannelPrefix), nil
}

func newRedisPublisher(client *redis.Client, prefix string) *RedisPublisher {
	if prefix == "" {
		prefix = defaultChannelPrefix
	}
	return &RedisPublisher{client: client, prefix: prefix}
}

// Channel returns the pub/sub channel of a session
func (p *RedisPublisher) Channel(sessionID string) string {
	return p.prefix + sessionID
}

// Publish encodes event as JSON and publishes it on the session channel
func (p *RedisPublisher) Publish(ctx context.Context, sessionID string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, p.Channel(sessionID), data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.Channel(sessionID), err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
