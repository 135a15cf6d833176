package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const redisDialTimeout = 10 * time.Second

// RedisClients keeps pub/sub on its own connection so SUBSCRIBE never
// blocks the reminder queue.
type RedisClients struct {
	// Queue holds the reminder schedule, job locks and PUBLISH calls.
	Queue *redis.Client
	// PubSub only carries the WebSocket hub's single subscription.
	PubSub *redis.Client
}

func NewRedisClients(redisURL string) (*RedisClients, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()

	queue, err := dialRedis(ctx, opt, "queue")
	if err != nil {
		return nil, err
	}

	pubsubOpt := *opt
	pubsubOpt.PoolSize = 2
	pubsub, err := dialRedis(ctx, &pubsubOpt, "pubsub")
	if err != nil {
		queue.Close()
		return nil, err
	}

	log.WithFields(log.Fields{"addr": opt.Addr, "db": opt.DB}).Debug("redis clients ready")
	return &RedisClients{Queue: queue, PubSub: pubsub}, nil
}

func dialRedis(ctx context.Context, opt *redis.Options, role string) (*redis.Client, error) {
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis (%s): %w", role, err)
	}
	return client, nil
}

// Ping checks both connections; /health reports its result.
func (r *RedisClients) Ping(ctx context.Context) error {
	if err := r.Queue.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis queue: %w", err)
	}
	if err := r.PubSub.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis pubsub: %w", err)
	}
	return nil
}

func (r *RedisClients) Close() {
	if err := r.Queue.Close(); err != nil {
		log.WithError(err).Warn("failed to close Redis queue client")
	}
	if err := r.PubSub.Close(); err != nil {
		log.WithError(err).Warn("failed to close Redis pubsub client")
	}
}
