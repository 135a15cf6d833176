package services

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"planpal-backend/internal/models"
)

const UpdatesChannel = "planpal_updates"

// EventPublisher fans events out to WebSocket clients.
type EventPublisher interface {
	Publish(ctx context.Context, msg models.WSMessage)
}

type RedisPublisher struct {
	redis *redis.Client
}

func NewRedisPublisher(redisClient *redis.Client) *RedisPublisher {
	return &RedisPublisher{redis: redisClient}
}

func (p *RedisPublisher) Publish(ctx context.Context, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.WithError(err).Warn("failed to encode websocket event")
		return
	}
	if err := p.redis.Publish(ctx, UpdatesChannel, string(data)).Err(); err != nil {
		log.WithError(err).WithField("type", msg.Type).Warn("failed to publish websocket event")
	}
}
