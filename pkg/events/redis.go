package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cfoust/strafe/pkg/combat"
	"github.com/cfoust/strafe/pkg/tick"

	"github.com/go-redis/redis/v9"
	"github.com/rs/zerolog/log"
)

const DEFAULT_CHANNEL = "strafe:events"

type RedisSettings struct {
	Address  string
	Password string
	DB       int
	Channel  string
}

// Record is a combat event as collaborators outside the server see it.
type Record struct {
	Tick  tick.Tick          `json:"tick"`
	Shot  *combat.ShotEvent  `json:"shot,omitempty"`
	Sound *combat.SoundEvent `json:"sound,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSink publishes records to a Redis channel as JSON.
type RedisSink struct {
	client  Publisher
	channel string
}

func NewRedisSink(client Publisher, channel string) *RedisSink {
	if channel == "" {
		channel = DEFAULT_CHANNEL
	}
	return &RedisSink{
		client:  client,
		channel: channel,
	}
}

func DialRedis(settings RedisSettings) *RedisSink {
	return NewRedisSink(
		redis.NewClient(&redis.Options{
			Addr:     settings.Address,
			Password: settings.Password,
			DB:       settings.DB,
		}),
		settings.Channel,
	)
}

func (r *RedisSink) Send(ctx context.Context, record Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("could not encode record: %w", err)
	}

	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("could not publish to %s: %w", r.channel, err)
	}
	return nil
}

// Run forwards everything the subscriber receives until ctx is done. A
// failed publish is logged and the record dropped.
func (r *RedisSink) Run(ctx context.Context, subscriber *Subscriber[Record]) error {
	defer subscriber.Done()

	for {
		select {
		case record := <-subscriber.Recv():
			if err := r.Send(ctx, record); err != nil {
				log.Warn().Err(err).Msg("dropped event")
			}
		case <-ctx.Done():
			return nil
		}
	}
}
