package replication

import (
	"context"
	"encoding/json"
	"fmt"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/indipendencepark/sana-intraprendenza/internal/domain"
)

type RedisBus struct {
	client  *redis.Client
	channel string
}

func NewRedisBus(client *redis.Client, documentID string) *RedisBus {
	return &RedisBus{client: client, channel: "minibar:state:" + documentID}
}

func (b *RedisBus) Publish(ctx context.Context, snapshot domain.RemoteSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, handler func(domain.RemoteSnapshot)) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var snapshot domain.RemoteSnapshot
			if err := json.Unmarshal([]byte(msg.Payload), &snapshot); err != nil {
				log.Warn().Err(err).Str("component", "replication").Msg("dropping malformed snapshot")
				continue
			}
			handler(snapshot)
		}
	}
}
