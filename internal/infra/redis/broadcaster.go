package redis

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"study-vault/internal/app"
	"study-vault/internal/domain"
)

// DefaultChannel carries notification events between instances.
const DefaultChannel = "studyvault:notifications"

// Broadcaster publishes notification events over Redis pub/sub so that a user connected to any
// instance receives them. Every instance subscribes and hands events to its local hub.
type Broadcaster struct {
	client  *redis.Client
	channel string
	local   app.Publisher
}

type envelope struct {
	UserID string                   `json:"userId"`
	Event  domain.NotificationEvent `json:"event"`
}

func NewBroadcaster(client *redis.Client, channel string, local app.Publisher) *Broadcaster {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Broadcaster{client: client, channel: channel, local: local}
}

// Publish sends the event to every instance, this one included.
func (b *Broadcaster) Publish(ctx context.Context, userID string, event domain.NotificationEvent) error {
	data, err := json.Marshal(envelope{UserID: userID, Event: event})
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, data).Err()
}

// Start subscribes to the channel and returns once the subscription is confirmed. Events are
// forwarded to the local publisher until ctx is done.
func (b *Broadcaster) Start(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}

	go func() {
		defer sub.Close()
		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var env envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					log.Printf("broadcaster: bad payload: %v", err)
					continue
				}
				if err := b.local.Publish(ctx, env.UserID, env.Event); err != nil {
					log.Printf("broadcaster: deliver to %s: %v", env.UserID, err)
				}
			}
		}
	}()
	return nil
}
