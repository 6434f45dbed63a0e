package redisclient

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const bookingsChannel = "frontdesk:bookings:changed"

// Notifier pushes a change signal to every subscribed terminal after a
// booking write lands. The payload is the affected clinic date; readers
// re-derive their views from the store rather than patching local state.
type Notifier interface {
	BookingsChanged(ctx context.Context, date string) error
}

type redisNotifier struct {
	client *redis.Client
}

func NewRedisNotifier(client *redis.Client) Notifier {
	return &redisNotifier{client: client}
}

func (n *redisNotifier) BookingsChanged(ctx context.Context, date string) error {
	if err := n.client.Publish(ctx, bookingsChannel, date).Err(); err != nil {
		return fmt.Errorf("publish bookings changed: %w", err)
	}
	return nil
}

// SubscribeBookings delivers the date of every committed booking change.
// The returned stop function closes both the subscription and the channel.
func SubscribeBookings(ctx context.Context, client *redis.Client) (<-chan string, func()) {
	sub := client.Subscribe(ctx, bookingsChannel)
	out := make(chan string)

	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			select {
			case out <- msg.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()

	stop := func() {
		_ = sub.Close()
	}
	return out, stop
}
