package store

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Message is one payload received on a subscribed channel.
type Message struct {
	Channel string
	Payload []byte
}

// Subscription is a single pub/sub connection whose channel set changes over time.
type Subscription struct {
	ps *redis.PubSub
}

func (s *Subscription) Subscribe(ctx context.Context, channels ...string) error {
	return s.ps.Subscribe(ctx, channels...)
}

func (s *Subscription) Unsubscribe(ctx context.Context, channels ...string) error {
	return s.ps.Unsubscribe(ctx, channels...)
}

// Messages streams every payload received until ctx is done or the subscription closes.
// The returned channel is closed when streaming stops.
func (s *Subscription) Messages(ctx context.Context) <-chan Message {
	out := make(chan Message)
	in := s.ps.Channel()
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- Message{Channel: msg.Channel, Payload: []byte(msg.Payload)}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (s *Subscription) Close() error {
	return s.ps.Close()
}
