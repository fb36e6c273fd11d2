// internal/relay/relay.go
package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/jason-s-yu/automatch/internal/store"
	"github.com/sirupsen/logrus"
)

// Rooms is the local delivery side of the relay: the set of sockets this process hosts,
// grouped by match id.
type Rooms interface {
	// Emit delivers ev to every local socket in room.
	Emit(room string, ev Event)
	// Evict detaches every local socket from room and clears their match.
	Evict(room string)
	// Size counts local sockets in room.
	Size(room string) int
}

// Relay publishes match events to the per-match channel and re-emits whatever arrives on
// subscribed channels to the local rooms. One Relay runs per process.
type Relay struct {
	store  *store.Store
	rooms  Rooms
	logger *logrus.Logger

	mu       sync.Mutex
	sub      *store.Subscription
	channels map[string]struct{}
}

func New(s *store.Store, rooms Rooms, logger *logrus.Logger) *Relay {
	return &Relay{
		store:    s,
		rooms:    rooms,
		logger:   logger,
		channels: make(map[string]struct{}),
	}
}

// Start opens the process's pub/sub connection and consumes it until ctx is done.
func (r *Relay) Start(ctx context.Context) {
	r.mu.Lock()
	r.sub = r.store.Subscribe(ctx)
	msgs := r.sub.Messages(ctx)
	r.mu.Unlock()

	go func() {
		for msg := range msgs {
			r.deliver(ctx, msg)
		}
		r.logger.Debug("relay: message stream closed")
	}()
}

// Close drops every subscription.
func (r *Relay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub == nil {
		return nil
	}
	r.channels = make(map[string]struct{})
	return r.sub.Close()
}

// Publish sends ev on the match's channel.
func (r *Relay) Publish(ctx context.Context, matchID string, ev Event) error {
	payload, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.Type, err)
	}
	return r.store.Publish(ctx, store.MatchChannel(matchID), payload)
}

// PublishIn queues ev on the match's channel as part of an atomic batch.
func PublishIn(b *store.Batch, matchID string, ev Event) error {
	payload, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.Type, err)
	}
	b.Publish(store.MatchChannel(matchID), payload)
	return nil
}

// Subscribe starts receiving the match's channel. Call it after the local socket joined
// the room so a concurrent Release sees it.
func (r *Relay) Subscribe(ctx context.Context, matchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub == nil {
		return fmt.Errorf("relay not started")
	}
	if err := r.sub.Subscribe(ctx, store.MatchChannel(matchID)); err != nil {
		return fmt.Errorf("subscribe %s: %w", matchID, err)
	}
	r.channels[matchID] = struct{}{}
	return nil
}

// Unsubscribe stops receiving the match's channel.
func (r *Relay) Unsubscribe(ctx context.Context, matchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unsubscribeLocked(ctx, matchID)
}

// Release unsubscribes from the match's channel when no local socket is left in its room.
func (r *Relay) Release(ctx context.Context, matchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rooms.Size(matchID) > 0 {
		return nil
	}
	return r.unsubscribeLocked(ctx, matchID)
}

// Subscribed reports whether this process currently listens to the match's channel.
func (r *Relay) Subscribed(matchID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.channels[matchID]
	return ok
}

func (r *Relay) unsubscribeLocked(ctx context.Context, matchID string) error {
	if r.sub == nil {
		return nil
	}
	if _, ok := r.channels[matchID]; !ok {
		return nil
	}
	delete(r.channels, matchID)
	if err := r.sub.Unsubscribe(ctx, store.MatchChannel(matchID)); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", matchID, err)
	}
	return nil
}

// deliver re-emits one inbound payload. A payload that fails to decode is dropped: a
// poisoned message on a shared channel must not take the subscriber down.
func (r *Relay) deliver(ctx context.Context, msg store.Message) {
	matchID, ok := store.MatchIDFromChannel(msg.Channel)
	if !ok {
		return
	}
	ev, err := Decode(msg.Payload)
	if err != nil {
		r.logger.WithField("match", matchID).Debugf("relay: dropped payload: %v", err)
		return
	}

	r.rooms.Emit(matchID, ev)

	if ev.Type == EventMatchEnded {
		r.rooms.Evict(matchID)
		if err := r.Unsubscribe(ctx, matchID); err != nil {
			r.logger.WithField("match", matchID).Warnf("relay: %v", err)
		}
	}
}
