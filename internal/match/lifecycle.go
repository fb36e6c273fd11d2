// Package match implements matchmaking, the match lifecycle and outcome resolution on
// top of the shared coordination store.
package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/automatch/internal/apperr"
	"github.com/jason-s-yu/automatch/internal/models"
	"github.com/jason-s-yu/automatch/internal/relay"
	"github.com/jason-s-yu/automatch/internal/store"
)

// Timeouts bound how long a match record lives in each status.
type Timeouts struct {
	Pending time.Duration
	Active  time.Duration
	Ended   time.Duration
}

// Lifecycle owns status transitions of match records and their TTLs.
type Lifecycle struct {
	store        *store.Store
	timeouts     Timeouts
	archiveQueue string
	now          func() time.Time
}

// NewLifecycle builds a Lifecycle. An empty archiveQueue disables archiving of ended matches.
func NewLifecycle(s *store.Store, timeouts Timeouts, archiveQueue string) *Lifecycle {
	return &Lifecycle{
		store:        s,
		timeouts:     timeouts,
		archiveQueue: archiveQueue,
		now:          time.Now,
	}
}

// Get reads a match record. An expired match yields apperr.ErrMatchNotFound.
func (l *Lifecycle) Get(ctx context.Context, id string) (*models.Match, error) {
	fields, err := l.store.HGetAll(ctx, store.MatchKey(id))
	if err != nil {
		return nil, err
	}
	return models.DecodeMatch(id, fields)
}

// Current returns the match the player references, or nil when there is none. A reference
// to an expired match is removed from the player record.
func (l *Lifecycle) Current(ctx context.Context, p *models.Player) (*models.Match, error) {
	if !p.HasMatch() {
		return nil, nil
	}
	m, err := l.Get(ctx, p.MatchID)
	if errors.Is(err, apperr.ErrMatchNotFound) {
		if _, err := l.store.HDelIfEqual(ctx, store.UserKey(p.ID), "matchId", p.MatchID); err != nil {
			return nil, err
		}
		p.MatchID = ""
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// setOnce writes field on a live match record only if it is still unset. When the write
// lands on a key that already expired it leaves a fragment with no id; the fragment is
// removed and apperr.ErrMatchExpired returned.
func (l *Lifecycle) setOnce(ctx context.Context, matchID, field, value string) (bool, error) {
	key := store.MatchKey(matchID)
	won, err := l.store.HSetNX(ctx, key, field, value)
	if err != nil || !won {
		return won, err
	}
	id, ok, err := l.store.HGet(ctx, key, models.FieldID)
	if err != nil {
		return false, err
	}
	if !ok || id != matchID {
		if err := l.store.Del(ctx, key); err != nil {
			return false, err
		}
		return false, apperr.ErrMatchExpired
	}
	return true, nil
}

// createPending persists a new pending match, offers it in pool and associates the
// creator with it, all in one batch.
func (l *Lifecycle) createPending(ctx context.Context, m *models.Match, pool string) error {
	fields, err := m.PendingFields()
	if err != nil {
		return err
	}
	key := store.MatchKey(m.ID)
	return l.store.Atomic(ctx, func(b *store.Batch) error {
		b.HSet(key, fields)
		b.PExpire(key, l.timeouts.Pending)
		b.SAdd(pool, m.ID)
		b.HSet(store.UserKey(m.Player1), map[string]any{"matchId": m.ID})
		return nil
	})
}

// activate moves a pending match that joiner already claimed (p2) to active. m is updated
// in place to the post-join record which is also what "match started" carries.
func (l *Lifecycle) activate(ctx context.Context, m *models.Match, joiner *models.Player, stats models.Stats, pool string) error {
	started := l.now()
	m.Player2 = joiner.ID
	m.Name2 = joiner.Name
	m.Stats2 = &stats
	m.Status = models.StatusActive
	m.Started = &started

	rawStats, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode stats2: %w", err)
	}
	joined, err := relay.NewEvent(relay.EventUserJoined, joiner.ID, joiner.Name, stats)
	if err != nil {
		return err
	}
	begun, err := relay.NewEvent(relay.EventMatchStarted, m)
	if err != nil {
		return err
	}

	key := store.MatchKey(m.ID)
	return l.store.Atomic(ctx, func(b *store.Batch) error {
		b.HSet(store.UserKey(joiner.ID), map[string]any{"matchId": m.ID})
		b.SRem(pool, m.ID)
		b.Persist(key)
		b.HSet(key, map[string]any{
			models.FieldStatus: string(models.StatusActive),
			"name2":            joiner.Name,
			"stats2":           string(rawStats),
			"started":          models.FormatTime(started),
		})
		b.PExpire(key, l.timeouts.Active)
		if err := relay.PublishIn(b, m.ID, joined); err != nil {
			return err
		}
		return relay.PublishIn(b, m.ID, begun)
	})
}

// errEndClaimed is returned by claimEnd when another caller is already finalizing the match.
var errEndClaimed = fmt.Errorf("%w: end already claimed", apperr.ErrWrongMatchStatus)

// terminal carries the fields merged into a match when it ends.
type terminal struct {
	outcome    models.Outcome
	winnerID   string
	flagReason string
}

// claimEnd wins the right to finalize m. Exactly one caller per match gets a nil error.
func (l *Lifecycle) claimEnd(ctx context.Context, m *models.Match, outcome models.Outcome) error {
	won, err := l.setOnce(ctx, m.ID, models.FieldOutcome, string(outcome))
	if err != nil {
		return err
	}
	if !won {
		return errEndClaimed
	}
	return nil
}

// finalize queues the end of m on b: terminal fields, released player associations, the
// ended TTL, the "match ended" event and optionally the archive entry. The caller must
// have won claimEnd first.
func (l *Lifecycle) finalize(b *store.Batch, m *models.Match, t terminal) error {
	ended := l.now()
	m.Status = models.StatusEnded
	m.Ended = &ended
	m.Outcome = t.outcome
	m.WinnerID = t.winnerID
	m.FlagReason = t.flagReason

	fields := map[string]any{
		models.FieldStatus:  string(models.StatusEnded),
		models.FieldOutcome: string(t.outcome),
		"ended":             models.FormatTime(ended),
	}
	if t.winnerID != "" {
		fields["winnerId"] = t.winnerID
	}
	if t.flagReason != "" {
		fields["flagReason"] = t.flagReason
	}

	ev, err := relay.NewEvent(relay.EventMatchEnded, m)
	if err != nil {
		return err
	}

	key := store.MatchKey(m.ID)
	b.HSet(key, fields)
	for _, uid := range []string{m.Player1, m.Player2} {
		if uid != "" {
			b.HDel(store.UserKey(uid), "matchId")
		}
	}
	b.PExpire(key, l.timeouts.Ended)
	if err := relay.PublishIn(b, m.ID, ev); err != nil {
		return err
	}
	if l.archiveQueue != "" {
		raw, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode archive entry: %w", err)
		}
		b.RPush(l.archiveQueue, string(raw))
	}
	return nil
}

// end claims and finalizes m in one step, with extra commands queued by also.
func (l *Lifecycle) end(ctx context.Context, m *models.Match, t terminal, also func(b *store.Batch) error) error {
	if err := l.claimEnd(ctx, m, t.outcome); err != nil {
		return err
	}
	return l.store.Atomic(ctx, func(b *store.Batch) error {
		if also != nil {
			if err := also(b); err != nil {
				return err
			}
		}
		return l.finalize(b, m, t)
	})
}
