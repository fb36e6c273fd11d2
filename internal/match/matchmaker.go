package match

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/automatch/internal/apperr"
	"github.com/jason-s-yu/automatch/internal/models"
	"github.com/jason-s-yu/automatch/internal/players"
	"github.com/jason-s-yu/automatch/internal/store"
	"github.com/sirupsen/logrus"
)

// Matchmaker pairs players requesting a match on the same rules and bet, or opens a
// pending match for others to join.
type Matchmaker struct {
	store        *store.Store
	players      *players.Repo
	lifecycle    *Lifecycle
	logger       *logrus.Logger
	flaggedLimit int64
	sampleSize   int64
}

// MatchmakerConfig carries the tunables of the Matchmaker.
type MatchmakerConfig struct {
	// FlaggedLimit is the flag count above which a player is matched only with other
	// quarantined players.
	FlaggedLimit int64
	// SampleSize bounds how many pending matches one request inspects.
	SampleSize int64
}

func NewMatchmaker(s *store.Store, repo *players.Repo, lc *Lifecycle, logger *logrus.Logger, cfg MatchmakerConfig) *Matchmaker {
	if cfg.SampleSize < 1 {
		cfg.SampleSize = 1
	}
	return &Matchmaker{
		store:        s,
		players:      repo,
		lifecycle:    lc,
		logger:       logger,
		flaggedLimit: cfg.FlaggedLimit,
		sampleSize:   cfg.SampleSize,
	}
}

// RequestMatch joins a pending match on (rules, bet) or creates one. The returned match
// is active when an opponent was found and pending otherwise.
func (mm *Matchmaker) RequestMatch(ctx context.Context, playerID, rules string, bet int64) (m *models.Match, err error) {
	if rules == "" {
		return nil, apperr.ErrInvalidArguments
	}
	if bet <= 0 {
		return nil, apperr.ErrInvalidBet
	}
	p, err := mm.players.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if p.Coins < bet {
		return nil, apperr.ErrInsufficientBalance
	}

	if err := mm.claim(ctx, p); err != nil {
		return nil, err
	}
	defer func() {
		if err == nil {
			return
		}
		// the request failed after the claim: give the player back
		userKey := store.UserKey(p.ID)
		if _, relErr := mm.store.HDelIfEqual(context.WithoutCancel(ctx), userKey, "matchId", models.PendingMatchID); relErr != nil {
			mm.logger.WithField("user", p.ID).Warnf("matchmaker: failed to release claim: %v", relErr)
		}
	}()

	stats, err := mm.players.Stats(ctx, p.ID, rules)
	if err != nil {
		return nil, err
	}

	quarantined := p.Flagged > mm.flaggedLimit
	pool := store.PoolKey(rules, bet, quarantined)

	candidates, err := mm.store.SRandMember(ctx, pool, mm.sampleSize)
	if err != nil {
		return nil, err
	}
	for _, id := range candidates {
		joined, err := mm.tryJoin(ctx, p, stats, pool, id)
		if err != nil {
			return nil, err
		}
		if joined != nil {
			mm.logger.WithFields(logrus.Fields{"match": joined.ID, "user": p.ID}).Info("matchmaker: joined match")
			return joined, nil
		}
	}

	return mm.create(ctx, p, stats, rules, bet, pool)
}

// claim sets the in-flight sentinel on the player. A reference to a match that is gone or
// already over is cleared and the claim retried once.
func (mm *Matchmaker) claim(ctx context.Context, p *models.Player) error {
	userKey := store.UserKey(p.ID)
	for attempt := 0; attempt < 2; attempt++ {
		won, err := mm.store.HSetNX(ctx, userKey, "matchId", models.PendingMatchID)
		if err != nil {
			return err
		}
		if won {
			return nil
		}

		current, ok, err := mm.store.HGet(ctx, userKey, "matchId")
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if current == models.PendingMatchID {
			return apperr.ErrAlreadyInMatch
		}
		m, err := mm.lifecycle.Get(ctx, current)
		switch {
		case errors.Is(err, apperr.ErrMatchNotFound):
		case err != nil:
			return err
		case m.Status != models.StatusEnded:
			return apperr.ErrAlreadyInMatch
		}
		if _, err := mm.store.HDelIfEqual(ctx, userKey, "matchId", current); err != nil {
			return err
		}
	}
	return apperr.ErrAlreadyInMatch
}

// tryJoin attempts to take the second seat of candidate. It returns nil, nil when the
// candidate is not joinable.
func (mm *Matchmaker) tryJoin(ctx context.Context, p *models.Player, stats models.Stats, pool, candidate string) (*models.Match, error) {
	key := store.MatchKey(candidate)
	fields, err := mm.store.HMGet(ctx, key, models.FieldPlayer1, models.FieldStatus)
	if err != nil {
		return nil, err
	}
	status, ok := fields[models.FieldStatus]
	if !ok {
		// expired while pending
		return nil, mm.store.SRem(ctx, pool, candidate)
	}
	if models.Status(status) != models.StatusPending || fields[models.FieldPlayer1] == p.ID {
		return nil, nil
	}

	won, err := mm.lifecycle.setOnce(ctx, candidate, models.FieldPlayer2, p.ID)
	if errors.Is(err, apperr.ErrMatchExpired) {
		return nil, mm.store.SRem(ctx, pool, candidate)
	}
	if err != nil || !won {
		return nil, err
	}

	m, err := mm.lifecycle.Get(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("load claimed match %s: %w", candidate, err)
	}
	if err := mm.lifecycle.activate(ctx, m, p, stats, pool); err != nil {
		return nil, err
	}
	return m, nil
}

func (mm *Matchmaker) create(ctx context.Context, p *models.Player, stats models.Stats, rules string, bet int64, pool string) (*models.Match, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate match id: %w", err)
	}
	m := &models.Match{
		ID:      id.String(),
		Rules:   rules,
		Bet:     bet,
		Player1: p.ID,
		Name1:   p.Name,
		Stats1:  &stats,
		Status:  models.StatusPending,
		Created: mm.lifecycle.now(),
	}
	if err := mm.lifecycle.createPending(ctx, m, pool); err != nil {
		return nil, err
	}
	mm.logger.WithFields(logrus.Fields{"match": m.ID, "user": p.ID, "pool": pool}).Info("matchmaker: created pending match")
	return m, nil
}
