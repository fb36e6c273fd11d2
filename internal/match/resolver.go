package match

import (
	"context"
	"errors"

	"github.com/jason-s-yu/automatch/internal/apperr"
	"github.com/jason-s-yu/automatch/internal/models"
	"github.com/jason-s-yu/automatch/internal/players"
	"github.com/jason-s-yu/automatch/internal/rating"
	"github.com/jason-s-yu/automatch/internal/relay"
	"github.com/jason-s-yu/automatch/internal/store"
	"github.com/sirupsen/logrus"
)

// Resolver adjudicates active matches from the players' votes and flags.
type Resolver struct {
	store     *store.Store
	players   *players.Repo
	lifecycle *Lifecycle
	elo       rating.Elo
	logger    *logrus.Logger
}

func NewResolver(s *store.Store, repo *players.Repo, lc *Lifecycle, elo rating.Elo, logger *logrus.Logger) *Resolver {
	return &Resolver{store: s, players: repo, lifecycle: lc, elo: elo, logger: logger}
}

// CastVote records voterID's claim that winnerID won. It returns the ended match when
// this vote completed the pair, or nil while the opponent has not voted yet. When both
// votes land together only one caller finalizes; the other also returns nil.
func (r *Resolver) CastVote(ctx context.Context, matchID, voterID, winnerID string) (*models.Match, error) {
	m, err := r.activeMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	voterNo, err := m.PlayerNo(voterID)
	if err != nil {
		return nil, err
	}
	if _, err := m.PlayerNo(winnerID); err != nil {
		return nil, err
	}

	won, err := r.lifecycle.setOnce(ctx, m.ID, models.VoteField(voterNo), winnerID)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, apperr.ErrAlreadyVoted
	}
	setVote(m, voterNo, winnerID)

	oppNo := 3 - voterNo
	other, ok, err := r.store.HGet(ctx, store.MatchKey(m.ID), models.VoteField(oppNo))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	setVote(m, oppNo, other)

	if other != winnerID {
		err = r.lifecycle.end(ctx, m, terminal{outcome: models.OutcomeConflict}, nil)
		if err == nil {
			r.logger.WithField("match", m.ID).Info("resolver: conflicting votes")
		}
	} else {
		err = r.resolveNormal(ctx, m, winnerID)
	}
	if errors.Is(err, errEndClaimed) {
		// the opponent's concurrent vote is finalizing the same pair
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// FlagOpponent ends the match as flagged and counts a flag against the reporter's opponent.
func (r *Resolver) FlagOpponent(ctx context.Context, matchID, reporterID, reason string) (*models.Match, error) {
	m, err := r.activeMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if _, err := m.PlayerNo(reporterID); err != nil {
		return nil, err
	}
	accused := m.Opponent(reporterID)

	err = r.lifecycle.end(ctx, m, terminal{outcome: models.OutcomeFlagged, flagReason: reason}, func(b *store.Batch) error {
		b.HIncrBy(store.UserKey(accused), "flagged", 1)
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logger.WithFields(logrus.Fields{"match": m.ID, "reporter": reporterID, "accused": accused}).Info("resolver: opponent flagged")
	return m, nil
}

func (r *Resolver) activeMatch(ctx context.Context, matchID string) (*models.Match, error) {
	m, err := r.lifecycle.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status != models.StatusActive {
		return nil, apperr.ErrWrongMatchStatus
	}
	return m, nil
}

// resolveNormal settles an agreed result: ratings, coins and stats move together with the
// end of the match.
func (r *Resolver) resolveNormal(ctx context.Context, m *models.Match, winnerID string) error {
	loserID := m.Opponent(winnerID)

	ws, err := r.players.Stats(ctx, winnerID, m.Rules)
	if err != nil {
		return err
	}
	ls, err := r.players.Stats(ctx, loserID, m.Rules)
	if err != nil {
		return err
	}
	ws.Elo, ls.Elo = r.elo.Update(ws.Elo, ls.Elo)
	ws.Played++
	ls.Played++
	ws.Won++
	ws.Winnings += m.Bet

	ev, err := relay.NewEvent(relay.EventMatchStats, ws, ls)
	if err != nil {
		return err
	}

	err = r.lifecycle.end(ctx, m, terminal{outcome: models.OutcomeNormal, winnerID: winnerID}, func(b *store.Batch) error {
		b.HIncrBy(store.UserKey(winnerID), "coins", m.Bet)
		b.HIncrBy(store.UserKey(loserID), "coins", -m.Bet)
		b.HSet(store.StatsKey(winnerID, m.Rules), ws.Fields())
		b.HSet(store.StatsKey(loserID, m.Rules), ls.Fields())
		return relay.PublishIn(b, m.ID, ev)
	})
	if err != nil {
		return err
	}
	r.logger.WithFields(logrus.Fields{"match": m.ID, "winner": winnerID, "elo": ws.Elo}).Info("resolver: match decided")
	return nil
}

func setVote(m *models.Match, playerNo int, vote string) {
	if playerNo == 1 {
		m.Vote1 = vote
	} else {
		m.Vote2 = vote
	}
}
