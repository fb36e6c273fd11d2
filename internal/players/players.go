// Package players reads and writes player records (u/{id}) and per-rules statistics
// (us/{uid}/{rules}) in the coordination store.
package players

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/automatch/internal/models"
	"github.com/jason-s-yu/automatch/internal/store"
)

// Repo is a thin typed accessor; it holds no player state of its own.
type Repo struct {
	store      *store.Store
	defaultElo int
}

func NewRepo(s *store.Store, defaultElo int) *Repo {
	return &Repo{store: s, defaultElo: defaultElo}
}

// Create persists a brand-new player with a fresh time-ordered id.
func (r *Repo) Create(ctx context.Context, name string, coins int64) (*models.Player, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user id: %w", err)
	}
	p := &models.Player{ID: id.String(), Name: name, Coins: coins}
	if err := r.store.HSet(ctx, store.UserKey(p.ID), p.Fields()); err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return p, nil
}

func (r *Repo) Get(ctx context.Context, id string) (*models.Player, error) {
	fields, err := r.store.HGetAll(ctx, store.UserKey(id))
	if err != nil {
		return nil, err
	}
	return models.DecodePlayer(id, fields)
}

// Stats returns the player's statistics for rules, defaulted when the player has none.
func (r *Repo) Stats(ctx context.Context, id, rules string) (models.Stats, error) {
	fields, err := r.store.HGetAll(ctx, store.StatsKey(id, rules))
	if err != nil {
		return models.Stats{}, err
	}
	s := models.DecodeStats(fields, r.defaultElo)
	s.UserID = id
	return s, nil
}

func (r *Repo) Rename(ctx context.Context, id, name string) error {
	return r.store.HSet(ctx, store.UserKey(id), map[string]any{"name": name})
}

// Credit atomically adds amount to the player's balance and returns the new balance.
func (r *Repo) Credit(ctx context.Context, id string, amount int64) (int64, error) {
	return r.store.HIncrBy(ctx, store.UserKey(id), "coins", amount)
}
