// internal/database/matches.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/automatch/internal/models"
)

const createMatchesTable = `
	CREATE TABLE IF NOT EXISTS matches (
		id          TEXT PRIMARY KEY,
		rules       TEXT NOT NULL,
		bet         BIGINT NOT NULL,
		player1     TEXT NOT NULL,
		player2     TEXT,
		outcome     TEXT NOT NULL,
		winner_id   TEXT,
		flag_reason TEXT,
		created_at  TIMESTAMPTZ NOT NULL,
		started_at  TIMESTAMPTZ,
		ended_at    TIMESTAMPTZ,
		record      JSONB NOT NULL
	)
`

// MatchArchive stores ended matches for later analysis.
type MatchArchive struct {
	pool *pgxpool.Pool
}

func NewMatchArchive(pool *pgxpool.Pool) *MatchArchive {
	return &MatchArchive{pool: pool}
}

// EnsureSchema creates the matches table when it does not exist yet.
func (a *MatchArchive) EnsureSchema(ctx context.Context) error {
	if _, err := a.pool.Exec(ctx, createMatchesTable); err != nil {
		return fmt.Errorf("create matches table: %w", err)
	}
	return nil
}

// InsertMatches writes a batch of ended matches in one transaction. Matches already
// archived are skipped, so a replayed batch is harmless.
func (a *MatchArchive) InsertMatches(ctx context.Context, matches []models.Match) error {
	err := pgx.BeginTxFunc(ctx, a.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO matches (
				id, rules, bet, player1, player2, outcome, winner_id, flag_reason,
				created_at, started_at, ended_at, record
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (id) DO NOTHING
		`
		for _, m := range matches {
			record, err := json.Marshal(m)
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx, q,
				m.ID, m.Rules, m.Bet, m.Player1, nullable(m.Player2), string(m.Outcome),
				nullable(m.WinnerID), nullable(m.FlagReason), m.Created, m.Started, m.Ended, record,
			)
			if err != nil {
				return fmt.Errorf("insert match %s: %w", m.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx insert matches: %w", err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
