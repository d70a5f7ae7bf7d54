package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// SwapSessionTokens locks the session row and replaces the digest pair only if the
// stored refresh digest is still oldRefreshHash.
func (s *PostgresStore) SwapSessionTokens(ctx context.Context, sessionID int64, oldRefreshHash, accessHash, refreshHash string, at time.Time) (bool, error) {
	const op = "session.SwapSessionTokens"

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := lockRefreshHashTx(ctx, tx, s.table("sessions"), sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: lock: %w", op, err)
	}
	if current == nil || *current != oldRefreshHash {
		return false, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE `+s.table("sessions")+`
		SET access_token_hash = $2, refresh_token_hash = $3, issued_at = $4
		WHERE id = $1
	`, sessionID, accessHash, refreshHash, at); err != nil {
		return false, fmt.Errorf("%s: update: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("%s: commit: %w", op, err)
	}
	return true, nil
}

func lockRefreshHashTx(ctx context.Context, tx pgx.Tx, table string, sessionID int64) (*string, error) {
	var current *string
	err := tx.QueryRow(ctx, `
		SELECT refresh_token_hash
		FROM `+table+`
		WHERE id = $1
		FOR UPDATE
	`, sessionID).Scan(&current)
	return current, err
}
