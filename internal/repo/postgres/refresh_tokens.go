package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/bankdesk/internal/domain/session"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RefreshTokensRepo struct {
	pool *pgxpool.Pool
	obs  DBObserver
}

func NewRefreshTokensRepo(pool *pgxpool.Pool, obs DBObserver) *RefreshTokensRepo {
	return &RefreshTokensRepo{pool: pool, obs: observerOrNoop(obs)}
}

func (r *RefreshTokensRepo) Create(ctx context.Context, row session.RefreshToken) error {
	return r.obs.ObserveDB("refresh_tokens.create", func() error {
		return insertRefreshToken(ctx, r.pool, row)
	})
}

// Rotate revokes the presented token and stores next in one transaction.
// The presented row is locked to prevent concurrent refresh races.
// The stored row is returned even on failure so callers can see whose token it was.
func (r *RefreshTokensRepo) Rotate(ctx context.Context, presentedID, presentedHash string, next session.RefreshToken) (session.RefreshToken, error) {
	var current session.RefreshToken
	// rejections are not database failures, keep them out of the db error metrics
	var rejected error

	err := r.obs.ObserveDB("refresh_tokens.rotate", func() error {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return err
		}

		defer func() { _ = tx.Rollback(ctx) }()

		current, err = getForUpdate(ctx, tx, presentedID)
		if err != nil {
			if errors.Is(err, session.ErrRefreshTokenNotFound) {
				rejected = err
				return nil
			}
			return err
		}

		rejected = current.CheckRotatable(presentedHash, next.UserID, time.Now().UTC())
		if rejected != nil {
			return nil
		}

		err = revoke(ctx, tx, current.ID, &next.ID)
		if err != nil {
			return fmt.Errorf("revoke old refresh token: %w", err)
		}

		err = insertRefreshToken(ctx, tx, next)
		if err != nil {
			return fmt.Errorf("insert rotated refresh token: %w", err)
		}

		return tx.Commit(ctx)
	})

	if err != nil {
		return current, err
	}

	return current, rejected
}

// Revoke is idempotent: revoking an unknown or already revoked token is not an error.
func (r *RefreshTokensRepo) Revoke(ctx context.Context, id string) error {
	return r.obs.ObserveDB("refresh_tokens.revoke", func() error {
		_, err := r.pool.Exec(ctx, `
			UPDATE refresh_tokens
			SET revoked_at = NOW()
			WHERE id = $1 AND revoked_at IS NULL
		`, id)
		return err
	})
}

func (r *RefreshTokensRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	return r.obs.ObserveDB("refresh_tokens.revoke_all", func() error {
		_, err := r.pool.Exec(ctx, `
			UPDATE refresh_tokens
			SET revoked_at = NOW()
			WHERE user_id = $1 AND revoked_at IS NULL
		`, userID)
		return err
	})
}

// DeleteStale removes rows that expired or were revoked before cutoff.
func (r *RefreshTokensRepo) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64

	err := r.obs.ObserveDB("refresh_tokens.delete_stale", func() error {
		tag, err := r.pool.Exec(ctx, `
			DELETE FROM refresh_tokens
			WHERE expires_at < $1
			   OR (revoked_at IS NOT NULL AND revoked_at < $1)
		`, cutoff)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})

	return n, err
}

func (r *RefreshTokensRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func insertRefreshToken(ctx context.Context, db execer, row session.RefreshToken) error {
	_, err := db.Exec(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked_at, replaced_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		`,
		row.ID, row.UserID, row.TokenHash, row.ExpiresAt, row.RevokedAt, row.ReplacedBy, row.CreatedAt,
	)
	return err
}

func getForUpdate(ctx context.Context, tx pgx.Tx, id string) (session.RefreshToken, error) {
	var row session.RefreshToken

	err := tx.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, revoked_at, replaced_by, created_at
		FROM refresh_tokens
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(
		&row.ID,
		&row.UserID,
		&row.TokenHash,
		&row.ExpiresAt,
		&row.RevokedAt,
		&row.ReplacedBy,
		&row.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.RefreshToken{}, session.ErrRefreshTokenNotFound
		}

		return session.RefreshToken{}, err
	}

	return row, nil
}

func revoke(ctx context.Context, tx pgx.Tx, id string, replacedBy *string) error {
	_, err := tx.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = NOW(), replaced_by = $2
		WHERE id = $1
	`, id, replacedBy)

	return err
}
