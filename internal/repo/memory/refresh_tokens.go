package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/bankdesk/internal/domain/session"
)

type RefreshTokensRepo struct {
	mu   sync.Mutex
	rows map[string]session.RefreshToken
}

func NewRefreshTokensRepo() *RefreshTokensRepo {
	return &RefreshTokensRepo{rows: make(map[string]session.RefreshToken)}
}

func (r *RefreshTokensRepo) Create(_ context.Context, row session.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rows[row.ID] = row
	return nil
}

func (r *RefreshTokensRepo) Rotate(_ context.Context, presentedID, presentedHash string, next session.RefreshToken) (session.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.rows[presentedID]
	if !ok {
		return session.RefreshToken{}, session.ErrRefreshTokenNotFound
	}

	now := time.Now().UTC()
	if err := current.CheckRotatable(presentedHash, next.UserID, now); err != nil {
		return current, err
	}

	replacedBy := next.ID
	current.RevokedAt = &now
	current.ReplacedBy = &replacedBy
	r.rows[current.ID] = current
	r.rows[next.ID] = next

	return current, nil
}

func (r *RefreshTokensRepo) Revoke(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok || row.RevokedAt != nil {
		return nil
	}

	now := time.Now().UTC()
	row.RevokedAt = &now
	r.rows[id] = row
	return nil
}

func (r *RefreshTokensRepo) RevokeAllForUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for id, row := range r.rows {
		if row.UserID == userID && row.RevokedAt == nil {
			row.RevokedAt = &now
			r.rows[id] = row
		}
	}
	return nil
}

func (r *RefreshTokensRepo) DeleteStale(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, row := range r.rows {
		if row.ExpiresAt.Before(cutoff) || (row.RevokedAt != nil && row.RevokedAt.Before(cutoff)) {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}

// Get returns a copy of a stored row, for assertions in tests.
func (r *RefreshTokensRepo) Get(id string) (session.RefreshToken, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	return row, ok
}

func (r *RefreshTokensRepo) Ping(context.Context) error { return nil }
