package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geocoder89/bankdesk/internal/config"
	"github.com/geocoder89/bankdesk/internal/domain/user"
	"github.com/geocoder89/bankdesk/internal/security"
)

// StaffStore is satisfied by both the postgres and the in-memory users repo.
type StaffStore interface {
	GetByUsername(ctx context.Context, username string) (user.User, error)
	Create(ctx context.Context, username, passwordHash, role string) (user.User, error)
}

type staffSeed struct {
	username string
	password string
	role     string
}

// EnsureStaffUsers creates the clerk and manager accounts from config when
// they do not exist yet. Pairs with an empty username or password are skipped.
func EnsureStaffUsers(ctx context.Context, store StaffStore, cfg config.Config, log *slog.Logger) error {
	seeds := []staffSeed{
		{username: cfg.ClerkUsername, password: cfg.ClerkPassword, role: user.RoleClerk},
		{username: cfg.ManagerUsername, password: cfg.ManagerPassword, role: user.RoleManager},
	}

	for _, s := range seeds {
		if s.username == "" || s.password == "" {
			log.Warn("staff user not configured, skipping seed", "role", s.role)
			continue
		}

		_, err := store.GetByUsername(ctx, s.username)
		if err == nil {
			continue
		}

		if !errors.Is(err, user.ErrNotFound) {
			return fmt.Errorf("lookup %s user: %w", s.role, err)
		}

		hash, err := security.HashPassword(s.password)
		if err != nil {
			return fmt.Errorf("hash %s password: %w", s.role, err)
		}

		if _, err := store.Create(ctx, s.username, hash, s.role); err != nil {
			return fmt.Errorf("create %s user: %w", s.role, err)
		}

		log.Info("seeded staff user", "username", s.username, "role", s.role)
	}

	return nil
}
