package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/kyyril/portfolio/internal/apperror"
	"github.com/kyyril/portfolio/internal/model"
	"github.com/kyyril/portfolio/internal/repository"
)

// UserStore persists GitHub accounts.
type UserStore struct {
	conn *sql.DB
}

var _ repository.UserRepository = (*UserStore)(nil)

// Upsert inserts or refreshes a user keyed by GitHub id.
//
// INSERT ... ON CONFLICT(github_id) DO UPDATE keeps the row (and therefore
// the internal id and created_at) and only rewrites the profile fields.
// INSERT OR REPLACE would delete and re-insert, which fires ON DELETE
// CASCADE on everything the user owns.
//
// The row is read back afterwards because on conflict the id we generated
// was not the one stored.
func (s *UserStore) Upsert(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO users (id, github_id, username, avatar_url, email, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(github_id) DO UPDATE SET
		     username   = excluded.username,
		     avatar_url = excluded.avatar_url,
		     email      = excluded.email,
		     updated_at = excluded.updated_at`,
		xid.New().String(),
		user.GitHubID,
		user.Username,
		user.AvatarURL,
		user.Email,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting user (githubID=%s): %w", user.GitHubID, err)
	}

	stored, err := s.scanOne(ctx, `WHERE github_id = ?`, user.GitHubID)
	if err != nil {
		return err
	}
	*user = *stored
	return nil
}

// GetByID returns apperror.ErrNotFound if no user exists with that ID.
func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	return s.scanOne(ctx, `WHERE id = ?`, id)
}

func (s *UserStore) scanOne(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, github_id, username, avatar_url, email, created_at, updated_at
		 FROM users `+where,
		arg,
	).Scan(
		&u.ID,
		&u.GitHubID,
		&u.Username,
		&u.AvatarURL,
		&u.Email,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound(repository.ResourceUser)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user: %w", err)
	}
	return &u, nil
}
