package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/kyyril/portfolio/internal/apperror"
	"github.com/kyyril/portfolio/internal/model"
	"github.com/kyyril/portfolio/internal/repository"
)

// DuplicateLikeMessage is returned in the Conflict error for a repeated
// (user, message, emote) triple.
const DuplicateLikeMessage = "You have already liked this message with this emote"

// LikeStore persists reactions.
type LikeStore struct {
	conn *sql.DB
}

var _ repository.LikeRepository = (*LikeStore)(nil)

func (s *LikeStore) Exists(ctx context.Context, userID, messageID, emote string) (bool, error) {
	var exists bool
	err := s.conn.QueryRowContext(ctx,
		`SELECT EXISTS(
		     SELECT 1 FROM likes WHERE user_id = ? AND message_id = ? AND emote = ?
		 )`,
		userID, messageID, emote,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking like: %w", err)
	}
	return exists, nil
}

// Create maps the UNIQUE(user_id, message_id, emote) violation to Conflict,
// which covers two identical requests racing past the service's Exists check.
func (s *LikeStore) Create(ctx context.Context, like *model.Like) error {
	like.ID = xid.New().String()
	like.CreatedAt = time.Now().UTC()

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO likes (id, emote, user_id, message_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		like.ID,
		like.Emote,
		like.UserID,
		like.MessageID,
		like.CreatedAt,
	)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return apperror.Conflict(DuplicateLikeMessage)
	case isForeignKeyViolation(err):
		return apperror.NotFound(repository.ResourceEntry)
	default:
		return fmt.Errorf("sqlite: inserting like: %w", err)
	}
}

func (s *LikeStore) Delete(ctx context.Context, userID, messageID, emote string) (int64, error) {
	res, err := s.conn.ExecContext(ctx,
		`DELETE FROM likes WHERE user_id = ? AND message_id = ? AND emote = ?`,
		userID, messageID, emote,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting like: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: reading rows affected: %w", err)
	}
	return n, nil
}
