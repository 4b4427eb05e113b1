package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/rs/xid"

	"github.com/kyyril/portfolio/internal/apperror"
	"github.com/kyyril/portfolio/internal/model"
	"github.com/kyyril/portfolio/internal/repository"
)

// ReplyStore persists replies to guestbook entries.
type ReplyStore struct {
	conn *sql.DB
}

var _ repository.ReplyRepository = (*ReplyStore)(nil)

// Create returns NotFound for the parent entry if it does not exist; the
// foreign key makes that check atomic with the insert.
func (s *ReplyStore) Create(ctx context.Context, reply *model.Reply) error {
	now := time.Now().UTC()
	reply.ID = xid.New().String()
	reply.CreatedAt = now
	reply.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO replies (id, content, user_id, entry_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		reply.ID,
		reply.Content,
		reply.UserID,
		reply.EntryID,
		reply.CreatedAt,
		reply.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound(repository.ResourceEntry)
		}
		return fmt.Errorf("sqlite: inserting reply: %w", err)
	}

	stored, err := s.GetByID(ctx, reply.ID)
	if err != nil {
		return err
	}
	*reply = *stored
	return nil
}

func (s *ReplyStore) GetByID(ctx context.Context, id string) (*model.Reply, error) {
	replies, err := listReplies(ctx, s.conn, squirrel.Eq{"r.id": id})
	if err != nil {
		return nil, err
	}
	if len(replies) == 0 {
		return nil, apperror.NotFound(repository.ResourceReply)
	}
	return &replies[0], nil
}

// ListByEntry returns an empty slice for an unknown entry.
func (s *ReplyStore) ListByEntry(ctx context.Context, entryID string) ([]model.Reply, error) {
	return listReplies(ctx, s.conn, squirrel.Eq{"r.entry_id": entryID})
}

func (s *ReplyStore) UpdateContent(ctx context.Context, id, ownerID, content string) error {
	return ownedMutation{
		table:     "replies",
		resource:  repository.ResourceReply,
		forbidden: "Forbidden: You can only update your own replies",
		query:     `UPDATE replies SET content = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		args:      []any{content, time.Now().UTC(), id, ownerID},
	}.exec(ctx, s.conn, id)
}

func (s *ReplyStore) Delete(ctx context.Context, id, ownerID string) error {
	return ownedMutation{
		table:     "replies",
		resource:  repository.ResourceReply,
		forbidden: "Forbidden: You can only delete your own replies",
		query:     `DELETE FROM replies WHERE id = ? AND user_id = ?`,
		args:      []any{id, ownerID},
	}.exec(ctx, s.conn, id)
}

// listReplies returns replies matching where, oldest first, with authors.
// Shared by EntryStore for nested loading.
func listReplies(ctx context.Context, conn *sql.DB, where squirrel.Sqlizer) ([]model.Reply, error) {
	query, args, err := squirrel.
		Select(
			"r.id", "r.content", "r.user_id", "r.entry_id", "r.created_at", "r.updated_at",
			"u.id", "u.username", "u.avatar_url",
		).
		From("replies r").
		Join("users u ON u.id = r.user_id").
		Where(where).
		OrderBy("r.created_at ASC", "r.id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: building replies query: %w", err)
	}

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing replies: %w", err)
	}
	defer rows.Close()

	replies := make([]model.Reply, 0)
	for rows.Next() {
		var r model.Reply
		err := rows.Scan(
			&r.ID,
			&r.Content,
			&r.UserID,
			&r.EntryID,
			&r.CreatedAt,
			&r.UpdatedAt,
			&r.User.ID,
			&r.User.Username,
			&r.User.AvatarURL,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning reply row: %w", err)
		}
		replies = append(replies, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating reply rows: %w", err)
	}
	return replies, nil
}
