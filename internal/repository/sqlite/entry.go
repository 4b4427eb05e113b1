package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/rs/xid"

	"github.com/kyyril/portfolio/internal/apperror"
	"github.com/kyyril/portfolio/internal/model"
	"github.com/kyyril/portfolio/internal/repository"
)

// EntryStore persists guestbook entries.
type EntryStore struct {
	conn *sql.DB
}

var _ repository.EntryRepository = (*EntryStore)(nil)

const entryColumns = `e.id, e.message, e.user_id, e.created_at, e.updated_at,
	u.id, u.username, u.avatar_url`

func (s *EntryStore) Create(ctx context.Context, entry *model.Entry) error {
	now := time.Now().UTC()
	entry.ID = xid.New().String()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO guestbook_entries (id, message, user_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Message,
		entry.UserID,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound(repository.ResourceUser)
		}
		return fmt.Errorf("sqlite: inserting entry: %w", err)
	}

	// The author projection comes from users, so read it back.
	stored, err := s.GetByID(ctx, entry.ID)
	if err != nil {
		return err
	}
	*entry = *stored
	return nil
}

func (s *EntryStore) GetByID(ctx context.Context, id string) (*model.Entry, error) {
	e, err := scanEntry(s.conn.QueryRowContext(ctx,
		`SELECT `+entryColumns+`
		 FROM guestbook_entries e
		 JOIN users u ON u.id = e.user_id
		 WHERE e.id = ?`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound(repository.ResourceEntry)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting entry %s: %w", id, err)
	}

	entries := []model.Entry{*e}
	if err := s.attach(ctx, entries); err != nil {
		return nil, err
	}
	return &entries[0], nil
}

// List loads every entry, then all their replies and likes with one IN query
// each, rather than one query per entry.
func (s *EntryStore) List(ctx context.Context) ([]model.Entry, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+entryColumns+`
		 FROM guestbook_entries e
		 JOIN users u ON u.id = e.user_id
		 ORDER BY e.created_at DESC, e.id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing entries: %w", err)
	}
	defer rows.Close()

	entries := make([]model.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning entry row: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating entry rows: %w", err)
	}

	if err := s.attach(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *EntryStore) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM guestbook_entries WHERE id = ?)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking entry %s: %w", id, err)
	}
	return exists, nil
}

func (s *EntryStore) UpdateMessage(ctx context.Context, id, ownerID, message string) error {
	return ownedMutation{
		table:     "guestbook_entries",
		resource:  repository.ResourceEntry,
		forbidden: "Forbidden: You can only update your own messages",
		query:     `UPDATE guestbook_entries SET message = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		args:      []any{message, time.Now().UTC(), id, ownerID},
	}.exec(ctx, s.conn, id)
}

// Delete relies on ON DELETE CASCADE to remove replies and likes.
func (s *EntryStore) Delete(ctx context.Context, id, ownerID string) error {
	return ownedMutation{
		table:     "guestbook_entries",
		resource:  repository.ResourceEntry,
		forbidden: "Forbidden: You can only delete your own messages",
		query:     `DELETE FROM guestbook_entries WHERE id = ? AND user_id = ?`,
		args:      []any{id, ownerID},
	}.exec(ctx, s.conn, id)
}

// attach fills Replies, Likes, and LikeCounts on every entry in place.
func (s *EntryStore) attach(ctx context.Context, entries []model.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	ids := make([]string, len(entries))
	index := make(map[string]int, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
		index[e.ID] = i
	}

	replies, err := listReplies(ctx, s.conn, squirrel.Eq{"r.entry_id": ids})
	if err != nil {
		return err
	}
	for _, r := range replies {
		i := index[r.EntryID]
		entries[i].Replies = append(entries[i].Replies, r)
	}

	query, args, err := squirrel.
		Select("id", "emote", "user_id", "message_id", "created_at").From("likes").
		Where(squirrel.Eq{"message_id": ids}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: building likes query: %w", err)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sqlite: listing likes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l model.Like
		if err := rows.Scan(&l.ID, &l.Emote, &l.UserID, &l.MessageID, &l.CreatedAt); err != nil {
			return fmt.Errorf("sqlite: scanning like row: %w", err)
		}
		i := index[l.MessageID]
		entries[i].Likes = append(entries[i].Likes, l)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating like rows: %w", err)
	}

	for i := range entries {
		entries[i].Tally()
	}
	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*model.Entry, error) {
	var e model.Entry
	err := row.Scan(
		&e.ID,
		&e.Message,
		&e.UserID,
		&e.CreatedAt,
		&e.UpdatedAt,
		&e.User.ID,
		&e.User.Username,
		&e.User.AvatarURL,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
