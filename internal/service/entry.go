package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kyyril/portfolio/internal/model"
	"github.com/kyyril/portfolio/internal/repository"
)

// EntryService handles guestbook entries.
type EntryService struct {
	entries repository.EntryRepository
	logger  *slog.Logger
}

func NewEntryService(entries repository.EntryRepository, logger *slog.Logger) *EntryService {
	return &EntryService{
		entries: entries,
		logger:  logger,
	}
}

// List returns every entry, newest first, with authors, replies (oldest
// first), likes, and like counts. There is no pagination.
func (s *EntryService) List(ctx context.Context) ([]model.Entry, error) {
	entries, err := s.entries.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/entry: listing: %w", err)
	}
	return entries, nil
}

// Create stores a trimmed message owned by userID.
func (s *EntryService) Create(ctx context.Context, userID, message string) (*model.Entry, error) {
	text, err := cleanText("message", "Message", message)
	if err != nil {
		return nil, err
	}

	entry := &model.Entry{
		Message: text,
		UserID:  userID,
	}
	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("service/entry: creating: %w", err)
	}

	s.logger.Info("entry created",
		slog.String("id", entry.ID),
		slog.String("userID", userID),
	)
	return entry, nil
}

// Update changes the text of an entry userID owns and returns the entry with
// its replies and likes. The text is validated before the database is
// touched; the ownership check and the write are a single statement.
func (s *EntryService) Update(ctx context.Context, userID, id, message string) (*model.Entry, error) {
	if err := requireID("id", "Message ID", id); err != nil {
		return nil, err
	}
	text, err := cleanText("message", "Message", message)
	if err != nil {
		return nil, err
	}

	if err := s.entries.UpdateMessage(ctx, id, userID, text); err != nil {
		return nil, fmt.Errorf("service/entry: updating %s: %w", id, err)
	}

	entry, err := s.entries.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/entry: reloading %s: %w", id, err)
	}

	s.logger.Info("entry updated", slog.String("id", id), slog.String("userID", userID))
	return entry, nil
}

// Delete removes an entry userID owns, together with its replies and likes.
func (s *EntryService) Delete(ctx context.Context, userID, id string) error {
	if err := requireID("id", "Message ID", id); err != nil {
		return err
	}
	if err := s.entries.Delete(ctx, id, userID); err != nil {
		return fmt.Errorf("service/entry: deleting %s: %w", id, err)
	}

	s.logger.Info("entry deleted", slog.String("id", id), slog.String("userID", userID))
	return nil
}
