package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kyyril/portfolio/internal/apperror"
	"github.com/kyyril/portfolio/internal/model"
	"github.com/kyyril/portfolio/internal/repository"
)

// ReplyService handles replies under guestbook entries. Ownership of a reply
// is independent of the entry it hangs under.
type ReplyService struct {
	replies repository.ReplyRepository
	entries repository.EntryRepository
	logger  *slog.Logger
}

func NewReplyService(replies repository.ReplyRepository, entries repository.EntryRepository, logger *slog.Logger) *ReplyService {
	return &ReplyService{
		replies: replies,
		entries: entries,
		logger:  logger,
	}
}

// ListByEntry returns the replies of entryID oldest first; an unknown entry
// has none.
func (s *ReplyService) ListByEntry(ctx context.Context, entryID string) ([]model.Reply, error) {
	if err := requireID("messageId", "Message ID", entryID); err != nil {
		return nil, err
	}
	replies, err := s.replies.ListByEntry(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("service/reply: listing for %s: %w", entryID, err)
	}
	return replies, nil
}

// Create validates the content, checks the parent entry exists, and stores
// the reply owned by userID.
func (s *ReplyService) Create(ctx context.Context, userID, entryID, content string) (*model.Reply, error) {
	text, err := cleanText("content", "Content", content)
	if err != nil {
		return nil, err
	}
	if err := requireID("guestbookEntryId", "Message ID", entryID); err != nil {
		return nil, err
	}

	exists, err := s.entries.Exists(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("service/reply: checking entry %s: %w", entryID, err)
	}
	if !exists {
		return nil, apperror.NotFound(repository.ResourceEntry)
	}

	reply := &model.Reply{
		Content: text,
		UserID:  userID,
		EntryID: entryID,
	}
	// The repository reports NotFound too if the entry vanished in between.
	if err := s.replies.Create(ctx, reply); err != nil {
		return nil, fmt.Errorf("service/reply: creating: %w", err)
	}

	s.logger.Info("reply created",
		slog.String("id", reply.ID),
		slog.String("entryID", entryID),
		slog.String("userID", userID),
	)
	return reply, nil
}

func (s *ReplyService) Update(ctx context.Context, userID, id, content string) (*model.Reply, error) {
	if err := requireID("id", "Reply ID", id); err != nil {
		return nil, err
	}
	text, err := cleanText("content", "Content", content)
	if err != nil {
		return nil, err
	}

	if err := s.replies.UpdateContent(ctx, id, userID, text); err != nil {
		return nil, fmt.Errorf("service/reply: updating %s: %w", id, err)
	}
	reply, err := s.replies.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/reply: reloading %s: %w", id, err)
	}

	s.logger.Info("reply updated", slog.String("id", id), slog.String("userID", userID))
	return reply, nil
}

func (s *ReplyService) Delete(ctx context.Context, userID, id string) error {
	if err := requireID("id", "Reply ID", id); err != nil {
		return err
	}
	if err := s.replies.Delete(ctx, id, userID); err != nil {
		return fmt.Errorf("service/reply: deleting %s: %w", id, err)
	}

	s.logger.Info("reply deleted", slog.String("id", id), slog.String("userID", userID))
	return nil
}
