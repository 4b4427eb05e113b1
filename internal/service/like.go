package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kyyril/portfolio/internal/apperror"
	"github.com/kyyril/portfolio/internal/model"
	"github.com/kyyril/portfolio/internal/repository"
)

const duplicateLikeMessage = "You have already liked this message with this emote"

// LikeService handles emote reactions on entries.
type LikeService struct {
	likes   repository.LikeRepository
	entries repository.EntryRepository
	logger  *slog.Logger
}

func NewLikeService(likes repository.LikeRepository, entries repository.EntryRepository, logger *slog.Logger) *LikeService {
	return &LikeService{
		likes:   likes,
		entries: entries,
		logger:  logger,
	}
}

// Create records userID reacting to messageID with emote.
//
// Checks run in this order: emote vocabulary, message id present, duplicate
// triple (409), entry exists (404). The UNIQUE constraint behind the
// repository turns a concurrent duplicate into the same 409.
func (s *LikeService) Create(ctx context.Context, userID, messageID, emote string) (*model.Like, error) {
	if !model.IsValidEmote(emote) {
		return nil, apperror.ValidationFailed("emote", "Invalid emote")
	}
	if err := requireID("messageId", "Message ID", messageID); err != nil {
		return nil, err
	}

	dup, err := s.likes.Exists(ctx, userID, messageID, emote)
	if err != nil {
		return nil, fmt.Errorf("service/like: checking duplicate: %w", err)
	}
	if dup {
		return nil, apperror.Conflict(duplicateLikeMessage)
	}

	exists, err := s.entries.Exists(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("service/like: checking entry %s: %w", messageID, err)
	}
	if !exists {
		return nil, apperror.NotFound(repository.ResourceEntry)
	}

	like := &model.Like{
		Emote:     emote,
		UserID:    userID,
		MessageID: messageID,
	}
	if err := s.likes.Create(ctx, like); err != nil {
		return nil, fmt.Errorf("service/like: creating: %w", err)
	}

	s.logger.Info("like added",
		slog.String("messageID", messageID),
		slog.String("emote", emote),
		slog.String("userID", userID),
	)
	return like, nil
}

// Delete removes userID's emote reaction on messageID. Only the caller's own
// rows can match, so there is no forbidden case: someone else's like is
// simply not found.
func (s *LikeService) Delete(ctx context.Context, userID, messageID, emote string) error {
	if err := requireID("messageId", "Message ID", messageID); err != nil {
		return err
	}
	if err := requireID("emote", "Emote", emote); err != nil {
		return err
	}

	n, err := s.likes.Delete(ctx, userID, messageID, emote)
	if err != nil {
		return fmt.Errorf("service/like: deleting: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(repository.ResourceLike)
	}

	s.logger.Info("like removed",
		slog.String("messageID", messageID),
		slog.String("emote", emote),
		slog.String("userID", userID),
	)
	return nil
}
