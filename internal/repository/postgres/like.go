package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/xid"
	"gorm.io/gorm"

	"github.com/kyyril/portfolio/internal/apperror"
	"github.com/kyyril/portfolio/internal/model"
	"github.com/kyyril/portfolio/internal/repository"
)

// DuplicateLikeMessage matches the sqlite store so clients see one wording.
const DuplicateLikeMessage = "You have already liked this message with this emote"

type LikeStore struct {
	db *gorm.DB
}

var _ repository.LikeRepository = (*LikeStore)(nil)

func (s *LikeStore) Exists(ctx context.Context, userID, messageID, emote string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Like{}).
		Where("user_id = ? AND message_id = ? AND emote = ?", userID, messageID, emote).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("postgres: checking like: %w", err)
	}
	return n > 0, nil
}

func (s *LikeStore) Create(ctx context.Context, like *model.Like) error {
	like.ID = xid.New().String()

	err := s.db.WithContext(ctx).Create(like).Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperror.Conflict(DuplicateLikeMessage)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return apperror.NotFound(repository.ResourceEntry)
	default:
		return fmt.Errorf("postgres: inserting like: %w", err)
	}
}

func (s *LikeStore) Delete(ctx context.Context, userID, messageID, emote string) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND message_id = ? AND emote = ?", userID, messageID, emote).
		Delete(&model.Like{})
	if res.Error != nil {
		return 0, fmt.Errorf("postgres: deleting like: %w", res.Error)
	}
	return res.RowsAffected, nil
}
