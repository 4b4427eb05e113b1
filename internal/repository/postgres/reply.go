package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/xid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kyyril/portfolio/internal/apperror"
	"github.com/kyyril/portfolio/internal/model"
	"github.com/kyyril/portfolio/internal/repository"
)

type ReplyStore struct {
	db *gorm.DB
}

var _ repository.ReplyRepository = (*ReplyStore)(nil)

func (s *ReplyStore) Create(ctx context.Context, reply *model.Reply) error {
	reply.ID = xid.New().String()

	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(reply).Error
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return apperror.NotFound(repository.ResourceEntry)
	}
	if err != nil {
		return fmt.Errorf("postgres: inserting reply: %w", err)
	}

	stored, err := s.GetByID(ctx, reply.ID)
	if err != nil {
		return err
	}
	*reply = *stored
	return nil
}

func (s *ReplyStore) GetByID(ctx context.Context, id string) (*model.Reply, error) {
	var r model.Reply
	err := s.db.WithContext(ctx).Preload("User").Where("id = ?", id).Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(repository.ResourceReply)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: getting reply %s: %w", id, err)
	}
	return &r, nil
}

func (s *ReplyStore) ListByEntry(ctx context.Context, entryID string) ([]model.Reply, error) {
	replies := make([]model.Reply, 0)
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("entry_id = ?", entryID).
		Order("created_at ASC, id ASC").
		Find(&replies).Error
	if err != nil {
		return nil, fmt.Errorf("postgres: listing replies of %s: %w", entryID, err)
	}
	return replies, nil
}

func (s *ReplyStore) UpdateContent(ctx context.Context, id, ownerID, content string) error {
	tx := s.db.WithContext(ctx)
	res := tx.Model(&model.Reply{}).
		Where("id = ? AND user_id = ?", id, ownerID).
		Update("content", content)
	if res.Error != nil {
		return fmt.Errorf("postgres: updating reply %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return probeOwner(tx, "replies", id, repository.ResourceReply,
			"Forbidden: You can only update your own replies")
	}
	return nil
}

func (s *ReplyStore) Delete(ctx context.Context, id, ownerID string) error {
	tx := s.db.WithContext(ctx)
	res := tx.Where("id = ? AND user_id = ?", id, ownerID).Delete(&model.Reply{})
	if res.Error != nil {
		return fmt.Errorf("postgres: deleting reply %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return probeOwner(tx, "replies", id, repository.ResourceReply,
			"Forbidden: You can only delete your own replies")
	}
	return nil
}
