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

type EntryStore struct {
	db *gorm.DB
}

var _ repository.EntryRepository = (*EntryStore)(nil)

// withNested preloads the author, replies (oldest first) with their authors,
// and likes.
func withNested(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("User").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("Replies.User").
		Preload("Likes", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		})
}

func (s *EntryStore) Create(ctx context.Context, entry *model.Entry) error {
	entry.ID = xid.New().String()

	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(entry).Error
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return apperror.NotFound(repository.ResourceUser)
	}
	if err != nil {
		return fmt.Errorf("postgres: inserting entry: %w", err)
	}

	stored, err := s.GetByID(ctx, entry.ID)
	if err != nil {
		return err
	}
	*entry = *stored
	return nil
}

func (s *EntryStore) GetByID(ctx context.Context, id string) (*model.Entry, error) {
	var e model.Entry
	err := withNested(s.db.WithContext(ctx)).Where("id = ?", id).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(repository.ResourceEntry)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: getting entry %s: %w", id, err)
	}
	e.Tally()
	return &e, nil
}

func (s *EntryStore) List(ctx context.Context) ([]model.Entry, error) {
	entries := make([]model.Entry, 0)
	err := withNested(s.db.WithContext(ctx)).
		Order("created_at DESC, id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("postgres: listing entries: %w", err)
	}
	for i := range entries {
		entries[i].Tally()
	}
	return entries, nil
}

func (s *EntryStore) Exists(ctx context.Context, id string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Entry{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, fmt.Errorf("postgres: checking entry %s: %w", id, err)
	}
	return n > 0, nil
}

func (s *EntryStore) UpdateMessage(ctx context.Context, id, ownerID, message string) error {
	tx := s.db.WithContext(ctx)
	res := tx.Model(&model.Entry{}).
		Where("id = ? AND user_id = ?", id, ownerID).
		Update("message", message)
	if res.Error != nil {
		return fmt.Errorf("postgres: updating entry %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return probeOwner(tx, "guestbook_entries", id, repository.ResourceEntry,
			"Forbidden: You can only update your own messages")
	}
	return nil
}

// Delete removes replies and likes in the same transaction. The foreign keys
// cascade as well; the explicit deletes keep the behaviour independent of how
// the constraints were created.
func (s *EntryStore) Delete(ctx context.Context, id, ownerID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, ownerID).Delete(&model.Entry{})
		if res.Error != nil {
			return fmt.Errorf("postgres: deleting entry %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return probeOwner(tx, "guestbook_entries", id, repository.ResourceEntry,
				"Forbidden: You can only delete your own messages")
		}
		if err := tx.Where("entry_id = ?", id).Delete(&model.Reply{}).Error; err != nil {
			return fmt.Errorf("postgres: deleting replies of %s: %w", id, err)
		}
		if err := tx.Where("message_id = ?", id).Delete(&model.Like{}).Error; err != nil {
			return fmt.Errorf("postgres: deleting likes of %s: %w", id, err)
		}
		return nil
	})
}
