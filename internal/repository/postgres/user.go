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

type UserStore struct {
	db *gorm.DB
}

var _ repository.UserRepository = (*UserStore)(nil)

// Upsert keeps id and created_at of an existing row and rewrites only the
// profile columns.
func (s *UserStore) Upsert(ctx context.Context, user *model.User) error {
	row := *user
	row.ID = xid.New().String()

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "github_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "avatar_url", "email", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("postgres: upserting user (githubID=%s): %w", user.GitHubID, err)
	}

	var stored model.User
	if err := s.db.WithContext(ctx).Where("github_id = ?", user.GitHubID).Take(&stored).Error; err != nil {
		return fmt.Errorf("postgres: reading back user (githubID=%s): %w", user.GitHubID, err)
	}
	*user = stored
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(repository.ResourceUser)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: getting user %s: %w", id, err)
	}
	return &u, nil
}
