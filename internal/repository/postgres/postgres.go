// Package postgres implements the repository interfaces with gorm on
// PostgreSQL. It is selected with DB_DRIVER=postgres; the schema is kept in
// step with the model structs by AutoMigrate.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kyyril/portfolio/internal/apperror"
	"github.com/kyyril/portfolio/internal/model"
	"github.com/kyyril/portfolio/internal/repository"
)

// DB wraps the gorm handle and hands out per-entity stores.
type DB struct {
	gorm *gorm.DB
}

var _ repository.Store = (*DB)(nil)

// New connects to dsn and migrates the schema.
func New(ctx context.Context, dsn string, log *slog.Logger) (*DB, error) {
	gormLogger := logger.New(
		slog.NewLogLogger(log.Handler(), slog.LevelDebug),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
		// Maps driver errors onto gorm.ErrDuplicatedKey and
		// gorm.ErrForeignKeyViolated.
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: opening database: %w", err)
	}

	db := &DB{gorm: gdb}
	if err := db.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: migrating schema: %w", err)
	}
	return db, nil
}

// migrate creates users on its own first. Author maps onto the same table
// and gorm pulls it in as a dependency of entries and replies; with users
// already in place that pass finds nothing to add.
func (db *DB) migrate(ctx context.Context) error {
	tx := db.gorm.WithContext(ctx)
	if err := tx.AutoMigrate(&model.User{}); err != nil {
		return err
	}
	return tx.AutoMigrate(&model.Entry{}, &model.Reply{}, &model.Like{})
}

func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (db *DB) Close() error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (db *DB) Users() repository.UserRepository { return &UserStore{db: db.gorm} }
func (db *DB) Entries() repository.EntryRepository { return &EntryStore{db: db.gorm} }
func (db *DB) Replies() repository.ReplyRepository { return &ReplyStore{db: db.gorm} }
func (db *DB) Likes() repository.LikeRepository { return &LikeStore{db: db.gorm} }

// probeOwner runs after a write scoped by "id = ? AND user_id = ?" matched
// nothing, and tells a missing row apart from somebody else's row.
func probeOwner(tx *gorm.DB, table, id, resource, forbidden string) error {
	var owners []string
	if err := tx.Table(table).Where("id = ?", id).Pluck("user_id", &owners).Error; err != nil {
		return fmt.Errorf("postgres: probing %s %s: %w", table, id, err)
	}
	if len(owners) == 0 {
		return apperror.NotFound(resource)
	}
	return apperror.Forbidden(forbidden)
}
