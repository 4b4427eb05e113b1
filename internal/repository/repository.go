// Package repository declares the persistence contracts used by services.
//
// Each implementation (sqlite, postgres) returns apperror values for the
// cases services care about: NotFound, Forbidden on an ownership mismatch,
// and Conflict on a duplicate like.
package repository

import (
	"context"

	"github.com/kyyril/portfolio/internal/model"
)

type UserRepository interface {
	// Upsert creates the user on first login and refreshes username, avatar,
	// and email on later logins, keyed by GitHubID. It fills ID and
	// timestamps on the passed user.
	Upsert(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
}

type EntryRepository interface {
	// Create fills ID, timestamps, and the author projection.
	Create(ctx context.Context, entry *model.Entry) error
	// GetByID returns the entry with author, replies (oldest first), and likes.
	GetByID(ctx context.Context, id string) (*model.Entry, error)
	// List returns every entry, newest first, nested like GetByID.
	List(ctx context.Context) ([]model.Entry, error)
	Exists(ctx context.Context, id string) (bool, error)
	// UpdateMessage changes the text only if ownerID owns the entry.
	UpdateMessage(ctx context.Context, id, ownerID, message string) error
	// Delete removes the entry, its replies, and its likes only if ownerID
	// owns it.
	Delete(ctx context.Context, id, ownerID string) error
}

type ReplyRepository interface {
	Create(ctx context.Context, reply *model.Reply) error
	GetByID(ctx context.Context, id string) (*model.Reply, error)
	// ListByEntry returns replies oldest first.
	ListByEntry(ctx context.Context, entryID string) ([]model.Reply, error)
	UpdateContent(ctx context.Context, id, ownerID, content string) error
	Delete(ctx context.Context, id, ownerID string) error
}

type LikeRepository interface {
	Exists(ctx context.Context, userID, messageID, emote string) (bool, error)
	// Create returns a Conflict error if the triple already exists.
	Create(ctx context.Context, like *model.Like) error
	// Delete removes every matching row and reports how many there were.
	Delete(ctx context.Context, userID, messageID, emote string) (int64, error)
}

// Store bundles the repositories over one database handle. It is opened
// at process start and closed on shutdown.
type Store interface {
	Users() UserRepository
	Entries() EntryRepository
	Replies() ReplyRepository
	Likes() LikeRepository
	Ping(ctx context.Context) error
	Close() error
}

// Resource names used in NotFound errors, shared by implementations.
const (
	ResourceEntry = "Guestbook Entry"
	ResourceReply = "Reply"
	ResourceLike  = "Like"
	ResourceUser  = "User"
)
