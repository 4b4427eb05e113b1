package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/kyyril/portfolio/internal/apperror"
	"github.com/kyyril/portfolio/internal/model"
	"github.com/kyyril/portfolio/internal/repository"
)

// =========================================================================
// FAKES
// =========================================================================
//
// fakeStore keeps users, entries, replies, and likes in maps and implements
// every repository interface the services use, with the same ownership and
// uniqueness rules as the SQL stores. Hand-written rather than generated so
// each rule is visible here.

type fakeStore struct {
	users   map[string]*model.User
	entries map[string]*model.Entry
	replies map[string]*model.Reply
	likes   map[string]*model.Like
	nextID  int
	clock   time.Time

	// set to simulate a database failure on any call
	failWith error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   make(map[string]*model.User),
		entries: make(map[string]*model.Entry),
		replies: make(map[string]*model.Reply),
		likes:   make(map[string]*model.Like),
		clock:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

// tick advances a fake clock so creation order is strict.
func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeStore) author(userID string) model.Author {
	if u, ok := f.users[userID]; ok {
		return model.Author{ID: u.ID, Username: u.Username, AvatarURL: u.AvatarURL}
	}
	return model.Author{ID: userID}
}

func (f *fakeStore) addUser(username string) *model.User {
	u := &model.User{ID: f.id("user"), GitHubID: f.id("gh"), Username: username}
	f.users[u.ID] = u
	return u
}

// --- users ---

type fakeUsers struct{ *fakeStore }

func (f fakeUsers) Upsert(_ context.Context, user *model.User) error {
	if f.failWith != nil {
		return f.failWith
	}
	for _, u := range f.users {
		if u.GitHubID == user.GitHubID {
			u.Username, u.AvatarURL, u.Email = user.Username, user.AvatarURL, user.Email
			u.UpdatedAt = f.tick()
			*user = *u
			return nil
		}
	}
	user.ID = f.id("user")
	user.CreatedAt = f.tick()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f fakeUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound(repository.ResourceUser)
	}
	copied := *u
	return &copied, nil
}

// --- entries ---

type fakeEntries struct{ *fakeStore }

func (f fakeEntries) Create(_ context.Context, e *model.Entry) error {
	if f.failWith != nil {
		return f.failWith
	}
	e.ID = f.id("entry")
	e.CreatedAt = f.tick()
	e.UpdatedAt = e.CreatedAt
	e.User = f.author(e.UserID)
	e.Tally()
	stored := *e
	f.entries[e.ID] = &stored
	return nil
}

func (f fakeEntries) nested(e model.Entry) model.Entry {
	e.User = f.author(e.UserID)
	e.Replies = f.sortedReplies(e.ID)
	e.Likes = nil
	for _, l := range f.likes {
		if l.MessageID == e.ID {
			e.Likes = append(e.Likes, *l)
		}
	}
	e.Tally()
	return e
}

func (f fakeEntries) GetByID(_ context.Context, id string) (*model.Entry, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	e, ok := f.entries[id]
	if !ok {
		return nil, apperror.NotFound(repository.ResourceEntry)
	}
	out := f.nested(*e)
	return &out, nil
}

func (f fakeEntries) List(_ context.Context) ([]model.Entry, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := make([]model.Entry, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, f.nested(*e))
	}
	slices.SortFunc(out, func(a, b model.Entry) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (f fakeEntries) Exists(_ context.Context, id string) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	_, ok := f.entries[id]
	return ok, nil
}

func (f fakeEntries) UpdateMessage(_ context.Context, id, ownerID, message string) error {
	if f.failWith != nil {
		return f.failWith
	}
	e, ok := f.entries[id]
	if !ok {
		return apperror.NotFound(repository.ResourceEntry)
	}
	if e.UserID != ownerID {
		return apperror.Forbidden("Forbidden: You can only update your own messages")
	}
	e.Message = message
	e.UpdatedAt = f.tick()
	return nil
}

func (f fakeEntries) Delete(_ context.Context, id, ownerID string) error {
	if f.failWith != nil {
		return f.failWith
	}
	e, ok := f.entries[id]
	if !ok {
		return apperror.NotFound(repository.ResourceEntry)
	}
	if e.UserID != ownerID {
		return apperror.Forbidden("Forbidden: You can only delete your own messages")
	}
	delete(f.entries, id)
	for rid, r := range f.replies {
		if r.EntryID == id {
			delete(f.replies, rid)
		}
	}
	for lid, l := range f.likes {
		if l.MessageID == id {
			delete(f.likes, lid)
		}
	}
	return nil
}

// --- replies ---

type fakeReplies struct{ *fakeStore }

func (f *fakeStore) sortedReplies(entryID string) []model.Reply {
	out := make([]model.Reply, 0)
	for _, r := range f.replies {
		if r.EntryID == entryID {
			copied := *r
			copied.User = f.author(r.UserID)
			out = append(out, copied)
		}
	}
	slices.SortFunc(out, func(a, b model.Reply) int { return cmp.Compare(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano()) })
	return out
}

func (f fakeReplies) Create(_ context.Context, r *model.Reply) error {
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.entries[r.EntryID]; !ok {
		return apperror.NotFound(repository.ResourceEntry)
	}
	r.ID = f.id("reply")
	r.CreatedAt = f.tick()
	r.UpdatedAt = r.CreatedAt
	r.User = f.author(r.UserID)
	stored := *r
	f.replies[r.ID] = &stored
	return nil
}

func (f fakeReplies) GetByID(_ context.Context, id string) (*model.Reply, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	r, ok := f.replies[id]
	if !ok {
		return nil, apperror.NotFound(repository.ResourceReply)
	}
	copied := *r
	copied.User = f.author(r.UserID)
	return &copied, nil
}

func (f fakeReplies) ListByEntry(_ context.Context, entryID string) ([]model.Reply, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.sortedReplies(entryID), nil
}

func (f fakeReplies) UpdateContent(_ context.Context, id, ownerID, content string) error {
	if f.failWith != nil {
		return f.failWith
	}
	r, ok := f.replies[id]
	if !ok {
		return apperror.NotFound(repository.ResourceReply)
	}
	if r.UserID != ownerID {
		return apperror.Forbidden("Forbidden: You can only update your own replies")
	}
	r.Content = content
	return nil
}

func (f fakeReplies) Delete(_ context.Context, id, ownerID string) error {
	if f.failWith != nil {
		return f.failWith
	}
	r, ok := f.replies[id]
	if !ok {
		return apperror.NotFound(repository.ResourceReply)
	}
	if r.UserID != ownerID {
		return apperror.Forbidden("Forbidden: You can only delete your own replies")
	}
	delete(f.replies, id)
	return nil
}

// --- likes ---

type fakeLikes struct{ *fakeStore }

func (f fakeLikes) Exists(_ context.Context, userID, messageID, emote string) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	for _, l := range f.likes {
		if l.UserID == userID && l.MessageID == messageID && l.Emote == emote {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeLikes) Create(ctx context.Context, l *model.Like) error {
	dup, err := f.Exists(ctx, l.UserID, l.MessageID, l.Emote)
	if err != nil {
		return err
	}
	if dup {
		return apperror.Conflict(duplicateLikeMessage)
	}
	l.ID = f.id("like")
	l.CreatedAt = f.tick()
	stored := *l
	f.likes[l.ID] = &stored
	return nil
}

func (f fakeLikes) Delete(_ context.Context, userID, messageID, emote string) (int64, error) {
	if f.failWith != nil {
		return 0, f.failWith
	}
	var n int64
	for id, l := range f.likes {
		if l.UserID == userID && l.MessageID == messageID && l.Emote == emote {
			delete(f.likes, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) Users() repository.UserRepository { return fakeUsers{f} }
func (f *fakeStore) Entries() repository.EntryRepository { return fakeEntries{f} }
func (f *fakeStore) Replies() repository.ReplyRepository { return fakeReplies{f} }
func (f *fakeStore) Likes() repository.LikeRepository { return fakeLikes{f} }
func (f *fakeStore) Ping(context.Context) error { return f.failWith }
func (f *fakeStore) Close() error { return nil }

var _ repository.Store = (*fakeStore)(nil)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
