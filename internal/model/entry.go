package model

import "time"

// MaxTextLength is the longest entry message or reply body accepted, in
// characters, measured after trimming.
const MaxTextLength = 500

// Entry is a top-level guestbook post. Older revisions of the site called it
// a Message; the JSON keeps "message" for the text and "messageId" where
// likes point at it.
type Entry struct {
	ID        string    `json:"id"        gorm:"primaryKey;type:text"`
	Message   string    `json:"message"   gorm:"type:text;not null"`
	UserID    string    `json:"userId"    gorm:"type:text;not null;index"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time `json:"updatedAt"`

	User    Author  `json:"user"    gorm:"foreignKey:UserID"`
	Replies []Reply `json:"replies" gorm:"foreignKey:EntryID;constraint:OnDelete:CASCADE"`
	Likes   []Like  `json:"likes"   gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE"`

	// LikeCounts is derived from Likes, keyed by emote.
	LikeCounts map[string]int `json:"likeCounts" gorm:"-"`
}

func (Entry) TableName() string { return "guestbook_entries" }

// Tally fills LikeCounts from Likes and replaces nil slices with empty ones
// so clients always see arrays.
func (e *Entry) Tally() {
	if e.Replies == nil {
		e.Replies = []Reply{}
	}
	if e.Likes == nil {
		e.Likes = []Like{}
	}
	e.LikeCounts = make(map[string]int, len(e.Likes))
	for _, l := range e.Likes {
		e.LikeCounts[l.Emote]++
	}
}
