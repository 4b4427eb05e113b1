package model

import (
	"slices"
	"time"
)

// Emotes is the fixed reaction vocabulary.
var Emotes = []string{"🚀", "☕", "😅", "🫡", "🤩", "😁"}

// IsValidEmote reports whether s is one of Emotes.
func IsValidEmote(s string) bool {
	return slices.Contains(Emotes, s)
}

// Like is a (user, entry, emote) reaction. The triple is unique.
type Like struct {
	ID        string    `json:"id"        gorm:"primaryKey;type:text"`
	Emote     string    `json:"emote"     gorm:"type:text;not null;uniqueIndex:uidx_likes_user_message_emote,priority:3"`
	UserID    string    `json:"userId"    gorm:"type:text;not null;uniqueIndex:uidx_likes_user_message_emote,priority:1"`
	MessageID string    `json:"messageId" gorm:"type:text;not null;index;uniqueIndex:uidx_likes_user_message_emote,priority:2"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Like) TableName() string { return "likes" }
