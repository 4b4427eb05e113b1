package model

import "time"

// Reply is a comment attached to exactly one Entry.
type Reply struct {
	ID        string    `json:"id"               gorm:"primaryKey;type:text"`
	Content   string    `json:"content"          gorm:"type:text;not null"`
	UserID    string    `json:"userId"           gorm:"type:text;not null;index"`
	EntryID   string    `json:"guestbookEntryId" gorm:"type:text;not null;index"`
	CreatedAt time.Time `json:"createdAt"        gorm:"index"`
	UpdatedAt time.Time `json:"updatedAt"`

	User Author `json:"user" gorm:"foreignKey:UserID"`
}

func (Reply) TableName() string { return "replies" }
