// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents an account created through GitHub OAuth.
//
// GitHubID is GitHub's numeric user id stored as text. The internal ID is
// an xid so primary keys are not tied to a third party's numbering scheme.
// Email is optional (GitHub hides it unless the user made it public) and is
// never serialised to API clients.
type User struct {
	ID        string    `json:"id"        gorm:"primaryKey;type:text"`
	GitHubID  string    `json:"githubId"  gorm:"type:text;not null;uniqueIndex"`
	Username  string    `json:"username"  gorm:"type:text;not null"`
	AvatarURL string    `json:"avatarUrl" gorm:"type:text;not null;default:''"`
	Email     string    `json:"-"         gorm:"type:text;not null;default:''"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName pins the gorm table name.
func (User) TableName() string { return "users" }

// Author is the public projection of a User embedded in entries and replies.
// It maps onto the same table so gorm can preload it as a belongs-to.
type Author struct {
	ID        string `json:"id"        gorm:"primaryKey"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl"`
}

func (Author) TableName() string { return "users" }
