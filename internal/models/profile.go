package models

import "time"

// Profile is bound 1:1 to an identity subject. IsAdmin and IsModerator are
// independent; both may be set. UserID and Email never leave the server in
// public payloads.
type Profile struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"-"`
	Username    string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	DisplayName string    `gorm:"type:varchar(128)" json:"display_name"`
	Email       string    `gorm:"type:varchar(255)" json:"-"`
	IsAdmin     bool      `gorm:"not null;default:false" json:"is_admin"`
	IsModerator bool      `gorm:"not null;default:false" json:"is_moderator"`
	PostCount   int64     `gorm:"not null;default:0" json:"post_count"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
