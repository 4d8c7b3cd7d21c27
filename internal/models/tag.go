package models

import "time"

// Tag is shared by every post that uses it. NameKey is the case-folded
// form of Name and the only uniqueness key.
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	NameKey   string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"-"`
	Slug      string    `gorm:"type:varchar(100);index;not null" json:"slug"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
}

type PostTag struct {
	PostID    uint      `gorm:"primaryKey"`
	TagID     uint      `gorm:"primaryKey;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TagUsage is a tag with the number of published posts carrying it.
type TagUsage struct {
	Tag
	PostCount int64 `json:"post_count"`
}
