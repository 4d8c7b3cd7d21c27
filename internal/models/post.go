package models

import "time"

type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusPublished PostStatus = "published"
)

func (s PostStatus) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

type Post struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Title         string     `gorm:"type:varchar(255);not null" json:"title"`
	Content       string     `gorm:"type:text;not null" json:"content"`
	Excerpt       string     `gorm:"type:text" json:"excerpt"`
	Slug          string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"slug"`
	Status        PostStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	AuthorID      uint       `gorm:"not null;index" json:"author_id"`
	Author        *Profile   `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	PublishedAt   *time.Time `gorm:"index" json:"published_at"`
	LikeCount     int64      `gorm:"not null;default:0" json:"like_count"`
	CommentCount  int64      `gorm:"not null;default:0" json:"comment_count"`
	BookmarkCount int64      `gorm:"not null;default:0" json:"bookmark_count"`
	ViewCount     int64      `gorm:"not null;default:0" json:"view_count"`
	Tags          []Tag      `gorm:"many2many:post_tags;" json:"tags"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Post) Published() bool { return p.Status == StatusPublished }
