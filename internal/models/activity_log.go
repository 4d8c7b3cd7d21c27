package models

import "time"

const (
	ActionCreatePost  = "create_post"
	ActionDeletePost  = "delete_post"
	ActionPublish     = "publish"
	ActionUnpublish   = "unpublish"
	ActionToggleAdmin = "toggle_admin"
	ActionToggleMod   = "toggle_moderator"
	ActionBootstrap   = "bootstrap_role"
)

type ActivityLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Action    string    `gorm:"type:varchar(50);not null" json:"action"`
	ActorID   uint      `gorm:"index" json:"actor_id"`
	PostID    *uint     `gorm:"index" json:"post_id,omitempty"`
	ProfileID *uint     `gorm:"index" json:"profile_id,omitempty"`
	Detail    string    `gorm:"type:varchar(255)" json:"detail,omitempty"`
	LoggedAt  time.Time `gorm:"autoCreateTime" json:"logged_at"`
}

// All lists every model the schema migration must create.
func All() []interface{} {
	return []interface{}{
		&Profile{}, &Post{}, &Tag{}, &PostTag{},
		&Like{}, &Bookmark{}, &Comment{}, &ActivityLog{},
	}
}
