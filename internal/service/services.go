package service

import (
	"github.com/justaplayground/devnet/internal/config"
	"github.com/justaplayground/devnet/internal/db"
)

// Services is the wired set of core components sharing one database.
type Services struct {
	Gate       *Gate
	Tags       *TagRegistry
	Posts      *PostService
	Engagement *EngagementService
	Admin      *AdminService
}

func NewServices(database *db.Database, cache PostCache, bootstrap *config.Bootstrap, pageSize int) *Services {
	gate := NewGate(database, bootstrap)
	tags := NewTagRegistry(database)
	return &Services{
		Gate:       gate,
		Tags:       tags,
		Posts:      NewPostService(database, cache, gate, tags, pageSize),
		Engagement: NewEngagementService(database, cache, gate),
		Admin:      NewAdminService(database, gate),
	}
}
