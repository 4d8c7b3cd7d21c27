package service

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/justaplayground/devnet/internal/config"
	"github.com/justaplayground/devnet/internal/db"
	"github.com/justaplayground/devnet/internal/models"
	"github.com/justaplayground/devnet/internal/repository"
)

const defaultAdminListLimit = 50

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
)

var roleFlags = map[Role]string{
	RoleAdmin:     repository.FlagAdmin,
	RoleModerator: repository.FlagModerator,
}

type Stats struct {
	TotalUsers    int64 `json:"total_users"`
	TotalPosts    int64 `json:"total_posts"`
	TotalComments int64 `json:"total_comments"`
	PostsToday    int64 `json:"posts_today"`
}

// AdminService backs the dashboard and role management.
type AdminService struct {
	db       *db.Database
	gate     *Gate
	posts    *repository.PostRepository
	profiles *repository.ProfileRepository
	engage   *repository.EngagementRepository
	now      func() time.Time
}

func NewAdminService(database *db.Database, gate *Gate) *AdminService {
	return &AdminService{
		db:       database,
		gate:     gate,
		posts:    repository.NewPostRepository(database.Gorm),
		profiles: repository.NewProfileRepository(database.Gorm),
		engage:   repository.NewEngagementRepository(database.Gorm),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *AdminService) Stats(ctx context.Context, caller Caller) (*Stats, error) {
	if err := s.gate.Require(caller, ActionViewAdmin, nil); err != nil {
		return nil, err
	}
	var (
		st  Stats
		err error
	)
	if st.TotalUsers, err = s.profiles.Count(ctx); err != nil {
		return nil, err
	}
	if st.TotalPosts, err = s.posts.Count(ctx); err != nil {
		return nil, err
	}
	if st.TotalComments, err = s.engage.CountComments(ctx); err != nil {
		return nil, err
	}
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if st.PostsToday, err = s.posts.CountCreatedSince(ctx, midnight); err != nil {
		return nil, err
	}
	return &st, nil
}

// UserView is the staff-only shape of a profile, carrying the identity fields
// that public payloads omit.
type UserView struct {
	models.Profile
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

func (s *AdminService) Users(ctx context.Context, caller Caller, limit int) ([]UserView, error) {
	if err := s.gate.Require(caller, ActionViewAdmin, nil); err != nil {
		return nil, err
	}
	profiles, err := s.profiles.List(ctx, listLimit(limit))
	if err != nil {
		return nil, err
	}
	views := make([]UserView, 0, len(profiles))
	for _, p := range profiles {
		views = append(views, UserView{Profile: p, UserID: p.UserID, Email: p.Email})
	}
	return views, nil
}

func (s *AdminService) Posts(ctx context.Context, caller Caller, limit int) ([]models.Post, error) {
	if err := s.gate.Require(caller, ActionViewAdmin, nil); err != nil {
		return nil, err
	}
	return s.posts.ListRecent(ctx, listLimit(limit))
}

func (s *AdminService) Activity(ctx context.Context, caller Caller, limit int) ([]models.ActivityLog, error) {
	if err := s.gate.Require(caller, ActionViewAdmin, nil); err != nil {
		return nil, err
	}
	return s.posts.Activity(ctx, listLimit(limit))
}

func listLimit(limit int) int {
	if limit <= 0 || limit > defaultAdminListLimit {
		return defaultAdminListLimit
	}
	return limit
}

// ToggleRole flips role on the target profile and returns the new value.
// Removing the admin flag from the only remaining admin is refused.
func (s *AdminService) ToggleRole(ctx context.Context, targetID uint, role Role, caller Caller) (bool, error) {
	if err := s.gate.Require(caller, ActionToggleRole, nil); err != nil {
		return false, err
	}
	flag, ok := roleFlags[role]
	if !ok {
		return false, ErrUnknownRole
	}
	var value bool
	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		target, err := s.profiles.GetByID(ctx, tx, targetID)
		if err != nil {
			return err
		}
		if role == RoleAdmin && target.IsAdmin {
			admins, err := s.profiles.CountAdmins(ctx, tx)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return ErrLastAdmin
			}
		}
		if value, err = s.profiles.ToggleFlag(ctx, tx, targetID, flag); err != nil {
			return err
		}
		action := models.ActionToggleMod
		if role == RoleAdmin {
			action = models.ActionToggleAdmin
		}
		return s.posts.LogActivity(ctx, tx, &models.ActivityLog{
			Action:    action,
			ActorID:   caller.ProfileID,
			ProfileID: &targetID,
			Detail:    fmt.Sprintf("%s=%t", flag, value),
		})
	})
	return value, err
}

// ApplyBootstrap grants the roles listed in b to profiles that already
// exist. It returns the number of flags it switched on.
func (s *AdminService) ApplyBootstrap(ctx context.Context, b *config.Bootstrap) (int, error) {
	if b == nil || len(b.Admins)+len(b.Moderators) == 0 {
		return 0, nil
	}
	profiles, err := s.profiles.ListByUserIDs(ctx, append(append([]string{}, b.Admins...), b.Moderators...))
	if err != nil {
		return 0, err
	}
	granted := 0
	err = s.db.Transaction(ctx, func(tx *gorm.DB) error {
		for i := range profiles {
			p := &profiles[i]
			grants := []struct {
				want bool
				has  bool
				flag string
			}{
				{b.IsAdmin(p.UserID), p.IsAdmin, repository.FlagAdmin},
				{b.IsModerator(p.UserID), p.IsModerator, repository.FlagModerator},
			}
			for _, g := range grants {
				if !g.want || g.has {
					continue
				}
				if err := s.profiles.SetFlag(ctx, tx, p.ID, g.flag, true); err != nil {
					return err
				}
				if err := s.posts.LogActivity(ctx, tx, &models.ActivityLog{
					Action:    models.ActionBootstrap,
					ProfileID: &p.ID,
					Detail:    g.flag + "=true",
				}); err != nil {
					return err
				}
				granted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return granted, nil
}
