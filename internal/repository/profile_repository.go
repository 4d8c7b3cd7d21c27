package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/justaplayground/devnet/internal/models"
)

// Role flag columns. ToggleFlag and SetFlag accept nothing else.
const (
	FlagAdmin     = "is_admin"
	FlagModerator = "is_moderator"
)

type ProfileRepository struct{ db *gorm.DB }

func NewProfileRepository(db *gorm.DB) *ProfileRepository { return &ProfileRepository{db: db} }

func (r *ProfileRepository) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Profile, error) {
	var p models.Profile
	if err := conn(r.db, tx).WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, notFound(err, ErrProfileNotFound)
	}
	return &p, nil
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, notFound(err, ErrProfileNotFound)
	}
	return &p, nil
}

func (r *ProfileRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Profile{}).Where("username = ?", username).Count(&n).Error
	return n > 0, err
}

// InsertIgnore creates the profile unless one already exists for its user id.
// A username collision is returned as gorm.ErrDuplicatedKey.
func (r *ProfileRepository) InsertIgnore(ctx context.Context, p *models.Profile) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(p)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0 && p.ID != 0, nil
}

func (r *ProfileRepository) AdjustPostCount(ctx context.Context, tx *gorm.DB, id uint, delta int64) error {
	if delta == 0 {
		return nil
	}
	q := tx.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id)
	if delta < 0 {
		q = q.Where("post_count > 0")
	}
	return q.UpdateColumn("post_count", gorm.Expr("post_count + ?", delta)).Error
}

// ToggleFlag flips a role flag in a single statement and returns the new value.
func (r *ProfileRepository) ToggleFlag(ctx context.Context, tx *gorm.DB, id uint, flag string) (bool, error) {
	if err := checkFlag(flag); err != nil {
		return false, err
	}
	res := tx.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).
		UpdateColumn(flag, gorm.Expr("NOT "+flag))
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, ErrProfileNotFound
	}
	return r.flag(ctx, tx, id, flag)
}

func (r *ProfileRepository) SetFlag(ctx context.Context, tx *gorm.DB, id uint, flag string, value bool) error {
	if err := checkFlag(flag); err != nil {
		return err
	}
	return tx.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).UpdateColumn(flag, value).Error
}

func (r *ProfileRepository) flag(ctx context.Context, tx *gorm.DB, id uint, flag string) (bool, error) {
	var p models.Profile
	if err := tx.WithContext(ctx).Select("id", flag).First(&p, id).Error; err != nil {
		return false, notFound(err, ErrProfileNotFound)
	}
	if flag == FlagAdmin {
		return p.IsAdmin, nil
	}
	return p.IsModerator, nil
}

func (r *ProfileRepository) CountAdmins(ctx context.Context, tx *gorm.DB) (int64, error) {
	var n int64
	err := conn(r.db, tx).WithContext(ctx).Model(&models.Profile{}).Where("is_admin = ?", true).Count(&n).Error
	return n, err
}

func (r *ProfileRepository) List(ctx context.Context, limit int) ([]models.Profile, error) {
	var profiles []models.Profile
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit).Find(&profiles).Error
	return profiles, err
}

func (r *ProfileRepository) ListByUserIDs(ctx context.Context, userIDs []string) ([]models.Profile, error) {
	var profiles []models.Profile
	if len(userIDs) == 0 {
		return profiles, nil
	}
	err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&profiles).Error
	return profiles, err
}

func (r *ProfileRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Profile{}).Count(&n).Error
	return n, err
}

func checkFlag(flag string) error {
	if flag != FlagAdmin && flag != FlagModerator {
		return fmt.Errorf("repository: unknown role flag %q", flag)
	}
	return nil
}
