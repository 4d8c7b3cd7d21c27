package repository

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/justaplayground/devnet/internal/models"
)

// Relation describes a per-caller toggle and the post counter it drives.
type Relation struct {
	Name    string
	Counter string
	row     func(postID, profileID uint) interface{}
}

var (
	RelationLike = Relation{
		Name:    "like",
		Counter: "like_count",
		row:     func(p, u uint) interface{} { return &models.Like{PostID: p, ProfileID: u} },
	}
	RelationBookmark = Relation{
		Name:    "bookmark",
		Counter: "bookmark_count",
		row:     func(p, u uint) interface{} { return &models.Bookmark{PostID: p, ProfileID: u} },
	}
)

const (
	CounterViews    = "view_count"
	CounterComments = "comment_count"
)

type EngagementRepository struct{ db *gorm.DB }

func NewEngagementRepository(db *gorm.DB) *EngagementRepository {
	return &EngagementRepository{db: db}
}

// Remove deletes the caller's relation row and reports whether one existed.
func (r *EngagementRepository) Remove(ctx context.Context, tx *gorm.DB, rel Relation, postID, profileID uint) (bool, error) {
	res := tx.WithContext(ctx).
		Where("post_id = ? AND profile_id = ?", postID, profileID).
		Delete(rel.row(0, 0))
	return res.RowsAffected > 0, res.Error
}

// Add inserts the caller's relation row and reports whether this call created it.
func (r *EngagementRepository) Add(ctx context.Context, tx *gorm.DB, rel Relation, postID, profileID uint) (bool, error) {
	res := tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rel.row(postID, profileID))
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	return res.RowsAffected > 0, res.Error
}

func (r *EngagementRepository) Has(ctx context.Context, rel Relation, postID, profileID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(rel.row(0, 0)).
		Where("post_id = ? AND profile_id = ?", postID, profileID).
		Count(&n).Error
	return n > 0, err
}

// Adjust applies delta to a post counter in one statement. Decrements never
// take a counter below zero.
func (r *EngagementRepository) Adjust(ctx context.Context, tx *gorm.DB, postID uint, counter string, delta int64) error {
	q := conn(r.db, tx).WithContext(ctx).Model(&models.Post{}).Where("id = ?", postID)
	if delta < 0 {
		q = q.Where(counter+" > 0")
	}
	res := q.UpdateColumn(counter, gorm.Expr(counter+" + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 && delta > 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *EngagementRepository) Counter(ctx context.Context, tx *gorm.DB, postID uint, counter string) (int64, error) {
	var n int64
	row := conn(r.db, tx).WithContext(ctx).Model(&models.Post{}).Select(counter).Where("id = ?", postID).Row()
	if err := row.Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrPostNotFound
		}
		return 0, err
	}
	return n, nil
}

func (r *EngagementRepository) CreateComment(ctx context.Context, tx *gorm.DB, c *models.Comment) error {
	return tx.WithContext(ctx).Omit(clause.Associations).Create(c).Error
}

func (r *EngagementRepository) Comments(ctx context.Context, postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at ASC").Order("id ASC").
		Find(&comments).Error
	return comments, err
}

func (r *EngagementRepository) CountComments(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Comment{}).Count(&n).Error
	return n, err
}

// DeleteForPost removes every engagement row that references the post.
func (r *EngagementRepository) DeleteForPost(ctx context.Context, tx *gorm.DB, postID uint) error {
	for _, model := range []interface{}{&models.Like{}, &models.Bookmark{}, &models.Comment{}} {
		if err := tx.WithContext(ctx).Where("post_id = ?", postID).Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}
