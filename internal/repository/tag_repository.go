package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/justaplayground/devnet/internal/models"
)

type TagRepository struct{ db *gorm.DB }

func NewTagRepository(db *gorm.DB) *TagRepository { return &TagRepository{db: db} }

func (r *TagRepository) FindByKey(ctx context.Context, tx *gorm.DB, key string) (*models.Tag, error) {
	var tag models.Tag
	if err := conn(r.db, tx).WithContext(ctx).Where("name_key = ?", key).First(&tag).Error; err != nil {
		return nil, notFound(err, ErrTagNotFound)
	}
	return &tag, nil
}

// InsertIgnore inserts tag unless a row with the same name_key exists. It
// reports whether this call created the row.
func (r *TagRepository) InsertIgnore(ctx context.Context, tx *gorm.DB, tag *models.Tag) (bool, error) {
	res := conn(r.db, tx).WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name_key"}}, DoNothing: true}).
		Create(tag)
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0 && tag.ID != 0, nil
}

// Link associates every tag with the post. Existing pairs are left alone.
func (r *TagRepository) Link(ctx context.Context, tx *gorm.DB, postID uint, tagIDs []uint) error {
	if len(tagIDs) == 0 {
		return nil
	}
	rows := make([]models.PostTag, 0, len(tagIDs))
	for _, id := range tagIDs {
		rows = append(rows, models.PostTag{PostID: postID, TagID: id})
	}
	return conn(r.db, tx).WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

// Unlink removes the post's associations except those with keep tag ids.
func (r *TagRepository) Unlink(ctx context.Context, tx *gorm.DB, postID uint, keep []uint) error {
	q := conn(r.db, tx).WithContext(ctx).Where("post_id = ?", postID)
	if len(keep) > 0 {
		q = q.Where("tag_id NOT IN ?", keep)
	}
	return q.Delete(&models.PostTag{}).Error
}

func (r *TagRepository) ForPost(ctx context.Context, postID uint) ([]models.Tag, error) {
	var tags []models.Tag
	err := r.db.WithContext(ctx).
		Joins("JOIN post_tags ON post_tags.tag_id = tags.id").
		Where("post_tags.post_id = ?", postID).
		Order("tags.name_key").
		Find(&tags).Error
	return tags, err
}

// Popular returns tags ordered by how many published posts carry them.
func (r *TagRepository) Popular(ctx context.Context, limit int) ([]models.TagUsage, error) {
	var usage []models.TagUsage
	err := r.db.WithContext(ctx).
		Table("tags").
		Select("tags.id, tags.name, tags.name_key, tags.slug, tags.created_at, COUNT(posts.id) AS post_count").
		Joins("JOIN post_tags ON post_tags.tag_id = tags.id").
		Joins("JOIN posts ON posts.id = post_tags.post_id AND posts.status = ?", models.StatusPublished).
		Group("tags.id, tags.name, tags.name_key, tags.slug, tags.created_at").
		Order("post_count DESC").Order("tags.name_key").
		Limit(limit).
		Scan(&usage).Error
	return usage, err
}
