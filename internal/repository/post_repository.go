package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/justaplayground/devnet/internal/models"
)

type PostRepository struct{ db *gorm.DB }

func NewPostRepository(db *gorm.DB) *PostRepository { return &PostRepository{db: db} }

// Create inserts the post row only; tags are linked separately.
func (r *PostRepository) Create(ctx context.Context, tx *gorm.DB, p *models.Post) error {
	err := tx.WithContext(ctx).Omit(clause.Associations).Create(p).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrSlugTaken
	}
	return err
}

func (r *PostRepository) SlugExists(ctx context.Context, tx *gorm.DB, slug string) (bool, error) {
	var n int64
	err := conn(r.db, tx).WithContext(ctx).Model(&models.Post{}).Where("slug = ?", slug).Count(&n).Error
	return n > 0, err
}

func (r *PostRepository) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Post, error) {
	var post models.Post
	if err := conn(r.db, tx).WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, notFound(err, ErrPostNotFound)
	}
	return &post, nil
}

// GetFull loads the post with its author and tags.
func (r *PostRepository) GetFull(ctx context.Context, tx *gorm.DB, id uint) (*models.Post, error) {
	var post models.Post
	err := conn(r.db, tx).WithContext(ctx).
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name_key") }).
		First(&post, id).Error
	if err != nil {
		return nil, notFound(err, ErrPostNotFound)
	}
	return &post, nil
}

func (r *PostRepository) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name_key") }).
		Where("slug = ?", slug).
		First(&post).Error
	if err != nil {
		return nil, notFound(err, ErrPostNotFound)
	}
	return &post, nil
}

func (r *PostRepository) UpdateContent(ctx context.Context, tx *gorm.DB, p *models.Post) error {
	return tx.WithContext(ctx).Model(&models.Post{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
		"title":   p.Title,
		"content": p.Content,
		"excerpt": p.Excerpt,
	}).Error
}

// UpdateStatus moves the post from one status to another only if it is still
// in from. A concurrent change makes it fail with ErrStatusChanged.
func (r *PostRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, from, to models.PostStatus, publishedAt *time.Time) error {
	res := tx.WithContext(ctx).Model(&models.Post{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":       to,
			"published_at": publishedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusChanged
	}
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	res := tx.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPostNotFound
	}
	return nil
}

// ListPublished returns published posts, newest first. A non-empty tagSlug
// restricts the result to posts carrying a tag with that slug.
func (r *PostRepository) ListPublished(ctx context.Context, tagSlug string, limit, offset int) ([]models.Post, error) {
	q := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name_key") }).
		Where("status = ?", models.StatusPublished)
	if tagSlug != "" {
		sub := r.db.Table("post_tags").
			Select("post_tags.post_id").
			Joins("JOIN tags ON tags.id = post_tags.tag_id").
			Where("tags.slug = ?", tagSlug)
		q = q.Where("id IN (?)", sub)
	}
	var posts []models.Post
	err := q.Order("published_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&posts).Error
	return posts, err
}

// ListRecent returns the newest posts of any status with their authors.
func (r *PostRepository) ListRecent(ctx context.Context, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.WithContext(ctx).Preload("Author").
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Find(&posts).Error
	return posts, err
}

func (r *PostRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).Count(&n).Error
	return n, err
}

func (r *PostRepository) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).Where("created_at >= ?", since).Count(&n).Error
	return n, err
}

func (r *PostRepository) CountPublishedBy(ctx context.Context, authorID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("author_id = ? AND status = ?", authorID, models.StatusPublished).
		Count(&n).Error
	return n, err
}

func (r *PostRepository) LogActivity(ctx context.Context, tx *gorm.DB, entry *models.ActivityLog) error {
	return tx.WithContext(ctx).Create(entry).Error
}

func (r *PostRepository) Activity(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	var entries []models.ActivityLog
	err := r.db.WithContext(ctx).Order("logged_at DESC").Order("id DESC").Limit(limit).Find(&entries).Error
	return entries, err
}
