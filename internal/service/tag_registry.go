package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/justaplayground/devnet/internal/db"
	"github.com/justaplayground/devnet/internal/models"
	"github.com/justaplayground/devnet/internal/repository"
	"github.com/justaplayground/devnet/internal/slug"
)

const maxPopularTags = 50

// tagStore is the slice of TagRepository the registry depends on.
type tagStore interface {
	FindByKey(ctx context.Context, tx *gorm.DB, key string) (*models.Tag, error)
	InsertIgnore(ctx context.Context, tx *gorm.DB, tag *models.Tag) (bool, error)
	Link(ctx context.Context, tx *gorm.DB, postID uint, tagIDs []uint) error
	Unlink(ctx context.Context, tx *gorm.DB, postID uint, keep []uint) error
	Popular(ctx context.Context, limit int) ([]models.TagUsage, error)
}

// TagRegistry resolves tag names to shared Tag rows and links them to posts.
type TagRegistry struct {
	tags  tagStore
	posts *repository.PostRepository
}

func NewTagRegistry(database *db.Database) *TagRegistry {
	return &TagRegistry{
		tags:  repository.NewTagRepository(database.Gorm),
		posts: repository.NewPostRepository(database.Gorm),
	}
}

type tagName struct {
	name string
	key  string
	slug string
}

// normalizeTags collapses whitespace, drops blanks and keeps the first
// occurrence of each case-folded name.
func normalizeTags(names []string) ([]tagName, error) {
	out := make([]tagName, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, raw := range names {
		name := strings.Join(strings.Fields(raw), " ")
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		s := slug.Make(name)
		if s == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTag, raw)
		}
		seen[key] = true
		out = append(out, tagName{name: name, key: key, slug: s})
	}
	return out, nil
}

// EnsureTags returns one Tag per distinct name, creating the missing ones.
// Concurrent callers asking for the same new name end up with the same row.
func (r *TagRegistry) EnsureTags(ctx context.Context, names []string) ([]models.Tag, error) {
	normalized, err := normalizeTags(names)
	if err != nil {
		return nil, err
	}
	return r.ensure(ctx, nil, normalized)
}

// LinkTags associates tags with an existing post. Pairs that are already
// linked are left as they are.
func (r *TagRegistry) LinkTags(ctx context.Context, postID uint, tags []models.Tag) error {
	if _, err := r.posts.GetByID(ctx, nil, postID); err != nil {
		return err
	}
	return r.tags.Link(ctx, nil, postID, tagIDs(tags))
}

func (r *TagRegistry) Popular(ctx context.Context, limit int) ([]models.TagUsage, error) {
	if limit <= 0 || limit > maxPopularTags {
		limit = maxPopularTags
	}
	return r.tags.Popular(ctx, limit)
}

func (r *TagRegistry) ensure(ctx context.Context, tx *gorm.DB, names []tagName) ([]models.Tag, error) {
	tags := make([]models.Tag, 0, len(names))
	for _, n := range names {
		tag, err := r.resolve(ctx, tx, n)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *tag)
	}
	return tags, nil
}

func (r *TagRegistry) resolve(ctx context.Context, tx *gorm.DB, n tagName) (*models.Tag, error) {
	tag, err := r.tags.FindByKey(ctx, tx, n.key)
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, repository.ErrTagNotFound) {
		return nil, err
	}

	tag = &models.Tag{Name: n.name, NameKey: n.key, Slug: n.slug}
	created, err := r.tags.InsertIgnore(ctx, tx, tag)
	if err != nil {
		return nil, err
	}
	if created {
		return tag, nil
	}

	// Lost the insert to a concurrent caller; its row is the tag.
	tag, err = r.tags.FindByKey(ctx, tx, n.key)
	if errors.Is(err, repository.ErrTagNotFound) {
		return nil, ErrTagConflict
	}
	return tag, err
}

// replace makes tags the post's exact tag set.
func (r *TagRegistry) replace(ctx context.Context, tx *gorm.DB, postID uint, tags []models.Tag) error {
	ids := tagIDs(tags)
	if err := r.tags.Unlink(ctx, tx, postID, ids); err != nil {
		return err
	}
	return r.tags.Link(ctx, tx, postID, ids)
}

func tagIDs(tags []models.Tag) []uint {
	ids := make([]uint, 0, len(tags))
	for _, t := range tags {
		ids = append(ids, t.ID)
	}
	return ids
}
