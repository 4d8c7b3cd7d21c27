package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/justaplayground/devnet/internal/db"
	"github.com/justaplayground/devnet/internal/models"
	"github.com/justaplayground/devnet/internal/repository"
	"github.com/justaplayground/devnet/internal/slug"
)

const (
	excerptLen    = 200
	excerptMarker = "..."
	maxPageSize   = 50
	slugAttempts  = 3
)

// PostCache is the read-through cache in front of post lookups by slug.
type PostCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}) error
	Del(ctx context.Context, key string) error
}

type noopCache struct{}

func (noopCache) GetJSON(context.Context, string, interface{}) (bool, error) { return false, nil }
func (noopCache) SetJSON(context.Context, string, interface{}) error        { return nil }
func (noopCache) Del(context.Context, string) error                         { return nil }

func postKey(postSlug string) string { return "post:" + postSlug }

type PostService struct {
	db       *db.Database
	cache    PostCache
	gate     *Gate
	tags     *TagRegistry
	posts    *repository.PostRepository
	profiles *repository.ProfileRepository
	engage   *repository.EngagementRepository
	pageSize int
	now      func() time.Time
}

func NewPostService(database *db.Database, cache PostCache, gate *Gate, tags *TagRegistry, pageSize int) *PostService {
	if cache == nil {
		cache = noopCache{}
	}
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = 10
	}
	return &PostService{
		db:       database,
		cache:    cache,
		gate:     gate,
		tags:     tags,
		posts:    repository.NewPostRepository(database.Gorm),
		profiles: repository.NewProfileRepository(database.Gorm),
		engage:   repository.NewEngagementRepository(database.Gorm),
		pageSize: pageSize,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SaveInput is an authored post. ID zero creates a post; otherwise the post
// with that ID is updated.
type SaveInput struct {
	ID      uint     `json:"-"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Excerpt string   `json:"excerpt"`
	Tags    []string `json:"tags"`
}

type draft struct {
	title   string
	content string
	excerpt string
	slug    string
	status  models.PostStatus
	tags    []tagName
}

func validate(in SaveInput, status models.PostStatus) (*draft, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, ErrEmptyContent
	}
	s := slug.Make(title)
	if s == "" {
		return nil, ErrEmptySlug
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}
	return &draft{
		title:   title,
		content: in.Content,
		excerpt: deriveExcerpt(in.Excerpt, in.Content),
		slug:    s,
		status:  status,
		tags:    tags,
	}, nil
}

// deriveExcerpt keeps a supplied excerpt, otherwise takes the first
// excerptLen runes of content followed by the truncation marker.
func deriveExcerpt(excerpt, content string) string {
	if e := strings.TrimSpace(excerpt); e != "" {
		return e
	}
	r := []rune(content)
	if len(r) > excerptLen {
		r = r[:excerptLen]
	}
	return string(r) + excerptMarker
}

// Save validates input and creates or updates the post in one unit of work.
// The returned post carries its author and tags.
func (s *PostService) Save(ctx context.Context, in SaveInput, status models.PostStatus, caller Caller) (*models.Post, error) {
	d, err := validate(in, status)
	if err != nil {
		return nil, err
	}
	if in.ID == 0 {
		return s.create(ctx, d, caller)
	}
	return s.update(ctx, in.ID, d, caller)
}

func (s *PostService) create(ctx context.Context, d *draft, caller Caller) (*models.Post, error) {
	if err := s.gate.Require(caller, ActionCreatePost, nil); err != nil {
		return nil, err
	}
	var id uint
	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		postSlug, err := s.uniqueSlug(ctx, tx, d.slug)
		if err != nil {
			return err
		}
		post := &models.Post{
			Title:    d.title,
			Content:  d.content,
			Excerpt:  d.excerpt,
			Slug:     postSlug,
			Status:   d.status,
			AuthorID: caller.ProfileID,
		}
		if post.Published() {
			t := s.now()
			post.PublishedAt = &t
		}
		if err := s.posts.Create(ctx, tx, post); err != nil {
			return err
		}
		tags, err := s.tags.ensure(ctx, tx, d.tags)
		if err != nil {
			return err
		}
		if err := s.tags.replace(ctx, tx, post.ID, tags); err != nil {
			return err
		}
		if post.Published() {
			if err := s.profiles.AdjustPostCount(ctx, tx, caller.ProfileID, 1); err != nil {
				return err
			}
		}
		id = post.ID
		return s.posts.LogActivity(ctx, tx, &models.ActivityLog{
			Action:  models.ActionCreatePost,
			ActorID: caller.ProfileID,
			PostID:  &post.ID,
			Detail:  string(post.Status),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.posts.GetFull(ctx, nil, id)
}

// uniqueSlug returns base, or base with a short random suffix when base is
// already taken by another post.
func (s *PostService) uniqueSlug(ctx context.Context, tx *gorm.DB, base string) (string, error) {
	candidate := base
	for i := 0; i < slugAttempts; i++ {
		taken, err := s.posts.SlugExists(ctx, tx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + "-" + uuid.NewString()[:8]
	}
	return "", repository.ErrSlugTaken
}

func (s *PostService) update(ctx context.Context, id uint, d *draft, caller Caller) (*models.Post, error) {
	var postSlug string
	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		post, err := s.posts.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.gate.Require(caller, ActionEditPost, post); err != nil {
			return err
		}
		postSlug = post.Slug

		post.Title, post.Content, post.Excerpt = d.title, d.content, d.excerpt
		if err := s.posts.UpdateContent(ctx, tx, post); err != nil {
			return err
		}
		tags, err := s.tags.ensure(ctx, tx, d.tags)
		if err != nil {
			return err
		}
		if err := s.tags.replace(ctx, tx, post.ID, tags); err != nil {
			return err
		}
		return s.transition(ctx, tx, post, d.status, caller)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, postSlug)
	return s.posts.GetFull(ctx, nil, id)
}

// transition moves post to status, keeping published_at and the author's
// post_count in step. Same-status transitions are no-ops.
func (s *PostService) transition(ctx context.Context, tx *gorm.DB, post *models.Post, to models.PostStatus, caller Caller) error {
	from := post.Status
	if from == to {
		return nil
	}
	var publishedAt *time.Time
	delta, action := int64(-1), models.ActionUnpublish
	if to == models.StatusPublished {
		t := s.now()
		publishedAt = &t
		delta, action = 1, models.ActionPublish
	}
	if err := s.posts.UpdateStatus(ctx, tx, post.ID, from, to, publishedAt); err != nil {
		return err
	}
	if err := s.profiles.AdjustPostCount(ctx, tx, post.AuthorID, delta); err != nil {
		return err
	}
	post.Status, post.PublishedAt = to, publishedAt
	return s.posts.LogActivity(ctx, tx, &models.ActivityLog{
		Action:  action,
		ActorID: caller.ProfileID,
		PostID:  &post.ID,
	})
}

// ChangeStatus publishes or unpublishes a post. Moderators and admins may do
// so for any post, authors for their own.
func (s *PostService) ChangeStatus(ctx context.Context, id uint, status models.PostStatus, caller Caller) (*models.Post, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	var postSlug string
	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		post, err := s.posts.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.gate.Require(caller, ActionChangeStatus, post); err != nil {
			return err
		}
		postSlug = post.Slug
		return s.transition(ctx, tx, post, status, caller)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, postSlug)
	return s.posts.GetFull(ctx, nil, id)
}

// Delete removes the post together with its tag links and engagement.
func (s *PostService) Delete(ctx context.Context, id uint, caller Caller) error {
	var postSlug string
	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		post, err := s.posts.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.gate.Require(caller, ActionDeletePost, post); err != nil {
			return err
		}
		postSlug = post.Slug

		if err := s.tags.replace(ctx, tx, post.ID, nil); err != nil {
			return err
		}
		if err := s.engage.DeleteForPost(ctx, tx, post.ID); err != nil {
			return err
		}
		if err := s.posts.Delete(ctx, tx, post.ID); err != nil {
			return err
		}
		if post.Published() {
			if err := s.profiles.AdjustPostCount(ctx, tx, post.AuthorID, -1); err != nil {
				return err
			}
		}
		return s.posts.LogActivity(ctx, tx, &models.ActivityLog{
			Action:  models.ActionDeletePost,
			ActorID: caller.ProfileID,
			PostID:  &post.ID,
			Detail:  post.Slug,
		})
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, postSlug)
	return nil
}

// GetBySlug returns a published post to anyone and a draft only to its
// author and to staff. Hidden drafts are reported as not found.
func (s *PostService) GetBySlug(ctx context.Context, postSlug string, caller Caller) (*models.Post, error) {
	key := postKey(postSlug)
	var post models.Post
	found, err := s.cache.GetJSON(ctx, key, &post)
	if err != nil {
		log.Printf("cache get %s: %v", key, err)
	}
	p := &post
	if !found || err != nil {
		if p, err = s.posts.GetBySlug(ctx, postSlug); err != nil {
			return nil, err
		}
		if err := s.cache.SetJSON(ctx, key, p); err != nil {
			log.Printf("cache set %s: %v", key, err)
		}
	}
	if !p.Published() && !Authorize(caller, ActionViewDraft, p).Allowed {
		return nil, repository.ErrPostNotFound
	}
	return p, nil
}

type FeedQuery struct {
	TagSlug string
	Limit   int
	Offset  int
}

// Feed lists published posts, most recently published first.
func (s *PostService) Feed(ctx context.Context, q FeedQuery) ([]models.Post, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = s.pageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	return s.posts.ListPublished(ctx, strings.TrimSpace(q.TagSlug), limit, offset)
}

func (s *PostService) invalidate(ctx context.Context, postSlug string) {
	if postSlug == "" {
		return
	}
	if err := s.cache.Del(ctx, postKey(postSlug)); err != nil {
		log.Printf("cache del %s: %v", postKey(postSlug), err)
	}
}
