package service

import (
	"context"
	"log"
	"strings"

	"gorm.io/gorm"

	"github.com/justaplayground/devnet/internal/db"
	"github.com/justaplayground/devnet/internal/models"
	"github.com/justaplayground/devnet/internal/repository"
)

// ToggleResult is the caller's relation state and the post counter after a
// toggle.
type ToggleResult struct {
	Active bool  `json:"active"`
	Count  int64 `json:"count"`
}

// EngagementState is what the caller currently holds on a post.
type EngagementState struct {
	Liked      bool `json:"liked"`
	Bookmarked bool `json:"bookmarked"`
}

// EngagementService keeps likes, bookmarks, comments and views in step with
// the post counters that summarize them.
type EngagementService struct {
	db     *db.Database
	cache  PostCache
	gate   *Gate
	posts  *repository.PostRepository
	engage *repository.EngagementRepository
}

func NewEngagementService(database *db.Database, cache PostCache, gate *Gate) *EngagementService {
	if cache == nil {
		cache = noopCache{}
	}
	return &EngagementService{
		db:     database,
		cache:  cache,
		gate:   gate,
		posts:  repository.NewPostRepository(database.Gorm),
		engage: repository.NewEngagementRepository(database.Gorm),
	}
}

func (s *EngagementService) ToggleLike(ctx context.Context, postID uint, caller Caller) (ToggleResult, error) {
	return s.toggle(ctx, repository.RelationLike, ActionLike, postID, caller)
}

func (s *EngagementService) ToggleBookmark(ctx context.Context, postID uint, caller Caller) (ToggleResult, error) {
	return s.toggle(ctx, repository.RelationBookmark, ActionBookmark, postID, caller)
}

// toggle flips the caller's relation and moves the counter by one in the
// same transaction.
func (s *EngagementService) toggle(ctx context.Context, rel repository.Relation, action Action, postID uint, caller Caller) (ToggleResult, error) {
	if err := s.gate.Require(caller, action, nil); err != nil {
		return ToggleResult{}, err
	}
	var (
		res      ToggleResult
		postSlug string
	)
	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		post, err := s.visiblePost(ctx, tx, postID, caller)
		if err != nil {
			return err
		}
		postSlug = post.Slug

		removed, err := s.engage.Remove(ctx, tx, rel, postID, caller.ProfileID)
		if err != nil {
			return err
		}
		active := false
		if !removed {
			if active, err = s.engage.Add(ctx, tx, rel, postID, caller.ProfileID); err != nil {
				return err
			}
			if !active {
				// A concurrent toggle by the same caller inserted first.
				if removed, err = s.engage.Remove(ctx, tx, rel, postID, caller.ProfileID); err != nil {
					return err
				}
			}
		}

		var delta int64
		switch {
		case active:
			delta = 1
		case removed:
			delta = -1
		}
		if delta != 0 {
			if err := s.engage.Adjust(ctx, tx, postID, rel.Counter, delta); err != nil {
				return err
			}
		}
		count, err := s.engage.Counter(ctx, tx, postID, rel.Counter)
		if err != nil {
			return err
		}
		res = ToggleResult{Active: active, Count: count}
		return nil
	})
	if err != nil {
		return ToggleResult{}, err
	}
	s.invalidate(ctx, postSlug)
	return res, nil
}

// RecordView counts one view. Views are not deduplicated per caller.
func (s *EngagementService) RecordView(ctx context.Context, postID uint, caller Caller) (int64, error) {
	var count int64
	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		post, err := s.visiblePost(ctx, tx, postID, caller)
		if err != nil {
			return err
		}
		if err := s.gate.Require(caller, ActionView, post); err != nil {
			return err
		}
		if err := s.engage.Adjust(ctx, tx, postID, repository.CounterViews, 1); err != nil {
			return err
		}
		count, err = s.engage.Counter(ctx, tx, postID, repository.CounterViews)
		return err
	})
	return count, err
}

// AddComment stores a comment and bumps comment_count together. It returns
// the comment and the new count.
func (s *EngagementService) AddComment(ctx context.Context, postID uint, caller Caller, body string) (*models.Comment, int64, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, 0, ErrEmptyComment
	}
	if err := s.gate.Require(caller, ActionComment, nil); err != nil {
		return nil, 0, err
	}
	comment := &models.Comment{PostID: postID, AuthorID: caller.ProfileID, Body: body}
	var (
		count    int64
		postSlug string
	)
	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		post, err := s.visiblePost(ctx, tx, postID, caller)
		if err != nil {
			return err
		}
		postSlug = post.Slug
		if err := s.engage.CreateComment(ctx, tx, comment); err != nil {
			return err
		}
		if err := s.engage.Adjust(ctx, tx, postID, repository.CounterComments, 1); err != nil {
			return err
		}
		count, err = s.engage.Counter(ctx, tx, postID, repository.CounterComments)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	s.invalidate(ctx, postSlug)
	return comment, count, nil
}

func (s *EngagementService) ListComments(ctx context.Context, postID uint, caller Caller) ([]models.Comment, error) {
	if _, err := s.visiblePost(ctx, nil, postID, caller); err != nil {
		return nil, err
	}
	return s.engage.Comments(ctx, postID)
}

// State reports the caller's like and bookmark on a post. Anonymous callers
// hold neither.
func (s *EngagementService) State(ctx context.Context, postID uint, caller Caller) (EngagementState, error) {
	if _, err := s.visiblePost(ctx, nil, postID, caller); err != nil {
		return EngagementState{}, err
	}
	if !caller.Authenticated() {
		return EngagementState{}, nil
	}
	liked, err := s.engage.Has(ctx, repository.RelationLike, postID, caller.ProfileID)
	if err != nil {
		return EngagementState{}, err
	}
	bookmarked, err := s.engage.Has(ctx, repository.RelationBookmark, postID, caller.ProfileID)
	if err != nil {
		return EngagementState{}, err
	}
	return EngagementState{Liked: liked, Bookmarked: bookmarked}, nil
}

// visiblePost loads the post, hiding drafts from callers who may not see
// them.
func (s *EngagementService) visiblePost(ctx context.Context, tx *gorm.DB, postID uint, caller Caller) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, tx, postID)
	if err != nil {
		return nil, err
	}
	if !post.Published() && !Authorize(caller, ActionViewDraft, post).Allowed {
		return nil, repository.ErrPostNotFound
	}
	return post, nil
}

func (s *EngagementService) invalidate(ctx context.Context, postSlug string) {
	if err := s.cache.Del(ctx, postKey(postSlug)); err != nil {
		log.Printf("cache del %s: %v", postKey(postSlug), err)
	}
}
