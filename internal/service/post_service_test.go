package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/justaplayground/devnet/internal/apperror"
	"github.com/justaplayground/devnet/internal/identity"
	"github.com/justaplayground/devnet/internal/models"
	"github.com/justaplayground/devnet/internal/repository"
)

func TestSaveCreatesDraftWithCaseFoldedTags(t *testing.T) {
	env := newTestEnv(t, nil)
	author := env.caller(t, "author")

	post := env.mustSave(t, SaveInput{
		Title:   "My First Post",
		Content: "Hello **world**",
		Tags:    []string{"React", "react"},
	}, models.StatusDraft, author)

	if post.Slug != "my-first-post" {
		t.Fatalf("expected slug my-first-post, got %q", post.Slug)
	}
	if post.Status != models.StatusDraft {
		t.Fatalf("expected draft, got %s", post.Status)
	}
	if post.PublishedAt != nil {
		t.Fatalf("expected no published timestamp, got %v", post.PublishedAt)
	}
	if len(post.Tags) != 1 || post.Tags[0].Name != "React" {
		t.Fatalf("expected exactly one tag React, got %+v", post.Tags)
	}
	if n := env.count(t, &models.Tag{}); n != 1 {
		t.Fatalf("expected 1 tag row, got %d", n)
	}
	if post.AuthorID != author.ProfileID || post.Author == nil {
		t.Fatalf("expected author %d preloaded, got %d %v", author.ProfileID, post.AuthorID, post.Author)
	}
	if env.profile(t, author.ProfileID).PostCount != 0 {
		t.Fatal("drafts must not count towards post_count")
	}
}

func TestSavePublishedSetsTimestampAndCount(t *testing.T) {
	env := newTestEnv(t, nil)
	author := env.caller(t, "author")

	post := env.mustSave(t, SaveInput{Title: "Launch", Content: "now"}, models.StatusPublished, author)
	if post.PublishedAt == nil || !post.PublishedAt.Equal(fixedNow) {
		t.Fatalf("expected published_at %v, got %v", fixedNow, post.PublishedAt)
	}
	if got := env.profile(t, author.ProfileID).PostCount; got != 1 {
		t.Fatalf("expected post_count 1, got %d", got)
	}
}

func TestSaveValidationHasNoSideEffects(t *testing.T) {
	env := newTestEnv(t, nil)
	author := env.caller(t, "author")

	tests := []struct {
		name   string
		in     SaveInput
		status models.PostStatus
		want   error
	}{
		{"empty title", SaveInput{Title: "  ", Content: "body", Tags: []string{"go"}}, models.StatusDraft, ErrEmptyTitle},
		{"empty content", SaveInput{Title: "Title", Content: "\n\t", Tags: []string{"go"}}, models.StatusDraft, ErrEmptyContent},
		{"symbol title", SaveInput{Title: "!!!", Content: "body", Tags: []string{"go"}}, models.StatusDraft, ErrEmptySlug},
		{"bad status", SaveInput{Title: "Title", Content: "body", Tags: []string{"go"}}, models.PostStatus("archived"), ErrInvalidStatus},
		{"bad tag", SaveInput{Title: "Title", Content: "body", Tags: []string{"go", "+++"}}, models.StatusDraft, ErrInvalidTag},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.posts.Save(context.Background(), tt.in, tt.status, author)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			expectKind(t, err, apperror.Validation)
		})
	}

	if n := env.count(t, &models.Post{}); n != 0 {
		t.Fatalf("expected no posts, got %d", n)
	}
	if n := env.count(t, &models.Tag{}); n != 0 {
		t.Fatalf("expected no tags, got %d", n)
	}
}

func TestSaveRequiresAuthenticatedCaller(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.posts.Save(context.Background(), SaveInput{Title: "Hi", Content: "there"}, models.StatusDraft, Caller{})
	expectKind(t, err, apperror.Authorization)
}

func TestEditIsOwnerOnly(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	author := env.caller(t, "author")
	stranger := env.caller(t, "stranger")
	moderator := env.grant(t, env.caller(t, "mod"), false, true)

	post := env.mustSave(t, SaveInput{Title: "Original", Content: "v1"}, models.StatusDraft, author)
	edit := SaveInput{ID: post.ID, Title: "Changed", Content: "v2"}

	_, err := env.posts.Save(ctx, edit, models.StatusDraft, stranger)
	expectKind(t, err, apperror.Authorization)
	_, err = env.posts.Save(ctx, edit, models.StatusDraft, moderator)
	expectKind(t, err, apperror.Authorization)

	updated, err := env.posts.Save(ctx, edit, models.StatusDraft, author)
	if err != nil {
		t.Fatalf("owner edit: %v", err)
	}
	if updated.Title != "Changed" || updated.Content != "v2" {
		t.Fatalf("expected edit applied, got %+v", updated)
	}
	if updated.Slug != "original" {
		t.Fatalf("slug must stay fixed after creation, got %q", updated.Slug)
	}
	if updated.AuthorID != author.ProfileID {
		t.Fatalf("author changed to %d", updated.AuthorID)
	}
}

func TestSaveMissingPost(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.posts.Save(context.Background(), SaveInput{ID: 99, Title: "x", Content: "y"}, models.StatusDraft, env.caller(t, "a"))
	expectKind(t, err, apperror.NotFound)
}

func TestUpdateReplacesTags(t *testing.T) {
	env := newTestEnv(t, nil)
	author := env.caller(t, "author")

	post := env.mustSave(t, SaveInput{Title: "Tagged", Content: "c", Tags: []string{"Go", "SQL"}}, models.StatusDraft, author)
	updated := env.mustSave(t, SaveInput{ID: post.ID, Title: "Tagged", Content: "c", Tags: []string{"sql", "Redis"}}, models.StatusDraft, author)

	var names []string
	for _, tag := range updated.Tags {
		names = append(names, tag.Name)
	}
	if strings.Join(names, ",") != "Redis,SQL" {
		t.Fatalf("expected tags Redis,SQL, got %v", names)
	}
	if n := env.count(t, &models.Tag{}); n != 3 {
		t.Fatalf("tags are never deleted by the writer path, expected 3 rows, got %d", n)
	}
}

func TestModeratorPublishesDraft(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	author := env.caller(t, "author")
	moderator := env.grant(t, env.caller(t, "mod"), false, true)

	post := env.mustSave(t, SaveInput{Title: "Pending", Content: "c"}, models.StatusDraft, author)
	published, err := env.posts.ChangeStatus(ctx, post.ID, models.StatusPublished, moderator)
	if err != nil {
		t.Fatalf("moderator publish: %v", err)
	}
	if published.Status != models.StatusPublished || published.PublishedAt == nil {
		t.Fatalf("expected published with timestamp, got %s %v", published.Status, published.PublishedAt)
	}
	if published.AuthorID != author.ProfileID {
		t.Fatalf("author changed to %d", published.AuthorID)
	}
	if got := env.profile(t, author.ProfileID).PostCount; got != 1 {
		t.Fatalf("expected author post_count 1, got %d", got)
	}

	unpublished, err := env.posts.ChangeStatus(ctx, post.ID, models.StatusDraft, moderator)
	if err != nil {
		t.Fatalf("moderator unpublish: %v", err)
	}
	if unpublished.PublishedAt != nil {
		t.Fatalf("expected published_at cleared, got %v", unpublished.PublishedAt)
	}
	if got := env.profile(t, author.ProfileID).PostCount; got != 0 {
		t.Fatalf("expected author post_count 0, got %d", got)
	}
}

func TestChangeStatusPermissions(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	author := env.caller(t, "author")
	stranger := env.caller(t, "stranger")
	admin := env.grant(t, env.caller(t, "admin"), true, false)

	post := env.mustSave(t, SaveInput{Title: "Status", Content: "c"}, models.StatusDraft, author)

	_, err := env.posts.ChangeStatus(ctx, post.ID, models.StatusPublished, stranger)
	expectKind(t, err, apperror.Authorization)

	if _, err := env.posts.ChangeStatus(ctx, post.ID, models.StatusPublished, admin); err != nil {
		t.Fatalf("admin publish: %v", err)
	}
	if _, err := env.posts.ChangeStatus(ctx, post.ID, models.StatusDraft, author); err != nil {
		t.Fatalf("author unpublish: %v", err)
	}
	_, err = env.posts.ChangeStatus(ctx, post.ID, models.PostStatus("gone"), admin)
	expectKind(t, err, apperror.Validation)
}

func TestPublishedEditKeepsTimestamp(t *testing.T) {
	env := newTestEnv(t, nil)
	author := env.caller(t, "author")

	post := env.mustSave(t, SaveInput{Title: "Stable", Content: "c"}, models.StatusPublished, author)
	env.posts.now = func() time.Time { return fixedNow.Add(time.Hour) }
	edited := env.mustSave(t, SaveInput{ID: post.ID, Title: "Stable", Content: "c2"}, models.StatusPublished, author)

	if edited.PublishedAt == nil || !edited.PublishedAt.Equal(*post.PublishedAt) {
		t.Fatalf("expected published_at %v, got %v", post.PublishedAt, edited.PublishedAt)
	}
	if got := env.profile(t, author.ProfileID).PostCount; got != 1 {
		t.Fatalf("expected post_count 1, got %d", got)
	}
}

func TestSlugCollisionGetsSuffix(t *testing.T) {
	env := newTestEnv(t, nil)
	author := env.caller(t, "author")

	first := env.mustSave(t, SaveInput{Title: "Hello World", Content: "a"}, models.StatusDraft, author)
	second := env.mustSave(t, SaveInput{Title: "Hello, World!", Content: "b"}, models.StatusDraft, author)

	if first.Slug != "hello-world" {
		t.Fatalf("expected hello-world, got %q", first.Slug)
	}
	if !strings.HasPrefix(second.Slug, "hello-world-") || len(second.Slug) != len("hello-world-")+8 {
		t.Fatalf("expected suffixed slug, got %q", second.Slug)
	}
}

func TestDeriveExcerpt(t *testing.T) {
	long := strings.Repeat("é", 250)
	tests := []struct {
		name, excerpt, content, want string
	}{
		{"supplied", "  my summary ", "body", "my summary"},
		{"short content", "", "short", "short..."},
		{"long content", "", long, strings.Repeat("é", 200) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deriveExcerpt(tt.excerpt, tt.content); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestGetBySlugHidesDrafts(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	author := env.caller(t, "author")
	stranger := env.caller(t, "stranger")
	moderator := env.grant(t, env.caller(t, "mod"), false, true)

	env.mustSave(t, SaveInput{Title: "Secret", Content: "c"}, models.StatusDraft, author)

	for name, c := range map[string]Caller{"anonymous": {}, "stranger": stranger} {
		if _, err := env.posts.GetBySlug(ctx, "secret", c); !errors.Is(err, repository.ErrPostNotFound) {
			t.Fatalf("%s: expected not found, got %v", name, err)
		}
	}
	for name, c := range map[string]Caller{"author": author, "moderator": moderator} {
		if _, err := env.posts.GetBySlug(ctx, "secret", c); err != nil {
			t.Fatalf("%s: expected draft to be visible, got %v", name, err)
		}
	}
}

func TestGetBySlugUsesCacheAndInvalidates(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	author := env.caller(t, "author")

	post := env.mustSave(t, SaveInput{Title: "Cached", Content: "v1"}, models.StatusPublished, author)
	if _, err := env.posts.GetBySlug(ctx, "cached", Caller{}); err != nil {
		t.Fatal(err)
	}
	if !env.cache.has(postKey("cached")) {
		t.Fatal("expected post to be cached after read")
	}

	env.mustSave(t, SaveInput{ID: post.ID, Title: "Cached", Content: "v2"}, models.StatusPublished, author)
	if env.cache.has(postKey("cached")) {
		t.Fatal("expected update to invalidate the cached post")
	}
	got, err := env.posts.GetBySlug(ctx, "cached", Caller{})
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != "v2" {
		t.Fatalf("expected fresh content v2, got %q", got.Content)
	}
}

func TestFeedListsPublishedNewestFirst(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	author := env.caller(t, "author")

	env.mustSave(t, SaveInput{Title: "Old", Content: "c", Tags: []string{"Go"}}, models.StatusPublished, author)
	env.posts.now = func() time.Time { return fixedNow.Add(time.Hour) }
	env.mustSave(t, SaveInput{Title: "New", Content: "c"}, models.StatusPublished, author)
	env.mustSave(t, SaveInput{Title: "Hidden", Content: "c", Tags: []string{"go"}}, models.StatusDraft, author)

	feed, err := env.posts.Feed(ctx, FeedQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(feed) != 2 || feed[0].Slug != "new" || feed[1].Slug != "old" {
		t.Fatalf("unexpected feed %+v", feed)
	}

	tagged, err := env.posts.Feed(ctx, FeedQuery{TagSlug: "go"})
	if err != nil {
		t.Fatal(err)
	}
	if len(tagged) != 1 || tagged[0].Slug != "old" {
		t.Fatalf("unexpected tag feed %+v", tagged)
	}

	page, err := env.posts.Feed(ctx, FeedQuery{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].Slug != "old" {
		t.Fatalf("unexpected second page %+v", page)
	}
}

func TestDeleteRemovesPostAndEngagement(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	author := env.caller(t, "author")
	reader := env.caller(t, "reader")

	post := env.mustSave(t, SaveInput{Title: "Doomed", Content: "c", Tags: []string{"go"}}, models.StatusPublished, author)
	if _, err := env.engagement.ToggleLike(ctx, post.ID, reader); err != nil {
		t.Fatal(err)
	}
	if _, _, err := env.engagement.AddComment(ctx, post.ID, reader, "nice"); err != nil {
		t.Fatal(err)
	}

	expectKind(t, env.posts.Delete(ctx, post.ID, reader), apperror.Authorization)

	if err := env.posts.Delete(ctx, post.ID, author); err != nil {
		t.Fatalf("delete: %v", err)
	}
	for _, model := range []interface{}{&models.Post{}, &models.PostTag{}, &models.Like{}, &models.Comment{}} {
		if n := env.count(t, model); n != 0 {
			t.Fatalf("expected %T rows to be removed, got %d", model, n)
		}
	}
	if n := env.count(t, &models.Tag{}); n != 1 {
		t.Fatalf("tags outlive their posts, expected 1, got %d", n)
	}
	if got := env.profile(t, author.ProfileID).PostCount; got != 0 {
		t.Fatalf("expected post_count 0, got %d", got)
	}
	expectKind(t, env.posts.Delete(ctx, post.ID, author), apperror.NotFound)
}

func TestPublicPayloadsOmitAuthorIdentity(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	alice, err := env.gate.Resolve(ctx, identity.Identity{UserID: "alice-sub", Email: "alice@private.example", Username: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	post := env.mustSave(t, SaveInput{Title: "Public", Content: "c"}, models.StatusPublished, alice)
	if _, _, err := env.engagement.AddComment(ctx, post.ID, alice, "first"); err != nil {
		t.Fatal(err)
	}

	assertClean := func(what string, v interface{}) {
		t.Helper()
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatal(err)
		}
		body := string(b)
		for _, leak := range []string{"alice@private.example", "alice-sub", `"email"`, `"user_id"`} {
			if strings.Contains(body, leak) {
				t.Fatalf("%s JSON exposes %s: %s", what, leak, body)
			}
		}
		if !strings.Contains(body, `"username":"alice"`) {
			t.Fatalf("%s JSON lost the public author: %s", what, body)
		}
	}

	// The second read is served from the cache.
	for i := 0; i < 2; i++ {
		got, err := env.posts.GetBySlug(ctx, "public", Caller{})
		if err != nil {
			t.Fatal(err)
		}
		assertClean("GetBySlug", got)
	}
	if cached := string(env.cache.entries[postKey("public")]); strings.Contains(cached, "alice@private.example") {
		t.Fatalf("cache entry exposes email: %s", cached)
	}
	feed, err := env.posts.Feed(ctx, FeedQuery{})
	if err != nil {
		t.Fatal(err)
	}
	assertClean("Feed", feed)
	comments, err := env.engagement.ListComments(ctx, post.ID, Caller{})
	if err != nil {
		t.Fatal(err)
	}
	assertClean("ListComments", comments)
}

func TestPostCountMatchesPublishedPosts(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	author := env.caller(t, "author")

	check := func(step string) {
		t.Helper()
		published, err := env.posts.posts.CountPublishedBy(ctx, author.ProfileID)
		if err != nil {
			t.Fatal(err)
		}
		if got := env.profile(t, author.ProfileID).PostCount; got != published {
			t.Fatalf("after %s: post_count %d, published posts %d", step, got, published)
		}
	}

	live := env.mustSave(t, SaveInput{Title: "Live", Content: "c"}, models.StatusPublished, author)
	check("create published")
	pending := env.mustSave(t, SaveInput{Title: "Pending", Content: "c"}, models.StatusDraft, author)
	check("create draft")
	if _, err := env.posts.ChangeStatus(ctx, pending.ID, models.StatusPublished, author); err != nil {
		t.Fatal(err)
	}
	check("publish")
	if _, err := env.posts.ChangeStatus(ctx, live.ID, models.StatusDraft, author); err != nil {
		t.Fatal(err)
	}
	check("unpublish")
	if err := env.posts.Delete(ctx, pending.ID, author); err != nil {
		t.Fatal(err)
	}
	check("delete published")
	if err := env.posts.Delete(ctx, live.ID, author); err != nil {
		t.Fatal(err)
	}
	check("delete draft")
}
