package service

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/justaplayground/devnet/internal/apperror"
	"github.com/justaplayground/devnet/internal/config"
	"github.com/justaplayground/devnet/internal/db"
	"github.com/justaplayground/devnet/internal/identity"
	"github.com/justaplayground/devnet/internal/models"
)

var fixedNow = time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	db         *db.Database
	cache      *mapCache
	gate       *Gate
	tags       *TagRegistry
	posts      *PostService
	engagement *EngagementService
	admin      *AdminService
}

func newTestEnv(t *testing.T, bootstrap *config.Bootstrap) *testEnv {
	t.Helper()
	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "service.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	c := newMapCache()
	gate := NewGate(database, bootstrap)
	tags := NewTagRegistry(database)
	posts := NewPostService(database, c, gate, tags, 10)
	posts.now = func() time.Time { return fixedNow }
	admin := NewAdminService(database, gate)
	admin.now = func() time.Time { return time.Now().UTC() }
	return &testEnv{
		db:         database,
		cache:      c,
		gate:       gate,
		tags:       tags,
		posts:      posts,
		engagement: NewEngagementService(database, c, gate),
		admin:      admin,
	}
}

func (e *testEnv) caller(t *testing.T, userID string) Caller {
	t.Helper()
	c, err := e.gate.Resolve(context.Background(), identity.Identity{UserID: userID, Username: userID})
	if err != nil {
		t.Fatalf("resolve %s: %v", userID, err)
	}
	return c
}

// grant sets role flags directly and re-resolves the caller.
func (e *testEnv) grant(t *testing.T, c Caller, admin, moderator bool) Caller {
	t.Helper()
	err := e.db.Gorm.Model(&models.Profile{}).Where("id = ?", c.ProfileID).
		Updates(map[string]interface{}{"is_admin": admin, "is_moderator": moderator}).Error
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	return e.caller(t, c.UserID)
}

func (e *testEnv) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := e.db.Gorm.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func (e *testEnv) profile(t *testing.T, id uint) *models.Profile {
	t.Helper()
	p, err := e.gate.profiles.GetByID(context.Background(), nil, id)
	if err != nil {
		t.Fatalf("load profile: %v", err)
	}
	return p
}

func (e *testEnv) mustSave(t *testing.T, in SaveInput, status models.PostStatus, c Caller) *models.Post {
	t.Helper()
	p, err := e.posts.Save(context.Background(), in, status, c)
	if err != nil {
		t.Fatalf("save %q: %v", in.Title, err)
	}
	return p
}

func expectKind(t *testing.T, err error, kind apperror.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := apperror.KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}

// mapCache is an in-memory PostCache that records invalidations.
type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deleted []string
}

func newMapCache() *mapCache { return &mapCache{entries: map[string][]byte{}} }

func (c *mapCache) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func (c *mapCache) SetJSON(_ context.Context, key string, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = b
	return nil
}

func (c *mapCache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.deleted = append(c.deleted, key)
	return nil
}

func (c *mapCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}
