package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/justaplayground/devnet/internal/apperror"
	"github.com/justaplayground/devnet/internal/config"
	"github.com/justaplayground/devnet/internal/db"
	"github.com/justaplayground/devnet/internal/identity"
	"github.com/justaplayground/devnet/internal/models"
	"github.com/justaplayground/devnet/internal/repository"
	"github.com/justaplayground/devnet/internal/slug"
)

// Capabilities is the set of stored roles a caller holds. Admin and
// moderator are independent bits.
type Capabilities uint8

const (
	CapModerator Capabilities = 1 << iota
	CapAdmin
)

func (c Capabilities) Has(want Capabilities) bool { return c&want == want }

func capabilitiesOf(p *models.Profile) Capabilities {
	var c Capabilities
	if p.IsModerator {
		c |= CapModerator
	}
	if p.IsAdmin {
		c |= CapAdmin
	}
	return c
}

// Caller is the request-scoped principal. The zero value is anonymous.
type Caller struct {
	ProfileID    uint
	UserID       string
	Email        string
	Capabilities Capabilities
}

func (c Caller) Authenticated() bool { return c.ProfileID != 0 }
func (c Caller) IsAdmin() bool       { return c.Capabilities.Has(CapAdmin) }
func (c Caller) IsModerator() bool   { return c.Capabilities.Has(CapModerator) }

func (c Caller) owns(post *models.Post) bool {
	return c.Authenticated() && post != nil && post.AuthorID == c.ProfileID
}

type Action string

const (
	ActionCreatePost   Action = "create post"
	ActionEditPost     Action = "edit post"
	ActionDeletePost   Action = "delete post"
	ActionChangeStatus Action = "change post status"
	ActionToggleRole   Action = "toggle role"
	ActionViewAdmin    Action = "view admin dashboard"
	ActionViewDraft    Action = "view draft"
	ActionLike         Action = "like"
	ActionBookmark     Action = "bookmark"
	ActionComment      Action = "comment"
	ActionView         Action = "view"
)

type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

type rule struct {
	action Action
	allow  func(c Caller, post *models.Post) bool
	deny   string
}

func authenticated(c Caller, _ *models.Post) bool { return c.Authenticated() }
func owner(c Caller, post *models.Post) bool      { return c.owns(post) }
func staff(c Caller, _ *models.Post) bool         { return c.IsAdmin() || c.IsModerator() }

// rules is evaluated top to bottom; the first rule naming the action decides.
var rules = []rule{
	{ActionCreatePost, authenticated, "sign in to create posts"},
	{ActionEditPost, owner, "only the author can edit this post"},
	{ActionDeletePost, owner, "only the author can delete this post"},
	{ActionChangeStatus, func(c Caller, p *models.Post) bool { return staff(c, p) || owner(c, p) },
		"only the author, a moderator or an admin can change the status"},
	{ActionToggleRole, func(c Caller, _ *models.Post) bool { return c.IsAdmin() }, "admin role required"},
	{ActionViewAdmin, staff, "admin or moderator role required"},
	{ActionViewDraft, func(c Caller, p *models.Post) bool { return staff(c, p) || owner(c, p) }, "post not found"},
	{ActionLike, authenticated, "sign in to like posts"},
	{ActionBookmark, authenticated, "sign in to bookmark posts"},
	{ActionComment, authenticated, "sign in to comment"},
	{ActionView, func(Caller, *models.Post) bool { return true }, ""},
}

// Authorize decides whether caller may perform action on post. post is nil
// for actions that do not target a post.
func Authorize(caller Caller, action Action, post *models.Post) Decision {
	for _, r := range rules {
		if r.action != action {
			continue
		}
		if r.allow(caller, post) {
			return Decision{Allowed: true}
		}
		return Decision{Reason: r.deny}
	}
	return Decision{Reason: "unknown action " + string(action)}
}

// Gate binds identities to profiles and enforces Authorize decisions.
type Gate struct {
	profiles  *repository.ProfileRepository
	bootstrap *config.Bootstrap
}

func NewGate(database *db.Database, bootstrap *config.Bootstrap) *Gate {
	if bootstrap == nil {
		bootstrap = &config.Bootstrap{}
	}
	return &Gate{profiles: repository.NewProfileRepository(database.Gorm), bootstrap: bootstrap}
}

// Require returns an authorization error when the decision is a denial.
func (g *Gate) Require(caller Caller, action Action, post *models.Post) error {
	if d := Authorize(caller, action, post); !d.Allowed {
		return apperror.New(apperror.Authorization, d.Reason)
	}
	return nil
}

const maxUsernameAttempts = 5

// Resolve returns the caller for id, creating the profile on first sight.
func (g *Gate) Resolve(ctx context.Context, id identity.Identity) (Caller, error) {
	if id.Anonymous() {
		return Caller{}, nil
	}
	p, err := g.profiles.GetByUserID(ctx, id.UserID)
	if errors.Is(err, repository.ErrProfileNotFound) {
		p, err = g.register(ctx, id)
	}
	if err != nil {
		return Caller{}, err
	}
	return Caller{
		ProfileID:    p.ID,
		UserID:       p.UserID,
		Email:        id.Email,
		Capabilities: capabilitiesOf(p),
	}, nil
}

func (g *Gate) register(ctx context.Context, id identity.Identity) (*models.Profile, error) {
	base := usernameFor(id)
	for attempt := 0; attempt < maxUsernameAttempts; attempt++ {
		username := base
		if attempt > 0 {
			username = base + "-" + uuid.NewString()[:4]
		}
		p := &models.Profile{
			UserID:      id.UserID,
			Username:    username,
			DisplayName: displayNameFor(id),
			Email:       id.Email,
			IsAdmin:     g.bootstrap.IsAdmin(id.UserID),
			IsModerator: g.bootstrap.IsModerator(id.UserID),
		}
		created, err := g.profiles.InsertIgnore(ctx, p)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue // username taken
		}
		if err != nil {
			return nil, err
		}
		if created {
			return p, nil
		}
		return g.profiles.GetByUserID(ctx, id.UserID)
	}
	return nil, ErrProfileConflict
}

func usernameFor(id identity.Identity) string {
	for _, candidate := range []string{id.Username, localPart(id.Email)} {
		if s := slug.Make(candidate); s != "" {
			return truncate(s, 48)
		}
	}
	if s := truncate(slug.Make(id.UserID), 12); s != "" {
		return "user-" + s
	}
	return "user"
}

func displayNameFor(id identity.Identity) string {
	if id.Username != "" {
		return id.Username
	}
	if lp := localPart(id.Email); lp != "" {
		return lp
	}
	return id.UserID
}

func localPart(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.Trim(string(r[:n]), "-")
}
