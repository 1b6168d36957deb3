// Package authz resolves a principal into the authorization scope that
// every read query must carry.
package authz

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/YuCheng1122/threat-graph/internal/errs"
	"github.com/YuCheng1122/threat-graph/pkg/models"
)

// Scope is either unrestricted (administrator) or a concrete set of
// authorized group names. A restricted scope with zero groups matches
// nothing; callers must never treat it as "skip the filter".
type Scope struct {
	unrestricted bool
	groups       []string
}

// Unrestricted returns the administrator scope.
func Unrestricted() Scope {
	return Scope{unrestricted: true}
}

// Restricted returns a scope limited to the given group names.
func Restricted(groups []string) Scope {
	return Scope{groups: append([]string(nil), groups...)}
}

// IsUnrestricted reports whether the scope matches everything.
func (s Scope) IsUnrestricted() bool { return s.unrestricted }

// Groups returns the authorized group names of a restricted scope.
func (s Scope) Groups() []string { return s.groups }

// Empty reports whether the scope is restricted and holds no groups,
// which must resolve to zero matches downstream.
func (s Scope) Empty() bool { return !s.unrestricted && len(s.groups) == 0 }

// Allows reports whether the scope authorizes the given group name.
func (s Scope) Allows(group string) bool {
	if s.unrestricted {
		return true
	}
	for _, g := range s.groups {
		if g == group {
			return true
		}
	}
	return false
}

// Directory looks up the group names assigned to a user. The relational
// user/group store behind it is a black box to this package.
type Directory interface {
	GroupsFor(ctx context.Context, userID int) ([]string, error)
}

// Config controls the resolver's group-lookup cache.
type Config struct {
	CacheSize int
	CacheTTL  time.Duration
}

// Resolver computes scopes from principals, caching directory lookups.
type Resolver struct {
	dir   Directory
	cache *expirable.LRU[int, []string]
}

// NewResolver creates a resolver over the given directory.
func NewResolver(dir Directory, cfg Config) *Resolver {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1024
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	return &Resolver{
		dir:   dir,
		cache: expirable.NewLRU[int, []string](cfg.CacheSize, nil, cfg.CacheTTL),
	}
}

// ResolveScope returns the authorization scope for a principal. A
// disabled principal is authorized for nothing regardless of role. A
// non-admin with zero assigned groups gets an empty restricted scope.
func (r *Resolver) ResolveScope(ctx context.Context, p models.Principal) (Scope, error) {
	if p.Disabled {
		return Scope{}, fmt.Errorf("account %q is disabled: %w", p.Username, errs.ErrPermissionDenied)
	}
	if p.IsAdmin() {
		return Unrestricted(), nil
	}
	groups, err := r.groupsFor(ctx, p.ID)
	if err != nil {
		return Scope{}, err
	}
	return Restricted(groups), nil
}

// CheckGroup reports whether the principal is authorized for a single
// group, for per-agent and per-event ownership checks.
func (r *Resolver) CheckGroup(ctx context.Context, p models.Principal, group string) (bool, error) {
	scope, err := r.ResolveScope(ctx, p)
	if err != nil {
		return false, err
	}
	return scope.Allows(group), nil
}

func (r *Resolver) groupsFor(ctx context.Context, userID int) ([]string, error) {
	if groups, ok := r.cache.Get(userID); ok {
		return groups, nil
	}
	groups, err := r.dir.GroupsFor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("look up groups for user %d: %w", userID, err)
	}
	r.cache.Add(userID, groups)
	return groups, nil
}
