// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package profile

import (
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/pdiddy/phaseplan/pkg/types"
)

// Registry resolves requests against an ordered list of profiles. The
// first profile whose keywords match wins; the fallback profile answers
// when none does. Resolved profiles are cached per request text. A
// Registry is safe for concurrent use.
type Registry struct {
	profiles []types.Profile
	cache    *cache.Cache
}

// NewRegistry loads the built-in profiles and, when cfg.Dir is set, the
// profiles of that directory. A directory profile replaces the built-in of
// the same name; new names are tried before the built-ins.
func NewRegistry(cfg types.ProfileConfig) (*Registry, error) {
	builtin, err := Builtin()
	if err != nil {
		return nil, fmt.Errorf("loading built-in profiles: %w", err)
	}
	var extra []types.Profile
	if cfg.Dir != "" {
		if extra, err = LoadDir(cfg.Dir); err != nil {
			return nil, fmt.Errorf("loading profiles from %s: %w", cfg.Dir, err)
		}
	}
	return New(merge(extra, builtin), cfg.CacheTTL), nil
}

// New returns a registry over profiles, tried in order. A non-positive ttl
// uses 10 minutes.
func New(profiles []types.Profile, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Registry{
		profiles: append([]types.Profile(nil), profiles...),
		cache:    cache.New(ttl, 2*ttl),
	}
}

func merge(extra, builtin []types.Profile) []types.Profile {
	byName := make(map[string]types.Profile, len(extra))
	for _, p := range extra {
		byName[p.Name] = p
	}
	var out []types.Profile
	for _, p := range extra {
		if !hasName(builtin, p.Name) {
			out = append(out, p)
		}
	}
	for _, p := range builtin {
		if override, ok := byName[p.Name]; ok {
			p = override
		}
		out = append(out, p)
	}
	return out
}

func hasName(profiles []types.Profile, name string) bool {
	for _, p := range profiles {
		if p.Name == name {
			return true
		}
	}
	return false
}

// Resolve returns the profile for industry and role, stamped with the
// request.
func (r *Registry) Resolve(industry, role string) (types.Profile, error) {
	key := strings.ToLower(strings.TrimSpace(industry + " " + role))
	if x, found := r.cache.Get(key); found {
		return x.(types.Profile), nil
	}

	var fallback *types.Profile
	for i := range r.profiles {
		p := r.profiles[i]
		if p.Matches(key) {
			resolved := p.ForRequest(industry, role)
			r.cache.Set(key, resolved, cache.DefaultExpiration)
			return resolved, nil
		}
		if p.Fallback && fallback == nil {
			fallback = &r.profiles[i]
		}
	}
	if fallback == nil {
		return types.Profile{}, fmt.Errorf("%w: no profile matches %q", ErrNotFound, key)
	}
	resolved := fallback.ForRequest(industry, role)
	r.cache.Set(key, resolved, cache.DefaultExpiration)
	return resolved, nil
}

// Get returns the profile named name.
func (r *Registry) Get(name string) (types.Profile, error) {
	for _, p := range r.profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return types.Profile{}, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Names returns the profile names in match order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.profiles))
	for i, p := range r.profiles {
		out[i] = p.Name
	}
	return out
}

// Flush drops every cached resolution.
func (r *Registry) Flush() {
	r.cache.Flush()
}
