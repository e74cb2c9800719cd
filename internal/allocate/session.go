// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package allocate

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session owns the term-usage counter of one (industry, role) request.
// Usage is counted per term string across every category and persists
// across Allocate calls, which is what keeps the reuse cap meaningful when
// allocation runs more than once. Sessions are never shared between
// requests.
type Session struct {
	ID       string
	Industry string
	Role     string
	Profile  string
	Created  time.Time

	mu    sync.Mutex
	usage map[string]int
}

// NewSession starts a session with a fresh id and an empty counter.
func NewSession(industry, role string) *Session {
	return &Session{
		ID:       uuid.NewString(),
		Industry: industry,
		Role:     role,
		Created:  time.Now().UTC(),
		usage:    make(map[string]int),
	}
}

// RestoreSession rebuilds a session from stored state. The usage map is
// copied.
func RestoreSession(id, industry, role string, created time.Time, usage map[string]int) *Session {
	s := &Session{
		ID:       id,
		Industry: industry,
		Role:     role,
		Created:  created,
		usage:    make(map[string]int, len(usage)),
	}
	for term, n := range usage {
		s.usage[term] = n
	}
	return s
}

// Used returns how many phases term has been placed in so far.
func (s *Session) Used(term string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage[term]
}

func (s *Session) inc(term string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.usage == nil {
		s.usage = make(map[string]int)
	}
	s.usage[term]++
}

// Usage returns a snapshot of the counter.
func (s *Session) Usage() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.usage))
	for term, n := range s.usage {
		out[term] = n
	}
	return out
}

// Terms returns the counted terms sorted by name.
func (s *Session) Terms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.usage))
	for term := range s.usage {
		out = append(out, term)
	}
	sort.Strings(out)
	return out
}
