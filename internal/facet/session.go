package facet

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Session is a FilterSet shared by concurrent requests of one client.
type Session struct {
	mu   sync.Mutex
	set  *FilterSet
	auto AutoSelector
}

// NewSession returns an empty Session.
func NewSession() *Session {
	return &Session{set: NewFilterSet()}
}

// Update runs fn with exclusive access to the session's FilterSet.
func (s *Session) Update(fn func(set *FilterSet)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.set)
}

// Snapshot returns the stored filters, the selection and the compiled
// expression, taken under one lock.
func (s *Session) Snapshot(opts Options) (filters []Filter, selected []string, expr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set.Filters(), s.set.SelectedAssetTypeNames(), CompileWith(s.set, opts)
}

// Observe feeds a search response's distribution to the session's
// AutoSelector.
func (s *Session) Observe(dist Distribution) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auto.Observe(s.set, dist)
}

// Sessions keeps filter sessions per team in a size-bounded cache. Idle
// sessions expire after the configured TTL.
type Sessions struct {
	mu    sync.Mutex
	cache *expirable.LRU[sessionKey, *Session]
}

type sessionKey struct {
	teamID string
	id     string
}

// NewSessions creates a cache holding at most size sessions.
func NewSessions(size int, ttl time.Duration) *Sessions {
	return &Sessions{cache: expirable.NewLRU[sessionKey, *Session](size, nil, ttl)}
}

// Get returns the session, creating it when missing or expired. Every Get
// renews the session's TTL.
func (s *Sessions) Get(teamID, id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey{teamID: teamID, id: id}
	sess, ok := s.cache.Get(key)
	if !ok {
		sess = NewSession()
	}
	s.cache.Add(key, sess)
	return sess
}

// Drop removes a session.
func (s *Sessions) Drop(teamID, id string) {
	s.cache.Remove(sessionKey{teamID: teamID, id: id})
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	return s.cache.Len()
}
