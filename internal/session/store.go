// Package session keeps per-phone conversation sessions in memory.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/ashureev/portal-gateway/internal/domain"
)

// Store defines the session persistence operations used by the engine.
type Store interface {
	// Get returns the session for phone, or nil, nil when there is none.
	Get(ctx context.Context, phone string) (*domain.Session, error)

	// CreateOrReset stores a fresh unauthenticated session, replacing any
	// existing one.
	CreateOrReset(ctx context.Context, phone, identity string, state domain.State) (*domain.Session, error)

	// Mutate applies fn to the stored session and bumps LastActivity. It is a
	// no-op returning nil, nil when no session exists.
	Mutate(ctx context.Context, phone string, fn func(domain.Session) domain.Session) (*domain.Session, error)

	// SweepExpired removes sessions idle for longer than maxInactive and
	// returns their phones.
	SweepExpired(ctx context.Context, maxInactive time.Duration) ([]string, error)

	// Count returns the number of stored sessions.
	Count(ctx context.Context) (int, error)
}

// MemoryStore implements Store with a mutex-guarded map. Sessions do not
// survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]domain.Session),
		now:      time.Now,
	}
}

// Get retrieves a copy of the session for phone.
func (s *MemoryStore) Get(_ context.Context, phone string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[phone]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

// CreateOrReset overwrites the session for phone.
func (s *MemoryStore) CreateOrReset(_ context.Context, phone, identity string, state domain.State) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := domain.NewSession(phone, identity, state, s.now())
	s.sessions[phone] = sess
	return &sess, nil
}

// Mutate applies fn under the write lock.
func (s *MemoryStore) Mutate(_ context.Context, phone string, fn func(domain.Session) domain.Session) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.sessions[phone]
	if !ok {
		return nil, nil
	}
	next := fn(cur)
	next.Phone = phone
	if next.State == "" {
		next.State = domain.StateMain
	}
	next.LastActivity = s.now()
	s.sessions[phone] = next
	return &next, nil
}

// SweepExpired deletes idle sessions.
func (s *MemoryStore) SweepExpired(_ context.Context, maxInactive time.Duration) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var expired []string
	for phone, sess := range s.sessions {
		if sess.Expired(now, maxInactive) {
			delete(s.sessions, phone)
			expired = append(expired, phone)
		}
	}
	return expired, nil
}

// Count returns the number of sessions held.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions), nil
}
