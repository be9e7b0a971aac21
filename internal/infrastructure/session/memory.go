// Package session implements identity.SessionStore over process memory,
// Redis and SQL databases.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/erp/portal/internal/domain/identity"
)

type memoryEntry struct {
	user      identity.User
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory with a TTL. Expired entries
// are swept by a background goroutine until Close is called.
type MemoryStore struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]memoryEntry

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ identity.SessionStore = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore whose entries live for ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		stop:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.cleanupLoop()
	return s
}

// Save implements identity.SessionStore
func (s *MemoryStore) Save(_ context.Context, sessionID string, user identity.User) error {
	s.mu.Lock()
	s.entries[sessionID] = memoryEntry{user: user, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

// Load implements identity.SessionStore
func (s *MemoryStore) Load(_ context.Context, sessionID string) (identity.User, error) {
	s.mu.RLock()
	e, ok := s.entries[sessionID]
	s.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		return identity.User{}, identity.ErrSessionNotFound
	}
	return e.user, nil
}

// Delete implements identity.SessionStore
func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.entries, sessionID)
	s.mu.Unlock()
	return nil
}

// Close stops the cleanup goroutine.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
	})
	return nil
}

func (s *MemoryStore) cleanupLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.removeExpired(time.Now())
		}
	}
}

func (s *MemoryStore) removeExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, id)
		}
	}
}
