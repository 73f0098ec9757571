package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/pitchside/internal/session"
)

var (
	// ErrNotFound is returned when no live session has the given id.
	ErrNotFound = errors.New("session not found")
)

// MemoryStore is a concurrency-safe in-memory registry of live sessions.
// Removing a session, by Delete, expiry or eviction, closes it.
type MemoryStore struct {
	mu sync.RWMutex

	// key: session id
	data map[string]*session.Session

	// retention configuration
	maxSessions int           // max number of live sessions (0 = unlimited)
	maxIdle     time.Duration // sessions untouched for longer are swept (0 = never)

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
func NewMemoryStore(maxSessions int, maxIdle time.Duration) *MemoryStore {
	return &MemoryStore{
		data:        make(map[string]*session.Session),
		maxSessions: maxSessions,
		maxIdle:     maxIdle,
		now:         time.Now,
	}
}

// Save registers a session. When the store is full the least recently seen
// session is closed to make room.
func (s *MemoryStore) Save(sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[sess.ID] = sess

	if s.maxSessions > 0 && len(s.data) > s.maxSessions {
		var (
			oldestID string
			oldest   time.Time
		)
		for id, other := range s.data {
			if id == sess.ID {
				continue
			}
			if seen := other.LastSeen(); oldestID == "" || seen.Before(oldest) {
				oldestID, oldest = id, seen
			}
		}
		if oldestID != "" {
			s.data[oldestID].Close()
			delete(s.data, oldestID)
		}
	}
}

// Get returns a live session and records the access. A session closed while
// still registered is dropped and reported as not found.
func (s *MemoryStore) Get(id string) (*session.Session, error) {
	s.mu.RLock()
	sess, ok := s.data[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	select {
	case <-sess.Done():
		s.mu.Lock()
		if s.data[id] == sess {
			delete(s.data, id)
		}
		s.mu.Unlock()
		return nil, ErrNotFound
	default:
	}

	sess.Touch()
	return sess, nil
}

// Delete ends a session.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	sess, ok := s.data[id]
	delete(s.data, id)
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	sess.Close()
	return nil
}

// SweepIdle closes every session idle for longer than maxIdle and returns how
// many were removed.
func (s *MemoryStore) SweepIdle() int {
	if s.maxIdle <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.maxIdle)

	var expired []*session.Session
	s.mu.Lock()
	for id, sess := range s.data {
		if sess.LastSeen().Before(cutoff) {
			expired = append(expired, sess)
			delete(s.data, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Close()
	}
	return len(expired)
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// CloseAll ends every session, used on shutdown.
func (s *MemoryStore) CloseAll() {
	s.mu.Lock()
	all := s.data
	s.data = make(map[string]*session.Session)
	s.mu.Unlock()

	for _, sess := range all {
		sess.Close()
	}
}
