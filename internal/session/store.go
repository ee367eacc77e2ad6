// Package session keeps per-browser gate and workspace state in memory.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"imagestudio/internal/gate"
	"imagestudio/internal/studio"
)

// CookieName carries the opaque session id.
const CookieName = "imagestudio_session"

// Session is one browser's credential gate plus workspace.
type Session struct {
	ID        string
	Gate      *gate.Gate
	Workspace *studio.Workspace

	lastSeen time.Time
}

// Store is an in-memory session table. Nothing is persisted.
type Store struct {
	validator gate.KeyValidator
	provider  studio.Provider
	logger    zerolog.Logger
	ttl       time.Duration
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewStore(validator gate.KeyValidator, provider studio.Provider, ttl time.Duration, logger zerolog.Logger) *Store {
	return &Store{
		validator: validator,
		provider:  provider,
		logger:    logger,
		ttl:       ttl,
		now:       time.Now,
		sessions:  make(map[string]*Session),
	}
}

// Create opens a fresh session with an unauthenticated gate and empty workspace.
func (s *Store) Create() *Session {
	id := uuid.NewString()
	l := s.logger.With().Str("session_id", id).Logger()
	sess := &Session{
		ID:        id,
		Gate:      gate.New(s.validator, l),
		Workspace: studio.NewWorkspace(s.provider, l),
		lastSeen:  s.now(),
	}
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	return sess
}

// Get returns a live session and refreshes its idle timer.
func (s *Store) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if now.Sub(sess.lastSeen) > s.ttl {
		delete(s.sessions, id)
		return nil, false
	}
	sess.lastSeen = now
	return sess, true
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Sweep drops sessions idle longer than the TTL and reports how many went.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Run sweeps on every tick until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug().Int("expired", n).Int("live", s.Len()).Msg("session: swept idle sessions")
			}
		}
	}
}
