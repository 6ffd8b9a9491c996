package challenge

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"
)

var (
	// ErrUnknownSession covers absent, expired, and already-consumed
	// sessions; the caller cannot distinguish these cases.
	ErrUnknownSession = errors.New("challenge session not found or expired")

	// ErrWrongAnswer leaves the session intact; the same session may be
	// retried until it expires or is evicted.
	ErrWrongAnswer = errors.New("challenge answer mismatch")
)

type session struct {
	answer    string
	createdAt time.Time
}

// Store issues and validates short-lived one-time challenge sessions.
// It holds only the expected answers; artifact generation belongs to a
// Provider. Eviction of expired sessions happens opportunistically on
// each Create rather than on a timer, which bounds growth without a
// background goroutine.
type Store struct {
	mu       sync.Mutex
	sessions map[string]session
	ttl      time.Duration
	now      func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// NewStoreWithClock injects the clock, for tests.
func NewStoreWithClock(ttl time.Duration, now func() time.Time) *Store {
	s := NewStore(ttl)
	s.now = now
	return s
}

// Create registers a new session for the given expected answer and
// returns its id. Expired sessions are swept as a side effect.
func (s *Store) Create(answer string) (string, error) {
	id, err := newSessionID()
	if err != nil {
		return "", err
	}

	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for existing, sess := range s.sessions {
		if now.Sub(sess.createdAt) > s.ttl {
			delete(s.sessions, existing)
		}
	}

	s.sessions[id] = session{
		answer:    foldAnswer(answer),
		createdAt: now,
	}
	return id, nil
}

// Verify consumes the session on a correct answer. The read and the
// delete happen under one lock acquisition so two concurrent requests
// cannot both consume the same session.
func (s *Store) Verify(sessionID, submitted string) error {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrUnknownSession
	}
	if now.Sub(sess.createdAt) > s.ttl {
		delete(s.sessions, sessionID)
		return ErrUnknownSession
	}
	if foldAnswer(submitted) != sess.answer {
		return ErrWrongAnswer
	}

	delete(s.sessions, sessionID)
	return nil
}

// Len reports the number of live sessions, including any not yet
// swept.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func foldAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

func newSessionID() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}
