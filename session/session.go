// Package session issues and validates bearer-token login sessions, several
// per user, bounded by a per-user cap and a time to live.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"batchtrack/store"
)

// ErrNoSession is returned for tokens that are unknown, expired or revoked.
var ErrNoSession = errors.New("no session")

// EventEmitter is notified of session lifecycle changes.
type EventEmitter interface {
	EmitSessionCreated(userID int64, device string)
	EmitSessionsEvicted(userID int64, count int)
}

// Manager wraps the session table.
type Manager struct {
	db         *store.DB
	ttl        time.Duration
	maxPerUser int
	emit       EventEmitter
	now        func() time.Time
}

// NewManager creates a session manager. A ttl of 0 means 24 hours.
func NewManager(db *store.DB, ttl time.Duration, maxPerUser int, emit EventEmitter) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{db: db, ttl: ttl, maxPerUser: maxPerUser, emit: emit, now: time.Now}
}

// SetClock replaces the time source.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// TTL returns the default session lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

// NewToken returns a random URL-safe token.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// CreateRequest describes a login.
type CreateRequest struct {
	UserID int64
	Token  string
	Device string
	IP     string
	// ExpiresAt overrides now+TTL when set.
	ExpiresAt time.Time
}

// Create stores a new session and returns its expiry. Expired sessions of
// every user are purged first, and the user's least recently active sessions
// are evicted so the cap still holds after the insert.
func (m *Manager) Create(req CreateRequest) (time.Time, error) {
	if req.Token == "" {
		return time.Time{}, errors.New("create session: empty token")
	}
	now := m.now()
	expires := req.ExpiresAt
	if expires.IsZero() {
		expires = now.Add(m.ttl)
	}
	s := &store.Session{
		UserID:     req.UserID,
		Token:      req.Token,
		Device:     req.Device,
		IP:         req.IP,
		CreatedAt:  now,
		LastActive: now,
		ExpiresAt:  expires,
	}
	evicted, err := m.db.CreateSession(s, m.maxPerUser, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("create session: %w", err)
	}
	if m.emit != nil {
		if len(evicted) > 0 {
			m.emit.EmitSessionsEvicted(req.UserID, len(evicted))
		}
		m.emit.EmitSessionCreated(req.UserID, req.Device)
	}
	return expires.UTC().Truncate(time.Second), nil
}

// Lookup returns the live session for token joined with its owner. A session
// found past its expiry is deleted and reported as ErrNoSession.
func (m *Manager) Lookup(token string) (*store.SessionInfo, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	now := m.now()
	if _, err := m.db.PurgeExpiredSessions(now); err != nil {
		return nil, fmt.Errorf("purge sessions: %w", err)
	}
	info, err := m.db.GetSessionByToken(token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if !info.ExpiresAt.After(now.UTC().Truncate(time.Second)) {
		if err := m.db.DeleteSession(token); err != nil {
			return nil, fmt.Errorf("delete expired session: %w", err)
		}
		return nil, ErrNoSession
	}
	return info, nil
}

// Touch records activity on a session without extending its expiry.
func (m *Manager) Touch(token string) error {
	return m.db.TouchSession(token, m.now())
}

// Revoke deletes a session. Revoking an unknown token succeeds.
func (m *Manager) Revoke(token string) error {
	return m.db.DeleteSession(token)
}

// ListForUser returns the user's sessions, most recently active first.
func (m *Manager) ListForUser(userID int64) ([]store.Session, error) {
	return m.db.ListUserSessions(userID)
}
