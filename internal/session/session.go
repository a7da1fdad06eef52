// Package session tracks logged-in browser sessions and their view state.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// Session is one logged-in browser. The view state lives server side so the
// rendered partials always agree with what the user last clicked.
type Session struct {
	Token     string
	AccountID string
	View      *ViewState
	expires   time.Time
}

// Manager holds active sessions in memory with TTL eviction.
type Manager struct {
	mu           sync.Mutex
	sessions     map[string]*Session
	ttl          time.Duration
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

func NewManager(ttl time.Duration) *Manager {
	m := &Manager{
		sessions:    make(map[string]*Session),
		ttl:         ttl,
		stopCleanup: make(chan struct{}),
	}
	go m.startCleanup()
	return m
}

// startCleanup runs periodic cleanup to remove expired sessions.
func (m *Manager) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanupExpired()
		case <-m.stopCleanup:
			return
		}
	}
}

func (m *Manager) cleanupExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for token, s := range m.sessions {
		if s.expires.Before(now) {
			delete(m.sessions, token)
		}
	}
}

// Stop gracefully shuts down the cleanup goroutine.
func (m *Manager) Stop() {
	m.shutdownOnce.Do(func() {
		close(m.stopCleanup)
	})
}

// Create starts a session for the account and returns its token.
func (m *Manager) Create(accountID string) *Session {
	buf := make([]byte, 32)
	rand.Read(buf)

	s := &Session{
		Token:     hex.EncodeToString(buf),
		AccountID: accountID,
		View:      NewViewState(),
		expires:   time.Now().Add(m.ttl),
	}

	m.mu.Lock()
	m.sessions[s.Token] = s
	m.mu.Unlock()
	return s
}

// Get returns the live session for a token, or nil. A hit slides the expiry
// forward.
func (m *Manager) Get(token string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return nil
	}
	if s.expires.Before(time.Now()) {
		delete(m.sessions, token)
		return nil
	}
	s.expires = time.Now().Add(m.ttl)
	return s
}

// Delete ends one session.
func (m *Manager) Delete(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

// DeleteAccount ends every session belonging to the account.
func (m *Manager) DeleteAccount(accountID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for token, s := range m.sessions {
		if s.AccountID == accountID {
			delete(m.sessions, token)
		}
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
