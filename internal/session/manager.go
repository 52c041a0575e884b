package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const CookieName = "meetingrec_session"

type entry struct {
	state    *State
	lastSeen time.Time
}

// Manager keeps one State per browser session. Sessions are identified by a
// uuid carried in an HMAC-signed cookie and live only in memory.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
		sessions: map[string]*entry{},
	}
}

// Load returns the state for token. When the token is missing, forged or
// belongs to an expired session a fresh session is created; the returned
// token is the one the client should hold from now on.
func (m *Manager) Load(token string) (*State, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweepLocked(now)

	if id, ok := m.verify(token); ok {
		if e, found := m.sessions[id]; found {
			e.lastSeen = now
			return e.state, token
		}
	}

	id := uuid.NewString()
	e := &entry{state: NewState(), lastSeen: now}
	m.sessions[id] = e
	return e.state, m.sign(id)
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// sweepLocked drops idle sessions. A session with a capture in flight is kept
// so its device can still be released by a stop.
func (m *Manager) sweepLocked(now time.Time) {
	if m.ttl <= 0 {
		return
	}
	for id, e := range m.sessions {
		if now.Sub(e.lastSeen) > m.ttl && !e.state.IsRecording() {
			delete(m.sessions, id)
		}
	}
}

func (m *Manager) sign(id string) string {
	return id + "." + m.signature(id)
}

func (m *Manager) verify(token string) (string, bool) {
	id, sig, ok := strings.Cut(token, ".")
	if !ok || id == "" {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(m.signature(id))) {
		return "", false
	}
	return id, true
}

func (m *Manager) signature(id string) string {
	h := hmac.New(sha256.New, m.secret)
	h.Write([]byte(id))
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(h.Sum(nil))
}
