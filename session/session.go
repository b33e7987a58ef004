package session

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sheetmcp/sheetcore/auth"
	"github.com/sheetmcp/sheetcore/event"
	"github.com/sheetmcp/sheetcore/task"
	"github.com/sheetmcp/sheetcore/toolerr"
)

// Session bundles one user's capability with its own task store and event
// store. A Session is the unit of long-running job tracking: tasks queued
// and events emitted under it are invisible to every other session.
type Session struct {
	ID         string
	Capability *auth.Capability
	CreatedAt  time.Time

	Tasks  *task.Store
	Events event.Store
}

// Config configures a Manager.
type Config struct {
	MaxPerUser int // default 10
	TaskConfig task.Config
	EventStore func() event.Store // factory so each session gets an independent store
}

func (c Config) withDefaults() Config {
	if c.MaxPerUser <= 0 {
		c.MaxPerUser = 10
	}
	if c.EventStore == nil {
		c.EventStore = func() event.Store { return event.NewMemoryStore(event.Config{}) }
	}
	return c
}

type userSessions struct {
	order *list.List // front = newest
	byID  map[string]*list.Element
}

// Manager tracks live sessions per user, evicting the oldest once a user
// exceeds Config.MaxPerUser.
type Manager struct {
	cfg Config

	mu       sync.Mutex
	sessions map[string]*Session  // sessionId -> Session
	byUser   map[string]*userSessions
}

// New constructs an empty Manager.
func New(cfg Config) *Manager {
	return &Manager{
		cfg:      cfg.withDefaults(),
		sessions: make(map[string]*Session),
		byUser:   make(map[string]*userSessions),
	}
}

// Open creates a new Session for cap.Subject. If the user already holds
// MaxPerUser sessions, the oldest is evicted (its task and event stores
// are dropped with it) to make room.
func (m *Manager) Open(cap *auth.Capability) (*Session, error) {
	if cap == nil || cap.Subject == "" {
		return nil, toolerr.New(toolerr.AuthError, "session requires an authenticated subject")
	}

	s := &Session{
		ID:         uuid.NewString(),
		Capability: cap,
		CreatedAt:  time.Now(),
		Tasks:      task.New(m.cfg.TaskConfig),
		Events:     m.cfg.EventStore(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	us, ok := m.byUser[cap.Subject]
	if !ok {
		us = &userSessions{order: list.New(), byID: make(map[string]*list.Element)}
		m.byUser[cap.Subject] = us
	}

	m.sessions[s.ID] = s
	us.byID[s.ID] = us.order.PushFront(s.ID)

	for us.order.Len() > m.cfg.MaxPerUser {
		oldest := us.order.Back()
		if oldest == nil {
			break
		}
		oldestID := oldest.Value.(string)
		us.order.Remove(oldest)
		delete(us.byID, oldestID)
		delete(m.sessions, oldestID)
	}

	return s, nil
}

// Get looks up a live session by id.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, toolerr.Newf(toolerr.NotFound, "session %s not found", sessionID)
	}
	return s, nil
}

// Close drops a session and its stores.
func (m *Manager) Close(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return
	}
	delete(m.sessions, sessionID)
	if us, ok := m.byUser[s.Capability.Subject]; ok {
		if el, ok := us.byID[sessionID]; ok {
			us.order.Remove(el)
			delete(us.byID, sessionID)
		}
	}
}

// CountForUser reports how many sessions subject currently holds.
func (m *Manager) CountForUser(subject string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	us, ok := m.byUser[subject]
	if !ok {
		return 0
	}
	return us.order.Len()
}
