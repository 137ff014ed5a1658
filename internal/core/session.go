package core

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/vsharee/vsharee/internal/domain"
)

// Session is the server-side record of one authenticated connection.
// The transport layer holds only the SessionID back to it; all session
// state lives here, never on the connection object.
type Session struct {
	ID   SessionID
	User *domain.User

	signal        SignalConnection
	lastHeartbeat atomic.Int64

	mu     sync.RWMutex
	groups map[domain.GroupID]struct{}
}

func NewSession(id SessionID, user *domain.User, signal SignalConnection) *Session {
	s := &Session{
		ID:     id,
		User:   user,
		signal: signal,
		groups: make(map[domain.GroupID]struct{}),
	}
	s.lastHeartbeat.Store(time.Now().UnixNano())
	return s
}

func (s *Session) Signal() SignalConnection { return s.signal }

// Touch refreshes the liveness timestamp on receipt of a heartbeat.
func (s *Session) Touch() {
	s.lastHeartbeat.Store(time.Now().UnixNano())
}

func (s *Session) LastHeartbeat() time.Time {
	return time.Unix(0, s.lastHeartbeat.Load())
}

func (s *Session) AddGroup(gid domain.GroupID) {
	s.mu.Lock()
	s.groups[gid] = struct{}{}
	s.mu.Unlock()
}

func (s *Session) RemoveGroup(gid domain.GroupID) {
	s.mu.Lock()
	delete(s.groups, gid)
	s.mu.Unlock()
}

func (s *Session) Groups() []domain.GroupID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.GroupID, 0, len(s.groups))
	for gid := range s.groups {
		out = append(out, gid)
	}
	return out
}
