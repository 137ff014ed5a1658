package store

import (
	"context"
	"sync"

	"github.com/vsharee/vsharee/internal/domain"
)

// MemoryStore is the redis-free backend used in dev mode and in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	groups   map[domain.GroupID]*domain.Group
	roles    map[domain.GroupID]map[domain.UserID]domain.Role
	users    map[domain.UserID]*domain.User
	messages map[domain.GroupID][]domain.ChatMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		groups:   make(map[domain.GroupID]*domain.Group),
		roles:    make(map[domain.GroupID]map[domain.UserID]domain.Role),
		users:    make(map[domain.UserID]*domain.User),
		messages: make(map[domain.GroupID][]domain.ChatMessage),
	}
}

func (s *MemoryStore) PutGroup(g domain.Group) {
	s.mu.Lock()
	cp := g
	s.groups[g.ID] = &cp
	s.mu.Unlock()
}

func (s *MemoryStore) PutMember(gid domain.GroupID, uid domain.UserID, role domain.Role) {
	s.mu.Lock()
	if s.roles[gid] == nil {
		s.roles[gid] = make(map[domain.UserID]domain.Role)
	}
	s.roles[gid][uid] = role
	s.mu.Unlock()
}

func (s *MemoryStore) PutUser(u domain.User) {
	s.mu.Lock()
	cp := u
	s.users[u.ID] = &cp
	s.mu.Unlock()
}

func (s *MemoryStore) Group(_ context.Context, gid domain.GroupID) (*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[gid]
	if !ok {
		return nil, ErrGroupNotFound
	}
	cp := *g
	return &cp, nil
}

func (s *MemoryStore) Role(_ context.Context, gid domain.GroupID, uid domain.UserID) (domain.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.groups[gid]; !ok {
		return "", ErrGroupNotFound
	}
	role, ok := s.roles[gid][uid]
	if !ok {
		return "", ErrNotAMember
	}
	return role, nil
}

func (s *MemoryStore) SetIdle(_ context.Context, gid domain.GroupID, idle bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[gid]
	if !ok {
		return ErrGroupNotFound
	}
	g.Idle = idle
	return nil
}

func (s *MemoryStore) Append(_ context.Context, msg domain.ChatMessage) error {
	s.mu.Lock()
	s.messages[msg.GroupID] = append(s.messages[msg.GroupID], msg)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) User(_ context.Context, uid domain.UserID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[uid]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// Messages returns the persisted chat log for a group.
func (s *MemoryStore) Messages(gid domain.GroupID) []domain.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ChatMessage, len(s.messages[gid]))
	copy(out, s.messages[gid])
	return out
}
