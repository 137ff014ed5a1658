package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/vsharee/vsharee/internal/core"
	"github.com/vsharee/vsharee/internal/domain"
)

// Registry owns every live session and every active room. Rooms are
// created lazily on first join and evicted once the last member leaves.
// All membership mutations go through the registry so a room's member set
// and the session's joined-group set change together.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*core.Session
	rooms    map[domain.GroupID]*core.Room
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*core.Session),
		rooms:    make(map[domain.GroupID]*core.Room),
	}
}

// Register creates the session record for a freshly authenticated
// connection. A connection may carry at most one session.
func (r *Registry) Register(sid core.SessionID, user *domain.User, signal core.SignalConnection) (*core.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sid]; ok {
		return nil, ErrDuplicateConnection
	}
	sess := core.NewSession(sid, user, signal)
	r.sessions[sid] = sess
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("user", string(user.ID)).Msg("session registered")
	return sess, nil
}

func (r *Registry) Lookup(sid core.SessionID) (*core.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[sid]
	return sess, ok
}

// AddMembership attaches the session to the group's room, creating the
// room if absent, and returns the room plus the joiner's own presence
// snapshot (everyone but the joiner, insertion order). Fails if the
// session was deregistered while the caller awaited store I/O.
func (r *Registry) AddMembership(sess *core.Session, gid domain.GroupID, role domain.Role, groupIdle bool) (*core.Room, []core.MemberInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sess.ID]; !ok {
		return nil, nil, ErrSessionNotFound
	}
	room, ok := r.rooms[gid]
	if !ok {
		room = core.NewRoom(gid, groupIdle)
		r.rooms[gid] = room
		log.Info().Str("module", "app.registry").Str("group", string(gid)).Msg("room created")
	}
	room.Add(sess, role)
	sess.AddGroup(gid)
	online := room.MembersExcluding(sess.ID)
	return room, online, nil
}

// RemoveMembership detaches the session from the room. The room is left in
// place so the caller can still broadcast to the remaining members; evict
// separately once done. becameIdle reports the room's idle transition.
func (r *Registry) RemoveMembership(sess *core.Session, gid domain.GroupID) (room *core.Room, removed, becameIdle bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[gid]
	if !ok {
		return nil, false, false
	}
	removed, becameIdle = room.Remove(sess.ID)
	sess.RemoveGroup(gid)
	return room, removed, becameIdle
}

func (r *Registry) Room(gid domain.GroupID) (*core.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[gid]
	return room, ok
}

// RoomMembers returns the identities currently in the group's room in
// insertion order. An absent room reads as empty.
func (r *Registry) RoomMembers(gid domain.GroupID) []core.MemberInfo {
	r.mu.RLock()
	room, ok := r.rooms[gid]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	return room.Members()
}

// EvictIfEmpty drops the in-memory room once no session remains.
func (r *Registry) EvictIfEmpty(gid domain.GroupID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if room, ok := r.rooms[gid]; ok && room.Len() == 0 {
		delete(r.rooms, gid)
		log.Info().Str("module", "app.registry").Str("group", string(gid)).Msg("room evicted")
	}
}

// Deregister removes the session record. Memberships must already have
// been removed via the leave path.
func (r *Registry) Deregister(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("session deregistered")
}

func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// RoomInfo is a read-only room summary for the observation API.
type RoomInfo struct {
	GroupID     domain.GroupID `json:"groupId"`
	MemberCount int            `json:"memberCount"`
	Idle        bool           `json:"idle"`
}

func (r *Registry) Rooms() []RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RoomInfo, 0, len(r.rooms))
	for gid, room := range r.rooms {
		out = append(out, RoomInfo{GroupID: gid, MemberCount: room.Len(), Idle: room.Idle()})
	}
	return out
}

// Sessions snapshots the live sessions, for read-only observation.
func (r *Registry) Sessions() []*core.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*core.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
