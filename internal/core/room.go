package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/vsharee/vsharee/internal/domain"
)

type roomMember struct {
	sess *Session
	role domain.Role
}

// Room is the threadsafe in-memory set of live sessions attached to one
// group, plus the derived idle flag. It owns membership but never closes
// adapter-owned transport resources. Member order is insertion order.
type Room struct {
	group domain.GroupID

	mu      sync.RWMutex
	order   []SessionID
	members map[SessionID]*roomMember
	idle    bool
}

func NewRoom(gid domain.GroupID, idle bool) *Room {
	return &Room{
		group:   gid,
		members: make(map[SessionID]*roomMember),
		idle:    idle,
	}
}

func (r *Room) GroupID() domain.GroupID { return r.group }

func (r *Room) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Add inserts the member and re-derives the idle flag: a room with a
// member able to control playback is never idle after a join.
func (r *Room) Add(sess *Session, role domain.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[sess.ID]; ok {
		return
	}
	r.members[sess.ID] = &roomMember{sess: sess, role: role}
	r.order = append(r.order, sess.ID)
	r.idle = !r.hasControllerLocked()
	log.Debug().Str("module", "core.room").Str("group", string(r.group)).Str("sid", string(sess.ID)).Str("role", string(role)).Msg("member added")
}

// Remove drops the member and re-derives the idle flag. becameIdle is
// true when this removal took the last playback-capable member with it;
// the caller owns the reset broadcast and the write-through.
func (r *Room) Remove(sid SessionID) (removed, becameIdle bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[sid]; !ok {
		return false, false
	}
	delete(r.members, sid)
	for i, id := range r.order {
		if id == sid {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	wasIdle := r.idle
	r.idle = !r.hasControllerLocked()
	log.Debug().Str("module", "core.room").Str("group", string(r.group)).Str("sid", string(sid)).Msg("member removed")
	return true, !wasIdle && r.idle
}

func (r *Room) hasControllerLocked() bool {
	for _, m := range r.members {
		if m.role.CanControl() {
			return true
		}
	}
	return false
}

func (r *Room) Contains(sid SessionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[sid]
	return ok
}

func (r *Room) RoleOf(sid SessionID) (domain.Role, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[sid]
	if !ok {
		return "", false
	}
	return m.role, true
}

// Members returns the current member identities in insertion order.
func (r *Room) Members() []MemberInfo {
	return r.MembersExcluding("")
}

// MembersExcluding returns the member identities in insertion order,
// skipping the given session. Used for a joiner's own presence snapshot.
func (r *Room) MembersExcluding(skip SessionID) []MemberInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MemberInfo, 0, len(r.order))
	for _, sid := range r.order {
		if sid == skip {
			continue
		}
		m := r.members[sid]
		out = append(out, MemberInfo{ID: m.sess.User.ID, Name: m.sess.User.Name, Role: m.role})
	}
	return out
}

func (r *Room) Idle() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.idle
}

func (r *Room) SetIdle(idle bool) {
	r.mu.Lock()
	r.idle = idle
	r.mu.Unlock()
}

// Broadcast is the single room-scoped fan-out primitive. Pass from="" to
// include every member. The lock is held for the whole fan-out so no other
// mutation interleaves mid-broadcast; TrySend never blocks.
func (r *Room) Broadcast(from SessionID, data Frame) PublishResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := PublishResult{}
	for _, sid := range r.order {
		if sid == from {
			continue
		}
		if err := r.members[sid].sess.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, sid)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.room").Str("group", string(r.group)).Str("from", string(from)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}
