package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vsharee/vsharee/internal/core"
	"github.com/vsharee/vsharee/internal/domain"
	"github.com/vsharee/vsharee/internal/store"
)

// fakeConn records every frame delivered to one session.
type fakeConn struct {
	mu       sync.Mutex
	frames   []core.Frame
	failSend bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend {
		return errors.New("send failed")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {}

// events decodes the recorded frames into generic maps, in order.
func (c *fakeConn) events(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(f, &m))
		out = append(out, m)
	}
	return out
}

func (c *fakeConn) eventTypes(t *testing.T) []string {
	t.Helper()
	evts := c.events(t)
	out := make([]string, 0, len(evts))
	for _, e := range evts {
		out = append(out, e["type"].(string))
	}
	return out
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

// failingMessages simulates a broken message store.
type failingMessages struct{}

func (failingMessages) Append(context.Context, domain.ChatMessage) error {
	return errors.New("store down")
}

// fakeIssuer mints predictable media tokens.
type fakeIssuer struct{}

func (fakeIssuer) Issue(gid domain.GroupID, user domain.User, canPublish bool) (string, string, error) {
	if canPublish {
		return "pub-" + string(gid), "wss://media.local", nil
	}
	return "sub-" + string(gid), "wss://media.local", nil
}

const (
	groupMovies domain.GroupID = "movies"
	groupMusic  domain.GroupID = "music"
)

type fixture struct {
	registry *Registry
	store    *store.MemoryStore
	presence *Presence
	relay    *Relay
	monitor  *Monitor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ms := store.NewMemoryStore()
	ms.PutGroup(domain.Group{ID: groupMovies, Name: "movie night"})
	ms.PutGroup(domain.Group{ID: groupMusic, Name: "music club"})
	for _, u := range []struct {
		id   domain.UserID
		name string
		role domain.Role
	}{
		{"alice", "Alice", domain.RoleCreator},
		{"bob", "Bob", domain.RoleMember},
		{"carol", "Carol", domain.RoleController},
	} {
		ms.PutUser(domain.User{ID: u.id, Name: u.name})
		ms.PutMember(groupMovies, u.id, u.role)
		ms.PutMember(groupMusic, u.id, u.role)
	}

	registry := NewRegistry()
	return &fixture{
		registry: registry,
		store:    ms,
		presence: NewPresence(registry, ms, nil),
		relay:    NewRelay(registry, ms, ms),
		monitor:  NewMonitor(registry, 0),
	}
}

func (f *fixture) connect(t *testing.T, uid domain.UserID, name string) (*core.Session, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	sess, err := f.registry.Register(core.SessionID("conn-"+string(uid)), &domain.User{ID: uid, Name: name}, conn)
	require.NoError(t, err)
	return sess, conn
}

func (f *fixture) join(t *testing.T, sess *core.Session, gid domain.GroupID) *JoinResult {
	t.Helper()
	res, err := f.presence.Join(context.Background(), sess, gid)
	require.NoError(t, err)
	return res
}

func (f *fixture) groupIdle(t *testing.T, gid domain.GroupID) bool {
	t.Helper()
	g, err := f.store.Group(context.Background(), gid)
	require.NoError(t, err)
	return g.Idle
}
