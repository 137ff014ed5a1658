package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsharee/vsharee/internal/core"
	"github.com/vsharee/vsharee/internal/domain"
)

func TestRegistry_RegisterDuplicateConnection(t *testing.T) {
	f := newFixture(t)

	_, err := f.registry.Register("conn-1", &domain.User{ID: "alice", Name: "Alice"}, &fakeConn{})
	require.NoError(t, err)

	_, err = f.registry.Register("conn-1", &domain.User{ID: "bob", Name: "Bob"}, &fakeConn{})
	assert.ErrorIs(t, err, ErrDuplicateConnection)
}

func TestRegistry_LookupAndDeregister(t *testing.T) {
	f := newFixture(t)
	sess, _ := f.connect(t, "alice", "Alice")

	got, ok := f.registry.Lookup(sess.ID)
	require.True(t, ok)
	assert.Equal(t, sess, got)

	f.registry.Deregister(sess.ID)
	_, ok = f.registry.Lookup(sess.ID)
	assert.False(t, ok)
}

func TestRegistry_AddMembershipRejectsDeregisteredSession(t *testing.T) {
	f := newFixture(t)
	sess, _ := f.connect(t, "alice", "Alice")
	f.registry.Deregister(sess.ID)

	_, _, err := f.registry.AddMembership(sess, groupMovies, domain.RoleCreator, false)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRegistry_RoomMembersInsertionOrder(t *testing.T) {
	f := newFixture(t)
	alice, _ := f.connect(t, "alice", "Alice")
	bob, _ := f.connect(t, "bob", "Bob")
	carol, _ := f.connect(t, "carol", "Carol")

	for _, sess := range []*core.Session{alice, bob, carol} {
		role := domain.RoleMember
		_, _, err := f.registry.AddMembership(sess, groupMovies, role, false)
		require.NoError(t, err)
	}

	members := f.registry.RoomMembers(groupMovies)
	require.Len(t, members, 3)
	assert.Equal(t, domain.UserID("alice"), members[0].ID)
	assert.Equal(t, domain.UserID("bob"), members[1].ID)
	assert.Equal(t, domain.UserID("carol"), members[2].ID)
}

func TestRegistry_JoinSnapshotExcludesJoiner(t *testing.T) {
	f := newFixture(t)
	alice, _ := f.connect(t, "alice", "Alice")
	bob, _ := f.connect(t, "bob", "Bob")

	_, _, err := f.registry.AddMembership(alice, groupMovies, domain.RoleCreator, false)
	require.NoError(t, err)

	_, online, err := f.registry.AddMembership(bob, groupMovies, domain.RoleMember, false)
	require.NoError(t, err)
	require.Len(t, online, 1)
	assert.Equal(t, domain.UserID("alice"), online[0].ID)
}

func TestRegistry_EvictIfEmpty(t *testing.T) {
	f := newFixture(t)
	sess, _ := f.connect(t, "alice", "Alice")

	_, _, err := f.registry.AddMembership(sess, groupMovies, domain.RoleCreator, false)
	require.NoError(t, err)
	assert.Equal(t, 1, f.registry.RoomCount())

	// Still occupied, eviction is a no-op.
	f.registry.EvictIfEmpty(groupMovies)
	assert.Equal(t, 1, f.registry.RoomCount())

	f.registry.RemoveMembership(sess, groupMovies)
	f.registry.EvictIfEmpty(groupMovies)
	assert.Equal(t, 0, f.registry.RoomCount())
	assert.Empty(t, f.registry.RoomMembers(groupMovies))
}

func TestRegistry_Rooms(t *testing.T) {
	f := newFixture(t)
	sess, _ := f.connect(t, "bob", "Bob")
	_, _, err := f.registry.AddMembership(sess, groupMovies, domain.RoleMember, false)
	require.NoError(t, err)

	rooms := f.registry.Rooms()
	require.Len(t, rooms, 1)
	assert.Equal(t, groupMovies, rooms[0].GroupID)
	assert.Equal(t, 1, rooms[0].MemberCount)
	assert.True(t, rooms[0].Idle, "a room holding only plain members is idle")
}
