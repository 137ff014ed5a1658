package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsharee/vsharee/internal/domain"
	"github.com/vsharee/vsharee/internal/store"
)

func TestPresence_JoinUnknownGroup(t *testing.T) {
	f := newFixture(t)
	sess, _ := f.connect(t, "alice", "Alice")

	_, err := f.presence.Join(context.Background(), sess, "no-such-group")
	assert.ErrorIs(t, err, store.ErrGroupNotFound)
}

func TestPresence_JoinNonMember(t *testing.T) {
	f := newFixture(t)
	f.store.PutUser(domain.User{ID: "dave", Name: "Dave"})
	sess, _ := f.connect(t, "dave", "Dave")

	_, err := f.presence.Join(context.Background(), sess, groupMovies)
	assert.ErrorIs(t, err, store.ErrNotAMember)
}

func TestPresence_JoinSnapshotAndAnnouncement(t *testing.T) {
	f := newFixture(t)
	alice, aliceConn := f.connect(t, "alice", "Alice")
	bob, bobConn := f.connect(t, "bob", "Bob")

	res := f.join(t, alice, groupMovies)
	assert.Empty(t, res.Online, "first joiner sees nobody")

	res = f.join(t, bob, groupMovies)
	require.Len(t, res.Online, 1)
	assert.Equal(t, domain.UserID("alice"), res.Online[0].ID)

	// Alice is told about Bob; Bob hears nothing about himself.
	require.Equal(t, []string{"userJoined"}, aliceConn.eventTypes(t))
	assert.Equal(t, "bob", aliceConn.events(t)[0]["id"])
	assert.Empty(t, bobConn.eventTypes(t))
}

func TestPresence_JoinIssuesMediaToken(t *testing.T) {
	f := newFixture(t)
	presence := NewPresence(f.registry, f.store, fakeIssuer{})
	alice, _ := f.connect(t, "alice", "Alice")
	bob, _ := f.connect(t, "bob", "Bob")

	res, err := presence.Join(context.Background(), alice, groupMovies)
	require.NoError(t, err)
	assert.Equal(t, "pub-movies", res.MediaToken, "creators publish")
	assert.Equal(t, "wss://media.local", res.MediaURL)

	res, err = presence.Join(context.Background(), bob, groupMovies)
	require.NoError(t, err)
	assert.Equal(t, "sub-movies", res.MediaToken, "plain members subscribe only")
}

func TestPresence_LeaveNotInRoom(t *testing.T) {
	f := newFixture(t)
	sess, _ := f.connect(t, "alice", "Alice")

	err := f.presence.Leave(context.Background(), sess, groupMovies)
	assert.ErrorIs(t, err, ErrNotInRoom)
}

func TestPresence_JoinLeaveRoundTrip(t *testing.T) {
	f := newFixture(t)
	alice, _ := f.connect(t, "alice", "Alice")
	bob, _ := f.connect(t, "bob", "Bob")
	f.join(t, alice, groupMovies)

	before := f.registry.RoomMembers(groupMovies)
	room, ok := f.registry.Room(groupMovies)
	require.True(t, ok)
	idleBefore := room.Idle()

	f.join(t, bob, groupMovies)
	require.NoError(t, f.presence.Leave(context.Background(), bob, groupMovies))

	assert.Equal(t, before, f.registry.RoomMembers(groupMovies))
	room, ok = f.registry.Room(groupMovies)
	require.True(t, ok)
	assert.Equal(t, idleBefore, room.Idle())
}

func TestPresence_LastControllerLeaveResetsContent(t *testing.T) {
	f := newFixture(t)
	alice, _ := f.connect(t, "alice", "Alice")
	bob, bobConn := f.connect(t, "bob", "Bob")
	f.join(t, alice, groupMovies)
	f.join(t, bob, groupMovies)
	bobConn.reset()

	require.NoError(t, f.presence.Leave(context.Background(), alice, groupMovies))

	assert.Equal(t, []string{"userLeft", "contentReset"}, bobConn.eventTypes(t))
	assert.True(t, f.groupIdle(t, groupMovies), "idle flag written through on the transition")
}

func TestPresence_MemberLeaveDoesNotReset(t *testing.T) {
	f := newFixture(t)
	alice, aliceConn := f.connect(t, "alice", "Alice")
	bob, _ := f.connect(t, "bob", "Bob")
	f.join(t, alice, groupMovies)
	f.join(t, bob, groupMovies)
	aliceConn.reset()

	require.NoError(t, f.presence.Leave(context.Background(), bob, groupMovies))

	assert.Equal(t, []string{"userLeft"}, aliceConn.eventTypes(t))
	assert.False(t, f.groupIdle(t, groupMovies))
}

func TestPresence_LastMemberLeaveEvictsRoom(t *testing.T) {
	f := newFixture(t)
	alice, _ := f.connect(t, "alice", "Alice")
	f.join(t, alice, groupMovies)

	require.NoError(t, f.presence.Leave(context.Background(), alice, groupMovies))
	_, ok := f.registry.Room(groupMovies)
	assert.False(t, ok, "empty room is evicted")
}

func TestPresence_DisconnectLeavesEveryGroupOnce(t *testing.T) {
	f := newFixture(t)
	alice, _ := f.connect(t, "alice", "Alice")
	bob, bobConn := f.connect(t, "bob", "Bob")
	carol, carolConn := f.connect(t, "carol", "Carol")
	f.join(t, alice, groupMovies)
	f.join(t, alice, groupMusic)
	f.join(t, bob, groupMovies)
	f.join(t, carol, groupMusic)
	bobConn.reset()
	carolConn.reset()

	f.presence.Disconnect(context.Background(), alice.ID)

	// Bob shared only movies with Alice; losing its creator idles that room.
	assert.Equal(t, []string{"userLeft", "contentReset"}, bobConn.eventTypes(t))
	// Carol shared only music and holds a controller role there.
	assert.Equal(t, []string{"userLeft"}, carolConn.eventTypes(t))

	_, ok := f.registry.Lookup(alice.ID)
	assert.False(t, ok)
	assert.True(t, f.groupIdle(t, groupMovies))
	assert.False(t, f.groupIdle(t, groupMusic))
}

func TestPresence_DisconnectUnknownSessionIsNoop(t *testing.T) {
	f := newFixture(t)
	f.presence.Disconnect(context.Background(), "conn-ghost")
	assert.Equal(t, 0, f.registry.SessionCount())
}
