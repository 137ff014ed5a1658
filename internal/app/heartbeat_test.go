package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsharee/vsharee/internal/core"
)

func TestMonitor_BeatAcksSenderOnly(t *testing.T) {
	f := newFixture(t)
	alice, aliceConn := f.connect(t, "alice", "Alice")
	bob, bobConn := f.connect(t, "bob", "Bob")
	f.join(t, alice, groupMovies)
	f.join(t, bob, groupMovies)
	aliceConn.reset()
	bobConn.reset()

	require.NoError(t, f.monitor.Beat(alice))
	require.NoError(t, f.monitor.Beat(bob))

	assert.Equal(t, []string{"heartbeat_ack"}, aliceConn.eventTypes(t))
	assert.Equal(t, []string{"heartbeat_ack"}, bobConn.eventTypes(t))
}

func TestMonitor_BeatRefreshesTimestamp(t *testing.T) {
	f := newFixture(t)
	sess, _ := f.connect(t, "alice", "Alice")
	before := sess.LastHeartbeat()

	time.Sleep(time.Millisecond)
	require.NoError(t, f.monitor.Beat(sess))

	assert.True(t, sess.LastHeartbeat().After(before))
}

func TestMonitor_Stale(t *testing.T) {
	f := newFixture(t)
	monitor := NewMonitor(f.registry, time.Minute)
	alice, _ := f.connect(t, "alice", "Alice")
	bob, _ := f.connect(t, "bob", "Bob")

	now := time.Now()
	assert.Empty(t, monitor.Stale(now), "fresh sessions are not stale")

	stale := monitor.Stale(now.Add(2 * time.Minute))
	require.Len(t, stale, 2)
	assert.ElementsMatch(t, []core.SessionID{alice.ID, bob.ID}, stale)
}
