package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsharee/vsharee/internal/domain"
)

func TestMemoryStore_GroupLookup(t *testing.T) {
	s := NewMemoryStore()
	s.PutGroup(domain.Group{ID: "g1", Name: "movie night", Idle: true})

	g, err := s.Group(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "movie night", g.Name)
	assert.True(t, g.Idle)

	_, err = s.Group(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestMemoryStore_Role(t *testing.T) {
	s := NewMemoryStore()
	s.PutGroup(domain.Group{ID: "g1"})
	s.PutMember("g1", "alice", domain.RoleCreator)

	role, err := s.Role(context.Background(), "g1", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCreator, role)

	_, err = s.Role(context.Background(), "g1", "bob")
	assert.ErrorIs(t, err, ErrNotAMember)

	_, err = s.Role(context.Background(), "nope", "alice")
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestMemoryStore_SetIdle(t *testing.T) {
	s := NewMemoryStore()
	s.PutGroup(domain.Group{ID: "g1"})

	require.NoError(t, s.SetIdle(context.Background(), "g1", true))
	g, err := s.Group(context.Background(), "g1")
	require.NoError(t, err)
	assert.True(t, g.Idle)

	assert.ErrorIs(t, s.SetIdle(context.Background(), "nope", true), ErrGroupNotFound)
}

func TestMemoryStore_Messages(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Append(context.Background(), domain.ChatMessage{GroupID: "g1", UserID: "alice", Body: "hi"}))
	require.NoError(t, s.Append(context.Background(), domain.ChatMessage{GroupID: "g1", UserID: "bob", Body: "hey"}))

	msgs := s.Messages("g1")
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Body)
	assert.Equal(t, "hey", msgs[1].Body)
	assert.Empty(t, s.Messages("g2"))
}

func TestMemoryStore_User(t *testing.T) {
	s := NewMemoryStore()
	s.PutUser(domain.User{ID: "alice", Name: "Alice"})

	u, err := s.User(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)

	_, err = s.User(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
