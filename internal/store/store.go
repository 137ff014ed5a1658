// Package store holds the coordinator's view of the persistence layer.
// The coordinator itself keeps no durable state; group membership, roles,
// the idle flag and chat history all live behind these interfaces.
package store

import (
	"context"
	"errors"

	"github.com/vsharee/vsharee/internal/domain"
)

var (
	ErrGroupNotFound = errors.New("group not found")
	ErrNotAMember    = errors.New("not a member")
	ErrUserNotFound  = errors.New("user not found")
)

// MembershipStore is the source of truth for groups, membership and roles.
// Role is fetched fresh on every privileged action, never cached beyond a
// single join, so edits made outside the coordinator take effect.
type MembershipStore interface {
	// Group returns the group record or ErrGroupNotFound.
	Group(ctx context.Context, gid domain.GroupID) (*domain.Group, error)
	// Role returns the user's role in the group, ErrNotAMember if the user
	// does not belong to it, or ErrGroupNotFound.
	Role(ctx context.Context, gid domain.GroupID, uid domain.UserID) (domain.Role, error)
	// SetIdle writes the group's idle flag through to persistence.
	SetIdle(ctx context.Context, gid domain.GroupID, idle bool) error
}

// MessageStore persists chat messages. Failures are logged, never surfaced
// to room members.
type MessageStore interface {
	Append(ctx context.Context, msg domain.ChatMessage) error
}

// UserStore resolves user identities for the handshake.
type UserStore interface {
	// User returns the user record or ErrUserNotFound.
	User(ctx context.Context, uid domain.UserID) (*domain.User, error)
}
