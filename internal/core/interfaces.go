package core

import "github.com/vsharee/vsharee/internal/domain"

// Frame is an encoded outbound event, ready for the wire.
type Frame []byte

// SessionID identifies one live connection. Every connection maps to at
// most one session and vice versa.
type SessionID string

// SignalConnection abstracts the message transport of one client.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// MemberInfo is a read-only view of a room member (no transport fields).
type MemberInfo struct {
	ID   domain.UserID `json:"id"`
	Name string        `json:"name"`
	Role domain.Role   `json:"role"`
}

// PublishResult reports delivery stats/backpressure after a fan-out.
type PublishResult struct {
	SentTo  int
	Dropped []SessionID
}
