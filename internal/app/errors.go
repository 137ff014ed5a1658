package app

import "errors"

// Failure taxonomy for per-message handling. Every one of these is
// contained to the offending message: the sender gets an error event,
// the connection stays open, nothing propagates to other members.
var (
	ErrDuplicateConnection = errors.New("connection already has a session")
	ErrSessionNotFound     = errors.New("session not found")
	ErrNotInRoom           = errors.New("not joined to this group")
	ErrUnauthorized        = errors.New("insufficient role for this action")
)
