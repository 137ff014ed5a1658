// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const MaxNameLen = 64

var (
	ErrNameTooLong = errors.New("name too long")
	ErrNameEmpty   = errors.New("name empty")
)

type UserID string

// User is the authenticated identity attached to a session.
type User struct {
	ID   UserID `json:"id"`
	Name string `json:"name"`
}

// NewUser validates the identity fields loaded from the user store.
func NewUser(id UserID, name string) (*User, error) {
	if len(name) == 0 {
		return nil, ErrNameEmpty
	}
	if len(name) > MaxNameLen {
		return nil, ErrNameTooLong
	}
	return &User{ID: id, Name: name}, nil
}
