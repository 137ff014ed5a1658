// Package auth verifies handshake credentials before any event handler
// runs. A connection with a bad or missing credential never reaches the
// session registry.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vsharee/vsharee/internal/domain"
	"github.com/vsharee/vsharee/internal/store"
)

var ErrAuthentication = errors.New("authentication failed")

// IdentityResolver turns a handshake credential into a verified identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) (*domain.User, error)
}

// Claims is the token shape issued by the account service.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// JWTResolver validates HMAC-signed bearer tokens and loads the user's
// display name from the user store, so a deleted account cannot
// reconnect with a stale token.
type JWTResolver struct {
	secret []byte
	users  store.UserStore
}

func NewJWTResolver(secret string, users store.UserStore) *JWTResolver {
	return &JWTResolver{secret: []byte(secret), users: users}
}

func (r *JWTResolver) Resolve(ctx context.Context, credential string) (*domain.User, error) {
	if credential == "" {
		return nil, fmt.Errorf("%w: missing token", ErrAuthentication)
	}

	token, err := jwt.ParseWithClaims(credential, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid claims", ErrAuthentication)
	}

	uid := claims.UserID
	if uid == "" {
		uid = claims.Subject
	}
	if uid == "" {
		return nil, fmt.Errorf("%w: token carries no user id", ErrAuthentication)
	}

	user, err := r.users.User(ctx, domain.UserID(uid))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user not found", ErrAuthentication)
		}
		return nil, fmt.Errorf("resolve user %s: %w", uid, err)
	}
	return user, nil
}
