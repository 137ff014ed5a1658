// Package media mints access tokens for the external media-relay service
// that carries the audio/video streams. The coordinator never touches the
// media itself; it only grants entry keyed by (group, user, role).
package media

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vsharee/vsharee/internal/domain"
)

// VideoGrant is the per-room permission block embedded in the token.
type VideoGrant struct {
	Room           string `json:"room"`
	RoomJoin       bool   `json:"roomJoin"`
	CanPublish     bool   `json:"canPublish"`
	CanSubscribe   bool   `json:"canSubscribe"`
	CanPublishData bool   `json:"canPublishData"`
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Name  string     `json:"name,omitempty"`
	Video VideoGrant `json:"video"`
}

// TokenIssuer signs media access tokens with the relay's API key pair.
type TokenIssuer struct {
	apiKey    string
	apiSecret []byte
	url       string
	ttl       time.Duration
}

func NewTokenIssuer(apiKey, apiSecret, url string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{apiKey: apiKey, apiSecret: []byte(apiSecret), url: url, ttl: ttl}
}

// Issue returns a signed token and the relay URL for the given group.
// Only members able to control playback may publish; everyone may
// subscribe and exchange data.
func (i *TokenIssuer) Issue(gid domain.GroupID, user domain.User, canPublish bool) (string, string, error) {
	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.apiKey,
			Subject:   string(user.ID),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Name: user.Name,
		Video: VideoGrant{
			Room:           string(gid),
			RoomJoin:       true,
			CanPublish:     canPublish,
			CanSubscribe:   true,
			CanPublishData: true,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.apiSecret)
	if err != nil {
		return "", "", fmt.Errorf("sign media token: %w", err)
	}
	return token, i.url, nil
}
