package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/vsharee/vsharee/internal/core"
	"github.com/vsharee/vsharee/internal/domain"
	"github.com/vsharee/vsharee/internal/metrics"
	"github.com/vsharee/vsharee/internal/protocol"
	"github.com/vsharee/vsharee/internal/store"
)

// MediaTokenIssuer mints access tokens for the external media-relay
// service. Nil issuer means the deployment runs without media relay.
type MediaTokenIssuer interface {
	Issue(gid domain.GroupID, user domain.User, canPublish bool) (token string, url string, err error)
}

// Presence drives join/leave transitions and the room idle lifecycle.
// It is the only component that mutates room membership; the relay only
// reads it.
type Presence struct {
	registry   *Registry
	membership store.MembershipStore
	media      MediaTokenIssuer
}

func NewPresence(registry *Registry, membership store.MembershipStore, media MediaTokenIssuer) *Presence {
	return &Presence{registry: registry, membership: membership, media: media}
}

// JoinResult is returned to the joiner only. The member snapshot excludes
// the joiner itself; the media token is never broadcast.
type JoinResult struct {
	Online     []core.MemberInfo
	MediaToken string
	MediaURL   string
}

// Join verifies group and membership against the store, attaches the
// session to the room and announces it. Membership is checked once per
// join, not continuously.
func (p *Presence) Join(ctx context.Context, sess *core.Session, gid domain.GroupID) (*JoinResult, error) {
	group, err := p.membership.Group(ctx, gid)
	if err != nil {
		return nil, err
	}
	role, err := p.membership.Role(ctx, gid, sess.User.ID)
	if err != nil {
		return nil, err
	}

	// The store calls above awaited I/O; a disconnect may have raced in.
	// AddMembership re-validates the session under the registry lock.
	room, online, err := p.registry.AddMembership(sess, gid, role, group.Idle)
	if err != nil {
		return nil, err
	}
	metrics.ActiveRooms.Set(float64(p.registry.RoomCount()))
	log.Info().Str("module", "app.presence").Str("sid", string(sess.ID)).Str("group", string(gid)).Str("role", string(role)).Msg("joined group")

	joined, err := protocol.Encode(protocol.UserPresence{
		Type: protocol.EvtUserJoined,
		ID:   sess.User.ID,
		Name: sess.User.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("encode userJoined: %w", err)
	}
	room.Broadcast(sess.ID, joined)

	res := &JoinResult{Online: online}
	if p.media != nil {
		token, url, err := p.media.Issue(gid, *sess.User, role.CanControl())
		if err != nil {
			// The member is in the room either way; media comes up once
			// the client retries the join.
			log.Error().Err(err).Str("module", "app.presence").Str("group", string(gid)).Msg("media token issuance failed")
		} else {
			res.MediaToken = token
			res.MediaURL = url
		}
	}
	return res, nil
}

// Leave detaches the session from the room, announces the departure and
// recomputes the idle flag. Explicit leave and disconnect share this path.
func (p *Presence) Leave(ctx context.Context, sess *core.Session, gid domain.GroupID) error {
	room, removed, becameIdle := p.registry.RemoveMembership(sess, gid)
	if room == nil || !removed {
		return ErrNotInRoom
	}
	log.Info().Str("module", "app.presence").Str("sid", string(sess.ID)).Str("group", string(gid)).Msg("left group")

	left, err := protocol.Encode(protocol.UserPresence{
		Type: protocol.EvtUserLeft,
		ID:   sess.User.ID,
		Name: sess.User.Name,
	})
	if err != nil {
		return fmt.Errorf("encode userLeft: %w", err)
	}
	room.Broadcast("", left)

	if becameIdle {
		p.onIdle(ctx, room)
	}

	p.registry.EvictIfEmpty(gid)
	metrics.ActiveRooms.Set(float64(p.registry.RoomCount()))
	return nil
}

// onIdle runs when the last member able to control playback has gone:
// unattended shared state resets rather than drifting silently, and the
// flag is written through so it survives coordinator restarts.
func (p *Presence) onIdle(ctx context.Context, room *core.Room) {
	reset, err := protocol.Encode(protocol.ContentReset{Type: protocol.EvtContentReset})
	if err != nil {
		log.Error().Err(err).Str("module", "app.presence").Msg("encode contentReset")
		return
	}
	room.Broadcast("", reset)

	if err := p.membership.SetIdle(ctx, room.GroupID(), true); err != nil {
		metrics.PersistenceFailures.Inc()
		log.Error().Err(err).Str("module", "app.presence").Str("group", string(room.GroupID())).Msg("idle flag write failed")
	}
}

// Disconnect runs the leave path for every group the session had joined,
// then drops the session record.
func (p *Presence) Disconnect(ctx context.Context, sid core.SessionID) {
	sess, ok := p.registry.Lookup(sid)
	if !ok {
		return
	}
	for _, gid := range sess.Groups() {
		if err := p.Leave(ctx, sess, gid); err != nil {
			log.Warn().Err(err).Str("module", "app.presence").Str("sid", string(sid)).Str("group", string(gid)).Msg("leave on disconnect")
		}
	}
	p.registry.Deregister(sid)
	metrics.ActiveSessions.Set(float64(p.registry.SessionCount()))
}
