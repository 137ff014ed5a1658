package app

import (
	"context"
	"fmt"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/vsharee/vsharee/internal/core"
	"github.com/vsharee/vsharee/internal/domain"
	"github.com/vsharee/vsharee/internal/metrics"
	"github.com/vsharee/vsharee/internal/protocol"
	"github.com/vsharee/vsharee/internal/store"
)

// Relay fans out chat, playback and signaling messages to room members.
// It reads room state for authorization and target resolution but never
// mutates membership; role-gated actions fetch the role fresh from the
// membership store so external role edits take effect immediately.
type Relay struct {
	registry   *Registry
	membership store.MembershipStore
	messages   store.MessageStore
}

func NewRelay(registry *Registry, membership store.MembershipStore, messages store.MessageStore) *Relay {
	return &Relay{registry: registry, membership: membership, messages: messages}
}

// memberRoom resolves the room and checks the sender is currently in it.
func (r *Relay) memberRoom(sid core.SessionID, gid domain.GroupID) (*core.Room, error) {
	room, ok := r.registry.Room(gid)
	if !ok || !room.Contains(sid) {
		return nil, ErrNotInRoom
	}
	return room, nil
}

func (r *Relay) userRef(sess *core.Session) protocol.UserRef {
	return protocol.UserRef{ID: sess.User.ID, Name: sess.User.Name}
}

// Chat delivers the message to the other room members, then persists it.
// Delivery is authoritative: a failed store write is logged and counted
// but never retracts the broadcast.
func (r *Relay) Chat(ctx context.Context, sess *core.Session, gid domain.GroupID, message string) error {
	room, err := r.memberRoom(sess.ID, gid)
	if err != nil {
		return err
	}
	frame, err := protocol.Encode(protocol.NewMessage{
		Type:    protocol.EvtNewMessage,
		Message: message,
		User:    r.userRef(sess),
	})
	if err != nil {
		return fmt.Errorf("encode newMessage: %w", err)
	}
	room.Broadcast(sess.ID, frame)
	metrics.MessagesRelayed.WithLabelValues("chat").Inc()

	if err := r.messages.Append(ctx, domain.ChatMessage{
		GroupID: gid,
		UserID:  sess.User.ID,
		Body:    message,
		SentAt:  time.Now(),
	}); err != nil {
		metrics.PersistenceFailures.Inc()
		log.Error().Err(err).Str("module", "app.relay").Str("group", string(gid)).Msg("chat persistence failed")
	}
	return nil
}

// VideoControl relays a play/pause/seek action to the other members.
func (r *Relay) VideoControl(sess *core.Session, gid domain.GroupID, action string, position float64) error {
	room, err := r.memberRoom(sess.ID, gid)
	if err != nil {
		return err
	}
	frame, err := protocol.Encode(protocol.SyncVideo{
		Type:   protocol.EvtSyncVideo,
		Action: action,
		Time:   position,
		User:   r.userRef(sess),
	})
	if err != nil {
		return fmt.Errorf("encode syncVideo: %w", err)
	}
	room.Broadcast(sess.ID, frame)
	metrics.MessagesRelayed.WithLabelValues("videoControl").Inc()
	return nil
}

// SelectMethod chooses the playback source for the room. CREATOR or
// CONTROLLER only; the role comes fresh from the store, not from the
// role cached at join time.
func (r *Relay) SelectMethod(ctx context.Context, sess *core.Session, gid domain.GroupID, method string) error {
	if _, err := r.memberRoom(sess.ID, gid); err != nil {
		return err
	}
	role, err := r.membership.Role(ctx, gid, sess.User.ID)
	if err != nil {
		return err
	}
	if !role.CanControl() {
		return ErrUnauthorized
	}
	// The role fetch awaited I/O; the room may have changed meanwhile.
	room, err := r.memberRoom(sess.ID, gid)
	if err != nil {
		return err
	}
	frame, err := protocol.Encode(protocol.MethodSelected{
		Type:   protocol.EvtMethodSelect,
		Method: method,
	})
	if err != nil {
		return fmt.Errorf("encode methodSelected: %w", err)
	}
	room.Broadcast("", frame)
	metrics.MessagesRelayed.WithLabelValues("methodSelected").Inc()

	room.SetIdle(false)
	if err := r.membership.SetIdle(ctx, gid, false); err != nil {
		metrics.PersistenceFailures.Inc()
		log.Error().Err(err).Str("module", "app.relay").Str("group", string(gid)).Msg("idle flag write failed")
	}
	return nil
}

// ShareVideoURL announces a playback source URL to the other members.
func (r *Relay) ShareVideoURL(sess *core.Session, gid domain.GroupID, url string) error {
	room, err := r.memberRoom(sess.ID, gid)
	if err != nil {
		return err
	}
	frame, err := protocol.Encode(protocol.ReceiveVideoURL{
		Type: protocol.EvtReceiveVideoURL,
		URL:  url,
	})
	if err != nil {
		return fmt.Errorf("encode receiveVideoUrl: %w", err)
	}
	room.Broadcast(sess.ID, frame)
	metrics.MessagesRelayed.WithLabelValues("videoUrl").Inc()
	return nil
}

// ShareFileHash announces a local-file content hash to the other members.
func (r *Relay) ShareFileHash(sess *core.Session, gid domain.GroupID, hash, name string) error {
	room, err := r.memberRoom(sess.ID, gid)
	if err != nil {
		return err
	}
	frame, err := protocol.Encode(protocol.ReceiveFileHash{
		Type: protocol.EvtReceiveFileHash,
		Hash: hash,
		Name: name,
	})
	if err != nil {
		return fmt.Errorf("encode receiveVideoFileHash: %w", err)
	}
	room.Broadcast(sess.ID, frame)
	metrics.MessagesRelayed.WithLabelValues("videoFileHash").Inc()
	return nil
}

// RelayOffer forwards a WebRTC offer to the other members. Signaling is
// broadcast, not targeted: any member may pick it up and answer.
func (r *Relay) RelayOffer(sess *core.Session, gid domain.GroupID, offer webrtc.SessionDescription) error {
	room, err := r.memberRoom(sess.ID, gid)
	if err != nil {
		return err
	}
	frame, err := protocol.Encode(protocol.VideoOffer{
		Type:  protocol.EvtVideoOffer,
		Offer: offer,
		From:  r.userRef(sess),
	})
	if err != nil {
		return fmt.Errorf("encode videoOffer: %w", err)
	}
	room.Broadcast(sess.ID, frame)
	metrics.MessagesRelayed.WithLabelValues("videoOffer").Inc()
	return nil
}

func (r *Relay) RelayAnswer(sess *core.Session, gid domain.GroupID, answer webrtc.SessionDescription) error {
	room, err := r.memberRoom(sess.ID, gid)
	if err != nil {
		return err
	}
	frame, err := protocol.Encode(protocol.VideoAnswer{
		Type:   protocol.EvtVideoAnswer,
		Answer: answer,
		From:   r.userRef(sess),
	})
	if err != nil {
		return fmt.Errorf("encode videoAnswer: %w", err)
	}
	room.Broadcast(sess.ID, frame)
	metrics.MessagesRelayed.WithLabelValues("videoAnswer").Inc()
	return nil
}

func (r *Relay) RelayCandidate(sess *core.Session, gid domain.GroupID, candidate webrtc.ICECandidateInit) error {
	room, err := r.memberRoom(sess.ID, gid)
	if err != nil {
		return err
	}
	frame, err := protocol.Encode(protocol.ICECandidate{
		Type:      protocol.EvtICECandidate,
		Candidate: candidate,
		From:      r.userRef(sess),
	})
	if err != nil {
		return fmt.Errorf("encode iceCandidate: %w", err)
	}
	room.Broadcast(sess.ID, frame)
	metrics.MessagesRelayed.WithLabelValues("iceCandidate").Inc()
	return nil
}

// ResetContent is the explicit reset path: any current member may force
// the room idle, and everyone including the sender sees the reset.
func (r *Relay) ResetContent(ctx context.Context, sess *core.Session, gid domain.GroupID) error {
	room, err := r.memberRoom(sess.ID, gid)
	if err != nil {
		return err
	}
	frame, err := protocol.Encode(protocol.ContentReset{Type: protocol.EvtContentReset})
	if err != nil {
		return fmt.Errorf("encode contentReset: %w", err)
	}
	room.Broadcast("", frame)
	metrics.MessagesRelayed.WithLabelValues("contentReset").Inc()

	room.SetIdle(true)
	if err := r.membership.SetIdle(ctx, gid, true); err != nil {
		metrics.PersistenceFailures.Inc()
		log.Error().Err(err).Str("module", "app.relay").Str("group", string(gid)).Msg("idle flag write failed")
	}
	return nil
}
