package signal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/vsharee/vsharee/internal/app"
	"github.com/vsharee/vsharee/internal/core"
	"github.com/vsharee/vsharee/internal/domain"
	"github.com/vsharee/vsharee/internal/protocol"
	"github.com/vsharee/vsharee/internal/store"
)

// handleMessage dispatches one inbound frame. Any failure, panic
// included, is contained to this message: the sender gets an error event
// and every other connection is untouched.
func (ctl *Controller) handleMessage(ctx context.Context, sess *core.Session, c *Conn, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "signal").Str("sid", string(sess.ID)).Interface("panic", r).Msg("handler panic")
			ctl.sendError(c, "internal", "internal error")
		}
	}()

	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendError(c, "message", "malformed message")
		return
	}

	if !ctl.limiter.Allow(sess.User.ID) {
		ctl.sendError(c, env.Type, "rate limited")
		return
	}

	switch env.Type {
	case protocol.EvtJoinGroup:
		ctl.handleJoin(ctx, sess, c, data)
	case protocol.EvtLeftGroup:
		ctl.handleLeave(ctx, sess, c, data)
	case protocol.EvtSendMessage:
		ctl.handleChat(ctx, sess, c, data)
	case protocol.EvtVideoControl:
		ctl.handleVideoControl(sess, c, data)
	case protocol.EvtMethodSelect:
		ctl.handleMethodSelected(ctx, sess, c, data)
	case protocol.EvtSendVideoURL:
		ctl.handleVideoURL(sess, c, data)
	case protocol.EvtSendFileHash:
		ctl.handleFileHash(sess, c, data)
	case protocol.EvtRestart:
		ctl.handleRestart(ctx, sess, c, data)
	case protocol.EvtVideoOffer:
		ctl.handleOffer(sess, c, data)
	case protocol.EvtVideoAnswer:
		ctl.handleAnswer(sess, c, data)
	case protocol.EvtICECandidate:
		ctl.handleCandidate(sess, c, data)
	case protocol.EvtHeartbeat:
		ctl.handleHeartbeat(sess)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown event")
		ctl.sendError(c, env.Type, "unknown event type")
	}
}

func (ctl *Controller) sendJSON(c *Conn, v any) {
	frame, err := protocol.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(frame)
}

// sendError emits an error event to the sender only, naming the event
// kind that failed and a human-readable reason.
func (ctl *Controller) sendError(c *Conn, kind, reason string) {
	ctl.sendJSON(c, protocol.ErrorEvent{
		Type:    protocol.EvtError,
		Message: fmt.Sprintf("%s: %s", kind, reason),
	})
}

// failure maps app and store errors onto wire-facing reasons.
func (ctl *Controller) failure(c *Conn, kind string, err error) {
	switch {
	case errors.Is(err, store.ErrGroupNotFound):
		ctl.sendError(c, kind, "group not found")
	case errors.Is(err, store.ErrNotAMember):
		ctl.sendError(c, kind, "not a member of this group")
	case errors.Is(err, app.ErrNotInRoom):
		ctl.sendError(c, kind, "not joined to this group")
	case errors.Is(err, app.ErrUnauthorized):
		ctl.sendError(c, kind, "insufficient role")
	case errors.Is(err, app.ErrSessionNotFound):
		ctl.sendError(c, kind, "session gone")
	default:
		log.Error().Err(err).Str("module", "signal").Str("kind", kind).Msg("handler failure")
		ctl.sendError(c, kind, "internal error")
	}
}

func (ctl *Controller) handleJoin(ctx context.Context, sess *core.Session, c *Conn, data []byte) {
	var p struct {
		Type    string         `json:"type"`
		GroupID domain.GroupID `json:"groupId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.GroupID == "" {
		ctl.sendError(c, protocol.EvtJoinGroup, "bad payload")
		return
	}

	res, err := ctl.Presence.Join(ctx, sess, p.GroupID)
	if err != nil {
		ctl.failure(c, protocol.EvtJoinGroup, err)
		return
	}
	ctl.sendJSON(c, protocol.JoinedGroup{
		Type:          protocol.EvtJoinedGroup,
		GroupID:       p.GroupID,
		OnlineMembers: res.Online,
		MediaToken:    res.MediaToken,
		MediaURL:      res.MediaURL,
	})
}

func (ctl *Controller) handleLeave(ctx context.Context, sess *core.Session, c *Conn, data []byte) {
	var p struct {
		Type    string         `json:"type"`
		GroupID domain.GroupID `json:"groupId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.GroupID == "" {
		ctl.sendError(c, protocol.EvtLeftGroup, "bad payload")
		return
	}
	if err := ctl.Presence.Leave(ctx, sess, p.GroupID); err != nil {
		ctl.failure(c, protocol.EvtLeftGroup, err)
	}
}

func (ctl *Controller) handleChat(ctx context.Context, sess *core.Session, c *Conn, data []byte) {
	var p struct {
		Type    string         `json:"type"`
		GroupID domain.GroupID `json:"groupId"`
		Message string         `json:"message"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.GroupID == "" {
		ctl.sendError(c, protocol.EvtSendMessage, "bad payload")
		return
	}
	if err := ctl.Relay.Chat(ctx, sess, p.GroupID, p.Message); err != nil {
		ctl.failure(c, protocol.EvtSendMessage, err)
	}
}

func (ctl *Controller) handleVideoControl(sess *core.Session, c *Conn, data []byte) {
	var p struct {
		Type    string         `json:"type"`
		GroupID domain.GroupID `json:"groupId"`
		Action  string         `json:"action"`
		Time    float64        `json:"time"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.GroupID == "" {
		ctl.sendError(c, protocol.EvtVideoControl, "bad payload")
		return
	}
	if err := ctl.Relay.VideoControl(sess, p.GroupID, p.Action, p.Time); err != nil {
		ctl.failure(c, protocol.EvtVideoControl, err)
	}
}

func (ctl *Controller) handleMethodSelected(ctx context.Context, sess *core.Session, c *Conn, data []byte) {
	var p struct {
		Type    string         `json:"type"`
		GroupID domain.GroupID `json:"groupId"`
		Method  string         `json:"method"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.GroupID == "" {
		ctl.sendError(c, protocol.EvtMethodSelect, "bad payload")
		return
	}
	if err := ctl.Relay.SelectMethod(ctx, sess, p.GroupID, p.Method); err != nil {
		ctl.failure(c, protocol.EvtMethodSelect, err)
	}
}

func (ctl *Controller) handleVideoURL(sess *core.Session, c *Conn, data []byte) {
	var p struct {
		Type    string         `json:"type"`
		GroupID domain.GroupID `json:"groupId"`
		URL     string         `json:"url"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.GroupID == "" {
		ctl.sendError(c, protocol.EvtSendVideoURL, "bad payload")
		return
	}
	if err := ctl.Relay.ShareVideoURL(sess, p.GroupID, p.URL); err != nil {
		ctl.failure(c, protocol.EvtSendVideoURL, err)
	}
}

func (ctl *Controller) handleFileHash(sess *core.Session, c *Conn, data []byte) {
	var p struct {
		Type    string         `json:"type"`
		GroupID domain.GroupID `json:"groupId"`
		Hash    string         `json:"hash"`
		Name    string         `json:"name"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.GroupID == "" {
		ctl.sendError(c, protocol.EvtSendFileHash, "bad payload")
		return
	}
	if err := ctl.Relay.ShareFileHash(sess, p.GroupID, p.Hash, p.Name); err != nil {
		ctl.failure(c, protocol.EvtSendFileHash, err)
	}
}

func (ctl *Controller) handleRestart(ctx context.Context, sess *core.Session, c *Conn, data []byte) {
	var p struct {
		Type    string         `json:"type"`
		GroupID domain.GroupID `json:"groupId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.GroupID == "" {
		ctl.sendError(c, protocol.EvtRestart, "bad payload")
		return
	}
	if err := ctl.Relay.ResetContent(ctx, sess, p.GroupID); err != nil {
		ctl.failure(c, protocol.EvtRestart, err)
	}
}

func (ctl *Controller) handleOffer(sess *core.Session, c *Conn, data []byte) {
	var p struct {
		Type    string                    `json:"type"`
		GroupID domain.GroupID            `json:"groupId"`
		Offer   webrtc.SessionDescription `json:"offer"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.GroupID == "" {
		ctl.sendError(c, protocol.EvtVideoOffer, "bad payload")
		return
	}
	if err := ctl.Relay.RelayOffer(sess, p.GroupID, p.Offer); err != nil {
		ctl.failure(c, protocol.EvtVideoOffer, err)
	}
}

func (ctl *Controller) handleAnswer(sess *core.Session, c *Conn, data []byte) {
	var p struct {
		Type    string                    `json:"type"`
		GroupID domain.GroupID            `json:"groupId"`
		Answer  webrtc.SessionDescription `json:"answer"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.GroupID == "" {
		ctl.sendError(c, protocol.EvtVideoAnswer, "bad payload")
		return
	}
	if err := ctl.Relay.RelayAnswer(sess, p.GroupID, p.Answer); err != nil {
		ctl.failure(c, protocol.EvtVideoAnswer, err)
	}
}

func (ctl *Controller) handleCandidate(sess *core.Session, c *Conn, data []byte) {
	var p struct {
		Type      string                  `json:"type"`
		GroupID   domain.GroupID          `json:"groupId"`
		Candidate webrtc.ICECandidateInit `json:"candidate"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.GroupID == "" {
		ctl.sendError(c, protocol.EvtICECandidate, "bad payload")
		return
	}
	if err := ctl.Relay.RelayCandidate(sess, p.GroupID, p.Candidate); err != nil {
		ctl.failure(c, protocol.EvtICECandidate, err)
	}
}

func (ctl *Controller) handleHeartbeat(sess *core.Session) {
	if err := ctl.Monitor.Beat(sess); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sess.ID)).Msg("heartbeat ack")
	}
}
