// Package protocol defines the wire events exchanged with clients.
// Every frame is a JSON object carrying a "type" discriminator.
package protocol

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"

	"github.com/vsharee/vsharee/internal/core"
	"github.com/vsharee/vsharee/internal/domain"
)

// Client → server event types.
const (
	EvtJoinGroup    = "joinGroup"
	EvtLeftGroup    = "leftGroup"
	EvtSendMessage  = "sendMessage"
	EvtVideoControl = "videoControl"
	EvtMethodSelect = "methodSelected"
	EvtSendVideoURL = "sendVideoUrl"
	EvtSendFileHash = "sendVideoFileHash"
	EvtRestart      = "restartContent"
	EvtVideoOffer   = "videoOffer"
	EvtVideoAnswer  = "videoAnswer"
	EvtICECandidate = "iceCandidate"
	EvtHeartbeat    = "heartbeat"
)

// Server → client event types.
const (
	EvtJoinedGroup     = "joinedGroup"
	EvtUserJoined      = "userJoined"
	EvtUserLeft        = "userLeft"
	EvtNewMessage      = "newMessage"
	EvtSyncVideo       = "syncVideo"
	EvtReceiveVideoURL = "receiveVideoUrl"
	EvtReceiveFileHash = "receiveVideoFileHash"
	EvtContentReset    = "contentReset"
	EvtHeartbeatAck    = "heartbeat_ack"
	EvtError           = "error"
)

// Envelope is the minimal shape every inbound frame must have.
type Envelope struct {
	Type string `json:"type"`
}

// UserRef is the identity fragment broadcast with presence and relay events.
type UserRef struct {
	ID   domain.UserID `json:"id"`
	Name string        `json:"name"`
}

type JoinedGroup struct {
	Type          string            `json:"type"`
	GroupID       domain.GroupID    `json:"groupId"`
	OnlineMembers []core.MemberInfo `json:"onlineMembers"`
	MediaToken    string            `json:"mediaToken,omitempty"`
	MediaURL      string            `json:"mediaUrl,omitempty"`
}

type UserPresence struct {
	Type string        `json:"type"`
	ID   domain.UserID `json:"id"`
	Name string        `json:"name"`
}

type NewMessage struct {
	Type    string  `json:"type"`
	Message string  `json:"message"`
	User    UserRef `json:"user"`
}

type SyncVideo struct {
	Type   string  `json:"type"`
	Action string  `json:"action"`
	Time   float64 `json:"time"`
	User   UserRef `json:"user"`
}

type MethodSelected struct {
	Type   string `json:"type"`
	Method string `json:"method"`
}

type ReceiveVideoURL struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type ReceiveFileHash struct {
	Type string `json:"type"`
	Hash string `json:"hash"`
	Name string `json:"name"`
}

type ContentReset struct {
	Type string `json:"type"`
}

type HeartbeatAck struct {
	Type string `json:"type"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// VideoOffer and VideoAnswer carry SDP relayed verbatim between members.
type VideoOffer struct {
	Type  string                    `json:"type"`
	Offer webrtc.SessionDescription `json:"offer"`
	From  UserRef                   `json:"from"`
}

type VideoAnswer struct {
	Type   string                    `json:"type"`
	Answer webrtc.SessionDescription `json:"answer"`
	From   UserRef                   `json:"from"`
}

type ICECandidate struct {
	Type      string                  `json:"type"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
	From      UserRef                 `json:"from"`
}

// Encode marshals an event into a wire frame. Events are plain structs, so
// a marshal failure means a programming error; callers treat it as such.
func Encode(v any) (core.Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return core.Frame(b), nil
}
