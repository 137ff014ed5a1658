package domain

import "time"

// ChatMessage is a chat line persisted through the message store.
// Delivery to the room is authoritative; persistence is best-effort.
type ChatMessage struct {
	GroupID GroupID   `json:"groupId"`
	UserID  UserID    `json:"userId"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sentAt"`
}
