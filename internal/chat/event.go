package chat

import (
	"time"

	"github.com/spillit/spillit/internal/auth"
)

// Method names of server-push notifications on the realtime surface.
const (
	MethodUserList = "userList"
	MethodMessage  = "message"
)

// SystemUsername is the sender name attached to join/leave announcements.
const SystemUsername = "System"

// Event is an outbound notification queued on a connection's send channel.
// The websocket layer wraps it into the wire envelope.
type Event struct {
	Method string
	Params any
}

// RosterSnapshot is the de-duplicated, insertion-ordered list of display
// names present in a room at the moment it was computed.
type RosterSnapshot struct {
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

// MessagePayload is the wire shape of both user chat messages and system
// notifications.
type MessagePayload struct {
	Room     string `json:"room"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

// ChatMessage is a transient user-authored message; it is never persisted.
type ChatMessage struct {
	Id         string
	Room       string
	Sender     auth.Identity
	Text       string
	CreateTime time.Time
}

func NewRosterEvent(roster RosterSnapshot) Event {
	return Event{
		Method: MethodUserList,
		Params: roster,
	}
}

func NewChatMessageEvent(message ChatMessage) Event {
	return Event{
		Method: MethodMessage,
		Params: MessagePayload{
			Room:     message.Room,
			Username: message.Sender.DisplayName,
			Message:  message.Text,
		},
	}
}

func NewSystemMessageEvent(room string, text string) Event {
	return Event{
		Method: MethodMessage,
		Params: MessagePayload{
			Room:     room,
			Username: SystemUsername,
			Message:  text,
		},
	}
}
