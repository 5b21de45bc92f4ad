// Package server defines the JSON envelopes exchanged with clients and
// utility helpers that are reused across client and hub logic.
package server

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/Tyrowin/roomhub/internal/chat"
)

// Inbound event names.
const (
	EventJoin           = "join"
	EventLeave          = "leave"
	EventMessage        = "message"
	EventPrivateMessage = "private_message"
	EventTyping         = "typing"
	EventReaction       = "reaction"
	EventReactToMessage = "react_to_message"
)

// Outbound event names not shared with inbound ones.
const (
	EventStatus         = "status"
	EventActiveUsers    = "active_users"
	EventRoomUsers      = "room_users"
	EventChatHistory    = "chat_history"
	EventReactionUpdate = "reaction_update"
)

// Status types.
const (
	StatusTyping = "typing"
	StatusSystem = "system"
	StatusError  = "error"
)

// Error codes carried by error statuses.
const (
	CodeBadRequest    = "bad_request"
	CodeInvalidRoom   = "invalid_room"
	CodeNotMember     = "not_member"
	CodeOutOfRange    = "out_of_range"
	CodeUnknownTarget = "unknown_target"
	CodeInvalidEmoji  = "invalid_emoji"
	CodeRateLimited   = "rate_limited"
	CodeInternal      = "internal"
)

// Envelope frames every event in both directions: one envelope per
// WebSocket text frame.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinRequest asks to enter a room.
type JoinRequest struct {
	Room string `json:"room"`
}

// LeaveRequest asks to leave a room.
type LeaveRequest struct {
	Room string `json:"room"`
}

// MessageRequest posts to a room, or privately when Type is "private".
type MessageRequest struct {
	Msg    string `json:"msg"`
	Room   string `json:"room,omitempty"`
	Type   string `json:"type,omitempty"`
	Target string `json:"target,omitempty"`
}

// TypingRequest reports the sender's composing state in a room.
type TypingRequest struct {
	Room   string `json:"room"`
	Typing bool   `json:"typing"`
}

// ReactionRequest toggles an emoji on the message at Index.
type ReactionRequest struct {
	Room  string `json:"room"`
	Index int    `json:"index"`
	Emoji string `json:"emoji"`
}

// RoomMessage is a room message as broadcast to members.
type RoomMessage struct {
	Room  string `json:"room"`
	Index int    `json:"index"`
	chat.Message
}

// PrivateMessage is delivered to the target's connections only.
type PrivateMessage struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Msg       string    `json:"msg"`
	Timestamp time.Time `json:"timestamp"`
}

// Status carries typing indicators, system notices and errors.
type Status struct {
	Type      string     `json:"type"`
	Msg       string     `json:"msg"`
	Room      string     `json:"room,omitempty"`
	Code      string     `json:"code,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// ActiveUsers lists every connected user.
type ActiveUsers struct {
	Users []string `json:"users"`
}

// RoomUsers lists the members of a room.
type RoomUsers struct {
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

// ChatHistory replays a room's log to a joiner.
type ChatHistory struct {
	Room     string         `json:"room"`
	Messages []chat.Message `json:"messages"`
}

// ReactionUpdateEvent carries the canonical reactions of one message.
type ReactionUpdateEvent struct {
	Room      string         `json:"room"`
	Index     int            `json:"index"`
	Reactions chat.Reactions `json:"reactions"`
}

// encodeEvent marshals data into an envelope frame.
func encodeEvent(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// errorCode maps a dispatch error to its wire code.
func errorCode(err error) string {
	switch {
	case errors.Is(err, chat.ErrInvalidRoom):
		return CodeInvalidRoom
	case errors.Is(err, chat.ErrNotMember):
		return CodeNotMember
	case errors.Is(err, chat.ErrOutOfRange):
		return CodeOutOfRange
	case errors.Is(err, chat.ErrUnknownTarget):
		return CodeUnknownTarget
	case errors.Is(err, chat.ErrInvalidEmoji):
		return CodeInvalidEmoji
	case errors.Is(err, errBadRequest):
		return CodeBadRequest
	case errors.Is(err, errRateLimited):
		return CodeRateLimited
	default:
		return CodeInternal
	}
}

var (
	errBadRequest  = errors.New("malformed event")
	errRateLimited = errors.New("rate limit exceeded")
)

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
