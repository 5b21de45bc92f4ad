package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Tyrowin/roomhub/internal/chat"
)

// Dispatch decodes one inbound frame from client and applies it. Rejections
// are reported to client alone and never touch room state.
func (h *Hub) Dispatch(client *Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		client.logger.Warn("invalid frame", "error", err)
		h.reply(client, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	err := h.route(client, env)
	switch {
	case err == nil:
	case errors.Is(err, chat.ErrEmptyBody):
		client.logger.Debug("ignoring empty message", "event", env.Event)
	default:
		client.logger.Info("event rejected", "event", env.Event, "error", err)
		h.reply(client, err)
	}
}

func (h *Hub) route(client *Client, env Envelope) error {
	switch env.Event {
	case EventJoin:
		var req JoinRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return h.join(client, req.Room)

	case EventLeave:
		var req LeaveRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return h.leave(client, req.Room)

	case EventMessage:
		var req MessageRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		if req.Type == "private" {
			return h.privateMessage(client, req.Target, req.Msg)
		}
		return h.message(client, req.Room, req.Msg)

	case EventPrivateMessage:
		var req MessageRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return h.privateMessage(client, req.Target, req.Msg)

	case EventTyping:
		var req TypingRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return h.typing(client, req.Room, req.Typing)

	case EventReaction, EventReactToMessage:
		var req ReactionRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return h.react(client, req.Room, req.Index, req.Emoji)

	default:
		return fmt.Errorf("%w: unknown event %q", errBadRequest, env.Event)
	}
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing data", errBadRequest)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// reply sends an error status to client only.
func (h *Hub) reply(client *Client, err error) {
	h.sendTo(client, EventStatus, Status{
		Type: StatusError,
		Msg:  err.Error(),
		Code: errorCode(err),
	})
}

func systemStatus(room, msg string) Status {
	now := time.Now()
	return Status{Type: StatusSystem, Msg: msg, Room: room, Timestamp: &now}
}

// lockRoom serializes state changes and their fan-out for one room.
func (h *Hub) lockRoom(name string) (*chat.Room, func(), error) {
	room, err := h.registry.Room(name)
	if err != nil {
		return nil, nil, err
	}
	order := h.roomOrder[name]
	order.Lock()
	return room, order.Unlock, nil
}

// memberRoom resolves name, falling back to the client's current room, and
// checks membership. The caller must hold the returned unlock until it has
// enqueued its broadcasts.
func (h *Hub) memberRoom(client *Client, name string) (*chat.Room, func(), error) {
	if name == "" {
		name = client.Room()
	}
	if name == "" {
		return nil, nil, chat.ErrNotMember
	}

	room, unlock, err := h.lockRoom(name)
	if err != nil {
		return nil, nil, err
	}
	if !room.IsMember(client) {
		unlock()
		return nil, nil, fmt.Errorf("%w: %q", chat.ErrNotMember, name)
	}
	return room, unlock, nil
}

func (h *Hub) join(client *Client, name string) error {
	if _, err := h.registry.Room(name); err != nil {
		return err
	}

	if prev := client.Room(); prev != "" && prev != name {
		h.leaveRoom(client, prev)
	}

	room, unlock, err := h.lockRoom(name)
	if err != nil {
		return err
	}

	res := room.Join(client)
	if !client.setRoom(name) {
		// The connection was released while joining.
		room.Leave(client)
		unlock()
		return nil
	}

	var failed []*Client
	if !h.sendTo(client, EventChatHistory, ChatHistory{Room: name, Messages: res.History}) {
		failed = append(failed, client)
	}
	if res.Added {
		failed = append(failed, h.broadcastRoom(res.Members, EventStatus,
			systemStatus(name, fmt.Sprintf("%s has joined the room.", client.username)))...)
		failed = append(failed, h.broadcastRoom(res.Members, EventRoomUsers,
			RoomUsers{Room: name, Users: chat.Usernames(res.Members)})...)
	}
	unlock()

	client.logger.Info("joined room", "room", name, "history", len(res.History))
	h.releaseAll(failed)
	return nil
}

func (h *Hub) leave(client *Client, name string) error {
	if _, err := h.registry.Room(name); err != nil {
		return err
	}
	if client.Room() != name {
		return fmt.Errorf("%w: %q", chat.ErrNotMember, name)
	}
	h.leaveRoom(client, name)
	return nil
}

// leaveRoom removes client from name and tells the remaining members. It is
// shared by explicit leaves, room switches and disconnects.
func (h *Hub) leaveRoom(client *Client, name string) {
	room, unlock, err := h.lockRoom(name)
	if err != nil {
		return
	}

	res := room.Leave(client)
	client.clearRoom(name)

	var failed []*Client
	if res.Removed {
		failed = append(failed, h.broadcastRoom(res.Members, EventStatus,
			systemStatus(name, fmt.Sprintf("%s has left the room.", client.username)))...)
		failed = append(failed, h.broadcastRoom(res.Members, EventRoomUsers,
			RoomUsers{Room: name, Users: chat.Usernames(res.Members)})...)
		failed = append(failed, h.broadcastTyping(name, res.Typing, res.Members)...)
	}
	unlock()

	if res.Removed {
		client.logger.Info("left room", "room", name)
	}
	h.releaseAll(failed)
}

func (h *Hub) message(client *Client, name, msg string) error {
	body := strings.TrimSpace(msg)
	if body == "" {
		return chat.ErrEmptyBody
	}

	room, unlock, err := h.memberRoom(client, name)
	if err != nil {
		return err
	}

	posted := room.AppendMessage(client.username, body)
	failed := h.broadcastRoom(posted.Members, EventMessage, RoomMessage{
		Room:    room.Name(),
		Index:   posted.Index,
		Message: posted.Message,
	})
	unlock()

	client.logger.Debug("message posted", "room", room.Name(), "index", posted.Index)
	h.releaseAll(failed)
	return nil
}

func (h *Hub) privateMessage(client *Client, target, msg string) error {
	body := strings.TrimSpace(msg)
	if body == "" {
		return chat.ErrEmptyBody
	}
	if target == "" {
		return fmt.Errorf("%w: missing target", errBadRequest)
	}

	var recipients []*Client
	for _, conn := range h.connectionsOf(target) {
		if conn != client {
			recipients = append(recipients, conn)
		}
	}
	if len(recipients) == 0 {
		return fmt.Errorf("%w: %q", chat.ErrUnknownTarget, target)
	}

	payload, err := encodeEvent(EventPrivateMessage, PrivateMessage{
		From:      client.username,
		To:        target,
		Msg:       body,
		Timestamp: time.Now(),
	})
	if err != nil {
		return err
	}

	var failed []*Client
	for _, recipient := range recipients {
		if !h.safeSend(recipient, payload) {
			failed = append(failed, recipient)
		}
	}

	client.logger.Debug("private message sent", "target", target, "connections", len(recipients))
	h.releaseAll(failed)
	return nil
}

func (h *Hub) typing(client *Client, name string, typing bool) error {
	room, unlock, err := h.memberRoom(client, name)
	if err != nil {
		return err
	}

	upd := room.SetTyping(client.username, typing)
	failed := h.broadcastTyping(room.Name(), upd.Typing, upd.Members)
	unlock()

	h.releaseAll(failed)
	return nil
}

// broadcastTyping sends each member the indicator for everyone but themselves.
func (h *Hub) broadcastTyping(room string, typing []string, members []chat.Member) []*Client {
	payloads := make(map[string][]byte)
	var failed []*Client

	for _, m := range members {
		client, ok := m.(*Client)
		if !ok {
			continue
		}

		payload, ok := payloads[client.username]
		if !ok {
			var err error
			payload, err = encodeEvent(EventStatus, Status{
				Type: StatusTyping,
				Msg:  chat.TypingStatusFor(typing, client.username),
				Room: room,
			})
			if err != nil {
				h.logger.Error("encoding typing status", "error", err)
				return failed
			}
			payloads[client.username] = payload
		}

		if !h.safeSend(client, payload) {
			failed = append(failed, client)
		}
	}
	return failed
}

func (h *Hub) react(client *Client, name string, index int, emoji string) error {
	room, unlock, err := h.memberRoom(client, name)
	if err != nil {
		return err
	}

	upd, err := room.ToggleReaction(index, client.username, strings.TrimSpace(emoji))
	if err != nil {
		unlock()
		return err
	}

	failed := h.broadcastRoom(upd.Members, EventReactionUpdate, ReactionUpdateEvent{
		Room:      room.Name(),
		Index:     upd.Index,
		Reactions: upd.Reactions,
	})
	unlock()

	h.releaseAll(failed)
	return nil
}
