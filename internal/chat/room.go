package chat

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

// Member is a connection that can join a room. Members are compared by
// identity, so two connections of the same user are distinct members.
type Member interface {
	Username() string
}

// JoinResult is the outcome of Room.Join.
type JoinResult struct {
	History []Message
	Members []Member
	Added   bool
}

// LeaveResult is the outcome of Room.Leave.
type LeaveResult struct {
	Members []Member
	Typing  []string
	Removed bool
}

// Posted is the outcome of Room.AppendMessage.
type Posted struct {
	Index   int
	Message Message
	Members []Member
}

// ReactionUpdate is the outcome of Room.ToggleReaction. Reactions is the full
// canonical map for the message at Index.
type ReactionUpdate struct {
	Index     int
	Reactions Reactions
	Members   []Member
}

// TypingUpdate is the outcome of Room.SetTyping.
type TypingUpdate struct {
	Typing  []string
	Members []Member
	Changed bool
}

// Room is a named channel with an append-only message log. All state is
// guarded by mu; results hand out copies only.
type Room struct {
	name string
	now  func() time.Time

	mu       sync.Mutex
	messages []Message
	members  []Member
	typing   []string
}

// NewRoom creates an empty room.
func NewRoom(name string) *Room {
	return &Room{name: name, now: time.Now}
}

// Name returns the room's configured name.
func (r *Room) Name() string {
	return r.name
}

// Join adds m to the room and returns the history at join time. Joining
// twice is harmless and reports Added false.
func (r *Room) Join(m Member) JoinResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	added := false
	if !slices.Contains(r.members, m) {
		r.members = append(r.members, m)
		added = true
	}

	return JoinResult{
		History: r.historyLocked(),
		Members: slices.Clone(r.members),
		Added:   added,
	}
}

// Leave removes m from the members and its username from the typing set.
func (r *Room) Leave(m Member) LeaveResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.Index(r.members, m)
	if i < 0 {
		return LeaveResult{Members: slices.Clone(r.members), Typing: slices.Clone(r.typing)}
	}
	r.members = slices.Delete(r.members, i, i+1)
	r.typing = slices.DeleteFunc(r.typing, func(name string) bool { return name == m.Username() })

	return LeaveResult{
		Members: slices.Clone(r.members),
		Typing:  slices.Clone(r.typing),
		Removed: true,
	}
}

// AppendMessage records a message and returns its index in the log.
func (r *Room) AppendMessage(sender, body string) Posted {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg := Message{
		Sender:    sender,
		Body:      body,
		Timestamp: r.now(),
		Reactions: Reactions{},
	}
	r.messages = append(r.messages, msg)

	return Posted{
		Index:   len(r.messages) - 1,
		Message: msg.clone(),
		Members: slices.Clone(r.members),
	}
}

// ToggleReaction flips username's emoji reaction on the message at index.
func (r *Room) ToggleReaction(index int, username, emoji string) (ReactionUpdate, error) {
	if emoji == "" {
		return ReactionUpdate{}, ErrInvalidEmoji
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if index < 0 || index >= len(r.messages) {
		return ReactionUpdate{}, fmt.Errorf("%w: %d of %d in %q", ErrOutOfRange, index, len(r.messages), r.name)
	}

	msg := &r.messages[index]
	if msg.Reactions == nil {
		msg.Reactions = Reactions{}
	}
	msg.Reactions.toggle(emoji, username)

	return ReactionUpdate{
		Index:     index,
		Reactions: msg.Reactions.Clone(),
		Members:   slices.Clone(r.members),
	}, nil
}

// SetTyping marks or clears username in the typing set, keeping insertion order.
func (r *Room) SetTyping(username string, typing bool) TypingUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := false
	i := slices.Index(r.typing, username)
	switch {
	case typing && i < 0:
		r.typing = append(r.typing, username)
		changed = true
	case !typing && i >= 0:
		r.typing = slices.Delete(r.typing, i, i+1)
		changed = true
	}

	return TypingUpdate{
		Typing:  slices.Clone(r.typing),
		Members: slices.Clone(r.members),
		Changed: changed,
	}
}

// History returns a copy of the message log.
func (r *Room) History() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.historyLocked()
}

// Members returns the current members in join order.
func (r *Room) Members() []Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.members)
}

// IsMember reports whether m has joined the room.
func (r *Room) IsMember(m Member) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Contains(r.members, m)
}

// Typing returns the typing set in insertion order.
func (r *Room) Typing() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.typing)
}

// Len returns the number of messages in the log.
func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func (r *Room) historyLocked() []Message {
	history := make([]Message, len(r.messages))
	for i, msg := range r.messages {
		history[i] = msg.clone()
	}
	return history
}

// Usernames maps members to their usernames, preserving order.
func Usernames(members []Member) []string {
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Username()
	}
	return names
}
