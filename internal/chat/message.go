package chat

import (
	"slices"
	"time"
)

// Reactions maps an emoji to the usernames that applied it, in the order they
// reacted. A username appears at most once per emoji.
type Reactions map[string][]string

// Clone returns a deep copy that shares no slices with r.
func (r Reactions) Clone() Reactions {
	out := make(Reactions, len(r))
	for emoji, users := range r {
		out[emoji] = slices.Clone(users)
	}
	return out
}

// toggle adds username under emoji, or removes it if already present. Emojis
// left without users are dropped. It reports whether the user is now reacting.
func (r Reactions) toggle(emoji, username string) bool {
	users := r[emoji]
	if i := slices.Index(users, username); i >= 0 {
		users = slices.Delete(users, i, i+1)
		if len(users) == 0 {
			delete(r, emoji)
		} else {
			r[emoji] = users
		}
		return false
	}
	r[emoji] = append(users, username)
	return true
}

// Message is one entry of a room's log. Its position in the log is the
// stable handle used for reactions.
type Message struct {
	Sender    string    `json:"username"`
	Body      string    `json:"msg"`
	Timestamp time.Time `json:"timestamp"`
	Reactions Reactions `json:"reactions"`
}

func (m Message) clone() Message {
	m.Reactions = m.Reactions.Clone()
	return m
}
