package chat

import "errors"

var (
	// ErrInvalidRoom is returned for a room name outside the configured set.
	ErrInvalidRoom = errors.New("invalid room")
	// ErrNotMember is returned when a connection acts on a room it has not joined.
	ErrNotMember = errors.New("not a member of room")
	// ErrOutOfRange is returned when a reaction targets a message index that does not exist.
	ErrOutOfRange = errors.New("message index out of range")
	// ErrUnknownTarget is returned when a private message names a user that is not connected.
	ErrUnknownTarget = errors.New("unknown target user")
	// ErrEmptyBody is returned for a message body that is blank after trimming.
	ErrEmptyBody = errors.New("empty message body")
	// ErrInvalidEmoji is returned for a blank reaction emoji.
	ErrInvalidEmoji = errors.New("invalid emoji")
)
