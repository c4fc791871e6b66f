package domain

import (
	"strings"

	"chat-core/errors"
)

// RoomKey identifies a broadcast scope. Three shapes exist:
// a bare name for public rooms ("general"), "<a>_<b>" for direct rooms,
// and "group:<uuid>" for group rooms.
type RoomKey string

const (
	// DirectSeparator joins the two identities of a direct room key.
	// Identities containing it are rejected so the key never forks.
	DirectSeparator = "_"

	// GroupPrefix marks room keys backed by a group membership list.
	GroupPrefix = "group:"
)

func (r RoomKey) String() string { return string(r) }

// IsGroup reports whether the key belongs to a group room.
func (r RoomKey) IsGroup() bool { return strings.HasPrefix(string(r), GroupPrefix) }

// ValidIdentity rejects identities that cannot participate in room
// derivation: empty strings and strings containing the direct separator.
func ValidIdentity(id Identity) bool {
	return id != "" && !strings.Contains(string(id), DirectSeparator)
}

// DirectRoomKey derives the canonical key of a 1:1 room. The function is
// commutative: DirectRoomKey(a, b) == DirectRoomKey(b, a), so joining from
// either side always lands in the same room with the same history.
// Self-chat and malformed identities yield ErrInvalidIdentity.
func DirectRoomKey(a, b Identity) (RoomKey, error) {
	if !ValidIdentity(a) || !ValidIdentity(b) || a == b {
		return "", errors.ErrInvalidIdentity
	}
	if b < a {
		a, b = b, a
	}
	return RoomKey(string(a) + DirectSeparator + string(b)), nil
}

// DirectMembers reverses DirectRoomKey. ok is false for public and group
// room keys.
func DirectMembers(r RoomKey) (Identity, Identity, bool) {
	if r.IsGroup() {
		return "", "", false
	}
	parts := strings.Split(string(r), DirectSeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return Identity(parts[0]), Identity(parts[1]), true
}

// DirectPartner returns the other member of a direct room, relative to self.
func DirectPartner(r RoomKey, self Identity) (Identity, bool) {
	a, b, ok := DirectMembers(r)
	if !ok {
		return "", false
	}
	switch self {
	case a:
		return b, true
	case b:
		return a, true
	default:
		return "", false
	}
}
