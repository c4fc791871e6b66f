// Package domain contains core concepts of the chat system.
// This file defines the identity and connection vocabulary.
// No runtime, network, or UI logic should be added here.
package domain

// Identity is a stable user identifier (the username), independent of any
// network connection. Several connections may carry the same Identity.
type Identity string

// ConnID identifies one ephemeral transport session. Assigned by the
// gateway when the socket opens, gone when it closes.
type ConnID string

func (i Identity) String() string { return string(i) }

func (c ConnID) String() string { return string(c) }
