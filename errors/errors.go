package errors

import "fmt"

var (
	// ErrInvalidIdentity rejects empty identities, identities carrying the
	// direct-room separator, and self-chat derivation.
	ErrInvalidIdentity = fmt.Errorf("invalid identity")

	// ErrNotLoggedIn marks room operations attempted before a login event.
	ErrNotLoggedIn = fmt.Errorf("connection has no identity")

	// ErrPersistence wraps message-log failures. Fatal to the one send that
	// triggered it; nothing is broadcast once it occurs.
	ErrPersistence = fmt.Errorf("message persistence failed")

	// ErrSinkClosed marks a delivery attempt against a connection that has
	// already torn down its sink.
	ErrSinkClosed = fmt.Errorf("sink closed")

	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrEmptyWords         = fmt.Errorf("no words have been found")
	ErrUserAlreadyExists  = fmt.Errorf("username or email already exists")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrGroupNotFound      = fmt.Errorf("group not found")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet requirements")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrAlreadyFriends     = fmt.Errorf("already friends")
	ErrRequestAlreadySent = fmt.Errorf("request already sent")
	ErrNoPendingRequest   = fmt.Errorf("no pending request found")
)
