package domain

import "time"

// FriendRequestStatus values mirror the stored lifecycle of a request.
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
)

type FriendRequest struct {
	From   Identity `json:"from"`
	Status string   `json:"status"`
}

// Account is the stored user record. The presence engine only ever reads
// Username and PushToken; the rest is data-access glue for the REST surface.
type Account struct {
	ID           string          `json:"id"`
	Username     Identity        `json:"username"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"-"`
	ProfilePic   string          `json:"profilePic,omitempty"`
	PushToken    string          `json:"-"`
	Friends      []Identity      `json:"friends,omitempty"`
	Requests     []FriendRequest `json:"friendRequests,omitempty"`
	Groups       []RoomKey       `json:"groups,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// IsFriend reports whether the given identity is in the friend list.
func (a Account) IsFriend(id Identity) bool {
	for _, f := range a.Friends {
		if f == id {
			return true
		}
	}
	return false
}

// PendingFrom finds an open request from the given identity.
func (a Account) PendingFrom(id Identity) (int, bool) {
	for i, r := range a.Requests {
		if r.From == id && r.Status == RequestPending {
			return i, true
		}
	}
	return 0, false
}
