package domain

import "time"

// Group is a named multi-member conversation. Its Room key ("group:<uuid>")
// is the broadcast scope; the member list drives notification fan-out.
type Group struct {
	Room        RoomKey    `json:"room"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Members     []Identity `json:"members"`
	Admins      []Identity `json:"admins"`
	GroupPic    string     `json:"groupPic,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// MembersExcept returns the member list without the given identity.
func (g Group) MembersExcept(id Identity) []Identity {
	out := make([]Identity, 0, len(g.Members))
	for _, m := range g.Members {
		if m != id {
			out = append(out, m)
		}
	}
	return out
}
