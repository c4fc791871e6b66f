package domain

// PushPayload is one out-of-band notification addressed to a device token.
// Data carries routing hints the client uses to open the right conversation.
type PushPayload struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}
