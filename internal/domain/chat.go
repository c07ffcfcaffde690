package domain

import "time"

type ChatKind string

const (
	ChatKindTeam   ChatKind = "team"
	ChatKindDirect ChatKind = "direct"
	ChatKindOther  ChatKind = "other"
)

type Chat struct {
	ID          string
	DisplayName string
	Kind        ChatKind
}

// Label is what scan output shows for a chat: the display name when the
// platform provides one, the id otherwise.
func (c Chat) Label() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.ID
}

// Post is consumed one page at a time during a scan and never retained
// past the chat it belongs to.
type Post struct {
	ChatID    string
	CreatorID string
	CreatedAt time.Time
}
