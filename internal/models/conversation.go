package models

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged message in a conversation. It doubles as the
// wire shape sent to the completion API and the persisted history entry.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Valid reports whether the turn carries a known role.
func (t Turn) Valid() bool {
	switch t.Role {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// LastTurns returns at most max trailing turns, dropping the oldest first.
// The returned slice never aliases the input.
func LastTurns(turns []Turn, max int) []Turn {
	if max <= 0 || len(turns) <= max {
		return append([]Turn(nil), turns...)
	}
	return append([]Turn(nil), turns[len(turns)-max:]...)
}
