package domain

import "fmt"

// Role tags who produced a Turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the roles a conversation may hold.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Turn is one role-tagged message in a conversation. Turns are values and are
// never modified after they are appended.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func UserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

func AssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content}
}

// Validate rejects turns with an undefined role.
func (t Turn) Validate() error {
	if !t.Role.Valid() {
		return fmt.Errorf("domain: invalid turn role %q: %w", t.Role, ErrInvalidRole)
	}
	return nil
}
