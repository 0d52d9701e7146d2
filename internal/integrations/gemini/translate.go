package gemini

import (
	"fmt"
	"strings"

	"google.golang.org/genai"

	"chatbot/internal/domain"
)

// ToHistory translates turns into Gemini contents. The assistant role is
// called "model" on the wire and each turn becomes a single text part.
func ToHistory(turns []domain.Turn) []*genai.Content {
	out := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		out = append(out, genai.NewContentFromText(t.Content, toRole(t.Role)))
	}
	return out
}

// FromHistory is the inverse of ToHistory. Multiple text parts are joined.
func FromHistory(contents []*genai.Content) ([]domain.Turn, error) {
	out := make([]domain.Turn, 0, len(contents))
	for i, c := range contents {
		if c == nil {
			return nil, fmt.Errorf("gemini: content %d is nil", i)
		}
		role, err := fromRole(c.Role)
		if err != nil {
			return nil, fmt.Errorf("gemini: content %d: %w", i, err)
		}
		var sb strings.Builder
		for _, p := range c.Parts {
			if p != nil {
				sb.WriteString(p.Text)
			}
		}
		out = append(out, domain.Turn{Role: role, Content: sb.String()})
	}
	return out, nil
}

func toRole(r domain.Role) genai.Role {
	if r == domain.RoleAssistant {
		return genai.RoleModel
	}
	return genai.RoleUser
}

func fromRole(r string) (domain.Role, error) {
	switch genai.Role(r) {
	case genai.RoleUser:
		return domain.RoleUser, nil
	case genai.RoleModel:
		return domain.RoleAssistant, nil
	default:
		return "", fmt.Errorf("role %q: %w", r, domain.ErrInvalidRole)
	}
}
