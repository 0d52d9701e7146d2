package domain

// ChatMessage is the OpenAI-style chat message shape used on the wire by the
// chat completions integration.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
