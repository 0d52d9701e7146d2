package repository

import (
	"fmt"
	"sync"

	"chatbot/internal/domain"
)

// Conversation is the ordered, append-only turn history of one session.
// It has no capacity limit and no eviction.
type Conversation struct {
	mu    sync.RWMutex
	turns []domain.Turn
}

// NewConversation returns an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// Append adds t to the end of the conversation.
func (c *Conversation) Append(t domain.Turn) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("repository: Append: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, t)
	return nil
}

// All returns a snapshot of every turn in chronological order. Callers may
// modify the returned slice without affecting the conversation.
func (c *Conversation) All() []domain.Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len returns the number of turns held.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns)
}
