// Package credentials resolves the API keys completion providers send with
// each request.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"chatbot/internal/domain"
)

// Static is a key known at startup, typically read from the environment.
type Static string

func (s Static) APIKey(context.Context) (string, error) {
	key := strings.TrimSpace(string(s))
	if key == "" {
		return "", fmt.Errorf("credentials: static key is empty: %w", domain.ErrMissingCredential)
	}
	return key, nil
}

// TokenGetter is satisfied by *paramstore.Client.
type TokenGetter interface {
	GetToken(ctx context.Context, name string) (string, error)
}

// ParamStore fetches a key from a parameter on first use and reuses it for
// the lifetime of the process. Failed fetches are not cached.
type ParamStore struct {
	getter TokenGetter
	name   string

	mu     sync.RWMutex
	loaded bool
	key    string
}

func NewParamStore(g TokenGetter, name string) (*ParamStore, error) {
	if g == nil {
		return nil, errors.New("credentials: token getter must not be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("credentials: parameter name must not be empty")
	}
	return &ParamStore{getter: g, name: name}, nil
}

func (p *ParamStore) APIKey(ctx context.Context) (string, error) {
	p.mu.RLock()
	if p.loaded {
		key := p.key
		p.mu.RUnlock()
		return key, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return p.key, nil
	}

	key, err := p.getter.GetToken(ctx, p.name)
	if err != nil {
		return "", fmt.Errorf("credentials: fetch %q: %w: %w", p.name, domain.ErrMissingCredential, err)
	}
	p.key = key
	p.loaded = true
	return key, nil
}
