// File: internal/server/types.go
package server

import (
	"context"

	"github.com/xkilldash9x/handoff/internal/store"
)

// Sessions is the session service the handlers drive (satisfied by *service.Manager).
type Sessions interface {
	Create(ctx context.Context, document, prompt string) (store.SessionRecord, error)
	Get(ctx context.Context, id string) (store.SessionRecord, error)
	List(ctx context.Context) ([]store.SessionRecord, error)
	Update(ctx context.Context, id, document, prompt string) (store.SessionRecord, error)
	Start(ctx context.Context, id string) (store.SessionRecord, error)
	Resume(ctx context.Context, id string) (store.SessionRecord, error)
	Reset(ctx context.Context, id string) (store.SessionRecord, error)
	Delete(ctx context.Context, id string) error
	Subscribe(id string) (<-chan store.SessionRecord, func())
}

// Prompts is the named prompt store (satisfied by *prompts.Store).
type Prompts interface {
	Save(name, content string) (string, error)
	Load(name string) (string, error)
	List() ([]string, error)
}

// SessionRequest creates or updates a session.
type SessionRequest struct {
	Script string `json:"script"`
	Prompt string `json:"prompt"`
}

// PromptRequest saves a named prompt.
type PromptRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// PromptResponse carries one named prompt.
type PromptResponse struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Status string      `json:"status"` // "success" or "error"
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}
