// internal/llmclient/client.go
package llmclient

import "context"

// Request is a single multimodal generation call.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	// Images are PNG-encoded screenshots attached to the user turn.
	Images [][]byte
	// JSON asks the provider to constrain output to a JSON object.
	JSON        bool
	Temperature float32
}

// Client generates text from a vision-capable model.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}
