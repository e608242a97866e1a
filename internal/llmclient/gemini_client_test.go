// internal/llmclient/gemini_client_test.go
package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/handoff/internal/config"
)

func geminiConfig(endpoint string) config.AgentConfig {
	cfg := validAgentConfig()
	cfg.Provider = config.ProviderGemini
	cfg.Model = "gemini-2.5-flash"
	cfg.APIKey = "test-api-key"
	cfg.Endpoint = endpoint
	return cfg
}

func TestNewGeminiClient_MissingAPIKey(t *testing.T) {
	cfg := geminiConfig("")
	cfg.APIKey = ""
	client, err := NewGeminiClient(context.Background(), cfg, zap.NewNop())
	assert.Nil(t, client)
	assert.ErrorContains(t, err, "Gemini API Key is required")
}

func TestGeminiBuildContents(t *testing.T) {
	client, err := NewGeminiClient(context.Background(), geminiConfig(""), zap.NewNop())
	require.NoError(t, err)

	contents, gc := client.buildContents(Request{
		SystemPrompt: "sys",
		UserPrompt:   "look",
		Images:       [][]byte{{0x89, 'P', 'N', 'G'}},
		JSON:         true,
		Temperature:  0.3,
	})

	require.Len(t, contents, 1)
	require.Len(t, contents[0].Parts, 2)
	assert.Equal(t, "look", contents[0].Parts[0].Text)
	require.NotNil(t, contents[0].Parts[1].InlineData)
	assert.Equal(t, "image/png", contents[0].Parts[1].InlineData.MIMEType)
	assert.Equal(t, "application/json", gc.ResponseMIMEType)
	require.NotNil(t, gc.SystemInstruction)
	assert.Equal(t, "sys", gc.SystemInstruction.Parts[0].Text)
	require.NotNil(t, gc.Temperature)
	assert.Equal(t, float32(0.3), *gc.Temperature)
}

func TestGeminiGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "gemini-2.5-flash:generateContent"), r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("x-goog-api-key"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content":      map[string]any{"role": "model", "parts": []any{map[string]any{"text": "dashboard_loaded"}}},
				"finishReason": "STOP",
			}},
			"usageMetadata": map[string]any{"promptTokenCount": 10, "candidatesTokenCount": 2},
		})
	}))
	t.Cleanup(server.Close)

	client, err := NewGeminiClient(context.Background(), geminiConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	out, err := client.Generate(context.Background(), Request{UserPrompt: "state?"})
	require.NoError(t, err)
	assert.Equal(t, "dashboard_loaded", out)
}

func TestNewClient(t *testing.T) {
	ollama, err := NewClient(context.Background(), validAgentConfig(), zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &OllamaClient{}, ollama)

	gemini, err := NewClient(context.Background(), geminiConfig(""), zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &GeminiClient{}, gemini)

	cfg := validAgentConfig()
	cfg.Provider = "openai"
	_, err = NewClient(context.Background(), cfg, zap.NewNop())
	assert.ErrorContains(t, err, "unknown or unsupported LLM provider")
}
