package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/entrhq/webpilot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_RequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewProvider("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestNewProvider_Defaults(t *testing.T) {
	t.Setenv("OPENAI_BASE_URL", "")
	p, err := NewProvider("sk-test")
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, p.GetModel())
	assert.Equal(t, DefaultBaseURL, p.GetBaseURL())
	assert.Equal(t, "openai", p.GetModelInfo().Provider)
}

func TestNewProvider_EnvBaseURL(t *testing.T) {
	t.Setenv("OPENAI_BASE_URL", "http://localhost:8080/v1/")
	p, err := NewProvider("sk-test", WithModel("local-model"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/v1", p.GetBaseURL())
	assert.Equal(t, "local-model", p.GetModelInfo().Name)
}

func TestComplete_AccumulatesStream(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintln(w, `: keep-alive`)
		fmt.Fprintln(w, `data: {"choices":[{"delta":{"role":"assistant","content":"Hel"}}]}`)
		fmt.Fprintln(w, `data: not-json`)
		fmt.Fprintln(w, `data: {"choices":[{"delta":{"content":"lo"}}]}`)
		fmt.Fprintln(w, `data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`)
		fmt.Fprintln(w, `data: [DONE]`)
	}))
	defer server.Close()

	p, err := NewProvider("sk-test", WithBaseURL(server.URL), WithModel("m1"))
	require.NoError(t, err)

	msg, err := p.Complete(context.Background(), []*types.Message{
		types.NewSystemMessage("sys"),
		types.NewUserMessage("hi"),
	})
	require.NoError(t, err)
	assert.Equal(t, types.RoleAssistant, msg.Role)
	assert.Equal(t, "Hello", msg.Content)

	assert.Equal(t, "m1", gotBody["model"])
	assert.Equal(t, true, gotBody["stream"])
	msgs, ok := gotBody["messages"].([]interface{})
	require.True(t, ok)
	assert.Len(t, msgs, 2)
}

func TestComplete_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	p, err := NewProvider("sk-test", WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), []*types.Message{types.NewUserMessage("hi")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}
