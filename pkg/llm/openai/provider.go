// Package openai talks to OpenAI-compatible chat completion endpoints.
//
// Only the streaming endpoint is used; Complete folds the stream into one
// assistant message.
//
//	p, err := openai.NewProvider("", openai.WithModel("gpt-4o-mini"))
//	if err != nil {
//	    return err
//	}
//	reply, err := p.Complete(ctx, msgs)
package openai

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/entrhq/webpilot/pkg/llm"
	"github.com/entrhq/webpilot/pkg/types"
)

// Endpoint defaults.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o"

	envAPIKey  = "OPENAI_API_KEY"
	envBaseURL = "OPENAI_BASE_URL"
)

var errMissingKey = errors.New("openai: API key is required (pass it explicitly or set " + envAPIKey + ")")

// Provider is an llm.Provider backed by a chat completions endpoint.
type Provider struct {
	client  *http.Client
	key     string
	baseURL string
	model   string
	info    *types.ModelInfo
}

var _ llm.Provider = (*Provider)(nil)

// ProviderOption customises a Provider.
type ProviderOption func(*Provider)

// WithModel selects the model. Empty keeps the default.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithBaseURL points the provider at another compatible endpoint.
func WithBaseURL(url string) ProviderOption {
	return func(p *Provider) {
		if url != "" {
			p.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient swaps the HTTP client.
func WithHTTPClient(client *http.Client) ProviderOption {
	return func(p *Provider) {
		if client != nil {
			p.client = client
		}
	}
}

// NewProvider builds a provider. An empty key falls back to OPENAI_API_KEY and
// an unset base URL falls back to OPENAI_BASE_URL.
func NewProvider(key string, opts ...ProviderOption) (*Provider, error) {
	if key == "" {
		key = os.Getenv(envAPIKey)
	}
	if key == "" {
		return nil, errMissingKey
	}

	p := &Provider{
		client:  http.DefaultClient,
		key:     key,
		baseURL: DefaultBaseURL,
		model:   DefaultModel,
	}
	for _, apply := range opts {
		apply(p)
	}
	if env := os.Getenv(envBaseURL); env != "" && p.baseURL == DefaultBaseURL {
		p.baseURL = strings.TrimRight(env, "/")
	}

	meta := map[string]interface{}{}
	if p.baseURL != DefaultBaseURL {
		meta["base_url"] = p.baseURL
	}
	p.info = &types.ModelInfo{
		Provider:          "openai",
		Name:              p.model,
		SupportsStreaming: true,
		MaxTokens:         8192,
		Metadata:          meta,
	}
	return p, nil
}

// Complete drains a streamed completion into a single message.
func (p *Provider) Complete(ctx context.Context, messages []*types.Message) (*types.Message, error) {
	chunks, err := p.StreamCompletion(ctx, messages)
	if err != nil {
		return nil, err
	}

	role := types.RoleAssistant
	var sb strings.Builder
	for c := range chunks {
		if c.IsError() {
			return nil, c.Error
		}
		if c.Role != "" {
			role = types.MessageRole(c.Role)
		}
		sb.WriteString(c.Content)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return types.NewMessage(role, sb.String()), nil
}

// GetModelInfo describes the configured model.
func (p *Provider) GetModelInfo() *types.ModelInfo { return p.info }

// GetModel returns the model name.
func (p *Provider) GetModel() string { return p.model }

// GetBaseURL returns the endpoint root, without a trailing slash.
func (p *Provider) GetBaseURL() string { return p.baseURL }
