package browser_test

import (
	"testing"

	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLPolicy(t *testing.T) {
	policy, err := browser.NewURLPolicy([]string{"https://example.com/*", "https://*.example.org/**"})
	require.NoError(t, err)

	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com/search?q=x", true},
		{"https://example.com/a/b", true},
		{"https://docs.example.org/guide", true},
		{"http://example.com/", false},
		{"https://evil.test/", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Allowed(tt.url))
		})
	}
	assert.Len(t, policy.Patterns(), 2)
}

func TestURLPolicy_EmptyAllowsAll(t *testing.T) {
	policy, err := browser.NewURLPolicy(nil)
	require.NoError(t, err)
	assert.True(t, policy.Allowed("https://anything.test"))

	var nilPolicy *browser.URLPolicy
	assert.True(t, nilPolicy.Allowed("https://anything.test"))
}

func TestURLPolicy_InvalidPattern(t *testing.T) {
	_, err := browser.NewURLPolicy([]string{"https://[example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid url pattern")
}
