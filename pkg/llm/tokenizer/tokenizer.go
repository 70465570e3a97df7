// Package tokenizer counts and trims text against a model token budget.
package tokenizer

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Encoding is the tiktoken encoding used for all counts.
const Encoding = "cl100k_base"

const truncationMarker = "\n...[truncated]"

var (
	encoder     *tiktoken.Tiktoken
	encoderOnce sync.Once
	encoderErr  error
)

func initEncoder() error {
	encoderOnce.Do(func() {
		encoder, encoderErr = tiktoken.GetEncoding(Encoding)
	})
	return encoderErr
}

// Count returns the number of tokens in text. When the encoder is unavailable
// it falls back to a four-characters-per-token estimate.
func Count(text string) int {
	if err := initEncoder(); err != nil {
		return estimate(text)
	}
	return len(encoder.Encode(text, nil, nil))
}

// Truncate returns text cut down to at most budget tokens, with a marker
// appended when anything was dropped. A non-positive budget disables trimming.
func Truncate(text string, budget int) string {
	if budget <= 0 || text == "" {
		return text
	}

	if err := initEncoder(); err != nil {
		limit := budget * 4
		if len(text) <= limit {
			return text
		}
		return text[:limit] + truncationMarker
	}

	tokens := encoder.Encode(text, nil, nil)
	if len(tokens) <= budget {
		return text
	}
	return encoder.Decode(tokens[:budget]) + truncationMarker
}

func estimate(text string) int {
	return (len(text) + 3) / 4
}
