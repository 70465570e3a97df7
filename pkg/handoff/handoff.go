// Package handoff carries the committed page fragment from the navigation
// phase to the extraction phase.
package handoff

import (
	"errors"
	"strings"
	"sync"
	"time"
)

var (
	// ErrAlreadyCommitted is returned when a fragment was already set.
	ErrAlreadyCommitted = errors.New("result already committed")

	// ErrEmptyFragment is returned when committing blank content.
	ErrEmptyFragment = errors.New("cannot commit an empty fragment")
)

// Handoff is a single-slot, set-once holder for the final fragment. The first
// successful Set wins; later calls fail with ErrAlreadyCommitted.
type Handoff struct {
	mu          sync.RWMutex
	fragment    string
	selector    string
	committedAt time.Time
	set         bool
}

// New creates an unset handoff.
func New() *Handoff {
	return &Handoff{}
}

// Set stores the fragment captured from selector.
func (h *Handoff) Set(selector, fragment string) error {
	if strings.TrimSpace(fragment) == "" {
		return ErrEmptyFragment
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.set {
		return ErrAlreadyCommitted
	}
	h.fragment = fragment
	h.selector = selector
	h.committedAt = time.Now()
	h.set = true
	return nil
}

// Get returns the fragment and whether one was committed.
func (h *Handoff) Get() (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.fragment, h.set
}

// IsSet reports whether a fragment was committed.
func (h *Handoff) IsSet() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.set
}

// Selector returns the selector the fragment was captured from.
func (h *Handoff) Selector() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.selector
}

// CommittedAt returns when the fragment was set; zero if unset.
func (h *Handoff) CommittedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.committedAt
}
