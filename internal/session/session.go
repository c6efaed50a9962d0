package session

import (
	"sync"
	"time"

	"reviews_dashboard/internal/engine"
	"reviews_dashboard/internal/openai"
	"reviews_dashboard/internal/ordersapi"
	"reviews_dashboard/internal/wbapi"
	"reviews_dashboard/internal/workflow"
)

// Session owns everything one connected seller works with: the two API
// clients constructed from the credentials supplied at connect, the optional
// order-statistics client, the fetch/filter/paginate engine and the reply
// workflow. Nothing here survives the process; there is no durable storage.
type Session struct {
	Token    string
	WB       *wbapi.Client
	AI       *openai.Client
	Orders   *ordersapi.Client // nil unless a stats credential was supplied
	Engine   *engine.Engine
	Workflow *workflow.Controller

	mu           sync.Mutex
	instructions string
	lastError    string
	lastSeen     time.Time
}

// SetInstructions replaces the free-text AI guidance for this session.
func (s *Session) SetInstructions(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instructions = text
}

// Instructions returns the current AI guidance.
func (s *Session) Instructions() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instructions
}

// SetError replaces the single current-error slot. Errors do not queue:
// the newest one wins, an empty string clears the banner.
func (s *Session) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = msg
}

// LastError returns the current error banner text, empty when none.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// Touch marks the session as recently used.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}
