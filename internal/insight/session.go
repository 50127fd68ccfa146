package insight

import (
	"sync"

	"github.com/google/uuid"

	"billing_monitor/internal/billing"
)

// RawConsumer carries a consumer's full series into a chat session so
// follow-up questions can be answered without re-uploading the file.
type RawConsumer struct {
	ConsumerID   string             `json:"consumer_id"`
	ConsumerType string             `json:"consumer_type"`
	MonthlyBills map[string]float64 `json:"monthly_bills"`
}

// Session is the retained context of one analysis run.
type Session struct {
	Summary  Summary         `json:"summary"`
	Spikes   []billing.Spike `json:"spikes"`
	Analysis string          `json:"analysis"`
	RawData  []RawConsumer   `json:"raw_data"`
}

// Registry holds analysis sessions in memory, keyed by opaque tokens.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Put stores a session and returns its token.
func (r *Registry) Put(s *Session) string {
	token := uuid.NewString()
	r.mu.Lock()
	r.sessions[token] = s
	r.mu.Unlock()
	return token
}

// Get returns the session for token, or nil if unknown.
func (r *Registry) Get(token string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[token]
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
