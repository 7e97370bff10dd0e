package audit

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Login methods.
const (
	MethodPassword = "password"
	MethodMFA      = "mfa"
)

// Entry is one login attempt. Identifier is the canonical email when known,
// otherwise the raw identifier the caller submitted.
type Entry struct {
	ID         string    `json:"id"`
	Identifier string    `json:"identifier"`
	UserID     string    `json:"user_id,omitempty"`
	Success    bool      `json:"success"`
	Method     string    `json:"method"`
	Reason     string    `json:"reason,omitempty"`
	IP         string    `json:"ip,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

var (
	idMu      sync.Mutex
	idEntropy = ulid.Monotonic(rand.Reader, 0)
)

// NewEntryID returns a lexically sortable ULID for t.
func NewEntryID(t time.Time) string {
	idMu.Lock()
	defer idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), idEntropy).String()
}
