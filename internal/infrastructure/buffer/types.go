package buffer

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Kinds of transactional mail held in the outbox.
const (
	KindWelcome       = "welcome"
	KindResetPassword = "reset_password"
)

// Item is an outgoing mail that could not be delivered on the first attempt.
// Data holds the provider message exactly as it would have been sent.
type Item struct {
	ID        string          `json:"id"`
	PersonID  string          `json:"person_id,omitempty"`
	Kind      string          `json:"kind"`
	Recipient string          `json:"recipient"`
	Data      json.RawMessage `json:"data"`
	Priority  int             `json:"priority"`
	Retries   int             `json:"retries"`
	LastError string          `json:"last_error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`

	bucketKey []byte
}

// Password resets go out ahead of welcome mail.
func defaultPriority(kind string) int {
	if kind == KindResetPassword {
		return 1
	}
	return 3
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Priority <= 0 || i.Priority > 5 {
		i.Priority = defaultPriority(i.Kind)
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now()
	}
}
