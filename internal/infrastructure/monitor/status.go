package monitor

import "time"

type Status struct {
	PostgreSQL bool      `json:"postgresql"`
	Redis      bool      `json:"redis"`
	Outbox     bool      `json:"mail_outbox"`
	OutboxSize int       `json:"mail_outbox_size"`
	LastCheck  time.Time `json:"last_check"`
}

// Healthy reports whether the service can serve requests.
func (s Status) Healthy() bool {
	return s.PostgreSQL && s.Redis
}
