package monitor

import "time"

// Status is one health-check round over the task store's dependencies. PostgreSQL
// and Redis together decide whether mutations write through or buffer;
// BufferSize is the number of operations waiting for replay.
type Status struct {
	PostgreSQL bool      `json:"postgresql"`
	Redis      bool      `json:"redis"`
	Buffer     bool      `json:"buffer"`
	BufferSize int       `json:"buffer_size"`
	CheckedAt  time.Time `json:"checked_at"`
}
