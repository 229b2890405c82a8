package domain

import (
	"encoding/json"
	"time"
)

// Task event actions recorded in the activity log.
const (
	EventTaskCreated = "task.created"
	EventTaskUpdated = "task.updated"
	EventTaskDeleted = "task.deleted"
)

// TaskEvent records a single mutation applied to a task, scoped to its owner.
// The payload is the task snapshot (create/update) or the bare id (delete).
type TaskEvent struct {
	ID        string          `json:"id"`
	TaskID    string          `json:"task_id"`
	OwnerID   string          `json:"owner_id"`
	Action    string          `json:"action"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
