package repository

import (
	"context"

	"github.com/takify/backend/domain"
)

type ActivityFilter struct {
	OwnerID string
	TaskID  string
	Limit   int
	Offset  int
}

// ActivityRepository is the append-only log of task mutations.
type ActivityRepository interface {
	Append(ctx context.Context, event domain.TaskEvent) error
	List(ctx context.Context, filter ActivityFilter) ([]domain.TaskEvent, error)
}
