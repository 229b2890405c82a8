package repository

import (
	"context"

	"github.com/takify/backend/domain"
)

// TaskRepository is the persistence port for task records. Update merges only
// the fields named by the patch. Update and Delete match on both id and owner,
// so a row held by a different owner behaves exactly like a missing row.
type TaskRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Task, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	Update(ctx context.Context, ownerID, id string, patch domain.TaskPatch) (*domain.Task, error)
	Delete(ctx context.Context, ownerID, id string) error
}
