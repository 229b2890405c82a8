package usecase

import (
	"context"

	"github.com/takify/backend/domain"
)

// TaskStore is the remote task store contract consumed by the view-model.
// Every operation is owner-scoped: Update and Delete touch a record only
// when it belongs to ownerID, so one signed-in user can never reach into
// another user's task set by guessing ids.
//
// Subscribe delivers full current-snapshot task sets for the owner: one
// snapshot on subscribe, then one after every mutation touching the owner's
// records. Delivery is at-least-once with last-write-wins per record; the
// channel closes when ctx is cancelled. Reconnection after transient feed
// failures is the store's own responsibility.
type TaskStore interface {
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	Update(ctx context.Context, ownerID, id string, patch domain.TaskPatch) error
	Delete(ctx context.Context, ownerID, id string) error
	Subscribe(ctx context.Context, ownerID string) (<-chan []domain.Task, error)
}
