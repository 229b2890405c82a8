package services

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/takify/backend/domain"
	"github.com/takify/backend/internal/infrastructure/buffer"
	"github.com/takify/backend/repository"
	"github.com/takify/backend/usecase"
)

// updatePayload and deletePayload are the buffered forms of the non-create
// operations; creates buffer the full task record. The owner rides along so
// replay stays scoped to the user who issued the mutation.
type updatePayload struct {
	ID      string           `json:"id"`
	OwnerID string           `json:"owner_id"`
	Patch   domain.TaskPatch `json:"patch"`
}

type deletePayload struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
}

// RemoteTaskStore is the production remote store adapter: Postgres CRUD, a
// Redis snapshot feed, an activity log, and an offline buffer that absorbs
// mutations while Postgres is unreachable. Resilience lives entirely here;
// the view-model above it never retries.
type RemoteTaskStore struct {
	repo      repository.TaskRepository
	activity  repository.ActivityRepository
	feed      *TaskFeed
	processor *BufferProcessor
	logger    *zap.Logger
}

var _ usecase.TaskStore = (*RemoteTaskStore)(nil)

func NewRemoteTaskStore(
	repo repository.TaskRepository,
	activity repository.ActivityRepository,
	feed *TaskFeed,
	processor *BufferProcessor,
	logger *zap.Logger,
) *RemoteTaskStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteTaskStore{
		repo:      repo,
		activity:  activity,
		feed:      feed,
		processor: processor,
		logger:    logger,
	}
}

func (s *RemoteTaskStore) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		// assigned up front so a buffered create replays under the same id
		task.ID = uuid.NewString()
	}

	created, err := s.repo.Create(ctx, task)
	if err != nil {
		if s.bufferCreate(ctx, task) {
			return task, nil
		}
		return nil, storeError("create failed", err)
	}

	s.recordActivity(ctx, created.ID, created.OwnerID, domain.EventTaskCreated, created)
	s.feed.Notify(ctx, created.OwnerID)
	return created, nil
}

func (s *RemoteTaskStore) Update(ctx context.Context, ownerID, id string, patch domain.TaskPatch) error {
	updated, err := s.repo.Update(ctx, ownerID, id, patch)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) || domain.IsDomainError(err, domain.ErrCodeInvalid) {
			return err
		}
		if s.bufferUpdate(ctx, ownerID, id, patch) {
			return nil
		}
		return storeError("update failed", err)
	}

	s.recordActivity(ctx, updated.ID, updated.OwnerID, domain.EventTaskUpdated, updated)
	s.feed.Notify(ctx, updated.OwnerID)
	return nil
}

// Delete removes the owner's record. A record that is missing, or held by a
// different owner, counts as success: either way nothing of the caller's is
// left behind, and nothing of anyone else's was touched.
func (s *RemoteTaskStore) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return nil
		}
		if s.bufferDelete(ctx, ownerID, id) {
			return nil
		}
		return storeError("delete failed", err)
	}

	s.recordActivity(ctx, id, ownerID, domain.EventTaskDeleted, deletePayload{ID: id, OwnerID: ownerID})
	s.feed.Notify(ctx, ownerID)
	return nil
}

func (s *RemoteTaskStore) Subscribe(ctx context.Context, ownerID string) (<-chan []domain.Task, error) {
	return s.feed.Subscribe(ctx, ownerID)
}

func (s *RemoteTaskStore) bufferCreate(ctx context.Context, task *domain.Task) bool {
	payload, err := json.Marshal(task)
	if err != nil {
		return false
	}
	return s.enqueue(ctx, buffer.Item{
		TaskID:    task.ID,
		OwnerID:   task.OwnerID,
		Operation: buffer.OperationCreate,
		Data:      payload,
		Priority:  3,
	})
}

func (s *RemoteTaskStore) bufferUpdate(ctx context.Context, ownerID, id string, patch domain.TaskPatch) bool {
	payload, err := json.Marshal(updatePayload{ID: id, OwnerID: ownerID, Patch: patch})
	if err != nil {
		return false
	}
	return s.enqueue(ctx, buffer.Item{
		TaskID:    id,
		OwnerID:   ownerID,
		Operation: buffer.OperationUpdate,
		Data:      payload,
		Priority:  4,
	})
}

func (s *RemoteTaskStore) bufferDelete(ctx context.Context, ownerID, id string) bool {
	payload, err := json.Marshal(deletePayload{ID: id, OwnerID: ownerID})
	if err != nil {
		return false
	}
	return s.enqueue(ctx, buffer.Item{
		TaskID:    id,
		OwnerID:   ownerID,
		Operation: buffer.OperationDelete,
		Data:      payload,
		Priority:  4,
	})
}

func (s *RemoteTaskStore) enqueue(ctx context.Context, item buffer.Item) bool {
	if s.processor == nil {
		return false
	}
	if err := s.processor.Enqueue(ctx, item); err != nil {
		s.logger.Error("failed to buffer task operation",
			zap.String("operation", item.Operation),
			zap.String("task_id", item.TaskID),
			zap.Error(err))
		return false
	}
	s.logger.Warn("task operation buffered", zap.String("operation", item.Operation), zap.String("task_id", item.TaskID))
	return true
}

func (s *RemoteTaskStore) recordActivity(ctx context.Context, taskID, ownerID, action string, payload interface{}) {
	if s.activity == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	event := domain.TaskEvent{
		TaskID:  taskID,
		OwnerID: ownerID,
		Action:  action,
		Payload: data,
	}
	if err := s.activity.Append(ctx, event); err != nil {
		s.logger.Warn("failed to record task activity", zap.String("task_id", taskID), zap.Error(err))
	}
}

func storeError(message string, err error) error {
	return domain.WrapError(domain.ErrCodeStore, message, err)
}
