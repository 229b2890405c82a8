package services

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/takify/backend/domain"
	"github.com/takify/backend/internal/infrastructure/buffer"
)

type fakeTaskRepo struct {
	mu        sync.Mutex
	created   []domain.Task
	updated   []string
	deleted   []string
	updateErr error
}

func (r *fakeTaskRepo) GetByID(_ context.Context, id string) (*domain.Task, error) {
	return nil, domain.ErrTaskNotFound
}

func (r *fakeTaskRepo) ListByOwner(_ context.Context, _ string) ([]domain.Task, error) {
	return nil, nil
}

func (r *fakeTaskRepo) Create(_ context.Context, task *domain.Task) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, *task)
	return task, nil
}

func (r *fakeTaskRepo) Update(_ context.Context, ownerID, id string, _ domain.TaskPatch) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	r.updated = append(r.updated, ownerID+"/"+id)
	return &domain.Task{ID: id, OwnerID: ownerID}, nil
}

func (r *fakeTaskRepo) Delete(_ context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, ownerID+"/"+id)
	return nil
}

func (r *fakeTaskRepo) createdCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.created)
}

type fakeMonitor struct {
	online bool
}

func (m *fakeMonitor) IsOnline() bool { return m.online }

func newProcessor(t *testing.T, repo *fakeTaskRepo, mon *fakeMonitor) (*BufferProcessor, *buffer.Store) {
	t.Helper()
	store, err := buffer.Open(filepath.Join(t.TempDir(), "buffer.db"), "buffer")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	bp := NewBufferProcessor(store, mon, repo, nil, nil, ProcessorConfig{MaxRetries: 2})
	return bp, store
}

func createItem(t *testing.T, task domain.Task) buffer.Item {
	t.Helper()
	data, err := json.Marshal(task)
	require.NoError(t, err)
	return buffer.Item{
		TaskID:    task.ID,
		OwnerID:   task.OwnerID,
		Operation: buffer.OperationCreate,
		Data:      data,
	}
}

func updateItem(t *testing.T, id string, patch domain.TaskPatch) buffer.Item {
	t.Helper()
	data, err := json.Marshal(updatePayload{ID: id, OwnerID: "owner-1", Patch: patch})
	require.NoError(t, err)
	return buffer.Item{TaskID: id, OwnerID: "owner-1", Operation: buffer.OperationUpdate, Data: data}
}

func TestEnqueueReplaysImmediatelyWhenOnline(t *testing.T) {
	repo := &fakeTaskRepo{}
	bp, store := newProcessor(t, repo, &fakeMonitor{online: true})

	task := domain.Task{ID: "t1", OwnerID: "owner-1", Title: "buffered"}
	require.NoError(t, bp.Enqueue(context.Background(), createItem(t, task)))

	require.Equal(t, 1, repo.createdCount())
	size, err := store.Size()
	require.NoError(t, err)
	require.Zero(t, size)
}

func TestEnqueuePersistsWhenOffline(t *testing.T) {
	repo := &fakeTaskRepo{}
	bp, store := newProcessor(t, repo, &fakeMonitor{online: false})

	task := domain.Task{ID: "t1", OwnerID: "owner-1", Title: "buffered"}
	require.NoError(t, bp.Enqueue(context.Background(), createItem(t, task)))

	require.Zero(t, repo.createdCount())
	size, err := store.Size()
	require.NoError(t, err)
	require.Equal(t, 1, size)
}

func TestDrainReplaysBufferedOperations(t *testing.T) {
	repo := &fakeTaskRepo{}
	mon := &fakeMonitor{online: false}
	bp, store := newProcessor(t, repo, mon)

	require.NoError(t, bp.Enqueue(context.Background(), createItem(t, domain.Task{ID: "t1", OwnerID: "owner-1"})))
	completed := true
	require.NoError(t, bp.Enqueue(context.Background(), updateItem(t, "t2", domain.TaskPatch{Completed: &completed})))

	mon.online = true
	require.NoError(t, bp.Drain(context.Background()))

	require.Equal(t, 1, repo.createdCount())
	repo.mu.Lock()
	// replay stays scoped to the owner who issued the buffered write
	require.Equal(t, []string{"owner-1/t2"}, repo.updated)
	repo.mu.Unlock()

	size, err := store.Size()
	require.NoError(t, err)
	require.Zero(t, size)
}

func TestDrainReplaysBufferedDelete(t *testing.T) {
	repo := &fakeTaskRepo{}
	mon := &fakeMonitor{online: false}
	bp, store := newProcessor(t, repo, mon)

	data, err := json.Marshal(deletePayload{ID: "t1", OwnerID: "owner-1"})
	require.NoError(t, err)
	require.NoError(t, bp.Enqueue(context.Background(), buffer.Item{
		TaskID:    "t1",
		OwnerID:   "owner-1",
		Operation: buffer.OperationDelete,
		Data:      data,
	}))

	mon.online = true
	require.NoError(t, bp.Drain(context.Background()))

	repo.mu.Lock()
	require.Equal(t, []string{"owner-1/t1"}, repo.deleted)
	repo.mu.Unlock()

	size, err := store.Size()
	require.NoError(t, err)
	require.Zero(t, size)
}

func TestDrainSkipsWhileOffline(t *testing.T) {
	repo := &fakeTaskRepo{}
	bp, store := newProcessor(t, repo, &fakeMonitor{online: false})

	require.NoError(t, bp.Enqueue(context.Background(), createItem(t, domain.Task{ID: "t1", OwnerID: "owner-1"})))
	require.NoError(t, bp.Drain(context.Background()))

	require.Zero(t, repo.createdCount())
	size, err := store.Size()
	require.NoError(t, err)
	require.Equal(t, 1, size)
}

func TestDrainDropsUpdateForVanishedRecord(t *testing.T) {
	repo := &fakeTaskRepo{updateErr: domain.ErrTaskNotFound}
	mon := &fakeMonitor{online: false}
	bp, store := newProcessor(t, repo, mon)

	completed := true
	require.NoError(t, bp.Enqueue(context.Background(), updateItem(t, "gone", domain.TaskPatch{Completed: &completed})))

	mon.online = true
	require.NoError(t, bp.Drain(context.Background()))

	size, err := store.Size()
	require.NoError(t, err)
	require.Zero(t, size)
}

func TestDrainDropsItemAfterMaxRetries(t *testing.T) {
	repo := &fakeTaskRepo{updateErr: domain.WrapError(domain.ErrCodeStore, "still down", nil)}
	mon := &fakeMonitor{online: false}
	bp, store := newProcessor(t, repo, mon)

	completed := true
	require.NoError(t, bp.Enqueue(context.Background(), updateItem(t, "t1", domain.TaskPatch{Completed: &completed})))

	mon.online = true
	for i := 0; i < 2; i++ {
		require.NoError(t, bp.Drain(context.Background()))
	}

	size, err := store.Size()
	require.NoError(t, err)
	require.Zero(t, size)
}
