package buffer

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "buffer.db"), "buffer")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func item(op, taskID string, priority int) Item {
	return Item{
		OwnerID:   "owner-1",
		TaskID:    taskID,
		Operation: op,
		Data:      json.RawMessage(`{"id":"` + taskID + `"}`),
		Priority:  priority,
	}
}

func TestEnqueueAndGetBatch(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Enqueue(item(OperationCreate, "t1", 3)))
	require.NoError(t, store.Enqueue(item(OperationUpdate, "t2", 3)))

	items, err := store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, items, 2)

	size, err := store.Size()
	require.NoError(t, err)
	require.Equal(t, 2, size)
}

func TestGetBatchHonorsLimit(t *testing.T) {
	store := openTestStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Enqueue(item(OperationCreate, "t", 3)))
	}

	items, err := store.GetBatch(2)
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestBatchOrderFollowsPriority(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Enqueue(item(OperationCreate, "normal", 3)))
	require.NoError(t, store.Enqueue(item(OperationDelete, "urgent", 1)))

	items, err := store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "urgent", items[0].TaskID)
	require.Equal(t, "normal", items[1].TaskID)
}

func TestRemoveDeletesItem(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Enqueue(item(OperationCreate, "t1", 3)))
	items, err := store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.NoError(t, store.Remove(items[0]))

	size, err := store.Size()
	require.NoError(t, err)
	require.Zero(t, size)
}

func TestRequeueBumpsTimestampAndRetries(t *testing.T) {
	store := openTestStore(t)

	queued := item(OperationUpdate, "t1", 3)
	require.NoError(t, store.Enqueue(queued))

	items, err := store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, items, 1)

	retried := items[0]
	require.NoError(t, store.Remove(retried))
	retried.Retries++
	require.NoError(t, store.Requeue(retried))

	items, err = store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 1, items[0].Retries)
	require.False(t, items[0].Timestamp.Before(retried.Timestamp))
}

func TestCleanupDropsStaleItems(t *testing.T) {
	store := openTestStore(t)

	stale := item(OperationCreate, "old", 3)
	stale.Timestamp = time.Now().Add(-48 * time.Hour)
	require.NoError(t, store.Enqueue(stale))
	require.NoError(t, store.Enqueue(item(OperationCreate, "fresh", 3)))

	require.NoError(t, store.Cleanup(time.Now().Add(-24*time.Hour)))

	items, err := store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "fresh", items[0].TaskID)
}

func TestNormalizeAssignsDefaults(t *testing.T) {
	store := openTestStore(t)

	raw := Item{Operation: OperationCreate, TaskID: "t1", Priority: 99}
	require.NoError(t, store.Enqueue(raw))

	items, err := store.GetBatch(1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotEmpty(t, items[0].ID)
	require.Equal(t, 3, items[0].Priority)
	require.False(t, items[0].Timestamp.IsZero())
}
