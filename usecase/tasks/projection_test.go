package tasks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/takify/backend/domain"
)

func seeded(t *testing.T, snapshot ...domain.Task) *ViewModel {
	t.Helper()
	vm := New(&fakeStore{}, nil)
	vm.replace(vm.generation, snapshot)
	return vm
}

func ids(tasks []domain.Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.ID
	}
	return out
}

func at(day int) time.Time {
	return time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC)
}

func deadline(day int) *time.Time {
	d := at(day)
	return &d
}

func TestFilterSubsets(t *testing.T) {
	vm := seeded(t,
		domain.Task{ID: "a", Completed: false, Priority: domain.PriorityHigh, CreatedAt: at(1)},
		domain.Task{ID: "b", Completed: true, Priority: domain.PriorityLow, CreatedAt: at(2)},
		domain.Task{ID: "c", Completed: false, Priority: domain.PriorityMedium, CreatedAt: at(3)},
		domain.Task{ID: "d", Completed: true, Priority: domain.PriorityHigh, CreatedAt: at(4)},
	)

	cases := []struct {
		filter Filter
		want   []string
	}{
		{FilterAll, []string{"d", "c", "b", "a"}},
		{FilterPending, []string{"c", "a"}},
		{FilterCompleted, []string{"d", "b"}},
		{FilterHighPriority, []string{"d", "a"}},
	}
	for _, tc := range cases {
		require.NoError(t, vm.SetFilter(tc.filter))
		require.Equal(t, tc.want, ids(vm.Projection()), "filter %s", tc.filter)
	}
}

func TestSortByCreatedDefaultsToNewestFirst(t *testing.T) {
	vm := seeded(t,
		domain.Task{ID: "t1", CreatedAt: at(1)},
		domain.Task{ID: "t2", CreatedAt: at(2)},
		domain.Task{ID: "t3", CreatedAt: at(3)},
	)

	require.Equal(t, []string{"t3", "t2", "t1"}, ids(vm.Projection()))

	// re-selecting the active field flips the direction
	require.NoError(t, vm.SetSort(SortByCreated))
	require.Equal(t, []string{"t1", "t2", "t3"}, ids(vm.Projection()))
}

func TestSortByPriorityDescendingPutsHighFirst(t *testing.T) {
	vm := seeded(t,
		domain.Task{ID: "low", Priority: domain.PriorityLow},
		domain.Task{ID: "high", Priority: domain.PriorityHigh},
		domain.Task{ID: "med", Priority: domain.PriorityMedium},
	)

	require.NoError(t, vm.SetSort(SortByPriority))
	require.Equal(t, []string{"high", "med", "low"}, ids(vm.Projection()))

	require.NoError(t, vm.SetSort(SortByPriority))
	require.Equal(t, []string{"low", "med", "high"}, ids(vm.Projection()))
}

func TestSortByPriorityIsStable(t *testing.T) {
	vm := seeded(t,
		domain.Task{ID: "m1", Priority: domain.PriorityMedium},
		domain.Task{ID: "h1", Priority: domain.PriorityHigh},
		domain.Task{ID: "m2", Priority: domain.PriorityMedium},
		domain.Task{ID: "m3", Priority: domain.PriorityMedium},
	)

	require.NoError(t, vm.SetSort(SortByPriority))
	// equal-priority records keep their snapshot order
	require.Equal(t, []string{"h1", "m1", "m2", "m3"}, ids(vm.Projection()))
}

func TestSortByDeadlineKeepsUndatedLast(t *testing.T) {
	vm := seeded(t,
		domain.Task{ID: "none1"},
		domain.Task{ID: "late", Deadline: deadline(20)},
		domain.Task{ID: "none2"},
		domain.Task{ID: "soon", Deadline: deadline(5)},
	)

	require.NoError(t, vm.SetSort(SortByDeadline))
	require.Equal(t, []string{"late", "soon", "none1", "none2"}, ids(vm.Projection()))

	// flipping direction reorders the dated records only; undated stay last
	require.NoError(t, vm.SetSort(SortByDeadline))
	require.Equal(t, []string{"soon", "late", "none1", "none2"}, ids(vm.Projection()))
}

func TestSwitchingSortFieldResetsDirection(t *testing.T) {
	vm := seeded(t,
		domain.Task{ID: "t1", Priority: domain.PriorityLow, CreatedAt: at(1)},
		domain.Task{ID: "t2", Priority: domain.PriorityHigh, CreatedAt: at(2)},
	)

	require.NoError(t, vm.SetSort(SortByCreated)) // now ascending
	require.Equal(t, []string{"t1", "t2"}, ids(vm.Projection()))

	require.NoError(t, vm.SetSort(SortByPriority))
	require.Equal(t, []string{"t2", "t1"}, ids(vm.Projection()))
}

func TestFilterAndSortCompose(t *testing.T) {
	vm := seeded(t,
		domain.Task{ID: "a", Completed: false, Priority: domain.PriorityLow, CreatedAt: at(1)},
		domain.Task{ID: "b", Completed: true, Priority: domain.PriorityHigh, CreatedAt: at(2)},
		domain.Task{ID: "c", Completed: false, Priority: domain.PriorityHigh, CreatedAt: at(3)},
		domain.Task{ID: "d", Completed: false, Priority: domain.PriorityMedium, CreatedAt: at(4)},
	)

	require.NoError(t, vm.SetFilter(FilterPending))
	require.NoError(t, vm.SetSort(SortByPriority))
	require.Equal(t, []string{"c", "d", "a"}, ids(vm.Projection()))
}

func TestProjectionReturnsCopy(t *testing.T) {
	vm := seeded(t,
		domain.Task{ID: "a", Title: "original", CreatedAt: at(1)},
	)

	first := vm.Projection()
	first[0].Title = "mutated"

	require.Equal(t, "original", vm.Projection()[0].Title)
}

func TestCompareTasksDeadlineRule(t *testing.T) {
	dated := domain.Task{ID: "dated", Deadline: deadline(10)}
	undated := domain.Task{ID: "undated"}

	for _, direction := range []SortDirection{Ascending, Descending} {
		require.Positive(t, compareTasks(undated, dated, SortByDeadline, direction))
		require.Negative(t, compareTasks(dated, undated, SortByDeadline, direction))
		require.Zero(t, compareTasks(undated, undated, SortByDeadline, direction))
	}
}
