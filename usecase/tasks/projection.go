package tasks

import (
	"sort"
	"time"

	"github.com/takify/backend/domain"
)

// Filter selects which tasks the projection keeps.
type Filter string

const (
	FilterAll          Filter = "all"
	FilterPending      Filter = "pending"
	FilterCompleted    Filter = "completed"
	FilterHighPriority Filter = "high-priority"
)

func (f Filter) Valid() bool {
	switch f {
	case FilterAll, FilterPending, FilterCompleted, FilterHighPriority:
		return true
	}
	return false
}

// SortField names the attribute the projection orders by.
type SortField string

const (
	SortByPriority SortField = "priority"
	SortByDeadline SortField = "deadline"
	SortByCreated  SortField = "createdAt"
)

func (f SortField) Valid() bool {
	switch f {
	case SortByPriority, SortByDeadline, SortByCreated:
		return true
	}
	return false
}

// SortDirection flips the comparator; Descending is the raw order.
type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

func (d SortDirection) Valid() bool {
	return d == Ascending || d == Descending
}

func (d SortDirection) Flipped() SortDirection {
	if d == Ascending {
		return Descending
	}
	return Ascending
}

func applyFilter(in []domain.Task, filter Filter) []domain.Task {
	out := make([]domain.Task, 0, len(in))
	for _, task := range in {
		switch filter {
		case FilterPending:
			if task.Completed {
				continue
			}
		case FilterCompleted:
			if !task.Completed {
				continue
			}
		case FilterHighPriority:
			if task.Priority != domain.PriorityHigh {
				continue
			}
		}
		out = append(out, task)
	}
	return out
}

// sortTasks orders the slice in place, preserving the incoming order of
// records that compare equal.
func sortTasks(tasks []domain.Task, field SortField, direction SortDirection) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return compareTasks(tasks[i], tasks[j], field, direction) < 0
	})
}

// compareTasks is the projection comparator. Descending yields the raw order
// of each field (high-priority first, newest-created first); Ascending
// negates it. Tasks without a deadline sort after deadlined ones regardless
// of direction: the missing-value rule is never negated.
func compareTasks(a, b domain.Task, field SortField, direction SortDirection) int {
	switch field {
	case SortByPriority:
		c := b.Priority.Rank() - a.Priority.Rank()
		if direction == Ascending {
			c = -c
		}
		return c

	case SortByDeadline:
		if a.Deadline == nil && b.Deadline == nil {
			return 0
		}
		if a.Deadline == nil {
			return 1
		}
		if b.Deadline == nil {
			return -1
		}
		c := compareTime(*a.Deadline, *b.Deadline)
		if direction == Descending {
			c = -c
		}
		return c

	default: // SortByCreated
		c := compareTime(a.CreatedAt, b.CreatedAt)
		if direction == Descending {
			c = -c
		}
		return c
	}
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}
