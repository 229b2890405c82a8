package tasks

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/takify/backend/domain"
	"github.com/takify/backend/usecase"
)

// Draft carries the user-supplied fields of a new task. Everything else
// (id, timestamps, completion state, owner) is assigned by Add.
type Draft struct {
	Title       string
	Description string
	Category    domain.Category
	Priority    domain.Priority
	Deadline    *time.Time
}

// ViewModel holds the in-memory task set of one signed-in owner and mediates
// all mutations against the remote store. It never mutates local state
// optimistically: every write goes to the store and comes back through the
// subscription as a whole-snapshot replacement.
//
// The view-model has two modes: detached (no owner, empty task set) and
// attached (owner present, live subscription running).
type ViewModel struct {
	store  usecase.TaskStore
	logger *zap.Logger
	now    func() time.Time

	mu         sync.Mutex
	ownerID    string
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}

	// tasks keeps the latest snapshot in feed order; that order is the
	// stable pre-sort sequence the projection contract refers to.
	tasks []domain.Task
	index map[string]int

	filter    Filter
	sortField SortField
	direction SortDirection

	dirty      bool
	projection []domain.Task

	watchers    map[uint64]chan struct{}
	nextWatcher uint64
}

// New returns a detached view-model with the default projection settings:
// all tasks, sorted by creation time, newest first.
func New(store usecase.TaskStore, logger *zap.Logger) *ViewModel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewModel{
		store:     store,
		logger:    logger,
		now:       time.Now,
		index:     map[string]int{},
		filter:    FilterAll,
		sortField: SortByCreated,
		direction: Descending,
		dirty:     true,
		watchers:  map[uint64]chan struct{}{},
	}
}

// Attach opens the owner-scoped subscription and starts ingesting snapshots.
// An already-attached view-model is detached first. The subscription lives
// until Detach or until ctx is cancelled.
func (vm *ViewModel) Attach(ctx context.Context, ownerID string) error {
	vm.Detach()

	subCtx, cancel := context.WithCancel(ctx)
	feed, err := vm.store.Subscribe(subCtx, ownerID)
	if err != nil {
		cancel()
		return domain.WrapError(domain.ErrCodeStore, "subscribe failed", err)
	}

	done := make(chan struct{})

	vm.mu.Lock()
	vm.ownerID = ownerID
	vm.generation++
	gen := vm.generation
	vm.cancel = cancel
	vm.done = done
	vm.mu.Unlock()

	go vm.consume(gen, feed, done)

	vm.logger.Info("view-model attached", zap.String("owner_id", ownerID))
	return nil
}

// Detach tears down the subscription, waits for the feed goroutine to stop
// and clears the task set. The generation fence guarantees that a snapshot
// already in flight is never applied after Detach returns.
func (vm *ViewModel) Detach() {
	vm.mu.Lock()
	cancel := vm.cancel
	done := vm.done
	owner := vm.ownerID
	vm.cancel = nil
	vm.done = nil
	vm.ownerID = ""
	vm.generation++
	vm.tasks = nil
	vm.index = map[string]int{}
	vm.dirty = true
	vm.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	if owner != "" {
		vm.logger.Info("view-model detached", zap.String("owner_id", owner))
		vm.notify()
	}
}

// OwnerID returns the attached owner, or "" when detached.
func (vm *ViewModel) OwnerID() string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.ownerID
}

func (vm *ViewModel) consume(gen uint64, feed <-chan []domain.Task, done chan struct{}) {
	defer close(done)
	for snapshot := range feed {
		vm.replace(gen, snapshot)
	}
}

// replace swaps the task set wholesale with the latest snapshot. Snapshots
// from a superseded subscription generation are discarded.
func (vm *ViewModel) replace(gen uint64, snapshot []domain.Task) {
	vm.mu.Lock()
	if gen != vm.generation {
		vm.mu.Unlock()
		return
	}
	vm.tasks = append([]domain.Task(nil), snapshot...)
	vm.index = make(map[string]int, len(vm.tasks))
	for i, task := range vm.tasks {
		vm.index[task.ID] = i
	}
	vm.dirty = true
	vm.mu.Unlock()

	vm.notify()
}

// Add validates the draft and creates the record through the store. The new
// task is not inserted locally; it becomes visible when the feed delivers the
// next snapshot.
func (vm *ViewModel) Add(ctx context.Context, draft Draft) (*domain.Task, error) {
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return nil, domain.ErrEmptyTitle
	}

	vm.mu.Lock()
	owner := vm.ownerID
	vm.mu.Unlock()
	if owner == "" {
		return nil, domain.ErrUnauthorized
	}

	category := draft.Category
	if !category.Valid() {
		category = domain.CategoryPersonal
	}
	priority := draft.Priority
	if !priority.Valid() {
		priority = domain.PriorityMedium
	}

	task := &domain.Task{
		OwnerID:     owner,
		Title:       title,
		Description: draft.Description,
		Category:    category,
		Priority:    priority,
		Completed:   false,
		Progress:    0,
		Deadline:    draft.Deadline,
		CreatedAt:   vm.now(),
	}

	created, err := vm.store.Create(ctx, task)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ToggleCompletion flips the completed flag of the identified task. Unknown
// ids are a no-op. Completing forces progress to 100; un-completing re-sends
// whatever progress value is currently stored, leaving it untouched.
func (vm *ViewModel) ToggleCompletion(ctx context.Context, id string) error {
	vm.mu.Lock()
	owner := vm.ownerID
	i, ok := vm.index[id]
	if !ok {
		vm.mu.Unlock()
		return nil
	}
	current := vm.tasks[i]
	vm.mu.Unlock()

	completed := !current.Completed
	progress := current.Progress
	if completed {
		progress = 100
	}

	return vm.store.Update(ctx, owner, id, domain.TaskPatch{
		Completed: &completed,
		Progress:  &progress,
	})
}

// SetProgress writes a new progress value and recomputes the completed flag
// from it: 100 completes the task, anything lower un-completes it. The write
// is scoped to the attached owner; a record held by someone else is not found.
func (vm *ViewModel) SetProgress(ctx context.Context, id string, value int) error {
	if value < 0 || value > 100 {
		return domain.ErrProgressRange
	}

	vm.mu.Lock()
	owner := vm.ownerID
	vm.mu.Unlock()
	if owner == "" {
		return domain.ErrUnauthorized
	}

	completed := value == 100
	return vm.store.Update(ctx, owner, id, domain.TaskPatch{
		Completed: &completed,
		Progress:  &value,
	})
}

// Remove deletes the task from the store, scoped to the attached owner.
func (vm *ViewModel) Remove(ctx context.Context, id string) error {
	vm.mu.Lock()
	owner := vm.ownerID
	vm.mu.Unlock()
	if owner == "" {
		return domain.ErrUnauthorized
	}
	return vm.store.Delete(ctx, owner, id)
}

// SetFilter selects which tasks the projection keeps.
func (vm *ViewModel) SetFilter(filter Filter) error {
	if !filter.Valid() {
		return domain.NewError(domain.ErrCodeInvalid, "unknown filter type")
	}
	vm.mu.Lock()
	if vm.filter != filter {
		vm.filter = filter
		vm.dirty = true
	}
	vm.mu.Unlock()

	vm.notify()
	return nil
}

// SetSort activates the given sort field. Selecting the already-active field
// flips the direction; selecting a new field resets direction to descending.
func (vm *ViewModel) SetSort(field SortField) error {
	if !field.Valid() {
		return domain.NewError(domain.ErrCodeInvalid, "unknown sort field")
	}
	vm.mu.Lock()
	if vm.sortField == field {
		vm.direction = vm.direction.Flipped()
	} else {
		vm.sortField = field
		vm.direction = Descending
	}
	vm.dirty = true
	vm.mu.Unlock()

	vm.notify()
	return nil
}

// SetOrder applies an explicit sort field and direction. Unlike SetSort it is
// idempotent: repeating the same arguments leaves the view unchanged.
func (vm *ViewModel) SetOrder(field SortField, direction SortDirection) error {
	if !field.Valid() {
		return domain.NewError(domain.ErrCodeInvalid, "unknown sort field")
	}
	if !direction.Valid() {
		return domain.NewError(domain.ErrCodeInvalid, "unknown sort direction")
	}
	vm.mu.Lock()
	if vm.sortField != field || vm.direction != direction {
		vm.sortField = field
		vm.direction = direction
		vm.dirty = true
	}
	vm.mu.Unlock()

	vm.notify()
	return nil
}

// View reports the active filter, sort field and direction.
func (vm *ViewModel) View() (Filter, SortField, SortDirection) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.filter, vm.sortField, vm.direction
}

// Projection returns the filtered, stably-sorted task sequence. The result is
// memoized and only recomputed after a snapshot, filter or sort change.
func (vm *ViewModel) Projection() []domain.Task {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if vm.dirty {
		filtered := applyFilter(vm.tasks, vm.filter)
		sortTasks(filtered, vm.sortField, vm.direction)
		vm.projection = filtered
		vm.dirty = false
	}

	out := make([]domain.Task, len(vm.projection))
	copy(out, vm.projection)
	return out
}

// Watch returns a channel that receives a signal whenever the projection
// inputs change. The watcher is removed when ctx is cancelled.
func (vm *ViewModel) Watch(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)

	vm.mu.Lock()
	id := vm.nextWatcher
	vm.nextWatcher++
	vm.watchers[id] = ch
	vm.mu.Unlock()

	go func() {
		<-ctx.Done()
		vm.mu.Lock()
		delete(vm.watchers, id)
		vm.mu.Unlock()
	}()

	return ch
}

func (vm *ViewModel) notify() {
	vm.mu.Lock()
	channels := make([]chan struct{}, 0, len(vm.watchers))
	for _, ch := range vm.watchers {
		channels = append(channels, ch)
	}
	vm.mu.Unlock()

	for _, ch := range channels {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
