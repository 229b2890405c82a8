package tasks

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/takify/backend/domain"
	"github.com/takify/backend/usecase"
)

// Registry maps each signed-in owner to one attached view-model. A view-model
// is attached lazily on first use and detached when the owner's session ends
// or the service shuts down. Subscriptions run on the registry's base context
// so they outlive individual requests.
type Registry struct {
	store  usecase.TaskStore
	logger *zap.Logger
	base   context.Context

	mu     sync.Mutex
	closed bool
	vms    map[string]*ViewModel
}

func NewRegistry(base context.Context, store usecase.TaskStore, logger *zap.Logger) *Registry {
	if base == nil {
		base = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		store:  store,
		logger: logger,
		base:   base,
		vms:    map[string]*ViewModel{},
	}
}

// Acquire returns the owner's view-model, attaching a new one if needed.
func (r *Registry) Acquire(ownerID string) (*ViewModel, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, domain.NewError(domain.ErrCodeInternal, "registry is shut down")
	}
	if vm, ok := r.vms[ownerID]; ok {
		r.mu.Unlock()
		return vm, nil
	}
	r.mu.Unlock()

	vm := New(r.store, r.logger)
	if err := vm.Attach(r.base, ownerID); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.vms[ownerID]; ok {
		// lost the race; keep the first attachment
		go vm.Detach()
		return existing, nil
	}
	r.vms[ownerID] = vm
	return vm, nil
}

// Release detaches and removes the owner's view-model, if any. Called when
// the session is revoked or expires.
func (r *Registry) Release(ownerID string) {
	r.mu.Lock()
	vm, ok := r.vms[ownerID]
	delete(r.vms, ownerID)
	r.mu.Unlock()

	if ok {
		vm.Detach()
	}
}

// Shutdown detaches every view-model and rejects further acquisitions.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	r.closed = true
	vms := make([]*ViewModel, 0, len(r.vms))
	for _, vm := range r.vms {
		vms = append(vms, vm)
	}
	r.vms = map[string]*ViewModel{}
	r.mu.Unlock()

	for _, vm := range vms {
		vm.Detach()
	}
}
