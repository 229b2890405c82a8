package lifecycle

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// StopFunc tears down one component during shutdown.
type StopFunc func(ctx context.Context) error

type registration struct {
	name string
	stop StopFunc
}

// Manager owns the shutdown sequence. Components register in startup order
// and are stopped in reverse, so the HTTP listener goes down before the
// view-model registry, and the registry before the stores it writes to.
type Manager struct {
	timeout time.Duration
	logger  *zap.Logger

	mu         sync.Mutex
	components []registration
}

func New(timeout time.Duration, logger *zap.Logger) *Manager {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		timeout: timeout,
		logger:  logger,
	}
}

// Register queues a component for teardown. Later registrations stop first.
func (m *Manager) Register(name string, stop StopFunc) {
	if stop == nil {
		return
	}
	m.mu.Lock()
	m.components = append(m.components, registration{name: name, stop: stop})
	m.mu.Unlock()
}

// Shutdown stops every registered component in reverse registration order.
// A failing component is logged and skipped; the rest still get stopped
// within the shared timeout.
func (m *Manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	m.mu.Lock()
	defer m.mu.Unlock()

	var failures error
	for i := len(m.components) - 1; i >= 0; i-- {
		c := m.components[i]
		if err := c.stop(ctx); err != nil {
			m.logger.Error("component shutdown failed", zap.String("component", c.name), zap.Error(err))
			failures = errors.Join(failures, err)
			continue
		}
		m.logger.Info("component stopped", zap.String("component", c.name))
	}
	return failures
}

// Listen waits for SIGTERM or SIGINT in the background and cancels the
// server context when one arrives.
func (m *Manager) Listen(cancel context.CancelFunc) {
	if cancel == nil {
		return
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		defer signal.Stop(sigCh)
		sig := <-sigCh
		m.logger.Info("termination signal received", zap.String("signal", sig.String()))
		cancel()
	}()
}
