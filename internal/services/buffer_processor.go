package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/takify/backend/domain"
	"github.com/takify/backend/internal/infrastructure/buffer"
	"github.com/takify/backend/repository"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// ProcessorConfig controls how frequently the buffer is drained.
type ProcessorConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

// BufferProcessor replays buffered task mutations against the primary store
// once it is reachable again, then notifies the feed so live subscribers
// converge on the replayed state.
type BufferProcessor struct {
	store   *buffer.Store
	monitor ConnectionHealth
	repo    repository.TaskRepository
	feed    *TaskFeed
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     ProcessorConfig
}

func NewBufferProcessor(
	store *buffer.Store,
	monitor ConnectionHealth,
	repo repository.TaskRepository,
	feed *TaskFeed,
	logger *zap.Logger,
	cfg ProcessorConfig,
) *BufferProcessor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	bp := &BufferProcessor{
		store:   store,
		monitor: monitor,
		repo:    repo,
		feed:    feed,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = bp.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := bp.Drain(ctx); err != nil {
			bp.logger.Error("buffer drain failed", zap.Error(err))
		}
	})

	return bp
}

// Start launches the cron scheduler.
func (bp *BufferProcessor) Start() {
	if bp == nil || bp.cron == nil {
		return
	}
	bp.cron.Start()
	bp.logger.Info("buffer processor started")
}

// Stop gracefully stops the scheduler.
func (bp *BufferProcessor) Stop(ctx context.Context) {
	if bp == nil || bp.cron == nil {
		return
	}
	stopCtx := bp.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	bp.logger.Info("buffer processor stopped")
}

// Enqueue attempts to replay the item immediately and falls back to
// persisting it for the next drain.
func (bp *BufferProcessor) Enqueue(ctx context.Context, item buffer.Item) error {
	if bp == nil || bp.store == nil {
		return fmt.Errorf("buffer processor not configured")
	}

	if bp.monitor == nil || bp.monitor.IsOnline() {
		if err := bp.processItem(ctx, item); err == nil {
			return nil
		} else {
			bp.logger.Warn("immediate replay failed, buffering", zap.Error(err))
		}
	}
	return bp.store.Enqueue(item)
}

// Size returns the number of buffered items.
func (bp *BufferProcessor) Size() int {
	if bp == nil || bp.store == nil {
		return 0
	}
	size, err := bp.store.Size()
	if err != nil {
		return 0
	}
	return size
}

// Drain processes buffered items synchronously.
func (bp *BufferProcessor) Drain(ctx context.Context) error {
	if bp == nil || bp.store == nil {
		return nil
	}
	if bp.monitor != nil && !bp.monitor.IsOnline() {
		bp.logger.Debug("skipping buffer drain (offline)")
		return nil
	}

	items, err := bp.store.GetBatch(bp.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := bp.processItem(ctx, item); err != nil {
			bp.logger.Error("failed to replay buffered operation",
				zap.String("item_id", item.ID),
				zap.String("operation", item.Operation),
				zap.Error(err))

			item.Retries++
			if item.Retries >= bp.cfg.MaxRetries {
				bp.logger.Warn("dropping buffered operation (max retries reached)", zap.String("item_id", item.ID))
				_ = bp.store.Remove(item)
				continue
			}

			if err := bp.store.Remove(item); err != nil {
				bp.logger.Warn("failed to remove buffered operation", zap.Error(err))
			}
			if err := bp.store.Requeue(item); err != nil {
				bp.logger.Error("failed to requeue buffered operation", zap.Error(err))
			}
			continue
		}

		if err := bp.store.Remove(item); err != nil {
			bp.logger.Warn("failed to purge replayed operation", zap.Error(err))
		}
	}
	return nil
}

func (bp *BufferProcessor) processItem(ctx context.Context, item buffer.Item) error {
	if ctx == nil {
		ctx = context.Background()
	}

	switch item.Operation {
	case buffer.OperationCreate:
		var task domain.Task
		if err := json.Unmarshal(item.Data, &task); err != nil {
			return err
		}
		created, err := bp.repo.Create(ctx, &task)
		if err != nil {
			return err
		}
		bp.notify(ctx, created.OwnerID)
		return nil

	case buffer.OperationUpdate:
		var payload updatePayload
		if err := json.Unmarshal(item.Data, &payload); err != nil {
			return err
		}
		updated, err := bp.repo.Update(ctx, payload.OwnerID, payload.ID, payload.Patch)
		if err != nil {
			// the record vanished while buffered; nothing left to replay
			if domain.IsDomainError(err, domain.ErrCodeNotFound) {
				return nil
			}
			return err
		}
		bp.notify(ctx, updated.OwnerID)
		return nil

	case buffer.OperationDelete:
		var payload deletePayload
		if err := json.Unmarshal(item.Data, &payload); err != nil {
			return err
		}
		if err := bp.repo.Delete(ctx, payload.OwnerID, payload.ID); err != nil {
			if domain.IsDomainError(err, domain.ErrCodeNotFound) {
				return nil
			}
			return err
		}
		bp.notify(ctx, payload.OwnerID)
		return nil

	default:
		return fmt.Errorf("unsupported operation %s", item.Operation)
	}
}

func (bp *BufferProcessor) notify(ctx context.Context, ownerID string) {
	if bp.feed != nil {
		bp.feed.Notify(ctx, ownerID)
	}
}
