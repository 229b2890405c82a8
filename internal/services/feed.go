package services

import (
	"context"
	"fmt"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/takify/backend/domain"
	"github.com/takify/backend/repository"
)

// TaskFeed implements the live-subscription half of the remote store: a Redis
// pub/sub channel per owner signals "something changed", and each subscriber
// answers by re-querying the full owner-scoped task set and delivering it as
// a whole snapshot. At-least-once, last-write-wins, no per-record ordering.
type TaskFeed struct {
	client *redislib.Client
	repo   repository.TaskRepository
	prefix string
	logger *zap.Logger
}

func NewTaskFeed(client *redislib.Client, repo repository.TaskRepository, prefix string, logger *zap.Logger) *TaskFeed {
	if prefix == "" {
		prefix = "takify:feed:"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskFeed{
		client: client,
		repo:   repo,
		prefix: prefix,
		logger: logger,
	}
}

// Notify signals every subscriber of the owner that the task set changed.
// Failures only delay convergence until the next event, so they are logged
// and swallowed.
func (f *TaskFeed) Notify(ctx context.Context, ownerID string) {
	if ownerID == "" {
		return
	}
	if err := f.client.Publish(ctx, f.channel(ownerID), "sync").Err(); err != nil {
		f.logger.Warn("feed publish failed", zap.String("owner_id", ownerID), zap.Error(err))
	}
}

// Subscribe opens the owner's snapshot stream. The first snapshot is sent
// immediately; the channel closes when ctx is cancelled. go-redis re-dials
// the pub/sub connection on transport failures, so subscribers only observe
// staleness, never termination.
func (f *TaskFeed) Subscribe(ctx context.Context, ownerID string) (<-chan []domain.Task, error) {
	sub := f.client.Subscribe(ctx, f.channel(ownerID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, domain.WrapError(domain.ErrCodeStore, "feed subscription failed", err)
	}

	out := make(chan []domain.Task, 1)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()

		f.push(ctx, ownerID, out)

		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					return
				}
				f.push(ctx, ownerID, out)
			}
		}
	}()

	return out, nil
}

func (f *TaskFeed) push(ctx context.Context, ownerID string, out chan<- []domain.Task) {
	tasks, err := f.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		// subscriber stays on its previous snapshot until the next event
		f.logger.Warn("snapshot query failed", zap.String("owner_id", ownerID), zap.Error(err))
		return
	}
	select {
	case out <- tasks:
	case <-ctx.Done():
	}
}

func (f *TaskFeed) channel(ownerID string) string {
	return fmt.Sprintf("%s%s", f.prefix, ownerID)
}
