package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/takify/backend/domain"
	"github.com/takify/backend/repository"
)

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository creates a Postgres-backed task activity log.
func NewActivityRepository(pool *pgxpool.Pool) repository.ActivityRepository {
	return &activityRepository{pool: pool}
}

func (r *activityRepository) Append(ctx context.Context, event domain.TaskEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO task_events (id, task_id, owner_id, action, payload, created_at)
	VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
	`
	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.TaskID,
		event.OwnerID,
		event.Action,
		[]byte(event.Payload),
		nullTime(event.CreatedAt),
	)
	return err
}

func (r *activityRepository) List(ctx context.Context, filter repository.ActivityFilter) ([]domain.TaskEvent, error) {
	const query = `
	SELECT id, task_id, owner_id, action, payload, created_at
	FROM task_events
	WHERE ($1 = '' OR owner_id = $1)
	  AND ($2 = '' OR task_id = $2)
	ORDER BY created_at DESC
	LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query, filter.OwnerID, filter.TaskID, clampLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.TaskEvent
	for rows.Next() {
		var event domain.TaskEvent
		var payload []byte
		if err := rows.Scan(&event.ID, &event.TaskID, &event.OwnerID, &event.Action, &payload, &event.CreatedAt); err != nil {
			return nil, err
		}
		event.Payload = append(event.Payload, payload...)
		events = append(events, event)
	}
	return events, rows.Err()
}
