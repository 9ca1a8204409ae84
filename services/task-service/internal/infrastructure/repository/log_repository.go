package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/taskhive/task-platform/services/task-service/internal/domain"
	"github.com/taskhive/task-platform/shared/metrics"
	"github.com/taskhive/task-platform/shared/postgres"
)

type logRepository struct {
	db      *sql.DB
	metrics *metrics.Metrics
}

func NewLogRepository(db *sql.DB, m *metrics.Metrics) domain.LogRepository {
	return &logRepository{db: db, metrics: m}
}

func (r *logRepository) Append(ctx context.Context, log *domain.TaskLog) error {
	query := `
		INSERT INTO task_logs (task_id, user_id, change)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	start := time.Now()
	err := r.db.QueryRowContext(ctx, query, log.TaskID, log.UserID, log.Change).
		Scan(&log.ID, &log.CreatedAt)
	r.metrics.ObserveDB("append_task_log", start, err)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return domain.ErrTaskNotFound
		}
		return fmt.Errorf("insert task log: %w", err)
	}
	return nil
}
