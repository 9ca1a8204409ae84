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

type commentRepository struct {
	db      *sql.DB
	metrics *metrics.Metrics
}

func NewCommentRepository(db *sql.DB, m *metrics.Metrics) domain.CommentRepository {
	return &commentRepository{db: db, metrics: m}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	query := `
		INSERT INTO comments (content, task_id, user_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	start := time.Now()
	err := r.db.QueryRowContext(ctx, query, comment.Content, comment.TaskID, comment.UserID).
		Scan(&comment.ID, &comment.CreatedAt)
	r.metrics.ObserveDB("insert_comment", start, err)
	if err != nil {
		// The service checks task existence first, but the task can be
		// deleted between the check and the insert.
		if postgres.IsForeignKeyViolation(err) {
			return domain.ErrTaskNotFound
		}
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (r *commentRepository) FindByTask(ctx context.Context, taskID int64) ([]domain.Comment, error) {
	query := `
		SELECT id, content, task_id, user_id, created_at
		FROM comments
		WHERE task_id = $1
		ORDER BY created_at`

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, taskID)
	r.metrics.ObserveDB("find_comments_by_task", start, err)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.Content, &c.TaskID, &c.UserID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, nil
}
