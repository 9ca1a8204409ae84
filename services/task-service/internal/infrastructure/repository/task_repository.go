package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/taskhive/task-platform/services/task-service/internal/domain"
	"github.com/taskhive/task-platform/shared/metrics"
	"github.com/taskhive/task-platform/shared/postgres"
)

type taskRepository struct {
	db      *sql.DB
	metrics *metrics.Metrics
}

func NewTaskRepository(db *sql.DB, m *metrics.Metrics) domain.TaskRepository {
	return &taskRepository{db: db, metrics: m}
}

const taskColumns = "id, title, description, deadline, priority, status, creator_id, created_at, updated_at"

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	start := time.Now()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO tasks (title, description, deadline, priority, status, creator_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err = tx.QueryRowContext(ctx, query,
		task.Title, task.Description, task.Deadline, task.Priority, task.Status, task.CreatorID).
		Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		r.metrics.ObserveDB("insert_task", start, err)
		return fmt.Errorf("insert task: %w", err)
	}

	if err := insertMembers(ctx, tx, task.ID, task.Members); err != nil {
		r.metrics.ObserveDB("insert_task", start, err)
		return err
	}

	err = tx.Commit()
	r.metrics.ObserveDB("insert_task", start, err)
	if err != nil {
		return fmt.Errorf("commit task insert: %w", err)
	}
	return nil
}

// Update writes the task row and, when members is non-nil, replaces the
// membership set. Everything happens in one transaction so a concurrent
// update never observes a partial membership diff.
func (r *taskRepository) Update(ctx context.Context, task *domain.Task, members []int64) error {
	start := time.Now()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE tasks
		SET title = $1, description = $2, deadline = $3, priority = $4, status = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at`

	err = tx.QueryRowContext(ctx, query,
		task.Title, task.Description, task.Deadline, task.Priority, task.Status, task.ID).
		Scan(&task.UpdatedAt)
	if err != nil {
		r.metrics.ObserveDB("update_task", start, err)
		if postgres.IsNotFound(err) {
			return domain.ErrTaskNotFound
		}
		return fmt.Errorf("update task: %w", err)
	}

	if members != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM rel_user_tasks WHERE task_id = $1`, task.ID); err != nil {
			r.metrics.ObserveDB("update_task", start, err)
			return fmt.Errorf("clear task members: %w", err)
		}
		if err := insertMembers(ctx, tx, task.ID, members); err != nil {
			r.metrics.ObserveDB("update_task", start, err)
			return err
		}
	}

	err = tx.Commit()
	r.metrics.ObserveDB("update_task", start, err)
	if err != nil {
		return fmt.Errorf("commit task update: %w", err)
	}
	return nil
}

func (r *taskRepository) FindByID(ctx context.Context, id int64) (*domain.Task, error) {
	query := fmt.Sprintf("SELECT %s FROM tasks WHERE id = $1", taskColumns)

	start := time.Now()
	var t domain.Task
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Title, &t.Description, &t.Deadline, &t.Priority, &t.Status,
		&t.CreatorID, &t.CreatedAt, &t.UpdatedAt)
	r.metrics.ObserveDB("find_task_by_id", start, err)
	if err != nil {
		if postgres.IsNotFound(err) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}

	members, err := r.loadMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Members = members
	return &t, nil
}

func (r *taskRepository) FindAll(ctx context.Context, filters domain.TaskFilters) ([]domain.Task, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filters.Title != "" {
		args = append(args, "%"+filters.Title+"%")
		conditions = append(conditions, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filters.Priority != "" {
		args = append(args, filters.Priority)
		conditions = append(conditions, fmt.Sprintf("priority = $%d", len(args)))
	}

	query := fmt.Sprintf("SELECT %s FROM tasks", taskColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	start := time.Now()
	tasks, err := r.queryTasks(ctx, query, args...)
	r.metrics.ObserveDB("find_all_tasks", start, err)
	return tasks, err
}

func (r *taskRepository) FindByMember(ctx context.Context, userID int64) ([]domain.Task, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tasks t
		JOIN rel_user_tasks r ON r.task_id = t.id
		WHERE r.user_id = $1
		ORDER BY t.created_at DESC`,
		prefixColumns("t"))

	start := time.Now()
	tasks, err := r.queryTasks(ctx, query, userID)
	r.metrics.ObserveDB("find_tasks_by_member", start, err)
	return tasks, err
}

func (r *taskRepository) Exists(ctx context.Context, id int64) (bool, error) {
	start := time.Now()
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, id).Scan(&exists)
	r.metrics.ObserveDB("task_exists", start, err)
	if err != nil {
		return false, fmt.Errorf("check task existence: %w", err)
	}
	return exists, nil
}

func (r *taskRepository) queryTasks(ctx context.Context, query string, args ...interface{}) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	var ids []int64
	for rows.Next() {
		var t domain.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Deadline, &t.Priority, &t.Status,
			&t.CreatorID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	if len(tasks) == 0 {
		return tasks, nil
	}

	membersByTask, err := r.loadMembersBatch(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		tasks[i].Members = membersByTask[tasks[i].ID]
	}
	return tasks, nil
}

func (r *taskRepository) loadMembers(ctx context.Context, taskID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM rel_user_tasks WHERE task_id = $1 ORDER BY user_id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query task members: %w", err)
	}
	defer rows.Close()

	var members []int64
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan task member: %w", err)
		}
		members = append(members, userID)
	}
	return members, rows.Err()
}

func (r *taskRepository) loadMembersBatch(ctx context.Context, taskIDs []int64) (map[int64][]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT task_id, user_id FROM rel_user_tasks WHERE task_id = ANY($1) ORDER BY user_id`,
		pq.Array(taskIDs))
	if err != nil {
		return nil, fmt.Errorf("query task members: %w", err)
	}
	defer rows.Close()

	members := make(map[int64][]int64)
	for rows.Next() {
		var taskID, userID int64
		if err := rows.Scan(&taskID, &userID); err != nil {
			return nil, fmt.Errorf("scan task member: %w", err)
		}
		members[taskID] = append(members[taskID], userID)
	}
	return members, rows.Err()
}

func insertMembers(ctx context.Context, tx *sql.Tx, taskID int64, members []int64) error {
	for _, userID := range members {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO rel_user_tasks (task_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			taskID, userID)
		if err != nil {
			return fmt.Errorf("insert task member: %w", err)
		}
	}
	return nil
}

func prefixColumns(alias string) string {
	cols := strings.Split(taskColumns, ", ")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}
