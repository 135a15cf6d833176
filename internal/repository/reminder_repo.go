package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"planpal-backend/internal/models"
)

type ReminderRepo struct {
	pool *pgxpool.Pool
}

func NewReminderRepo(pool *pgxpool.Pool) *ReminderRepo {
	return &ReminderRepo{pool: pool}
}

func (r *ReminderRepo) Create(ctx context.Context, rem *models.Reminder) error {
	rem.ID = uuid.New()

	query := `INSERT INTO reminders (id, task_id, remind_at)
		VALUES ($1, $2, $3) RETURNING created_at`

	return r.pool.QueryRow(ctx, query, rem.ID, rem.TaskID, rem.RemindAt).Scan(&rem.CreatedAt)
}

// GetWithTask loads a reminder together with the task it belongs to.
func (r *ReminderRepo) GetWithTask(ctx context.Context, id uuid.UUID) (*models.Reminder, *models.Task, error) {
	rem := &models.Reminder{}
	t := &models.Task{}

	query := `SELECT r.id, r.task_id, r.remind_at, r.sent_at, r.created_at,
		t.id, t.title, t.category, t.color, t.due_at, t.status, t.created_at
		FROM reminders r JOIN tasks t ON t.id = r.task_id
		WHERE r.id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rem.ID, &rem.TaskID, &rem.RemindAt, &rem.SentAt, &rem.CreatedAt,
		&t.ID, &t.Title, &t.Category, &t.Color, &t.DueAt, &t.Status, &t.CreatedAt,
	)
	if err != nil {
		return nil, nil, err
	}
	return rem, t, nil
}

func (r *ReminderRepo) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*models.Reminder, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, task_id, remind_at, sent_at, created_at
		 FROM reminders WHERE task_id = $1 ORDER BY remind_at ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reminders := []*models.Reminder{}
	for rows.Next() {
		rem := &models.Reminder{}
		if err := rows.Scan(&rem.ID, &rem.TaskID, &rem.RemindAt, &rem.SentAt, &rem.CreatedAt); err != nil {
			return nil, err
		}
		reminders = append(reminders, rem)
	}
	return reminders, rows.Err()
}

// ListUnsent returns every reminder that has not been delivered yet.
func (r *ReminderRepo) ListUnsent(ctx context.Context) ([]*models.Reminder, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, task_id, remind_at, sent_at, created_at
		 FROM reminders WHERE sent_at IS NULL ORDER BY remind_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []*models.Reminder
	for rows.Next() {
		rem := &models.Reminder{}
		if err := rows.Scan(&rem.ID, &rem.TaskID, &rem.RemindAt, &rem.SentAt, &rem.CreatedAt); err != nil {
			return nil, err
		}
		reminders = append(reminders, rem)
	}
	return reminders, rows.Err()
}

// MarkSent stamps sent_at once. It reports false when the reminder was
// already marked by someone else.
func (r *ReminderRepo) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		"UPDATE reminders SET sent_at = $1 WHERE id = $2 AND sent_at IS NULL", at, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
