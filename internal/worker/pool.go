package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"planpal-backend/internal/models"
	"planpal-backend/internal/services"
)

const (
	ScheduleKey    = "reminders:scheduled"
	maxAttempts    = 3
	claimBatch     = 10
	lockTTL        = 10 * time.Minute
	lockRetryDelay = 30 * time.Second
	pollInterval   = time.Second
)

const (
	resultSent        = "sent"
	resultAlreadySent = "already_sent"
	resultMissing     = "missing"
)

type reminderStore interface {
	GetWithTask(ctx context.Context, id uuid.UUID) (*models.Reminder, *models.Task, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	ListUnsent(ctx context.Context) ([]*models.Reminder, error)
}

type mailer interface {
	SendReminderEmail(to string, task *models.Task, reminder *models.Reminder) error
}

// Pool delivers reminders scheduled in a Redis sorted set scored by due time.
type Pool struct {
	redis       *redis.Client
	reminders   reminderStore
	email       mailer
	events      services.EventPublisher
	recipient   string
	workerCount int
	now         func() time.Time
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func NewPool(
	redisClient *redis.Client,
	reminders reminderStore,
	email mailer,
	events services.EventPublisher,
	recipient string,
	workerCount int,
) *Pool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &Pool{
		redis:       redisClient,
		reminders:   reminders,
		email:       email,
		events:      events,
		recipient:   recipient,
		workerCount: workerCount,
		now:         time.Now,
		stopChan:    make(chan struct{}),
	}
}

// Schedule implements services.ReminderScheduler.
func (p *Pool) Schedule(ctx context.Context, reminderID uuid.UUID, at time.Time) error {
	return p.enqueue(ctx, models.ReminderJob{ReminderID: reminderID}, at)
}

func (p *Pool) enqueue(ctx context.Context, job models.ReminderJob, at time.Time) error {
	member, err := encodeJob(job)
	if err != nil {
		return err
	}
	if err := p.redis.ZAdd(ctx, ScheduleKey, redis.Z{Score: score(at), Member: member}).Err(); err != nil {
		return fmt.Errorf("failed to schedule reminder %s: %w", job.ReminderID, err)
	}
	return nil
}

// Resync re-queues every unsent reminder from Postgres, so a flushed Redis
// does not lose reminders. Existing entries are left untouched.
func (p *Pool) Resync(ctx context.Context) (int, error) {
	pending, err := p.reminders.ListUnsent(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list unsent reminders: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	members := make([]redis.Z, 0, len(pending))
	for _, rem := range pending {
		member, err := encodeJob(models.ReminderJob{ReminderID: rem.ID})
		if err != nil {
			return 0, err
		}
		members = append(members, redis.Z{Score: score(rem.RemindAt), Member: member})
	}

	added, err := p.redis.ZAddNX(ctx, ScheduleKey, members...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to resync reminders: %w", err)
	}
	return int(added), nil
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	log.Printf("Started %d reminder workers", p.workerCount)
}

// Stop signals the workers and waits for in-flight deliveries. Safe to call twice.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
	})
	p.wg.Wait()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			log.Printf("Reminder worker %d shutting down", id)
			return
		case <-ticker.C:
			p.drainDue(context.Background(), id)
		}
	}
}

func (p *Pool) drainDue(ctx context.Context, workerID int) {
	members, err := p.redis.ZRangeByScore(ctx, ScheduleKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(p.now().Unix(), 10),
		Count: claimBatch,
	}).Result()
	if err != nil {
		log.WithError(err).WithField("worker", workerID).Warn("failed to read reminder schedule")
		return
	}

	for _, member := range members {
		// Only the worker whose ZREM removes the member owns the job.
		removed, err := p.redis.ZRem(ctx, ScheduleKey, member).Result()
		if err != nil {
			log.WithError(err).WithField("worker", workerID).Warn("failed to claim reminder job")
			continue
		}
		if removed == 0 {
			continue
		}

		job, err := decodeJob(member)
		if err != nil {
			log.WithError(err).WithField("worker", workerID).Error("dropping malformed reminder job")
			continue
		}

		p.run(ctx, workerID, job)
	}
}

func lockKey(reminderID uuid.UUID) string {
	return fmt.Sprintf("job_lock:%s", reminderID)
}

func (p *Pool) run(ctx context.Context, workerID int, job models.ReminderJob) {
	entry := log.WithFields(log.Fields{"worker": workerID, "reminder_id": job.ReminderID, "attempt": job.Attempt})

	key := lockKey(job.ReminderID)
	locked, err := p.redis.SetNX(ctx, key, "1", lockTTL).Result()
	if err != nil || !locked {
		// The job is already off the schedule, so it goes back or it is lost.
		if err != nil {
			entry.WithError(err).Warn("failed to lock reminder, requeueing")
		} else {
			entry.Info("reminder is locked elsewhere, requeueing")
		}
		if qErr := p.enqueue(ctx, job, p.now().Add(lockRetryDelay)); qErr != nil {
			entry.WithError(qErr).Error("failed to requeue locked reminder")
		}
		return
	}
	defer p.redis.Del(ctx, key)

	entry.Info("delivering reminder")

	result, err := p.deliver(ctx, job)
	if err != nil {
		p.handleFailure(ctx, job, err)
		return
	}
	entry.WithField("result", result).Info("reminder processed")
}

// deliver sends the reminder email unless it was already sent.
func (p *Pool) deliver(ctx context.Context, job models.ReminderJob) (string, error) {
	reminder, task, err := p.reminders.GetWithTask(ctx, job.ReminderID)
	if errors.Is(err, pgx.ErrNoRows) {
		// The task was deleted and its reminders cascaded.
		return resultMissing, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load reminder: %w", err)
	}

	if reminder.SentAt != nil {
		return resultAlreadySent, nil
	}

	if err := p.email.SendReminderEmail(p.recipient, task, reminder); err != nil {
		return "", err
	}

	sentAt := p.now().UTC()
	marked, err := p.reminders.MarkSent(ctx, reminder.ID, sentAt)
	if err != nil {
		return "", fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	if !marked {
		return resultAlreadySent, nil
	}

	if p.events != nil {
		p.events.Publish(ctx, models.WSMessage{
			Type: "reminder_sent",
			Payload: models.ReminderSentEvent{
				ReminderID: reminder.ID,
				TaskID:     task.ID,
				Title:      task.Title,
				SentAt:     sentAt,
			},
		})
	}

	return resultSent, nil
}

func (p *Pool) handleFailure(ctx context.Context, job models.ReminderJob, err error) {
	job.Attempt++
	errMsg := err.Error()

	if job.Attempt < maxAttempts {
		retryAt := p.now().Add(backoff(job.Attempt))
		log.Printf("Reminder %s failed (attempt %d): %s, retrying at %s", job.ReminderID, job.Attempt, errMsg, retryAt.Format(time.RFC3339))
		if qErr := p.enqueue(ctx, job, retryAt); qErr != nil {
			log.WithError(qErr).WithField("reminder_id", job.ReminderID).Error("failed to requeue reminder")
		}
		return
	}

	log.Printf("Reminder %s failed permanently: %s", job.ReminderID, errMsg)
	if p.events != nil {
		p.events.Publish(ctx, models.WSMessage{
			Type: "error",
			Payload: models.ErrorEvent{
				ReminderID:   job.ReminderID,
				ErrorCode:    "REMINDER_FAILED",
				ErrorMessage: errMsg,
			},
		})
	}
}

func backoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

func score(t time.Time) float64 {
	return float64(t.Unix())
}

func encodeJob(job models.ReminderJob) (string, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeJob(member string) (models.ReminderJob, error) {
	var job models.ReminderJob
	if err := json.Unmarshal([]byte(member), &job); err != nil {
		return job, err
	}
	if job.ReminderID == uuid.Nil {
		return job, fmt.Errorf("reminder job has no reminder_id")
	}
	return job, nil
}
