package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"planpal-backend/internal/models"
)

func newRedisPool(t *testing.T, mr *miniredis.Miniredis, store *stubReminderStore, mail *stubMailer) *Pool {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	p := NewPool(client, store, mail, nil, "you@demo.local", 1)
	p.now = func() time.Time { return time.Date(2026, 10, 20, 6, 30, 0, 0, time.UTC) }
	return p
}

func scheduledMembers(t *testing.T, mr *miniredis.Miniredis) []string {
	t.Helper()
	if !mr.Exists(ScheduleKey) {
		return nil
	}
	members, err := mr.ZMembers(ScheduleKey)
	if err != nil {
		t.Fatalf("failed to read schedule: %v", err)
	}
	return members
}

func memberScore(t *testing.T, mr *miniredis.Miniredis, job models.ReminderJob) float64 {
	t.Helper()
	member, err := encodeJob(job)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	s, err := mr.ZScore(ScheduleKey, member)
	if err != nil {
		t.Fatalf("job %+v is not scheduled: %v", job, err)
	}
	return s
}

func TestDrainDue_DeliversOnlyDueJobs(t *testing.T) {
	mr := miniredis.RunT(t)
	rem, task := fixtureReminder()
	store := &stubReminderStore{reminder: rem, task: task, markOK: true}
	mail := &stubMailer{}
	p := newRedisPool(t, mr, store, mail)
	ctx := context.Background()

	later := uuid.New()
	if err := p.Schedule(ctx, rem.ID, p.now().Add(-time.Minute)); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := p.Schedule(ctx, later, p.now().Add(time.Hour)); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	p.drainDue(ctx, 0)

	if len(mail.sent) != 1 || rem.SentAt == nil {
		t.Fatalf("expected the due reminder to be sent, got %v", mail.sent)
	}
	members := scheduledMembers(t, mr)
	if len(members) != 1 {
		t.Fatalf("expected only the future job to remain, got %v", members)
	}
	if got := memberScore(t, mr, models.ReminderJob{ReminderID: later}); got != score(p.now().Add(time.Hour)) {
		t.Fatalf("future job score changed: %v", got)
	}
	if mr.Exists(lockKey(rem.ID)) {
		t.Fatalf("lock must be released after delivery")
	}
}

func TestDrainDue_HeldLockRequeuesJob(t *testing.T) {
	mr := miniredis.RunT(t)
	rem, task := fixtureReminder()
	store := &stubReminderStore{reminder: rem, task: task, markOK: true}
	mail := &stubMailer{}
	p := newRedisPool(t, mr, store, mail)
	ctx := context.Background()

	// A worker that died mid-delivery leaves its lock behind.
	mr.Set(lockKey(rem.ID), "1")
	store.unsent = []*models.Reminder{rem}
	if _, err := p.Resync(ctx); err != nil {
		t.Fatalf("resync: %v", err)
	}

	p.drainDue(ctx, 0)

	if len(mail.sent) != 0 || rem.SentAt != nil {
		t.Fatalf("locked reminder must not be sent, got %v", mail.sent)
	}
	if got := memberScore(t, mr, models.ReminderJob{ReminderID: rem.ID}); got != score(p.now().Add(lockRetryDelay)) {
		t.Fatalf("expected requeue at now+%s, got score %v", lockRetryDelay, got)
	}

	// Once the stale lock is gone the reminder goes out.
	mr.Del(lockKey(rem.ID))
	base := p.now()
	p.now = func() time.Time { return base.Add(lockRetryDelay) }
	p.drainDue(ctx, 0)

	if len(mail.sent) != 1 || rem.SentAt == nil {
		t.Fatalf("expected delivery after the lock cleared, got %v", mail.sent)
	}
	if members := scheduledMembers(t, mr); len(members) != 0 {
		t.Fatalf("expected empty schedule, got %v", members)
	}
}

func TestDrainDue_OneWorkerWinsJob(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	rem, task := fixtureReminder()
	mails := make([]*stubMailer, 4)
	pools := make([]*Pool, len(mails))
	for i := range pools {
		r := *rem
		mails[i] = &stubMailer{}
		pools[i] = newRedisPool(t, mr, &stubReminderStore{reminder: &r, task: task, markOK: true}, mails[i])
	}

	if err := pools[0].Schedule(ctx, rem.ID, pools[0].now().Add(-time.Second)); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	var wg sync.WaitGroup
	for i, p := range pools {
		wg.Add(1)
		go func(id int, p *Pool) {
			defer wg.Done()
			p.drainDue(ctx, id)
		}(i, p)
	}
	wg.Wait()

	total := 0
	for _, m := range mails {
		total += len(m.sent)
	}
	if total != 1 {
		t.Fatalf("expected exactly one delivery, got %d", total)
	}
	if members := scheduledMembers(t, mr); len(members) != 0 {
		t.Fatalf("expected empty schedule, got %v", members)
	}
}

func TestHandleFailure_RequeuesWithBackoff(t *testing.T) {
	mr := miniredis.RunT(t)
	rem, task := fixtureReminder()
	store := &stubReminderStore{reminder: rem, task: task, markOK: true}
	mail := &stubMailer{err: errSMTPDown}
	p := newRedisPool(t, mr, store, mail)
	ctx := context.Background()

	if err := p.Schedule(ctx, rem.ID, p.now().Add(-time.Second)); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	p.drainDue(ctx, 0)

	members := scheduledMembers(t, mr)
	if len(members) != 1 {
		t.Fatalf("expected one retry job, got %v", members)
	}
	retry, err := decodeJob(members[0])
	if err != nil || retry.ReminderID != rem.ID || retry.Attempt != 1 {
		t.Fatalf("unexpected retry job %+v (%v)", retry, err)
	}
	if got := memberScore(t, mr, retry); got != score(p.now().Add(2*time.Second)) {
		t.Fatalf("expected retry at now+2s, got score %v", got)
	}
	if store.markCalls != 0 {
		t.Fatalf("failed reminder must not be marked sent")
	}
}

func TestResync_DoesNotDuplicateScheduledJobs(t *testing.T) {
	mr := miniredis.RunT(t)
	rem, task := fixtureReminder()
	other := &models.Reminder{ID: uuid.New(), TaskID: task.ID, RemindAt: rem.RemindAt.Add(time.Hour)}
	store := &stubReminderStore{reminder: rem, task: task, unsent: []*models.Reminder{rem, other}}
	p := newRedisPool(t, mr, store, &stubMailer{})
	ctx := context.Background()

	scheduledAt := rem.RemindAt.Add(-5 * time.Minute)
	if err := p.Schedule(ctx, rem.ID, scheduledAt); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	added, err := p.Resync(ctx)
	if err != nil {
		t.Fatalf("resync: %v", err)
	}
	if added != 1 {
		t.Fatalf("expected only the missing reminder to be added, got %d", added)
	}

	added, err = p.Resync(ctx)
	if err != nil || added != 0 {
		t.Fatalf("second resync should add nothing, got %d (%v)", added, err)
	}

	if members := scheduledMembers(t, mr); len(members) != 2 {
		t.Fatalf("expected two scheduled jobs, got %v", members)
	}
	if got := memberScore(t, mr, models.ReminderJob{ReminderID: rem.ID}); got != score(scheduledAt) {
		t.Fatalf("existing entry must keep its score, got %v", got)
	}
}
