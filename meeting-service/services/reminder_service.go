package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"meetdesk-backend/shared/database/models"
	"meetdesk-backend/shared/metrics"
	"meetdesk-backend/shared/utils/cache"
)

type ReminderStore interface {
	ListDueReminders(ctx context.Context, from, to time.Time) ([]models.Meeting, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error)
}

type ReminderNotifier interface {
	SendMeetingReminder(ctx context.Context, meeting *models.Meeting, to Recipient) error
}

// Locker serializes the reminder scan across instances
type Locker interface {
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// ReminderService emails customer and host shortly before a meeting starts
type ReminderService struct {
	store    ReminderStore
	notifier ReminderNotifier
	locker   Locker
	interval time.Duration
	window   time.Duration
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewReminderService(store ReminderStore, notifier ReminderNotifier, locker Locker, interval, window time.Duration, m *metrics.Metrics) *ReminderService {
	if interval <= 0 {
		interval = time.Minute
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &ReminderService{
		store:    store,
		notifier: notifier,
		locker:   locker,
		interval: interval,
		window:   window,
		metrics:  m,
		now:      time.Now,
	}
}

// Start runs RunOnce every interval until ctx is cancelled
func (r *ReminderService) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Printf("⏰ Meeting reminder scheduler started (every %s, window %s)", r.interval, r.window)
	for {
		select {
		case <-ctx.Done():
			log.Println("⏰ Meeting reminder scheduler stopped")
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.metrics.IncError("reminder")
				log.Printf("❌ Meeting reminder scheduler error: %v", err)
			}
		}
	}
}

func (r *ReminderService) lockTTL() time.Duration {
	ttl := r.interval - 5*time.Second
	if ttl < 5*time.Second {
		ttl = 5 * time.Second
	}
	return ttl
}

// RunOnce sends reminders for meetings starting within the window and returns how many were marked sent.
// A meeting whose emails failed stays unmarked so the next tick retries it.
func (r *ReminderService) RunOnce(ctx context.Context) (int, error) {
	token := uuid.NewString()
	acquired, err := r.locker.AcquireLock(ctx, cache.ReminderLockKey, token, r.lockTTL())
	if err != nil {
		return 0, err
	}
	if !acquired {
		r.metrics.ObserveReminder("skipped_locked")
		return 0, nil
	}
	defer func() {
		if err := r.locker.ReleaseLock(context.WithoutCancel(ctx), cache.ReminderLockKey, token); err != nil {
			log.Printf("⚠️ Failed to release reminder lock: %v", err)
		}
	}()

	now := r.now().UTC()
	meetings, err := r.store.ListDueReminders(ctx, now, now.Add(r.window))
	if err != nil {
		return 0, err
	}

	sent := 0
	var errs []error
	for i := range meetings {
		meeting := &meetings[i]

		var sendErr error
		if meeting.Customer != nil {
			sendErr = errors.Join(sendErr, r.notifier.SendMeetingReminder(ctx, meeting, CustomerRecipient(meeting.Customer)))
		}
		if meeting.Host != nil {
			sendErr = errors.Join(sendErr, r.notifier.SendMeetingReminder(ctx, meeting, UserRecipient(meeting.Host)))
		}
		if sendErr != nil {
			r.metrics.ObserveReminder("failed")
			errs = append(errs, sendErr)
			continue
		}

		marked, err := r.store.MarkReminderSent(ctx, meeting.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if marked {
			sent++
			r.metrics.ObserveReminder("sent")
		}
	}

	if sent > 0 {
		log.Printf("⏰ Sent reminders for %d meeting(s)", sent)
	}
	return sent, errors.Join(errs...)
}
