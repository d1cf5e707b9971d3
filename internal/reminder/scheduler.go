// Package reminder sends the pre-match reminders for confirmed bookings.
package reminder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/nekogravitycat/futsal-booking-backend/internal/booking"
	"github.com/nekogravitycat/futsal-booking-backend/internal/notification"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/clock"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/daytime"
)

var ErrSweepInProgress = errors.New("reminder sweep already in progress")

// Tolerance is the half-width of the firing window around each threshold.
const Tolerance = time.Minute

// Threshold is one reminder, sent once when a booking is Before its start.
type Threshold struct {
	Before time.Duration
	Column string
}

func (t Threshold) Minutes() int {
	return int(t.Before / time.Minute)
}

func (t Threshold) sent(b *booking.Booking) bool {
	switch t.Column {
	case "reminder_30_sent":
		return b.Reminder30Sent
	case "reminder_10_sent":
		return b.Reminder10Sent
	}
	return true
}

// due reports whether toStart falls in [Before-Tolerance, Before+Tolerance].
func (t Threshold) due(toStart time.Duration) bool {
	return toStart >= t.Before-Tolerance && toStart <= t.Before+Tolerance
}

var Thresholds = []Threshold{
	{Before: 30 * time.Minute, Column: "reminder_30_sent"},
	{Before: 10 * time.Minute, Column: "reminder_10_sent"},
}

// Report summarizes one sweep.
type Report struct {
	Candidates int
	// Sent counts reminders fired per threshold in minutes, including failed sends.
	Sent   map[int]int
	Failed int
	// Unmarked counts reminders whose sent flag could not be written.
	Unmarked int
}

// firing identifies one reminder of one booking.
type firing struct {
	bookingID string
	minutes   int
}

type Scheduler struct {
	repo        Repository
	sender      notification.Sender
	locker      Locker
	loc         *time.Location
	sendTimeout time.Duration

	mu sync.Mutex
	// unmarked holds reminders already attempted whose flag write failed.
	// They are never sent again, only re-marked. Guarded by mu.
	unmarked map[firing]bool
}

func NewScheduler(repo Repository, sender notification.Sender, locker Locker, loc *time.Location, sendTimeout time.Duration) *Scheduler {
	if locker == nil {
		locker = nopLocker{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		repo:        repo,
		sender:      sender,
		locker:      locker,
		loc:         loc,
		sendTimeout: sendTimeout,
		unmarked:    make(map[firing]bool),
	}
}

// RunReminderSweep fires every reminder due at now. A reminder is marked sent
// after the attempt whether or not delivery succeeded, so each fires at most once.
func (s *Scheduler) RunReminderSweep(ctx context.Context, now time.Time) (Report, error) {
	report := Report{Sent: make(map[int]int, len(Thresholds))}

	if !s.mu.TryLock() {
		return report, ErrSweepInProgress
	}
	defer s.mu.Unlock()

	release, ok, err := s.locker.TryLock(ctx)
	if err != nil {
		return report, err
	}
	if !ok {
		return report, ErrSweepInProgress
	}
	defer release()

	today := daytime.DateOf(now, s.loc)
	candidates, err := s.repo.Candidates(ctx, today.AddDate(0, 0, -1), today.AddDate(0, 0, 1))
	if err != nil {
		return report, err
	}
	report.Candidates = len(candidates)

	seen := make(map[firing]bool)
	for _, c := range candidates {
		toStart := c.Booking.StartAt(s.loc).Sub(now)
		for _, t := range Thresholds {
			if t.sent(c.Booking) {
				continue
			}
			key := firing{bookingID: c.Booking.ID, minutes: t.Minutes()}
			seen[key] = true

			if s.unmarked[key] {
				if err := s.mark(ctx, c, t); err != nil {
					logUnmarked(ctx, c, t, err)
					report.Unmarked++
					continue
				}
				delete(s.unmarked, key)
				continue
			}
			if !t.due(toStart) {
				continue
			}

			delivered, err := s.fire(ctx, c, t)
			report.Sent[t.Minutes()]++
			if !delivered {
				report.Failed++
			}
			if err != nil {
				logUnmarked(ctx, c, t, err)
				report.Unmarked++
				s.unmarked[key] = true
			}
		}
	}

	// Bookings that left the candidate set no longer need their flags retried.
	for key := range s.unmarked {
		if !seen[key] {
			delete(s.unmarked, key)
		}
	}
	return report, nil
}

func logUnmarked(ctx context.Context, c Candidate, t Threshold, err error) {
	slog.ErrorContext(ctx, "reminder flag not recorded",
		"booking_id", c.Booking.ID, "minutes", t.Minutes(), "error", err)
}

// fire sends one reminder and marks it. delivered reports the send; the error
// is a failure to mark.
func (s *Scheduler) fire(ctx context.Context, c Candidate, t Threshold) (bool, error) {
	sendCtx := ctx
	if s.sendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, s.sendTimeout)
		defer cancel()
	}

	msg := notification.ReminderMessage(c.Booking, t.Minutes())
	sendErr := s.sender.Send(sendCtx, c.Recipient, msg)
	if sendErr != nil {
		slog.WarnContext(ctx, "reminder delivery failed",
			"booking_id", c.Booking.ID, "minutes", t.Minutes(), "error", sendErr)
	}

	if sendErr == nil {
		slog.InfoContext(ctx, "reminder sent", "booking_id", c.Booking.ID, "minutes", t.Minutes(), "user_id", c.Recipient.UserID)
	}
	return sendErr == nil, s.mark(ctx, c, t)
}

func (s *Scheduler) mark(ctx context.Context, c Candidate, t Threshold) error {
	marked, err := s.repo.MarkSent(ctx, c.Booking.ID, t)
	if err != nil {
		return errors.Wrapf(err, "mark %d-minute reminder for booking %s", t.Minutes(), c.Booking.ID)
	}
	if !marked {
		slog.WarnContext(ctx, "reminder flag was already set", "booking_id", c.Booking.ID, "minutes", t.Minutes())
	}
	return nil
}

// Run sweeps every interval until ctx ends.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration, clk clock.Clock) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := s.RunReminderSweep(ctx, clk.Now())
			switch {
			case errors.Is(err, ErrSweepInProgress):
				slog.Debug("reminder sweep skipped, another sweep is running")
			case err != nil:
				slog.Error("reminder sweep failed", "error", err)
			default:
				slog.Debug("reminder sweep finished",
					"candidates", report.Candidates, "sent_30", report.Sent[30], "sent_10", report.Sent[10], "unmarked", report.Unmarked)
			}
		}
	}
}
