// Package reminder predicts the next cycle start from recorded history
// and publishes a reminder event when it is close.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"champ-ai/internal/domain"
)

const (
	// maxHistory bounds how many recent cycle starts feed the average.
	maxHistory = 7

	// Plausible cycle length bounds. Averages outside fall back to the
	// configured default.
	minCycleDays = 20
	maxCycleDays = 45

	// Remind when the predicted start is at most this many days away.
	leadDays = 3
)

// Job runs the reminder check on a cron schedule.
type Job struct {
	periods      domain.PeriodStore
	memories     domain.MemoryStore
	bus          domain.EventBus
	cycleDays    int
	cooldownDays int
	logger       *slog.Logger

	cron    *cron.Cron
	entryID cron.EntryID

	mu           sync.Mutex
	lastReminded time.Time

	now func() time.Time
}

// New creates a reminder job. memories and bus may be nil.
func New(periods domain.PeriodStore, memories domain.MemoryStore, bus domain.EventBus, cycleDays, cooldownDays int, logger *slog.Logger) *Job {
	if cycleDays < minCycleDays || cycleDays > maxCycleDays {
		cycleDays = 28
	}
	if cooldownDays <= 0 {
		cooldownDays = 20
	}
	return &Job{
		periods:      periods,
		memories:     memories,
		bus:          bus,
		cycleDays:    cycleDays,
		cooldownDays: cooldownDays,
		logger:       logger,
		now:          time.Now,
	}
}

// Start schedules the check. The schedule uses standard 5-field cron
// syntax.
func (j *Job) Start(schedule string) error {
	j.cron = cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
	))

	id, err := j.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		j.Check(ctx)
	})
	if err != nil {
		return domain.WrapOp("reminder.Start", fmt.Errorf("invalid schedule %q: %w", schedule, err))
	}
	j.entryID = id

	j.cron.Start()
	j.logger.Info("period reminder scheduled", "schedule", schedule)
	return nil
}

// Stop halts the schedule and waits for a running check to finish.
func (j *Job) Stop() {
	if j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
}

// Check runs one prediction pass. It is exported so the check can be
// triggered outside the schedule.
func (j *Job) Check(ctx context.Context) {
	starts, err := j.periods.RecentStarts(ctx, maxHistory)
	if err != nil {
		j.logger.Warn("period reminder: history unavailable", "error", err)
		return
	}
	if len(starts) == 0 {
		return
	}

	next := j.predictNext(starts)
	daysUntil := int(next.Sub(startOfDay(j.now())).Hours() / 24)

	if daysUntil < 0 || daysUntil > leadDays {
		return
	}

	j.mu.Lock()
	if !j.lastReminded.IsZero() && j.now().Sub(j.lastReminded) < time.Duration(j.cooldownDays)*24*time.Hour {
		j.mu.Unlock()
		return
	}
	j.lastReminded = j.now()
	j.mu.Unlock()

	j.logger.Info("period reminder due", "predicted", next.Format("2006-01-02"), "days_until", daysUntil)
	j.remind(ctx, next, daysUntil)
}

// predictNext estimates the next start date: the newest recorded start
// plus the average gap between consecutive starts, clamped to plausible
// bounds.
func (j *Job) predictNext(starts []time.Time) time.Time {
	last := startOfDay(starts[0])

	cycle := j.cycleDays
	if len(starts) >= 2 {
		var total float64
		for i := 0; i < len(starts)-1; i++ {
			total += starts[i].Sub(starts[i+1]).Hours() / 24
		}
		avg := int(total/float64(len(starts)-1) + 0.5)
		if avg >= minCycleDays && avg <= maxCycleDays {
			cycle = avg
		}
	}

	return last.AddDate(0, 0, cycle)
}

func (j *Job) remind(ctx context.Context, next time.Time, daysUntil int) {
	content := fmt.Sprintf("根据记录推测，piggy 的下次经期大约在 %s（还有 %d 天）。记得多关心她，提醒她注意休息和保暖。",
		next.Format("2006年1月2日"), daysUntil)

	if j.memories != nil {
		entry := domain.MemoryEntry{
			Content:   content,
			Type:      domain.MemoryTypeReminder,
			Author:    "champ",
			CreatedAt: j.now(),
		}
		if err := j.memories.Store(ctx, entry); err != nil {
			j.logger.Warn("period reminder: memory write failed", "error", err)
		}
	}

	if j.bus != nil {
		j.bus.Publish(ctx, domain.Event{
			Type:      domain.EventReminderDue,
			Timestamp: j.now(),
			Payload: map[string]any{
				"predicted":  next.Format("2006-01-02"),
				"days_until": daysUntil,
			},
		})
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
