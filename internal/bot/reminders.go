package bot

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lojf/habits/internal/jobs"
	"github.com/lojf/habits/internal/logger"
	"github.com/lojf/habits/internal/metrics"
	"github.com/lojf/habits/internal/models"
)

// reminder rows older than this are pruned by the sweep
const reminderRetention = 30 * 24 * time.Hour

const dateLayout = "2006-01-02"

// JobRunner schedules one-shot jobs.
type JobRunner interface {
	At(at time.Time, name string, fn jobs.Func) (string, error)
}

// DueWithin reports whether t, placed on now's calendar date, falls inside
// [now, now+horizon) and is strictly after now. The window stops at
// midnight; the next day's first sweep picks up the rest.
func DueWithin(t models.TimeOfDay, now time.Time, horizon time.Duration) (time.Time, bool) {
	loc := now.Location()
	fire := t.On(now, loc)

	y, m, d := now.Date()
	end := now.Add(horizon)
	if midnight := time.Date(y, m, d+1, 0, 0, 0, 0, loc); end.After(midnight) {
		end = midnight
	}
	return fire, fire.After(now) && fire.Before(end)
}

// RecursOn reports whether h recurs on day: the whole days between the
// habit's creation date and day must be a multiple of its periodicity.
func RecursOn(h *models.Habit, day time.Time, loc *time.Location) bool {
	p := h.Periodicity
	if p < 1 {
		p = 1
	}
	n := daysBetween(h.CreatedAt.In(loc), day.In(loc))
	return n >= 0 && n%p == 0
}

func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// Scheduler finds habits due within the horizon and hands one dispatch job
// per habit and fire time to the job runner.
type Scheduler struct {
	db       *gorm.DB
	jobs     JobRunner
	notifier *Notifier
	loc      *time.Location
	horizon  time.Duration
	m        *metrics.Metrics
}

func NewScheduler(db *gorm.DB, jr JobRunner, n *Notifier, loc *time.Location, horizon time.Duration, m *metrics.Metrics) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if m == nil {
		m = metrics.Discard()
	}
	return &Scheduler{db: db, jobs: jr, notifier: n, loc: loc, horizon: horizon, m: m}
}

// Run is the cron entry point.
func (s *Scheduler) Run(ctx context.Context) {
	n, err := s.Sweep(ctx, time.Now())
	if err != nil {
		logger.Error("reminder sweep failed", "err", err)
		return
	}
	logger.Info("reminder sweep", "scheduled", n)
}

// Sweep schedules the reminders due within the horizon after now and
// returns how many were scheduled.
func (s *Scheduler) Sweep(ctx context.Context, now time.Time) (int, error) {
	s.m.SweepsTotal.Inc()
	now = now.In(s.loc)
	db := s.db.WithContext(ctx)

	from := models.ClockOf(now)
	to := from + models.TimeOfDay(s.horizon/time.Second)
	if midnight := models.NewTimeOfDay(24, 0, 0); to > midnight {
		to = midnight
	}

	var due []models.Habit
	err := db.Model(&models.Habit{}).
		Joins("JOIN users ON users.id = habits.user_id").
		Where("users.telegram_chat_id IS NOT NULL").
		Where("habits.time >= ? AND habits.time < ?", from.Long(), to.Long()).
		Order("habits.time, habits.id").
		Find(&due).Error
	if err != nil {
		return 0, err
	}

	scheduled := 0
	for i := range due {
		h := &due[i]
		fire, ok := DueWithin(h.Time, now, s.horizon)
		if !ok {
			continue
		}
		if !RecursOn(h, now, s.loc) {
			s.m.RemindersSkipped.WithLabelValues("periodicity").Inc()
			continue
		}

		r := models.Reminder{HabitID: h.ID, FireAt: fire.UTC(), FireDate: fire.Format(dateLayout)}
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&r)
		if res.Error != nil {
			logger.Error("claim reminder", "habit_id", h.ID, "err", res.Error)
			continue
		}
		if res.RowsAffected == 0 {
			s.m.RemindersSkipped.WithLabelValues("already_scheduled").Inc()
			continue
		}

		habitID, reminderID, at := h.ID, r.ID, h.Time
		if _, err := s.jobs.At(fire, "reminder", func(ctx context.Context) {
			s.notifier.deliver(ctx, habitID, reminderID, at)
		}); err != nil {
			logger.Warn("schedule reminder", "habit_id", habitID, "err", err)
			if err := db.Delete(&models.Reminder{}, reminderID).Error; err != nil {
				logger.Error("release reminder claim", "reminder_id", reminderID, "err", err)
			}
			continue
		}
		s.m.RemindersScheduled.Inc()
		scheduled++
		logger.Debug("reminder scheduled", "habit_id", habitID, "fire_at", fire.Format(time.RFC3339))
	}

	cutoff := now.Add(-reminderRetention).Format(dateLayout)
	if err := db.Where("fire_date < ?", cutoff).Delete(&models.Reminder{}).Error; err != nil {
		logger.Warn("prune reminders", "err", err)
	}
	return scheduled, nil
}
