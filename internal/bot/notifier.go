package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/lojf/habits/internal/logger"
	"github.com/lojf/habits/internal/metrics"
	"github.com/lojf/habits/internal/models"
)

// Notifier sends the reminder message for one habit.
type Notifier struct {
	db     *gorm.DB
	sender Sender
	m      *metrics.Metrics
}

func NewNotifier(db *gorm.DB, sender Sender, m *metrics.Metrics) *Notifier {
	if m == nil {
		m = metrics.Discard()
	}
	return &Notifier{db: db, sender: sender, m: m}
}

// Dispatch loads the habit as it is now and sends its reminder to the
// owner's chat. Failures are logged and counted, never returned.
func (n *Notifier) Dispatch(ctx context.Context, habitID uint) {
	n.deliver(ctx, habitID, 0, 0)
}

// deliver sends the reminder claimed as reminderID, which was scheduled for
// the habit's time at. A habit whose time moved since then is left to the
// sweep that reaches its new time.
func (n *Notifier) deliver(ctx context.Context, habitID, reminderID uint, at models.TimeOfDay) {
	var h models.Habit
	err := n.db.WithContext(ctx).Preload("User").Preload("RelatedHabit").First(&h, habitID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Info("reminder skipped: habit no longer exists", "habit_id", habitID)
		n.m.RemindersTotal.WithLabelValues(metrics.StatusMissing).Inc()
		return
	}
	if err != nil {
		logger.Error("load habit for reminder", "habit_id", habitID, "err", err)
		n.m.RemindersTotal.WithLabelValues(metrics.StatusFailed).Inc()
		return
	}
	if reminderID != 0 && h.Time != at {
		logger.Info("reminder skipped: habit time changed", "habit_id", habitID, "scheduled", at, "now", h.Time)
		n.m.RemindersTotal.WithLabelValues(metrics.StatusMoved).Inc()
		if err := n.db.WithContext(ctx).Delete(&models.Reminder{}, reminderID).Error; err != nil {
			logger.Warn("release reminder claim", "reminder_id", reminderID, "err", err)
		}
		return
	}
	if h.User.TelegramChatID == nil {
		logger.Info("reminder skipped: no telegram chat", "habit_id", habitID, "user_id", h.UserID)
		n.m.RemindersTotal.WithLabelValues(metrics.StatusNoChat).Inc()
		return
	}

	err = n.sender.SendMessage(ctx, *h.User.TelegramChatID, FormatReminder(&h))
	switch {
	case errors.Is(err, ErrNotConfigured):
		logger.Warn("reminder not sent: telegram bot is not configured", "habit_id", habitID)
		n.m.RemindersTotal.WithLabelValues(metrics.StatusNotConfigured).Inc()
		return
	case err != nil:
		logger.Error("reminder delivery failed", "habit_id", habitID, "err", err)
		n.m.RemindersTotal.WithLabelValues(metrics.StatusFailed).Inc()
		return
	}

	n.m.RemindersTotal.WithLabelValues(metrics.StatusSent).Inc()
	logger.Info("reminder sent", "habit_id", habitID, "user_id", h.UserID)
	if reminderID != 0 {
		if err := n.db.WithContext(ctx).Model(&models.Reminder{}).
			Where("id = ?", reminderID).
			Update("sent_at", time.Now()).Error; err != nil {
			logger.Warn("stamp reminder", "reminder_id", reminderID, "err", err)
		}
	}
}

// FormatReminder renders the Telegram message for h. RelatedHabit must be
// loaded for the "afterwards" line to appear.
func FormatReminder(h *models.Habit) string {
	var b strings.Builder
	b.WriteString("🔔 <b>Habit reminder!</b>\n\n")
	fmt.Fprintf(&b, "⏰ Time: %s\n", h.Time)
	fmt.Fprintf(&b, "📍 Place: %s\n", html.EscapeString(h.Place))
	fmt.Fprintf(&b, "✨ Action: %s\n", html.EscapeString(h.Action))
	fmt.Fprintf(&b, "⏱ Time to complete: %d sec.\n", h.ExecutionTime)
	switch {
	case h.HasReward():
		fmt.Fprintf(&b, "\n🎁 Reward: %s", html.EscapeString(*h.Reward))
	case h.RelatedHabit != nil:
		fmt.Fprintf(&b, "\n😊 Afterwards: %s", html.EscapeString(h.RelatedHabit.Action))
	}
	return b.String()
}
