package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lojf/habits/internal/metrics"
	"github.com/lojf/habits/internal/models"
)

func TestFormatReminder(t *testing.T) {
	h := &models.Habit{
		Place:         "park",
		Time:          models.NewTimeOfDay(7, 5, 0),
		Action:        "run <5km>",
		ExecutionTime: 120,
		Reward:        ptr("coffee & cake"),
	}
	want := "🔔 <b>Habit reminder!</b>\n\n" +
		"⏰ Time: 07:05\n" +
		"📍 Place: park\n" +
		"✨ Action: run &lt;5km&gt;\n" +
		"⏱ Time to complete: 120 sec.\n" +
		"\n🎁 Reward: coffee &amp; cake"
	assert.Equal(t, want, FormatReminder(h))

	h.Reward = nil
	h.RelatedHabit = &models.Habit{Action: "take a bath", IsPleasant: true}
	assert.Contains(t, FormatReminder(h), "\n😊 Afterwards: take a bath")
	assert.NotContains(t, FormatReminder(h), "Reward")

	h.RelatedHabit = nil
	assert.NotContains(t, FormatReminder(h), "Afterwards")
}

func TestDispatchLoadsHabitAtFireTime(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	owner := seedUser(t, conn, "o@example.com", ptr(int64(7)))
	bath := seedHabit(t, conn, owner.ID, models.NewTimeOfDay(21, 0, 0), time.Now(), func(h *models.Habit) {
		h.IsPleasant = true
		h.Action = "take a bath"
	})
	h := seedHabit(t, conn, owner.ID, models.NewTimeOfDay(20, 0, 0), time.Now(), func(h *models.Habit) {
		h.RelatedHabitID = &bath.ID
	})

	// edited after scheduling
	require.NoError(t, conn.Model(h).Update("place", "gym").Error)

	sender := &fakeSender{}
	m := metrics.Discard()
	NewNotifier(conn, sender, m).Dispatch(ctx, h.ID)

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(7), msgs[0].chatID)
	assert.Contains(t, msgs[0].text, "📍 Place: gym")
	assert.Contains(t, msgs[0].text, "😊 Afterwards: take a bath")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RemindersTotal.WithLabelValues(metrics.StatusSent)))
}

func TestDispatchSkips(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	linked := seedUser(t, conn, "l@example.com", ptr(int64(7)))
	unlinked := seedUser(t, conn, "u@example.com", nil)
	noChat := seedHabit(t, conn, unlinked.ID, models.NewTimeOfDay(8, 0, 0), time.Now(), nil)
	h := seedHabit(t, conn, linked.ID, models.NewTimeOfDay(8, 0, 0), time.Now(), nil)

	t.Run("missing habit", func(t *testing.T) {
		sender := &fakeSender{}
		m := metrics.Discard()
		NewNotifier(conn, sender, m).Dispatch(ctx, 9999)
		assert.Empty(t, sender.messages())
		assert.Equal(t, 1.0, testutil.ToFloat64(m.RemindersTotal.WithLabelValues(metrics.StatusMissing)))
	})

	t.Run("no chat", func(t *testing.T) {
		sender := &fakeSender{}
		m := metrics.Discard()
		NewNotifier(conn, sender, m).Dispatch(ctx, noChat.ID)
		assert.Empty(t, sender.messages())
		assert.Equal(t, 1.0, testutil.ToFloat64(m.RemindersTotal.WithLabelValues(metrics.StatusNoChat)))
	})

	t.Run("delivery failure", func(t *testing.T) {
		m := metrics.Discard()
		r := models.Reminder{HabitID: h.ID, FireDate: "2026-03-02"}
		require.NoError(t, conn.Create(&r).Error)

		NewNotifier(conn, &fakeSender{err: errors.New("timeout")}, m).deliver(ctx, h.ID, r.ID, h.Time)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.RemindersTotal.WithLabelValues(metrics.StatusFailed)))

		var got models.Reminder
		require.NoError(t, conn.First(&got, r.ID).Error)
		assert.Nil(t, got.SentAt, "failed sends are not stamped")
	})

	t.Run("bot not configured", func(t *testing.T) {
		m := metrics.Discard()
		NewNotifier(conn, NewClient(""), m).Dispatch(ctx, h.ID)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.RemindersTotal.WithLabelValues(metrics.StatusNotConfigured)))
	})
}
