package bot

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lojf/habits/internal/db"
	"github.com/lojf/habits/internal/jobs"
	"github.com/lojf/habits/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "bot.db"), db.Options{Silent: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		if s, err := conn.DB(); err == nil {
			s.Close()
		}
	})
	return conn
}

func seedUser(t *testing.T, conn *gorm.DB, email string, chatID *int64) *models.User {
	t.Helper()
	u := &models.User{Email: email, Username: email, PasswordHash: "x", TelegramChatID: chatID}
	require.NoError(t, conn.Create(u).Error)
	return u
}

func seedHabit(t *testing.T, conn *gorm.DB, owner uint, at models.TimeOfDay, created time.Time, mod func(*models.Habit)) *models.Habit {
	t.Helper()
	h := &models.Habit{
		CreatedAt:     created,
		UserID:        owner,
		Place:         "kitchen",
		Time:          at,
		Action:        "drink water",
		Periodicity:   1,
		ExecutionTime: 30,
	}
	if mod != nil {
		mod(h)
	}
	require.NoError(t, conn.Create(h).Error)
	return h
}

func ptr[T any](v T) *T { return &v }

type message struct {
	chatID int64
	text   string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []message
	err  error
}

func (f *fakeSender) SendMessage(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, message{chatID, text})
	return nil
}

func (f *fakeSender) messages() []message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]message(nil), f.sent...)
}

type scheduledJob struct {
	at time.Time
	fn jobs.Func
}

// fakeRunner records one-shot jobs instead of running them.
type fakeRunner struct {
	jobs []scheduledJob
	err  error
}

func (f *fakeRunner) At(at time.Time, _ string, fn jobs.Func) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.jobs = append(f.jobs, scheduledJob{at, fn})
	return "job", nil
}

func (f *fakeRunner) runAll(ctx context.Context) {
	for _, j := range f.jobs {
		j.fn(ctx)
	}
}
