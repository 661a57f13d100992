package models

import "time"

type User struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Email        string `gorm:"uniqueIndex;not null"` // login identity, lower-cased
	Username     string `gorm:"not null"`
	FirstName    string
	LastName     string
	PasswordHash string `gorm:"not null"`

	TelegramChatID *int64 `gorm:"uniqueIndex"` // nil until linked
}

type Habit struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	UserID uint `gorm:"index;not null"`
	User   User `gorm:"constraint:OnDelete:CASCADE"`

	Place  string    `gorm:"size:255;not null"`
	Time   TimeOfDay `gorm:"index;not null"`
	Action string    `gorm:"size:255;not null"`

	IsPleasant     bool   `gorm:"default:false"`
	RelatedHabitID *uint  `gorm:"index"`
	RelatedHabit   *Habit `gorm:"constraint:OnDelete:SET NULL"`

	Periodicity   int     `gorm:"default:1;not null"` // days, 1..7
	Reward        *string `gorm:"size:255"`
	ExecutionTime int     `gorm:"not null"` // seconds, 1..120
	IsPublic      bool    `gorm:"default:false;index"`
}

// HasReward reports whether a non-empty reward is set.
func (h *Habit) HasReward() bool {
	return h.Reward != nil && *h.Reward != ""
}

// LinkCode is a one-time code a user sends to the bot to bind their chat.
type LinkCode struct {
	ID        uint      `gorm:"primarykey"`
	Code      string    `gorm:"uniqueIndex"`
	UserID    uint      `gorm:"index"`
	User      User      `gorm:"constraint:OnDelete:CASCADE"`
	ExpiresAt time.Time `gorm:"index"`
	UsedAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reminder records that a habit was scheduled to fire at FireAt. FireAt is
// stored in UTC so equal instants compare equal in the unique index.
type Reminder struct {
	ID        uint      `gorm:"primarykey"`
	HabitID   uint      `gorm:"uniqueIndex:idx_reminder_habit_fire;not null"`
	Habit     Habit     `gorm:"constraint:OnDelete:CASCADE"`
	FireAt    time.Time `gorm:"uniqueIndex:idx_reminder_habit_fire;not null"`
	FireDate  string    `gorm:"index;size:10;not null"` // local YYYY-MM-DD
	SentAt    *time.Time
	CreatedAt time.Time
}
