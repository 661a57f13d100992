package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"gorm.io/gorm"

	"github.com/lojf/habits/internal/models"
)

const LinkCodeTTL = 15 * time.Minute

var ErrCodeInvalid = errors.New("code invalid or expired")

// genCode6 returns a 6-digit code using crypto/rand.
func genCode6() string {
	var b [3]byte
	_, _ = rand.Read(b[:])
	n := (int(b[0])<<16 | int(b[1])<<8 | int(b[2])) % 1000000
	return fmt.Sprintf("%06d", n)
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NewLinkCode issues a fresh code the user can send to the bot.
func (s *Users) NewLinkCode(ctx context.Context, userID uint) (*models.LinkCode, error) {
	db := s.db.WithContext(ctx)
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}

	// housekeeping: drop this user's used or long-expired codes
	_ = db.Where("user_id = ? AND (used_at IS NOT NULL OR expires_at < ?)", userID, time.Now().Add(-24*time.Hour)).
		Delete(&models.LinkCode{}).Error

	// try a few times to avoid unique collisions
	for i := 0; i < 10; i++ {
		lc := models.LinkCode{
			Code:      genCode6(),
			UserID:    userID,
			ExpiresAt: time.Now().Add(LinkCodeTTL),
		}
		err := db.Create(&lc).Error
		if err == nil {
			return &lc, nil
		}
		if !isUnique(err) {
			return nil, err
		}
	}
	return nil, errors.New("unable to generate link code, please try again")
}

// ActiveLinkCode reports whether code is an unused, unexpired code of userID.
func (s *Users) ActiveLinkCode(ctx context.Context, userID uint, code string) bool {
	var n int64
	s.db.WithContext(ctx).Model(&models.LinkCode{}).
		Where("user_id = ? AND code = ? AND used_at IS NULL AND expires_at > ?", userID, onlyDigits(code), time.Now()).
		Count(&n)
	return n > 0
}

// RedeemLinkCode binds chatID to the account that issued code. A chat can
// only belong to one account, so it is moved off any previous owner.
func (s *Users) RedeemLinkCode(ctx context.Context, code string, chatID int64) (*models.User, error) {
	code = onlyDigits(code) // strip spaces, punctuation, accidental chars
	if code == "" {
		return nil, ErrCodeInvalid
	}
	var out models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lc models.LinkCode
		err := tx.Where("code = ? AND used_at IS NULL AND expires_at > ?", code, time.Now()).First(&lc).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCodeInvalid
		}
		if err != nil {
			return err
		}
		now := time.Now()
		if err := tx.Model(&lc).Update("used_at", now).Error; err != nil {
			return err
		}
		if err := tx.First(&out, lc.UserID).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Model(&models.User{}).
			Where("telegram_chat_id = ? AND id <> ?", chatID, out.ID).
			Update("telegram_chat_id", nil).Error; err != nil {
			return err
		}
		out.TelegramChatID = &chatID
		return tx.Model(&out).Update("telegram_chat_id", chatID).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UnlinkChat clears chatID from whichever account holds it. It reports
// whether an account was linked.
func (s *Users) UnlinkChat(ctx context.Context, chatID int64) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("telegram_chat_id = ?", chatID).
		Update("telegram_chat_id", nil)
	return res.RowsAffected > 0, res.Error
}

// UnlinkUser clears the Telegram chat of user id.
func (s *Users) UnlinkUser(ctx context.Context, id uint) (*models.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(u).Update("telegram_chat_id", nil).Error; err != nil {
		return nil, err
	}
	u.TelegramChatID = nil
	return u, nil
}
