package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/lojf/habits/internal/auth"
	"github.com/lojf/habits/internal/models"
	"github.com/lojf/habits/internal/validation"
)

type RegisterInput struct {
	Username  string `json:"username" validate:"required,max=150"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
}

// ProfileInput is the editable part of a profile. The email is fixed and the
// Telegram chat is only set through a redeemed link code.
type ProfileInput struct {
	Username  string `json:"username" validate:"required,max=150"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
}

type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *Users { return &Users{db: db} }

func (s *Users) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.Fields(in); err != nil {
		return nil, err
	}
	email, ok := NormEmail(in.Email)
	if !ok {
		return nil, &validation.Error{Field: "email", Message: "enter a valid email address"}
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Email:        email,
		Username:     in.Username,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: hash,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: a user with this email already exists", ErrConflict)
		}
		return tx.Create(u).Error
	})
	if isUnique(err) {
		return nil, fmt.Errorf("%w: a user with this email already exists", ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate returns the user owning email if password matches.
func (s *Users) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email, _ = NormEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

func (s *Users) Get(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// UpdateProfile applies edit to the current profile of user id and saves it.
func (s *Users) UpdateProfile(ctx context.Context, id uint, edit func(*ProfileInput) error) (*models.User, error) {
	var out *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.First(&u, id).Error; err != nil {
			return notFound(err)
		}
		in := ProfileInput{
			Username:  u.Username,
			FirstName: u.FirstName,
			LastName:  u.LastName,
		}
		if err := edit(&in); err != nil {
			return err
		}
		in.Username = strings.TrimSpace(in.Username)
		if err := validation.Fields(in); err != nil {
			return err
		}
		u.Username = in.Username
		u.FirstName = strings.TrimSpace(in.FirstName)
		u.LastName = strings.TrimSpace(in.LastName)
		if err := tx.Save(&u).Error; err != nil {
			return err
		}
		out = &u
		return nil
	})
	return out, err
}

// Delete removes the account together with its habits and link codes.
func (s *Users) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.First(&u, id).Error; err != nil {
			return notFound(err)
		}
		var ids []uint
		if err := tx.Model(&models.Habit{}).Where("user_id = ?", u.ID).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if err := deleteHabits(tx, ids); err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", u.ID).Delete(&models.LinkCode{}).Error; err != nil {
			return err
		}
		return tx.Delete(&u).Error
	})
}
