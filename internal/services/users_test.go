package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lojf/habits/internal/models"
)

func register(t *testing.T, svc *Users, email string) *models.User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterInput{
		Username: "someone",
		Email:    email,
		Password: "password123",
	})
	require.NoError(t, err)
	return u
}

func TestUsers_RegisterAndAuthenticate(t *testing.T) {
	conn := openTestDB(t)
	svc := NewUsers(conn)
	ctx := context.Background()

	u := register(t, svc, " Alice@Example.com ")
	assert.Equal(t, "alice@example.com", u.Email)
	assert.NotEqual(t, "password123", u.PasswordHash)

	got, err := svc.Authenticate(ctx, "ALICE@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Register(ctx, RegisterInput{Username: "dup", Email: "alice@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUsers_RegisterFieldErrors(t *testing.T) {
	svc := NewUsers(openTestDB(t))
	ctx := context.Background()

	for _, in := range []RegisterInput{
		{Email: "a@example.com", Password: "password123"},
		{Username: "a", Email: "not-an-email", Password: "password123"},
		{Username: "a", Email: "a@example.com", Password: "short"},
	} {
		_, err := svc.Register(ctx, in)
		assert.True(t, isValidation(err), "%+v: %v", in, err)
	}
}

func TestUsers_ChatIDOnlyThroughLinkCode(t *testing.T) {
	conn := openTestDB(t)
	svc := NewUsers(conn)
	ctx := context.Background()

	a := register(t, svc, "a@example.com")
	assert.Nil(t, a.TelegramChatID)

	lc, err := svc.NewLinkCode(ctx, a.ID)
	require.NoError(t, err)
	_, err = svc.RedeemLinkCode(ctx, lc.Code, 100)
	require.NoError(t, err)

	got, err := svc.UpdateProfile(ctx, a.ID, func(in *ProfileInput) error {
		return json.Unmarshal([]byte(`{"first_name":"Ann","telegram_chat_id":555}`), in)
	})
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.FirstName)
	require.NotNil(t, got.TelegramChatID)
	assert.Equal(t, int64(100), *got.TelegramChatID)
	assert.Equal(t, "a@example.com", got.Email)

	got, err = svc.UnlinkUser(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got.TelegramChatID)
	reloaded, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.TelegramChatID)

	_, err = svc.UnlinkUser(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUsers_DeleteCascadesHabits(t *testing.T) {
	conn := openTestDB(t)
	users := NewUsers(conn)
	habits := NewHabits(conn)
	ctx := context.Background()

	owner := register(t, users, "o@example.com")
	other := register(t, users, "x@example.com")

	h, err := habits.Create(ctx, owner.ID, input("read"))
	require.NoError(t, err)
	_, err = users.NewLinkCode(ctx, owner.ID)
	require.NoError(t, err)
	_, err = habits.Create(ctx, other.ID, input("write"))
	require.NoError(t, err)

	require.NoError(t, users.Delete(ctx, owner.ID))

	_, err = users.Get(ctx, owner.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	var n int64
	conn.Model(&models.Habit{}).Where("id = ?", h.ID).Count(&n)
	assert.Zero(t, n)
	conn.Model(&models.LinkCode{}).Count(&n)
	assert.Zero(t, n)
	conn.Model(&models.Habit{}).Count(&n)
	assert.Equal(t, int64(1), n)

	assert.ErrorIs(t, users.Delete(ctx, owner.ID), ErrNotFound)
}

func TestUsers_LinkCodes(t *testing.T) {
	conn := openTestDB(t)
	svc := NewUsers(conn)
	ctx := context.Background()

	a := register(t, svc, "a@example.com")
	b := register(t, svc, "b@example.com")

	lc, err := svc.NewLinkCode(ctx, a.ID)
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9]{6}$`, lc.Code)
	assert.True(t, svc.ActiveLinkCode(ctx, a.ID, lc.Code))
	assert.False(t, svc.ActiveLinkCode(ctx, b.ID, lc.Code))

	got, err := svc.RedeemLinkCode(ctx, " "+lc.Code[:3]+" "+lc.Code[3:], 555)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, int64(555), *got.TelegramChatID)

	_, err = svc.RedeemLinkCode(ctx, lc.Code, 555)
	assert.ErrorIs(t, err, ErrCodeInvalid, "codes are single use")

	// The same chat linked from b moves off a.
	lc2, err := svc.NewLinkCode(ctx, b.ID)
	require.NoError(t, err)
	_, err = svc.RedeemLinkCode(ctx, lc2.Code, 555)
	require.NoError(t, err)
	reloaded, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.TelegramChatID)

	expired := models.LinkCode{Code: "000001", UserID: a.ID, ExpiresAt: time.Now().Add(-time.Minute)}
	require.NoError(t, conn.Create(&expired).Error)
	_, err = svc.RedeemLinkCode(ctx, "000001", 777)
	assert.ErrorIs(t, err, ErrCodeInvalid)

	ok, err := svc.UnlinkChat(ctx, 555)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.UnlinkChat(ctx, 555)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.NewLinkCode(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNormEmail(t *testing.T) {
	e, ok := NormEmail(" Bob@Example.COM ")
	assert.True(t, ok)
	assert.Equal(t, "bob@example.com", e)

	_, ok = NormEmail("Bob <bob@example.com>")
	assert.False(t, ok)
	_, ok = NormEmail("")
	assert.False(t, ok)
}
