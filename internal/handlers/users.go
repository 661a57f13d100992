package handlers

import (
	"net/http"
	"time"

	"github.com/lojf/habits/internal/auth"
	"github.com/lojf/habits/internal/models"
	"github.com/lojf/habits/internal/services"
)

type userDTO struct {
	ID             uint      `json:"id"`
	Email          string    `json:"email"`
	Username       string    `json:"username"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	TelegramChatID *int64    `json:"telegram_chat_id"`
	DateJoined     time.Time `json:"date_joined"`
}

func toUserDTO(u *models.User) userDTO {
	return userDTO{
		ID:             u.ID,
		Email:          u.Email,
		Username:       u.Username,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		TelegramChatID: u.TelegramChatID,
		DateJoined:     u.CreatedAt,
	}
}

type tokenResponse struct {
	Token string  `json:"token"`
	User  userDTO `json:"user"`
}

// POST /api/users/register
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.users.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tok, err := h.tokens.Issue(u.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{Token: tok, User: toUserDTO(u)})
}

// POST /api/users/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.users.Authenticate(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tok, err := h.tokens.Issue(u.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: tok, User: toUserDTO(u)})
}

// GET /api/users/profile
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Get(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(u))
}

// PUT and PATCH /api/users/profile. PUT replaces the editable fields, PATCH
// only those present in the body.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.users.UpdateProfile(r.Context(), auth.UserID(r.Context()), func(in *services.ProfileInput) error {
		if r.Method == http.MethodPut {
			*in = services.ProfileInput{}
		}
		return decodeInto(body, in)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(u))
}

// DELETE /api/users/profile
func (h *Handlers) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), auth.UserID(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
