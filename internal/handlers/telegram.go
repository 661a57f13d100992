package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/lojf/habits/internal/auth"
	"github.com/lojf/habits/internal/bot"
	"github.com/lojf/habits/internal/logger"
)

type linkCodeResponse struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
	URL       string    `json:"url,omitempty"`
}

// deepLink opens the bot with the code prefilled as /start payload.
func (h *Handlers) deepLink(code string) string {
	if h.botUsername == "" {
		return ""
	}
	return "https://t.me/" + url.PathEscape(h.botUsername) + "?start=" + url.QueryEscape(code)
}

// POST /api/users/profile/telegram-link
func (h *Handlers) TelegramLink(w http.ResponseWriter, r *http.Request) {
	lc, err := h.users.NewLinkCode(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, linkCodeResponse{
		Code:      lc.Code,
		ExpiresAt: lc.ExpiresAt,
		URL:       h.deepLink(lc.Code),
	})
}

// DELETE /api/users/profile/telegram-link
func (h *Handlers) TelegramUnlink(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.UnlinkUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(u))
}

// GET /api/users/profile/telegram-link.png?code=123456
func (h *Handlers) TelegramLinkQR(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" || !h.users.ActiveLinkCode(r.Context(), auth.UserID(r.Context()), code) {
		NotFound(w, r)
		return
	}

	// Scanning opens the bot; without a bot name the code itself is encoded.
	content := h.deepLink(code)
	if content == "" {
		content = "/link " + code
	}
	png, err := qrcode.Encode(content, qrcode.Medium, 256)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// POST /tg/webhook?secret=...
func (h *Handlers) TelegramWebhook(w http.ResponseWriter, r *http.Request) {
	got := r.URL.Query().Get("secret")
	if h.webhookSecret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) != 1 {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var up bot.Update
	if err := json.Unmarshal(body, &up); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if h.bot == nil {
		logger.Warn("telegram update dropped: no dispatcher", "update_id", up.UpdateID)
	} else {
		h.bot.Handle(r.Context(), &up)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
