package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lojf/habits/internal/auth"
	"github.com/lojf/habits/internal/models"
	"github.com/lojf/habits/internal/services"
	"github.com/lojf/habits/internal/validation"
)

type habitDTO struct {
	ID            uint             `json:"id"`
	User          uint             `json:"user"`
	Place         string           `json:"place"`
	Time          models.TimeOfDay `json:"time"`
	Action        string           `json:"action"`
	IsPleasant    bool             `json:"is_pleasant"`
	RelatedHabit  *uint            `json:"related_habit"`
	Periodicity   int              `json:"periodicity"`
	Reward        *string          `json:"reward"`
	ExecutionTime int              `json:"execution_time"`
	IsPublic      bool             `json:"is_public"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func toHabitDTO(h *models.Habit) habitDTO {
	return habitDTO{
		ID:            h.ID,
		User:          h.UserID,
		Place:         h.Place,
		Time:          h.Time,
		Action:        h.Action,
		IsPleasant:    h.IsPleasant,
		RelatedHabit:  h.RelatedHabitID,
		Periodicity:   h.Periodicity,
		Reward:        h.Reward,
		ExecutionTime: h.ExecutionTime,
		IsPublic:      h.IsPublic,
		CreatedAt:     h.CreatedAt,
		UpdatedAt:     h.UpdatedAt,
	}
}

// publicHabitDTO is what other users see; no reward, no links, no owner id.
type publicHabitDTO struct {
	ID            uint             `json:"id"`
	UserEmail     string           `json:"user_email"`
	Place         string           `json:"place"`
	Time          models.TimeOfDay `json:"time"`
	Action        string           `json:"action"`
	IsPleasant    bool             `json:"is_pleasant"`
	Periodicity   int              `json:"periodicity"`
	ExecutionTime int              `json:"execution_time"`
	CreatedAt     time.Time        `json:"created_at"`
}

func toPublicHabitDTO(h *models.Habit) publicHabitDTO {
	return publicHabitDTO{
		ID:            h.ID,
		UserEmail:     h.User.Email,
		Place:         h.Place,
		Time:          h.Time,
		Action:        h.Action,
		IsPleasant:    h.IsPleasant,
		Periodicity:   h.Periodicity,
		ExecutionTime: h.ExecutionTime,
		CreatedAt:     h.CreatedAt,
	}
}

type pageResponse[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

func pageFrom(r *http.Request) (services.Page, error) {
	q := r.URL.Query()
	number, size := 1, 0
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return services.Page{}, badRequest("page", "page must be a positive integer")
		}
		number = n
	}
	if v := q.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return services.Page{}, badRequest("page_size", "page_size must be a positive integer")
		}
		size = n
	}
	p := services.NewPage(number, size)
	if number > p.Number {
		return services.Page{}, &httpError{status: http.StatusNotFound, msg: "invalid page"}
	}
	return p, nil
}

func pageLink(r *http.Request, number int) *string {
	q := r.URL.Query()
	q.Set("page", strconv.Itoa(number))
	s := r.URL.Path + "?" + q.Encode()
	return &s
}

func writePage[T any](w http.ResponseWriter, r *http.Request, p services.Page, res services.PageResult[models.Habit], conv func(*models.Habit) T) {
	if p.Number > 1 && len(res.Items) == 0 {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "invalid page"})
		return
	}
	out := pageResponse[T]{Count: res.Count, Results: make([]T, 0, len(res.Items))}
	for i := range res.Items {
		out.Results = append(out.Results, conv(&res.Items[i]))
	}
	if res.HasNext(p) {
		out.Next = pageLink(r, p.Number+1)
	}
	if p.Number > 1 {
		out.Previous = pageLink(r, p.Number-1)
	}
	writeJSON(w, http.StatusOK, out)
}

// habitID reads {id}; anything that is not an id cannot name a habit.
func habitID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, services.ErrNotFound
	}
	return uint(id), nil
}

func (h *Handlers) countWrite(op string, err error) {
	var verr *validation.Error
	result := "ok"
	switch {
	case err == nil:
	case errors.As(err, &verr):
		result = "invalid"
	case errors.Is(err, services.ErrNotFound):
		result = "not_found"
	default:
		result = "error"
	}
	h.m.HabitWritesTotal.WithLabelValues(op, result).Inc()
}

// GET /api/habits/my-habits
func (h *Handlers) ListMyHabits(w http.ResponseWriter, r *http.Request) {
	p, err := pageFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.habits.List(r.Context(), auth.UserID(r.Context()), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, r, p, res, toHabitDTO)
}

// POST /api/habits/my-habits
func (h *Handlers) CreateHabit(w http.ResponseWriter, r *http.Request) {
	var in services.HabitInput
	err := decode(w, r, &in)
	if err == nil {
		var hb *models.Habit
		hb, err = h.habits.Create(r.Context(), auth.UserID(r.Context()), in)
		if err == nil {
			h.countWrite("create", nil)
			writeJSON(w, http.StatusCreated, toHabitDTO(hb))
			return
		}
	}
	h.countWrite("create", err)
	writeError(w, r, err)
}

// GET /api/habits/my-habits/{id}
func (h *Handlers) GetMyHabit(w http.ResponseWriter, r *http.Request) {
	id, err := habitID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	hb, err := h.habits.Get(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHabitDTO(hb))
}

// PUT and PATCH /api/habits/my-habits/{id}
func (h *Handlers) UpdateHabit(w http.ResponseWriter, r *http.Request) {
	id, err := habitID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	hb, err := h.habits.Update(r.Context(), auth.UserID(r.Context()), id, func(in *services.HabitInput) error {
		if r.Method == http.MethodPut {
			*in = services.HabitInput{}
		}
		return decodeInto(body, in)
	})
	h.countWrite("update", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHabitDTO(hb))
}

// DELETE /api/habits/my-habits/{id}
func (h *Handlers) DeleteHabit(w http.ResponseWriter, r *http.Request) {
	id, err := habitID(r)
	if err == nil {
		err = h.habits.Delete(r.Context(), auth.UserID(r.Context()), id)
	}
	h.countWrite("delete", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/habits/public
func (h *Handlers) ListPublicHabits(w http.ResponseWriter, r *http.Request) {
	p, err := pageFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.habits.ListPublic(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, r, p, res, toPublicHabitDTO)
}

// GET /api/habits/public/{id}
func (h *Handlers) GetPublicHabit(w http.ResponseWriter, r *http.Request) {
	id, err := habitID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	hb, err := h.habits.GetPublic(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPublicHabitDTO(hb))
}
