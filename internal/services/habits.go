package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lojf/habits/internal/models"
	"github.com/lojf/habits/internal/validation"
)

// HabitInput is the writable form of a habit. Server-managed fields (id,
// owner, timestamps) are not part of it.
type HabitInput struct {
	Place         string            `json:"place" validate:"required,max=255"`
	Time          *models.TimeOfDay `json:"time" validate:"required"`
	Action        string            `json:"action" validate:"required,max=255"`
	IsPleasant    bool              `json:"is_pleasant"`
	RelatedHabit  *uint             `json:"related_habit"`
	Periodicity   *int              `json:"periodicity"`
	Reward        *string           `json:"reward" validate:"omitempty,max=255"`
	ExecutionTime *int              `json:"execution_time" validate:"required"`
	IsPublic      bool              `json:"is_public"`
}

// InputFrom returns the writable form of h, the base for partial updates.
func InputFrom(h *models.Habit) HabitInput {
	t := h.Time
	p := h.Periodicity
	e := h.ExecutionTime
	in := HabitInput{
		Place:         h.Place,
		Time:          &t,
		Action:        h.Action,
		IsPleasant:    h.IsPleasant,
		Periodicity:   &p,
		ExecutionTime: &e,
		IsPublic:      h.IsPublic,
	}
	if h.RelatedHabitID != nil {
		id := *h.RelatedHabitID
		in.RelatedHabit = &id
	}
	if h.Reward != nil {
		r := *h.Reward
		in.Reward = &r
	}
	return in
}

// apply copies in onto h after checking field-level constraints.
func (in HabitInput) apply(h *models.Habit) error {
	in.Place = strings.TrimSpace(in.Place)
	in.Action = strings.TrimSpace(in.Action)
	if err := validation.Fields(in); err != nil {
		return err
	}
	h.Place = in.Place
	h.Time = *in.Time
	h.Action = in.Action
	h.IsPleasant = in.IsPleasant
	h.RelatedHabitID = in.RelatedHabit
	h.Periodicity = 1
	if in.Periodicity != nil {
		h.Periodicity = *in.Periodicity
	}
	h.Reward = nil
	if in.Reward != nil && *in.Reward != "" {
		r := *in.Reward
		h.Reward = &r
	}
	h.ExecutionTime = *in.ExecutionTime
	h.IsPublic = in.IsPublic
	return nil
}

type Habits struct {
	db *gorm.DB
}

func NewHabits(db *gorm.DB) *Habits { return &Habits{db: db} }

func newestFirst(q *gorm.DB) *gorm.DB {
	return q.Order("habits.created_at DESC").Order("habits.id DESC")
}

// List returns one page of the owner's habits.
func (s *Habits) List(ctx context.Context, ownerID uint, p Page) (PageResult[models.Habit], error) {
	return s.page(s.db.WithContext(ctx).Model(&models.Habit{}).Where("user_id = ?", ownerID), p, false)
}

// ListPublic returns one page of habits their owners made public.
func (s *Habits) ListPublic(ctx context.Context, p Page) (PageResult[models.Habit], error) {
	return s.page(s.db.WithContext(ctx).Model(&models.Habit{}).Where("is_public = ?", true), p, true)
}

func (s *Habits) page(q *gorm.DB, p Page, withOwner bool) (PageResult[models.Habit], error) {
	q = q.Session(&gorm.Session{})
	var out PageResult[models.Habit]
	if err := q.Count(&out.Count).Error; err != nil {
		return out, err
	}
	if withOwner {
		q = q.Preload("User")
	}
	out.Items = make([]models.Habit, 0, p.Size)
	err := newestFirst(q).Offset(p.Offset()).Limit(p.Size).Find(&out.Items).Error
	return out, err
}

// Get returns the owner's habit id. Another owner's habit is ErrNotFound.
func (s *Habits) Get(ctx context.Context, ownerID, id uint) (*models.Habit, error) {
	return s.owned(s.db.WithContext(ctx), ownerID, id)
}

// GetPublic returns habit id if it is public.
func (s *Habits) GetPublic(ctx context.Context, id uint) (*models.Habit, error) {
	var h models.Habit
	err := s.db.WithContext(ctx).Preload("User").
		Where("id = ? AND is_public = ?", id, true).First(&h).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &h, nil
}

func (s *Habits) owned(tx *gorm.DB, ownerID, id uint) (*models.Habit, error) {
	var h models.Habit
	if err := tx.Where("id = ? AND user_id = ?", id, ownerID).First(&h).Error; err != nil {
		return nil, notFound(err)
	}
	return &h, nil
}

func (s *Habits) Create(ctx context.Context, ownerID uint, in HabitInput) (*models.Habit, error) {
	h := &models.Habit{UserID: ownerID}
	if err := in.apply(h); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.check(tx, h); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(h).Error
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Update loads the owner's habit, lets edit rewrite its input form, then
// validates the resulting full record and saves it. edit starts from the
// current values, so a partial update only touches what it sets.
func (s *Habits) Update(ctx context.Context, ownerID, id uint, edit func(*HabitInput) error) (*models.Habit, error) {
	var out *models.Habit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		h, err := s.owned(tx, ownerID, id)
		if err != nil {
			return err
		}
		in := InputFrom(h)
		if err := edit(&in); err != nil {
			return err
		}
		if err := in.apply(h); err != nil {
			return err
		}
		if err := s.check(tx, h); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(h).Error; err != nil {
			return err
		}
		out = h
		return nil
	})
	return out, err
}

// check resolves the related habit and runs the rule set.
func (s *Habits) check(tx *gorm.DB, h *models.Habit) error {
	var related *models.Habit
	switch {
	case h.RelatedHabitID == nil:
	case h.ID != 0 && *h.RelatedHabitID == h.ID:
		related = h
	default:
		// Only the owner's own habits resolve; anything else reads as missing.
		r, err := s.owned(tx, h.UserID, *h.RelatedHabitID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		related = r
	}
	return validation.Validate(h, related)
}

// Delete removes the owner's habit. Habits linking to it keep existing with
// the link cleared.
func (s *Habits) Delete(ctx context.Context, ownerID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		h, err := s.owned(tx, ownerID, id)
		if err != nil {
			return err
		}
		return deleteHabits(tx, []uint{h.ID})
	})
}

func deleteHabits(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Model(&models.Habit{}).Where("related_habit_id IN ?", ids).
		Update("related_habit_id", nil).Error; err != nil {
		return err
	}
	if err := tx.Where("habit_id IN ?", ids).Delete(&models.Reminder{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&models.Habit{}).Error
}
