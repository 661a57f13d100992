// Package validation holds the consistency rules a habit must satisfy before
// it is written, plus struct-tag checks for request payloads.
package validation

import (
	"fmt"

	"github.com/lojf/habits/internal/models"
)

const (
	MaxExecutionTime = 120 // seconds
	MinPeriodicity   = 1   // days
	MaxPeriodicity   = 7
)

// Error is a rejected write. Field names the offending attribute in its
// JSON spelling.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func reject(field, msg string) error { return &Error{Field: field, Message: msg} }

// Rule inspects a candidate habit and the habit it links to (nil when the
// link is unset or does not resolve).
type Rule func(h *models.Habit, related *models.Habit) error

// Rules are applied in this order; the first failure wins.
var Rules = []Rule{
	CheckExecutionTime,
	CheckPeriodicity,
	CheckPleasant,
	CheckRewardOrRelated,
	CheckRelatedIsPleasant,
}

// Validate runs every rule against the full post-write state of h.
func Validate(h *models.Habit, related *models.Habit) error {
	for _, rule := range Rules {
		if err := rule(h, related); err != nil {
			return err
		}
	}
	return nil
}

func CheckExecutionTime(h *models.Habit, _ *models.Habit) error {
	if h.ExecutionTime <= 0 {
		return reject("execution_time", "execution time must be a positive number of seconds")
	}
	if h.ExecutionTime > MaxExecutionTime {
		return reject("execution_time", fmt.Sprintf("execution time must not exceed %d seconds", MaxExecutionTime))
	}
	return nil
}

func CheckPeriodicity(h *models.Habit, _ *models.Habit) error {
	if h.Periodicity < MinPeriodicity {
		return reject("periodicity", "periodicity must be at least 1 day")
	}
	if h.Periodicity > MaxPeriodicity {
		return reject("periodicity", "a habit cannot be performed less often than once every 7 days")
	}
	return nil
}

func CheckPleasant(h *models.Habit, _ *models.Habit) error {
	if !h.IsPleasant {
		return nil
	}
	if h.HasReward() {
		return reject("reward", "a pleasant habit cannot have a reward")
	}
	if h.RelatedHabitID != nil {
		return reject("related_habit", "a pleasant habit cannot have a related habit")
	}
	return nil
}

func CheckRewardOrRelated(h *models.Habit, _ *models.Habit) error {
	if h.HasReward() && h.RelatedHabitID != nil {
		return reject("", "reward and related habit cannot both be set; choose one")
	}
	return nil
}

func CheckRelatedIsPleasant(h *models.Habit, related *models.Habit) error {
	if h.RelatedHabitID == nil {
		return nil
	}
	if related == nil || related.ID != *h.RelatedHabitID {
		return reject("related_habit", "related habit does not exist")
	}
	if !related.IsPleasant {
		return reject("related_habit", "only pleasant habits can be used as a related habit")
	}
	return nil
}
