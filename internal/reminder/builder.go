// Package reminder turns a user's notification settings and today's plan into
// scheduler requests.
//
// Every rebuild cancels everything that is pending and submits a fresh batch.
// This keeps the registry free of stale entries from an earlier snapshot
// without diffing old and new request sets.
package reminder

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/hcissey0/fitpal-notify/internal/domain"
	"github.com/hcissey0/fitpal-notify/internal/scheduler"
)

// Scheduler is the part of scheduler.Scheduler the builder drives.
type Scheduler interface {
	Schedule(req scheduler.Request) bool
	CancelAll()
}

var mealEmojis = map[string]string{
	domain.MealBreakfast: "🌅",
	domain.MealLunch:     "☀️",
	domain.MealSnack:     "🍎",
	domain.MealDinner:    "🌙",
}

// Summary reports what a rebuild submitted and what the scheduler accepted.
type Summary struct {
	Enabled   bool `json:"enabled"`
	Submitted int  `json:"submitted"`
	Scheduled int  `json:"scheduled"`
	Workout   bool `json:"workout"`
}

// Builder translates settings and plan data into scheduler requests.
type Builder struct {
	sched Scheduler
	clock clockwork.Clock
	log   *zap.Logger
}

// NewBuilder creates a Builder. A nil clock means the wall clock.
func NewBuilder(sched Scheduler, clock clockwork.Clock, log *zap.Logger) *Builder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Builder{sched: sched, clock: clock, log: log}
}

// Rebuild cancels every pending reminder and, when notifications are enabled,
// schedules one per meal with a configured time plus one for a non-rest workout.
func (b *Builder) Rebuild(settings domain.NotificationSettings, plan domain.TodayPlan) Summary {
	b.sched.CancelAll()

	sum := Summary{Enabled: settings.Enabled}
	if !settings.Enabled {
		b.log.Info("notifications disabled, nothing scheduled")
		return sum
	}

	loc := settings.Location
	if loc == nil {
		loc = time.UTC
	}
	now := b.clock.Now().In(loc)

	for _, req := range b.mealRequests(now, settings.Boundaries, plan.Meals) {
		sum.Submitted++
		if b.sched.Schedule(req) {
			sum.Scheduled++
		}
	}

	if req, ok := workoutRequest(now, settings.WorkoutTime, plan.Workout); ok {
		sum.Submitted++
		if b.sched.Schedule(req) {
			sum.Scheduled++
			sum.Workout = true
		}
	}

	b.log.Info("reminders rebuilt",
		zap.Int("submitted", sum.Submitted),
		zap.Int("scheduled", sum.Scheduled),
		zap.Bool("workout", sum.Workout),
	)
	return sum
}

func (b *Builder) mealRequests(now time.Time, boundaries domain.BoundarySet, meals []domain.Meal) []scheduler.Request {
	var out []scheduler.Request
	for _, meal := range meals {
		at, ok := boundaries.Lookup(meal.MealType)
		if !ok {
			b.log.Debug("meal type has no configured time",
				zap.Int64("meal_id", meal.ID), zap.String("meal_type", meal.MealType))
			continue
		}
		out = append(out, scheduler.Request{
			ID:       MealID(meal),
			Title:    mealTitle(meal.MealType),
			Body:     fmt.Sprintf("%s (%s calories) is ready to be logged.", meal.Description, formatCalories(meal.Calories)),
			FireAt:   domain.NextOccurrence(now, at),
			Category: scheduler.CategoryMeal,
		})
	}
	return out
}

func workoutRequest(now time.Time, at *domain.TimeOfDay, day *domain.WorkoutDay) (scheduler.Request, bool) {
	if day == nil || day.IsRestDay || at == nil {
		return scheduler.Request{}, false
	}
	return scheduler.Request{
		ID:       WorkoutID(*day),
		Title:    "💪 Time to Workout!",
		Body:     workoutBody(*day),
		FireAt:   domain.NextOccurrence(now, *at),
		Category: scheduler.CategoryWorkout,
	}, true
}

// MealID is the registry key for a meal reminder.
func MealID(m domain.Meal) string {
	return "meal-" + strconv.FormatInt(m.ID, 10) + "-" + m.MealType
}

// WorkoutID is the registry key for a workout reminder.
func WorkoutID(d domain.WorkoutDay) string {
	return "workout-" + strconv.FormatInt(d.ID, 10)
}

func mealTitle(mealType string) string {
	name := mealType
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	if emoji, ok := mealEmojis[mealType]; ok {
		return emoji + " Time for " + name + "!"
	}
	return "Time for " + name + "!"
}

func workoutBody(d domain.WorkoutDay) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s - %d exercises waiting for you.", d.Description, len(d.Exercises))
	if len(d.Exercises) > 0 {
		sb.WriteString("\n")
	}
	for _, e := range d.Exercises {
		fmt.Fprintf(&sb, "\n- %s (%d of %s)", e.Name, e.Sets, e.Reps)
	}
	return sb.String()
}

func formatCalories(c float64) string {
	return strconv.FormatFloat(c, 'f', -1, 64)
}
