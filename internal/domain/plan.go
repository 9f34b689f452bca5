package domain

import (
	"time"
)

// Meal types as the FitPal backend names them.
const (
	MealBreakfast = "breakfast"
	MealLunch     = "lunch"
	MealSnack     = "snack"
	MealDinner    = "dinner"
)

// MealTypes lists meal types in the order the profile presents them.
var MealTypes = []string{MealBreakfast, MealLunch, MealSnack, MealDinner}

// Default meal times used when the profile leaves one unset.
var defaultMealTimes = map[string]TimeOfDay{
	MealBreakfast: 8 * 3600,
	MealLunch:     12 * 3600,
	MealSnack:     14 * 3600,
	MealDinner:    18 * 3600,
}

// Profile is the subset of the FitPal user profile the reminders depend on.
type Profile struct {
	NotificationRemindersEnabled bool   `json:"notification_reminders_enabled"`
	TimeZone                     string `json:"time_zone"`
	BreakfastTime                string `json:"breakfast_time"`
	LunchTime                    string `json:"lunch_time"`
	SnackTime                    string `json:"snack_time"`
	DinnerTime                   string `json:"dinner_time"`
	WorkoutTime                  string `json:"workout_time"`
}

type FitnessPlan struct {
	ID            int64          `json:"id"`
	StartDate     string         `json:"start_date"`
	EndDate       string         `json:"end_date"`
	IsActive      bool           `json:"is_active"`
	WorkoutDays   []WorkoutDay   `json:"workout_days"`
	NutritionDays []NutritionDay `json:"nutrition_days"`
}

// WorkoutDay is one day of a plan's workout schedule; DayOfWeek is 0 for Sunday.
type WorkoutDay struct {
	ID          int64      `json:"id"`
	DayOfWeek   int        `json:"day_of_week"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	IsRestDay   bool       `json:"is_rest_day"`
	Exercises   []Exercise `json:"exercises"`
}

type Exercise struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Sets int    `json:"sets"`
	Reps string `json:"reps"`
}

type NutritionDay struct {
	ID        int64  `json:"id"`
	DayOfWeek int    `json:"day_of_week"`
	Meals     []Meal `json:"meals"`
}

type Meal struct {
	ID          int64   `json:"id"`
	MealType    string  `json:"meal_type"`
	Description string  `json:"description"`
	Calories    float64 `json:"calories"`
}

// NotificationSettings is everything the schedule builder needs from the profile.
type NotificationSettings struct {
	Enabled     bool
	Boundaries  BoundarySet
	WorkoutTime *TimeOfDay
	Location    *time.Location
}

// TodayPlan is the day's snapshot of meals and workout. Workout is nil when the
// active plan has no workout entry for today.
type TodayPlan struct {
	Meals   []Meal
	Workout *WorkoutDay
}

// NotificationSettings derives reminder settings from the profile. Unset or
// malformed meal times fall back to the defaults; a malformed workout time
// disables the workout reminder.
func (p Profile) NotificationSettings(defaultLoc *time.Location) NotificationSettings {
	raw := map[string]string{
		MealBreakfast: p.BreakfastTime,
		MealLunch:     p.LunchTime,
		MealSnack:     p.SnackTime,
		MealDinner:    p.DinnerTime,
	}
	set := make(BoundarySet, 0, len(MealTypes))
	for _, mt := range MealTypes {
		at, err := ParseTimeOfDay(raw[mt])
		if err != nil {
			at = defaultMealTimes[mt]
		}
		set = append(set, Boundary{Label: mt, At: at})
	}

	s := NotificationSettings{
		Enabled:    p.NotificationRemindersEnabled,
		Boundaries: set,
		Location:   LoadLocation(p.TimeZone, defaultLoc),
	}
	if wt, err := ParseTimeOfDay(p.WorkoutTime); err == nil {
		s.WorkoutTime = &wt
	}
	return s
}

// ActivePlan returns the first plan flagged active.
func ActivePlan(plans []FitnessPlan) *FitnessPlan {
	for i := range plans {
		if plans[i].IsActive {
			return &plans[i]
		}
	}
	return nil
}

// Today picks the nutrition and workout entries for weekday.
func (p *FitnessPlan) Today(weekday time.Weekday) TodayPlan {
	var today TodayPlan
	if p == nil {
		return today
	}
	for _, nd := range p.NutritionDays {
		if nd.DayOfWeek == int(weekday) {
			today.Meals = nd.Meals
			break
		}
	}
	for i := range p.WorkoutDays {
		if p.WorkoutDays[i].DayOfWeek == int(weekday) {
			wd := p.WorkoutDays[i]
			today.Workout = &wd
			break
		}
	}
	return today
}

// CurrentMeal resolves the meal whose window contains now, falling back to
// breakfast when the boundaries cannot be resolved.
func CurrentMeal(set BoundarySet, now TimeOfDay) string {
	label, err := ResolveCurrent(set, now)
	if err != nil {
		return MealBreakfast
	}
	return label
}
