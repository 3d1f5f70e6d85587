package domain

import "time"

// UserProfile is the member document stored in the document store, keyed by
// phone number. The phone number is immutable after creation; every other
// field is filled in by profile completion or the edit flows.
type UserProfile struct {
	PhoneNumber string `json:"phoneNumber"`
	UID         string `json:"uid,omitempty"`
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	Age         int    `json:"age,omitempty"`
	Sex         string `json:"sex,omitempty"`
	Location    string `json:"location,omitempty"`
	IsMember    bool   `json:"isMember,omitempty"`

	// FitnessGoals is nil until the member sets goals.
	FitnessGoals *FitnessGoals `json:"fitnessGoals,omitempty"`

	// WeeklyWorkouts maps each weekday to its ordered exercise list.
	WeeklyWorkouts map[Weekday][]ExerciseEntry `json:"weeklyWorkouts,omitempty"`

	MembershipPlan      string `json:"membershipPlan,omitempty"`
	MembershipStartDate string `json:"membershipStartDate,omitempty"`
	MembershipEndDate   string `json:"membershipEndDate,omitempty"`
	MembershipStatus    string `json:"membershipStatus,omitempty"`

	ProfileImage string `json:"profileImage,omitempty"`

	PTSessions          []string  `json:"ptSessions,omitempty"`
	LastWorkoutFeedback string    `json:"lastWorkoutFeedback,omitempty"`
	LastUpdated         string    `json:"lastUpdated,omitempty"`
	CreatedAt           time.Time `json:"createdAt,omitempty"`
	UpdatedAt           time.Time `json:"updatedAt,omitempty"`
}

// FitnessGoals captures the goal-setting form. BMI and Category are always
// derived together from the same height/weight pair.
type FitnessGoals struct {
	Height     string     `json:"height"`
	Weight     string     `json:"weight"`
	Age        string     `json:"age,omitempty"`
	BloodGroup string     `json:"bloodGroup,omitempty"`
	BMI        string     `json:"bmi"`
	Category   string     `json:"category"`
	TargetGoal TargetGoal `json:"targetGoal"`
	SetAt      time.Time  `json:"setAt"`
}

// TargetGoal enumerates the selectable training goals.
type TargetGoal string

const (
	GoalWeightLoss TargetGoal = "weight_loss"
	GoalMuscleGain TargetGoal = "muscle_gain"
	GoalFitness    TargetGoal = "fitness"
)

// Valid reports whether the goal is one of the known values.
func (g TargetGoal) Valid() bool {
	switch g {
	case GoalWeightLoss, GoalMuscleGain, GoalFitness:
		return true
	}
	return false
}

// ExerciseEntry is a single row of the weekly workout tracker. All fields are
// free-form strings and any of them may be empty.
type ExerciseEntry struct {
	Exercise string `json:"exercise"`
	Sets     string `json:"sets"`
	Duration string `json:"duration"`
	Rest     string `json:"rest"`
}

// Weekday is a workout-tracker day key.
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

// Weekdays returns all days in tracker order.
func Weekdays() []Weekday {
	return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

// Valid reports whether d is one of the seven tracker days.
func (d Weekday) Valid() bool {
	for _, day := range Weekdays() {
		if d == day {
			return true
		}
	}
	return false
}

// ProfileComplete reports whether the onboarding form has been submitted.
// A document created during OTP verification has only phoneNumber/uid set.
func (p *UserProfile) ProfileComplete() bool {
	return p != nil && p.Name != ""
}
